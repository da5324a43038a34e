// Package stratum implements the outbound pool client: a line-delimited
// JSON-RPC connection that subscribes, authorizes, receives jobs, and
// submits solutions, with reconnect/failover and a difficulty-to-target
// conversion shared by every job notification.
package stratum

import (
	"encoding/json"
	"fmt"
)

// Variant selects a subscribe/authorize handshake dialect.
type Variant int

const (
	VariantDefault Variant = iota
	VariantEthProxy
	VariantEthereumStratum
)

func (v Variant) String() string {
	switch v {
	case VariantEthProxy:
		return "ethproxy"
	case VariantEthereumStratum:
		return "ethereumstratum"
	default:
		return "default"
	}
}

// RPCError mirrors a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// outboundRequest is every message this client ever sends: it always
// carries an id, since the client never answers server-initiated
// notifications.
type outboundRequest struct {
	ID     int64       `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

// inboundMessage covers both shapes the server sends: a response to one
// of our requests (non-null id, no method) or a notification (method
// set, id absent or null).
type inboundMessage struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

func (m *inboundMessage) isResponse() bool {
	return m.Method == "" && len(m.ID) > 0 && string(m.ID) != "null"
}

func (m *inboundMessage) responseID() (int64, bool) {
	if !m.isResponse() {
		return 0, false
	}
	var id int64
	if err := json.Unmarshal(m.ID, &id); err != nil {
		return 0, false
	}
	return id, true
}
