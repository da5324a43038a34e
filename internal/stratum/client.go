package stratum

import (
	"bufio"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tos-network/tosminer/internal/model"
)

// protocolVersion is advertised in the default subscribe handshake as
// "tosminer/<version>".
const protocolVersion = "1.0.0"

const (
	maxLineSize = 8 * 1024

	dialTimeout   = 10 * time.Second
	writeDeadline = 10 * time.Second

	keepaliveInterval   = 30 * time.Second
	cleanupInterval     = 10 * time.Second
	pendingExpiry       = 30 * time.Second
	workTimeoutDuration = 60 * time.Second

	maxConcurrentTimeouts = 3

	reconnectBaseDelay  = 1 * time.Second
	maxReconnectAttempts = 10
)

var errClientStopped = errors.New("stratum: client stopped")

// State is a position in the client's connection state machine.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Subscribed
	Authorized
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Subscribed:
		return "subscribed"
	case Authorized:
		return "authorized"
	default:
		return "disconnected"
	}
}

// TLSMode controls certificate verification for stratum+ssl endpoints.
type TLSMode int

const (
	// TLSPermissive accepts any peer certificate (logging its subject),
	// since mining pools commonly present self-signed certs.
	TLSPermissive TLSMode = iota
	// TLSStrict fails the handshake on an invalid certificate chain.
	TLSStrict
)

// ShareResult reports the outcome of one submitted solution. Stale
// marks a share whose job had already been superseded by a newer
// mining.notify by the time it was submitted, distinct from an
// ordinary pool-side rejection.
type ShareResult struct {
	Accepted bool
	Stale    bool
	Reason   string
}

// WorkCallback is invoked with every job published by the pool.
type WorkCallback func(work model.WorkPackage)

// ReconnectCallback is invoked each time runLoop drops the connection
// and is about to retry, whether from an ordinary I/O failure or a
// pool-initiated client.reconnect.
type ReconnectCallback func()

// ShareCallback is invoked with the outcome of every submitted solution.
type ShareCallback func(nonce uint64, result ShareResult)

// Config configures a Client.
type Config struct {
	// Endpoints are tried in order; the first is primary, the rest are
	// failover candidates rotated to after repeated reconnect failures.
	Endpoints []string
	User      string
	Pass      string
	Variant   Variant
	TLSMode   TLSMode
}

type pendingRequest struct {
	method     string
	sentAt     time.Time
	onResponse func(result json.RawMessage, errObj *RPCError)
}

// reconnectRequestedErr signals a server-initiated client.reconnect,
// distinct from a transport/protocol failure: it does not count against
// the backoff attempt counter.
type reconnectRequestedErr struct {
	endpoint *Endpoint
}

func (e *reconnectRequestedErr) Error() string { return "stratum: pool requested reconnect" }

// Client is the outbound pool connection: subscribe, authorize, receive
// jobs, submit solutions, all driven from a single I/O goroutine per the
// design note that cross-thread submissions are enqueued as tasks rather
// than writing to the socket directly.
type Client struct {
	logger *zap.Logger
	cfg    Config

	// sessionID identifies this client instance across reconnects in
	// logs, distinct from any pool-assigned subscription id.
	sessionID string

	endpointsMu sync.Mutex
	endpoints   []Endpoint
	endpointIdx int

	state atomic.Int32

	connMu sync.Mutex
	conn   net.Conn

	pendingMu sync.Mutex
	pending   map[int64]*pendingRequest
	nextID    atomic.Int64

	// diff/target/subscription state: written and read only from the
	// single I/O goroutine, so no lock is needed.
	difficulty      float64
	overrideTarget  *model.Hash256
	extranonce1     string
	extranonce2Size int
	lastWork        model.WorkPackage

	workTimeoutTimer *time.Timer
	abortCh          chan error

	workCbMu sync.Mutex
	workCb   WorkCallback

	shareCbMu sync.Mutex
	shareCb   ShareCallback

	reconnectCbMu sync.Mutex
	reconnectCb   ReconnectCallback

	taskCh chan func()
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewClient validates cfg and constructs a disconnected Client.
func NewClient(logger *zap.Logger, cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, errors.New("stratum: at least one pool endpoint is required")
	}
	if cfg.User == "" {
		return nil, errors.New("stratum: user is required")
	}

	endpoints := make([]Endpoint, 0, len(cfg.Endpoints))
	for _, raw := range cfg.Endpoints {
		ep, err := ParsePoolURL(raw)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}

	c := &Client{
		logger:    logger,
		cfg:       cfg,
		sessionID: uuid.NewString(),
		endpoints: endpoints,
		pending:   make(map[int64]*pendingRequest),
		taskCh:    make(chan func(), 64),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	c.state.Store(int32(Disconnected))
	return c, nil
}

// SetWorkCallback installs the farm's work-distribution callback.
func (c *Client) SetWorkCallback(cb WorkCallback) {
	c.workCbMu.Lock()
	defer c.workCbMu.Unlock()
	c.workCb = cb
}

// SetShareCallback installs the farm's share-outcome callback.
func (c *Client) SetShareCallback(cb ShareCallback) {
	c.shareCbMu.Lock()
	defer c.shareCbMu.Unlock()
	c.shareCb = cb
}

// SetReconnectCallback installs the callback fired every time the
// client drops its connection and is about to retry.
func (c *Client) SetReconnectCallback(cb ReconnectCallback) {
	c.reconnectCbMu.Lock()
	defer c.reconnectCbMu.Unlock()
	c.reconnectCb = cb
}

// State returns the client's current connection state.
func (c *Client) State() State { return State(c.state.Load()) }

// SessionID returns the client instance's stable identifier, used to
// correlate log lines across reconnects.
func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) setState(s State) { c.state.Store(int32(s)) }

// Start launches the connect/serve/reconnect loop in the background.
func (c *Client) Start() { go c.runLoop() }

// Stop disconnects unconditionally and cancels all timers, waiting for
// the I/O loop to exit.
func (c *Client) Stop() {
	select {
	case <-c.stopCh:
		return
	default:
		close(c.stopCh)
	}
	<-c.doneCh
}

// GracefulDisconnect polls the pending-request count every 100 ms up to
// timeoutMs, then disconnects unconditionally. It returns how many
// pending requests drained before the deadline.
func (c *Client) GracefulDisconnect(timeoutMs int) int {
	start := c.pendingCount()
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for time.Now().Before(deadline) {
		if c.pendingCount() == 0 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	drained := start - c.pendingCount()
	c.Stop()
	return drained
}

// SubmitSolution is the farm's entry point for a verified solution. It
// enqueues the actual submit onto the I/O goroutine rather than writing
// to the socket from the caller's thread.
func (c *Client) SubmitSolution(work model.WorkPackage, solution model.Solution) {
	select {
	case c.taskCh <- func() { c.submitSolutionSync(work, solution) }:
	default:
		if c.logger != nil {
			c.logger.Warn("stratum submit queue full, dropping solution", zap.Uint64("nonce", solution.Nonce))
		}
	}
}

func (c *Client) pendingCount() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pending)
}

func (c *Client) currentEndpoint() Endpoint {
	c.endpointsMu.Lock()
	defer c.endpointsMu.Unlock()
	return c.endpoints[c.endpointIdx]
}

func (c *Client) rotateFailover() {
	c.endpointsMu.Lock()
	defer c.endpointsMu.Unlock()
	if len(c.endpoints) > 1 {
		c.endpointIdx = (c.endpointIdx + 1) % len(c.endpoints)
		if c.logger != nil {
			c.logger.Warn("rotating to failover endpoint", zap.String("endpoint", c.endpoints[c.endpointIdx].Address()))
		}
	}
}

func (c *Client) setExplicitEndpoint(ep Endpoint) {
	c.endpointsMu.Lock()
	defer c.endpointsMu.Unlock()
	c.endpoints[c.endpointIdx] = ep
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// runLoop connects, serves, and reconnects with exponential backoff and
// failover rotation until Stop is called or MAX attempts are exhausted.
func (c *Client) runLoop() {
	defer close(c.doneCh)

	attempts := 0
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		err := c.connectAndServe()
		c.setState(Disconnected)

		if errors.Is(err, errClientStopped) {
			return
		}
		if err != nil && c.logger != nil {
			c.logger.Warn("pool connection ended", zap.Error(err))
		}
		c.notifyReconnect()

		var reconn *reconnectRequestedErr
		if errors.As(err, &reconn) {
			attempts = 0
			if reconn.endpoint != nil {
				c.setExplicitEndpoint(*reconn.endpoint)
			}
		} else {
			attempts++
			if attempts >= maxReconnectAttempts {
				if c.logger != nil {
					c.logger.Error("giving up after exhausting reconnect attempts")
				}
				return
			}
			if attempts == maxReconnectAttempts/2 {
				c.rotateFailover()
			}
		}

		backoff := reconnectBaseDelay * time.Duration(int64(1)<<minInt(attempts, 5))
		select {
		case <-c.stopCh:
			return
		case <-time.After(backoff):
		}
	}
}

func (c *Client) notifyReconnect() {
	c.reconnectCbMu.Lock()
	cb := c.reconnectCb
	c.reconnectCbMu.Unlock()
	if cb != nil {
		cb()
	}
}

func (c *Client) setConn(conn net.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func (c *Client) getConn() net.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *Client) resetPending() {
	c.pendingMu.Lock()
	c.pending = make(map[int64]*pendingRequest)
	c.pendingMu.Unlock()
}

// connectAndServe dials one endpoint, performs the handshake, and runs
// the single I/O loop until a fatal error, explicit reconnect, or Stop.
func (c *Client) connectAndServe() error {
	ep := c.currentEndpoint()
	c.setState(Connecting)

	dialer := net.Dialer{Timeout: dialTimeout}
	var conn net.Conn
	var err error
	if ep.UseTLS() {
		tlsCfg := &tls.Config{
			ServerName:         ep.Host,
			InsecureSkipVerify: c.cfg.TLSMode == TLSPermissive,
		}
		if c.cfg.TLSMode == TLSPermissive {
			tlsCfg.VerifyConnection = func(cs tls.ConnectionState) error {
				if len(cs.PeerCertificates) > 0 && c.logger != nil {
					c.logger.Info("accepted pool certificate",
						zap.String("subject", cs.PeerCertificates[0].Subject.String()))
				}
				return nil
			}
		}
		conn, err = tls.DialWithDialer(&dialer, "tcp", ep.Address(), tlsCfg)
	} else {
		conn, err = dialer.Dial("tcp", ep.Address())
	}
	if err != nil {
		return fmt.Errorf("stratum: connect to %s: %w", ep.Address(), err)
	}
	defer conn.Close()

	if c.logger != nil {
		c.logger.Info("connected to pool", zap.String("session_id", c.sessionID), zap.String("endpoint", ep.Address()))
	}

	c.setConn(conn)
	defer c.setConn(nil)
	c.setState(Connected)
	c.resetPending()
	c.lastWork = model.WorkPackage{}

	abortCh := make(chan error, 1)
	c.abortCh = abortCh

	lineCh := make(chan []byte, 64)
	readErrCh := make(chan error, 1)
	go c.readLoop(conn, lineCh, readErrCh)

	if err := c.beginHandshake(); err != nil {
		return err
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()
	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	workTimeout := time.NewTimer(workTimeoutDuration)
	defer workTimeout.Stop()
	c.workTimeoutTimer = workTimeout
	defer func() { c.workTimeoutTimer = nil }()

	for {
		select {
		case <-c.stopCh:
			return errClientStopped

		case line, ok := <-lineCh:
			if !ok {
				continue
			}
			if len(line) > maxLineSize {
				return fmt.Errorf("stratum: line exceeds %d bytes", maxLineSize)
			}
			if err := c.handleLine(line); err != nil {
				return err
			}

		case err := <-readErrCh:
			return fmt.Errorf("stratum: read: %w", err)

		case err := <-abortCh:
			return err

		case task := <-c.taskCh:
			task()

		case <-keepalive.C:
			if c.State() == Authorized {
				_ = c.sendRequest("mining.ping", []interface{}{}, nil)
			}

		case <-cleanup.C:
			if c.reapPending() {
				return errors.New("stratum: too many concurrent request timeouts")
			}

		case <-workTimeout.C:
			return errors.New("stratum: work timeout, no notify in 60s")
		}
	}
}

func (c *Client) readLoop(conn net.Conn, lineCh chan<- []byte, errCh chan<- error) {
	reader := bufio.NewReaderSize(conn, maxLineSize*2)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			errCh <- err
			return
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		select {
		case lineCh <- cp:
		case <-c.stopCh:
			return
		}
	}
}

func (c *Client) reportAbort(err error) {
	select {
	case c.abortCh <- err:
	default:
	}
}

func (c *Client) beginHandshake() error {
	if c.cfg.Variant == VariantEthProxy {
		c.setState(Subscribed)
		params := []interface{}{c.cfg.User}
		if c.cfg.Pass != "" {
			params = append(params, c.cfg.Pass)
		}
		return c.sendRequest("eth_submitLogin", params, c.onAuthorizeResult)
	}

	params := []interface{}{"tosminer/" + protocolVersion}
	if c.cfg.Variant == VariantEthereumStratum {
		params = append(params, "EthereumStratum/1.0.0")
	}
	return c.sendRequest("mining.subscribe", params, c.onSubscribeResult)
}

func (c *Client) sendRequest(method string, params interface{}, onResponse func(json.RawMessage, *RPCError)) error {
	id := c.nextID.Add(1)
	req := outboundRequest{ID: id, Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	c.pendingMu.Lock()
	c.pending[id] = &pendingRequest{method: method, sentAt: time.Now(), onResponse: onResponse}
	c.pendingMu.Unlock()

	conn := c.getConn()
	if conn == nil {
		return errors.New("stratum: not connected")
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	_, err = conn.Write(data)
	return err
}

func (c *Client) handleLine(line []byte) error {
	var msg inboundMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		if c.logger != nil {
			c.logger.Warn("dropping malformed stratum line", zap.Error(err))
		}
		return nil
	}

	if id, ok := msg.responseID(); ok {
		c.dispatchResponse(id, msg.Result, msg.Error)
		return nil
	}
	if msg.Method != "" {
		return c.dispatchNotification(msg.Method, msg.Params)
	}
	if c.logger != nil {
		c.logger.Warn("dropping stratum message with neither id nor method")
	}
	return nil
}

func (c *Client) dispatchResponse(id int64, result json.RawMessage, errObj *RPCError) {
	c.pendingMu.Lock()
	req, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	if !ok {
		if c.logger != nil {
			c.logger.Warn("dropping response to unknown request id", zap.Int64("id", id))
		}
		return
	}
	if req.onResponse != nil {
		req.onResponse(result, errObj)
	}
}

func (c *Client) dispatchNotification(method string, params json.RawMessage) error {
	switch method {
	case "mining.notify":
		c.handleNotify(params)
	case "mining.set_difficulty":
		c.handleSetDifficulty(params)
	case "mining.set_target":
		c.handleSetTarget(params)
	case "client.show_message":
		c.handleShowMessage(params)
	case "client.reconnect":
		return c.handleReconnect(params)
	default:
		if c.logger != nil {
			c.logger.Debug("ignoring unknown stratum notification", zap.String("method", method))
		}
	}
	return nil
}

func (c *Client) reapPending() bool {
	now := time.Now()
	c.pendingMu.Lock()
	var timedOut []*pendingRequest
	for id, req := range c.pending {
		if now.Sub(req.sentAt) > pendingExpiry {
			timedOut = append(timedOut, req)
			delete(c.pending, id)
		}
	}
	c.pendingMu.Unlock()

	for _, req := range timedOut {
		if req.onResponse != nil {
			req.onResponse(nil, &RPCError{Code: -1, Message: "timeout"})
		}
	}
	return len(timedOut) >= maxConcurrentTimeouts
}

func (c *Client) resetWorkTimeout() {
	if c.workTimeoutTimer != nil {
		c.workTimeoutTimer.Reset(workTimeoutDuration)
	}
}

func (c *Client) currentTarget() model.Hash256 {
	if c.overrideTarget != nil {
		return *c.overrideTarget
	}
	return DifficultyToTarget(c.difficulty, c.logger)
}

func extranonce1StartNonce(hexStr string) uint64 {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return 0
	}
	n := len(b)
	if n > 8 {
		n = 8
	}
	var nonce uint64
	for i := 0; i < n; i++ {
		nonce |= uint64(b[i]) << (8 * i)
	}
	return nonce
}

func setHeaderFromHex(work *model.WorkPackage, headerHex string) {
	data, _ := hex.DecodeString(headerHex)
	n := len(data)
	const prefixLen = 104
	if n > prefixLen {
		n = prefixLen
	}
	copy(work.Header[:], data[:n])
	for i := n; i < prefixLen; i++ {
		work.Header[i] = 0
	}
}

func targetFromHex(targetHex string) model.Hash256 {
	var t model.Hash256
	data, _ := hex.DecodeString(targetHex)
	n := len(data)
	if n > model.HashSize {
		n = model.HashSize
	}
	copy(t[:], data[:n])
	return t
}
