package stratum

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tos-network/tosminer/internal/model"
)

// staleRejectionKeywords are phrases pools commonly use in mining.submit
// error responses to report a share whose job has already rolled over.
var staleRejectionKeywords = []string{"stale", "job not found", "expired", "duplicate job"}

func isStaleRejection(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range staleRejectionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// onSubscribeResult completes the mining.subscribe round trip: it stores
// the assigned extranonce1/extranonce2_size and immediately sends
// mining.authorize.
func (c *Client) onSubscribeResult(result json.RawMessage, errObj *RPCError) {
	if errObj != nil {
		c.reportAbort(fmt.Errorf("stratum: subscribe rejected: %w", errObj))
		return
	}

	extranonce1, extranonce2Size, err := parseSubscribeResult(result)
	if err != nil {
		c.reportAbort(err)
		return
	}
	c.extranonce1 = extranonce1
	c.extranonce2Size = extranonce2Size
	c.setState(Subscribed)

	if err := c.sendRequest("mining.authorize", []interface{}{c.cfg.User, c.cfg.Pass}, c.onAuthorizeResult); err != nil {
		c.reportAbort(err)
	}
}

// onAuthorizeResult completes either mining.authorize or eth_submitLogin;
// both report success as a bare boolean result.
func (c *Client) onAuthorizeResult(result json.RawMessage, errObj *RPCError) {
	if errObj != nil {
		c.reportAbort(fmt.Errorf("stratum: authorize rejected: %w", errObj))
		return
	}
	var ok bool
	if err := json.Unmarshal(result, &ok); err != nil || !ok {
		c.reportAbort(errors.New("stratum: authorize rejected"))
		return
	}
	c.setState(Authorized)
	if c.logger != nil {
		c.logger.Info("pool client authorized", zap.String("user", c.cfg.User))
	}
}

// parseSubscribeResult handles both the nested ([[method,id],...]) and
// flat ([method,id]) subscription-list shapes a pool may return.
func parseSubscribeResult(result json.RawMessage) (extranonce1 string, extranonce2Size int, err error) {
	var arr []interface{}
	if err := json.Unmarshal(result, &arr); err != nil || len(arr) < 3 {
		return "", 0, fmt.Errorf("stratum: malformed subscribe result: %s", string(result))
	}

	extranonce1, _ = arr[1].(string)
	sizeF, _ := arr[2].(float64)
	extranonce2Size = int(sizeF)
	if extranonce2Size < 4 {
		extranonce2Size = 4
	} else if extranonce2Size > 8 {
		extranonce2Size = 8
	}
	return extranonce1, extranonce2Size, nil
}

// handleNotify parses mining.notify. The simplified TOS format carries
// [job_id, header_hex, target_hex, height, clean_jobs]; any other shape
// with at least two params falls back to a standard-Stratum-shaped stub
// built from the job id and the previous-hash field alone, mining at
// currentTarget() (a standing target override if one is set, else the
// target derived from the pool's last difficulty).
func (c *Client) handleNotify(params json.RawMessage) {
	var arr []interface{}
	if err := json.Unmarshal(params, &arr); err != nil {
		if c.logger != nil {
			c.logger.Warn("dropping malformed mining.notify", zap.Error(err))
		}
		return
	}

	work := model.WorkPackage{
		ExtraNonce1:     c.extranonce1,
		ExtraNonce2Size: c.extranonce2Size,
		StartNonce:      extranonce1StartNonce(c.extranonce1),
		ReceivedAt:      time.Now(),
		Valid:           true,
	}

	if len(arr) >= 5 {
		if _, isClean := arr[4].(bool); isClean {
			work.JobID, _ = arr[0].(string)
			headerHex, _ := arr[1].(string)
			targetHex, _ := arr[2].(string)
			heightF, _ := arr[3].(float64)
			work.Height = uint64(heightF)

			setHeaderFromHex(&work, headerHex)
			if targetHex != "" {
				work.Target = targetFromHex(targetHex)
				c.overrideTarget = &work.Target
			} else {
				work.Target = c.currentTarget()
			}
			c.publishWork(work)
			return
		}
	}

	if len(arr) >= 2 {
		work.JobID, _ = arr[0].(string)
		prevHash, _ := arr[1].(string)
		setHeaderFromHex(&work, prevHash)
		work.Target = c.currentTarget()
		c.publishWork(work)
		return
	}

	if c.logger != nil {
		c.logger.Warn("dropping mining.notify with too few params", zap.Int("count", len(arr)))
	}
}

func (c *Client) publishWork(work model.WorkPackage) {
	if c.lastWork.Valid {
		if age := work.ReceivedAt.Sub(c.lastWork.ReceivedAt); age > pendingExpiry {
			if c.logger != nil {
				c.logger.Warn("previous job aged out before replacement",
					zap.String("job_id", c.lastWork.JobID), zap.Duration("age", age))
			}
		}
	}
	c.lastWork = work
	c.resetWorkTimeout()

	c.workCbMu.Lock()
	cb := c.workCb
	c.workCbMu.Unlock()
	if cb != nil {
		cb(work)
	}
}

// handleSetDifficulty updates the advertised difficulty used to derive a
// target for any future notify that carries no target_hex of its own.
func (c *Client) handleSetDifficulty(params json.RawMessage) {
	var arr []interface{}
	if err := json.Unmarshal(params, &arr); err != nil || len(arr) < 1 {
		return
	}
	d, ok := arr[0].(float64)
	if !ok {
		return
	}
	c.difficulty = d
	c.overrideTarget = nil
}

// handleSetTarget installs an explicit target that takes precedence over
// the difficulty-derived one until replaced by a later set_difficulty.
func (c *Client) handleSetTarget(params json.RawMessage) {
	var arr []interface{}
	if err := json.Unmarshal(params, &arr); err != nil || len(arr) < 1 {
		return
	}
	hexStr, ok := arr[0].(string)
	if !ok {
		return
	}
	target := targetFromHex(hexStr)
	c.overrideTarget = &target
}

func (c *Client) handleShowMessage(params json.RawMessage) {
	var arr []interface{}
	if err := json.Unmarshal(params, &arr); err != nil || len(arr) < 1 {
		return
	}
	msg, _ := arr[0].(string)
	if c.logger != nil {
		c.logger.Info("message from pool", zap.String("message", msg))
	}
}

// handleReconnect implements client.reconnect: optionally switch to a new
// host/port, then tear down the connection so runLoop retries immediately
// without counting it against the backoff attempt budget.
func (c *Client) handleReconnect(params json.RawMessage) error {
	var arr []interface{}
	_ = json.Unmarshal(params, &arr)

	req := &reconnectRequestedErr{}
	if len(arr) >= 2 {
		host, hostOK := arr[0].(string)
		portF, portOK := arr[1].(float64)
		if hostOK && portOK {
			cur := c.currentEndpoint()
			req.endpoint = &Endpoint{Scheme: cur.Scheme, Host: host, Port: int(portF)}
		}
	}
	return req
}

// submitSolutionSync sends mining.submit for one solution. Runs on the
// client's single I/O goroutine via the task queue.
func (c *Client) submitSolutionSync(work model.WorkPackage, solution model.Solution) {
	if c.State() != Authorized {
		if c.logger != nil {
			c.logger.Warn("dropping solution, not authorized", zap.String("state", c.State().String()))
		}
		return
	}

	// The job this solution was verified against may already have been
	// superseded by a newer mining.notify by the time it reaches the
	// wire; that is exactly the definition of a stale share, regardless
	// of how the pool happens to word its rejection.
	stale := work.JobID != c.lastWork.JobID

	extranonce2Hex := work.ExtraNonce2Hex(solution.Nonce)
	nonceHex := fmt.Sprintf("%016x", solution.Nonce)
	params := []interface{}{c.cfg.User, work.JobID, extranonce2Hex, nonceHex}

	err := c.sendRequest("mining.submit", params, func(result json.RawMessage, errObj *RPCError) {
		if errObj != nil {
			c.notifyShare(solution.Nonce, ShareResult{Accepted: false, Stale: stale || isStaleRejection(errObj.Message), Reason: errObj.Message})
			return
		}
		var ok bool
		_ = json.Unmarshal(result, &ok)
		if ok {
			c.notifyShare(solution.Nonce, ShareResult{Accepted: true, Stale: stale})
		} else {
			c.notifyShare(solution.Nonce, ShareResult{Accepted: false, Stale: stale, Reason: "rejected"})
		}
	})
	if err != nil && c.logger != nil {
		c.logger.Warn("failed to send mining.submit", zap.Error(err))
	}
}

func (c *Client) notifyShare(nonce uint64, result ShareResult) {
	c.shareCbMu.Lock()
	cb := c.shareCb
	c.shareCbMu.Unlock()
	if cb != nil {
		cb(nonce, result)
	}
}
