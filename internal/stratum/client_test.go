package stratum

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewClientRejectsEmptyEndpoints(t *testing.T) {
	if _, err := NewClient(nil, Config{User: "worker1"}); err == nil {
		t.Fatalf("NewClient must reject a config with no endpoints")
	}
}

func TestNewClientRejectsEmptyUser(t *testing.T) {
	if _, err := NewClient(nil, Config{Endpoints: []string{"stratum+tcp://pool.example.com:3333"}}); err == nil {
		t.Fatalf("NewClient must reject a config with no user")
	}
}

func TestNewClientStartsDisconnected(t *testing.T) {
	c := newTestClient(t)
	if c.State() != Disconnected {
		t.Fatalf("State() = %v, want Disconnected", c.State())
	}
}

func TestNotifyReconnectInvokesInstalledCallback(t *testing.T) {
	c := newTestClient(t)
	calls := 0
	c.SetReconnectCallback(func() { calls++ })

	c.notifyReconnect()
	c.notifyReconnect()

	if calls != 2 {
		t.Fatalf("reconnect callback fired %d times, want 2", calls)
	}
}

func TestNotifyReconnectToleratesNoCallback(t *testing.T) {
	c := newTestClient(t)
	c.notifyReconnect() // must not panic with no callback installed
}

func TestRotateFailoverCyclesThroughEndpoints(t *testing.T) {
	c, err := NewClient(nil, Config{
		Endpoints: []string{
			"stratum+tcp://primary.example.com:3333",
			"stratum+tcp://backup.example.com:3333",
		},
		User: "worker1",
	})
	if err != nil {
		t.Fatalf("NewClient returned an error: %v", err)
	}

	if got := c.currentEndpoint().Host; got != "primary.example.com" {
		t.Fatalf("initial endpoint host = %q, want primary.example.com", got)
	}
	c.rotateFailover()
	if got := c.currentEndpoint().Host; got != "backup.example.com" {
		t.Fatalf("endpoint host after rotateFailover = %q, want backup.example.com", got)
	}
	c.rotateFailover()
	if got := c.currentEndpoint().Host; got != "primary.example.com" {
		t.Fatalf("rotateFailover must wrap back around to the primary endpoint, got %q", got)
	}
}

func TestRotateFailoverIsNoOpWithOneEndpoint(t *testing.T) {
	c := newTestClient(t)
	before := c.currentEndpoint()
	c.rotateFailover()
	if c.currentEndpoint() != before {
		t.Fatalf("rotateFailover must be a no-op with only one configured endpoint")
	}
}

func TestSetExplicitEndpointOverridesCurrentSlot(t *testing.T) {
	c := newTestClient(t)
	c.setExplicitEndpoint(Endpoint{Scheme: "tcp", Host: "override.example.com", Port: 9999})
	if got := c.currentEndpoint().Host; got != "override.example.com" {
		t.Fatalf("currentEndpoint().Host = %q, want override.example.com", got)
	}
}

func TestPendingCountTracksOutstandingRequests(t *testing.T) {
	c := newTestClient(t)
	if c.pendingCount() != 0 {
		t.Fatalf("pendingCount() = %d, want 0 for a fresh client", c.pendingCount())
	}
	c.pendingMu.Lock()
	c.pending[1] = &pendingRequest{method: "mining.subscribe", sentAt: time.Now()}
	c.pendingMu.Unlock()
	if c.pendingCount() != 1 {
		t.Fatalf("pendingCount() = %d, want 1", c.pendingCount())
	}
}

func TestReapPendingPurgesExpiredRequestsAndInvokesCallback(t *testing.T) {
	c := newTestClient(t)

	var gotErr *RPCError
	c.pendingMu.Lock()
	c.pending[1] = &pendingRequest{
		method: "mining.submit",
		sentAt: time.Now().Add(-2 * pendingExpiry),
		onResponse: func(result json.RawMessage, errObj *RPCError) {
			gotErr = errObj
		},
	}
	c.pending[2] = &pendingRequest{method: "mining.submit", sentAt: time.Now()}
	c.pendingMu.Unlock()

	forceReconnect := c.reapPending()
	if forceReconnect {
		t.Fatalf("reapPending() = true with only 1 expired request, want false (below maxConcurrentTimeouts)")
	}
	if gotErr == nil {
		t.Fatalf("expired pending request's onResponse was not invoked with a timeout error")
	}
	if c.pendingCount() != 1 {
		t.Fatalf("pendingCount() = %d after reapPending, want 1 (only the non-expired request remains)", c.pendingCount())
	}
}

func TestReapPendingForcesReconnectAtThreshold(t *testing.T) {
	c := newTestClient(t)
	c.pendingMu.Lock()
	for i := int64(1); i <= int64(maxConcurrentTimeouts); i++ {
		c.pending[i] = &pendingRequest{method: "mining.submit", sentAt: time.Now().Add(-2 * pendingExpiry)}
	}
	c.pendingMu.Unlock()

	if !c.reapPending() {
		t.Fatalf("reapPending() = false, want true once expired requests reach maxConcurrentTimeouts (%d)", maxConcurrentTimeouts)
	}
}

func TestDispatchResponseRoutesToPendingCallback(t *testing.T) {
	c := newTestClient(t)
	var gotResult json.RawMessage
	c.pendingMu.Lock()
	c.pending[7] = &pendingRequest{
		method: "mining.authorize",
		sentAt: time.Now(),
		onResponse: func(result json.RawMessage, errObj *RPCError) {
			gotResult = result
		},
	}
	c.pendingMu.Unlock()

	c.dispatchResponse(7, json.RawMessage(`true`), nil)
	if string(gotResult) != "true" {
		t.Fatalf("dispatchResponse did not deliver the result to the matching pending request")
	}
	if c.pendingCount() != 0 {
		t.Fatalf("dispatchResponse must remove the request from pending once dispatched")
	}
}

func TestDispatchResponseIgnoresUnknownID(t *testing.T) {
	c := newTestClient(t)
	// Must not panic on a response with no matching pending request.
	c.dispatchResponse(999, json.RawMessage(`true`), nil)
}

func TestHandleLineRoutesResponsesAndNotifications(t *testing.T) {
	c := newTestClient(t)
	var gotResult json.RawMessage
	c.pendingMu.Lock()
	c.pending[1] = &pendingRequest{
		method: "mining.subscribe",
		sentAt: time.Now(),
		onResponse: func(result json.RawMessage, errObj *RPCError) {
			gotResult = result
		},
	}
	c.pendingMu.Unlock()

	if err := c.handleLine([]byte(`{"id":1,"result":["sub-id","aabbccdd",4],"error":null}`)); err != nil {
		t.Fatalf("handleLine returned an error for a response line: %v", err)
	}
	if gotResult == nil {
		t.Fatalf("handleLine did not route the response to the pending callback")
	}

	err := c.handleLine([]byte(`{"id":null,"method":"mining.set_difficulty","params":[64]}`))
	if err != nil {
		t.Fatalf("handleLine returned an error for a notification line: %v", err)
	}
	if c.difficulty != 64 {
		t.Fatalf("difficulty after handleLine notification = %v, want 64", c.difficulty)
	}
}

func TestHandleLineDropsMalformedJSON(t *testing.T) {
	c := newTestClient(t)
	if err := c.handleLine([]byte(`not json`)); err != nil {
		t.Fatalf("handleLine on malformed JSON must not return an error (it is dropped), got %v", err)
	}
}

func TestDispatchNotificationPropagatesReconnectError(t *testing.T) {
	c := newTestClient(t)
	err := c.dispatchNotification("client.reconnect", json.RawMessage(`[]`))
	if err == nil {
		t.Fatalf("dispatchNotification must propagate client.reconnect as an error")
	}
}

func TestDispatchNotificationIgnoresUnknownMethod(t *testing.T) {
	c := newTestClient(t)
	if err := c.dispatchNotification("client.something_else", json.RawMessage(`[]`)); err != nil {
		t.Fatalf("an unknown notification method must be ignored, got error: %v", err)
	}
}
