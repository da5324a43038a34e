package stratum

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tos-network/tosminer/internal/model"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(nil, Config{
		Endpoints: []string{"stratum+tcp://pool.example.com:3333"},
		User:      "worker1",
		Pass:      "x",
	})
	if err != nil {
		t.Fatalf("NewClient returned an error: %v", err)
	}
	return c
}

func TestParseSubscribeResultFlatShape(t *testing.T) {
	raw := json.RawMessage(`["subscription-id", "ae6812eb4cd7735a302a8a9dd95cf71f", 4]`)
	extranonce1, size, err := parseSubscribeResult(raw)
	if err != nil {
		t.Fatalf("parseSubscribeResult returned an error: %v", err)
	}
	if extranonce1 != "ae6812eb4cd7735a302a8a9dd95cf71f" {
		t.Fatalf("extranonce1 = %q, want the second element", extranonce1)
	}
	if size != 4 {
		t.Fatalf("extranonce2Size = %d, want 4", size)
	}
}

func TestParseSubscribeResultNestedShape(t *testing.T) {
	raw := json.RawMessage(`[[["mining.set_difficulty", "sub-id"], ["mining.notify", "sub-id"]], "f000000a", 8]`)
	extranonce1, size, err := parseSubscribeResult(raw)
	if err != nil {
		t.Fatalf("parseSubscribeResult returned an error: %v", err)
	}
	if extranonce1 != "f000000a" {
		t.Fatalf("extranonce1 = %q, want %q", extranonce1, "f000000a")
	}
	if size != 8 {
		t.Fatalf("extranonce2Size = %d, want 8", size)
	}
}

func TestParseSubscribeResultClampsSize(t *testing.T) {
	_, size, err := parseSubscribeResult(json.RawMessage(`["sub-id", "aabbccdd", 2]`))
	if err != nil {
		t.Fatalf("parseSubscribeResult returned an error: %v", err)
	}
	if size != 4 {
		t.Fatalf("extranonce2Size = %d, want clamped to 4", size)
	}

	_, size, err = parseSubscribeResult(json.RawMessage(`["sub-id", "aabbccdd", 20]`))
	if err != nil {
		t.Fatalf("parseSubscribeResult returned an error: %v", err)
	}
	if size != 8 {
		t.Fatalf("extranonce2Size = %d, want clamped to 8", size)
	}
}

func TestParseSubscribeResultRejectsTooFewElements(t *testing.T) {
	if _, _, err := parseSubscribeResult(json.RawMessage(`["sub-id"]`)); err == nil {
		t.Fatalf("expected an error for a subscribe result with fewer than 3 elements")
	}
}

func TestExtranonce1StartNonceInterpretsLittleEndian(t *testing.T) {
	got := extranonce1StartNonce("01000000")
	if got != 1 {
		t.Fatalf("extranonce1StartNonce(\"01000000\") = %d, want 1", got)
	}
	got = extranonce1StartNonce("0000000000000001")
	if got != 1<<56 {
		t.Fatalf("extranonce1StartNonce with high byte set = %d, want %d", got, uint64(1)<<56)
	}
}

func TestExtranonce1StartNonceHandlesMalformedHex(t *testing.T) {
	if got := extranonce1StartNonce("not-hex"); got != 0 {
		t.Fatalf("extranonce1StartNonce on malformed hex = %d, want 0", got)
	}
}

func TestSetHeaderFromHexZeroPadsAndLeavesNonceRegionUntouched(t *testing.T) {
	var work model.WorkPackage
	for i := range work.Header {
		work.Header[i] = 0xAB
	}
	setHeaderFromHex(&work, "0011223344")
	if work.Header[0] != 0x00 || work.Header[1] != 0x11 || work.Header[4] != 0x44 {
		t.Fatalf("header prefix not copied correctly: %x", work.Header[:5])
	}
	if work.Header[5] != 0 {
		t.Fatalf("header byte 5 = %x, want zero-padded", work.Header[5])
	}
	for i := 104; i < model.InputSize; i++ {
		if work.Header[i] != 0xAB {
			t.Fatalf("nonce region byte %d was overwritten by setHeaderFromHex", i)
		}
	}
}

func TestTargetFromHexZeroPadsOnTheRight(t *testing.T) {
	target := targetFromHex("ffff")
	if target[0] != 0xFF || target[1] != 0xFF {
		t.Fatalf("target prefix = %x, want ff ff", target[:2])
	}
	for i := 2; i < model.HashSize; i++ {
		if target[i] != 0 {
			t.Fatalf("target byte %d = %x, want zero", i, target[i])
		}
	}
}

func TestHandleSetDifficultyClearsOverrideTarget(t *testing.T) {
	c := newTestClient(t)
	target := model.Hash256{}
	c.overrideTarget = &target

	c.handleSetDifficulty(json.RawMessage(`[1024]`))
	if c.overrideTarget != nil {
		t.Fatalf("handleSetDifficulty must clear any previously set target override")
	}
	if c.difficulty != 1024 {
		t.Fatalf("difficulty = %v, want 1024", c.difficulty)
	}
}

func TestHandleSetTargetInstallsOverride(t *testing.T) {
	c := newTestClient(t)
	c.difficulty = 100

	c.handleSetTarget(json.RawMessage(`["00ff00ff"]`))
	if c.overrideTarget == nil {
		t.Fatalf("handleSetTarget must install a target override")
	}
	want := targetFromHex("00ff00ff")
	if *c.overrideTarget != want {
		t.Fatalf("overrideTarget = %x, want %x", *c.overrideTarget, want)
	}
	if c.currentTarget() != want {
		t.Fatalf("currentTarget() must prefer the override over the difficulty-derived target")
	}
}

func TestHandleNotifySimplifiedFormatUsesExplicitTarget(t *testing.T) {
	c := newTestClient(t)
	c.extranonce1 = "aabbccdd"
	c.extranonce2Size = 4

	var gotWork model.WorkPackage
	c.workCb = func(w model.WorkPackage) { gotWork = w }

	params := json.RawMessage(`["job-42", "001122", "ffff0000", 777, true]`)
	c.handleNotify(params)

	if gotWork.JobID != "job-42" {
		t.Fatalf("JobID = %q, want job-42", gotWork.JobID)
	}
	if gotWork.Height != 777 {
		t.Fatalf("Height = %d, want 777", gotWork.Height)
	}
	wantTarget := targetFromHex("ffff0000")
	if gotWork.Target != wantTarget {
		t.Fatalf("Target = %x, want %x", gotWork.Target, wantTarget)
	}
	if c.overrideTarget == nil || *c.overrideTarget != wantTarget {
		t.Fatalf("handleNotify with an explicit target_hex must install it as the override")
	}
}

func TestHandleNotifyStandardFallbackUsesDifficultyTarget(t *testing.T) {
	c := newTestClient(t)
	c.difficulty = 1.0
	c.extranonce1 = "aabbccdd"
	c.extranonce2Size = 4

	var gotWork model.WorkPackage
	c.workCb = func(w model.WorkPackage) { gotWork = w }

	// Only 2 elements: job_id and prev_hash, the standard-Stratum shape.
	params := json.RawMessage(`["job-1", "deadbeef"]`)
	c.handleNotify(params)

	if gotWork.JobID != "job-1" {
		t.Fatalf("JobID = %q, want job-1", gotWork.JobID)
	}
	if gotWork.Target != DifficultyToTarget(1.0, nil) {
		t.Fatalf("Target = %x, want the difficulty-1.0 target", gotWork.Target)
	}
}

func TestHandleNotifyDropsMessageWithTooFewParams(t *testing.T) {
	c := newTestClient(t)
	called := false
	c.workCb = func(w model.WorkPackage) { called = true }

	c.handleNotify(json.RawMessage(`["only-one"]`))
	if called {
		t.Fatalf("handleNotify must not publish work from fewer than 2 params")
	}
}

func TestPublishWorkResetsWorkTimeoutAndInvokesCallback(t *testing.T) {
	c := newTestClient(t)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	c.workTimeoutTimer = timer

	var gotJobID string
	c.SetWorkCallback(func(w model.WorkPackage) { gotJobID = w.JobID })

	c.publishWork(model.WorkPackage{JobID: "job-9", Valid: true})
	if gotJobID != "job-9" {
		t.Fatalf("work callback did not receive the published work")
	}
	if !c.lastWork.Valid || c.lastWork.JobID != "job-9" {
		t.Fatalf("publishWork must retain the work as lastWork")
	}
}

func TestHandleReconnectWithExplicitEndpointReturnsItInError(t *testing.T) {
	c := newTestClient(t)
	err := c.handleReconnect(json.RawMessage(`["newpool.example.com", 4444]`))
	if err == nil {
		t.Fatalf("handleReconnect must always return a non-nil error")
	}
	var reconn *reconnectRequestedErr
	if !errors.As(err, &reconn) {
		t.Fatalf("handleReconnect did not return a *reconnectRequestedErr")
	}
	if reconn.endpoint == nil || reconn.endpoint.Host != "newpool.example.com" || reconn.endpoint.Port != 4444 {
		t.Fatalf("reconnect endpoint = %+v, want host=newpool.example.com port=4444", reconn.endpoint)
	}
}

func TestHandleReconnectWithoutParamsKeepsNilEndpoint(t *testing.T) {
	c := newTestClient(t)
	err := c.handleReconnect(json.RawMessage(`[]`))
	var reconn *reconnectRequestedErr
	if !errors.As(err, &reconn) {
		t.Fatalf("handleReconnect did not return a *reconnectRequestedErr")
	}
	if reconn.endpoint != nil {
		t.Fatalf("reconnect endpoint = %+v, want nil when the pool sent no override", reconn.endpoint)
	}
}

func TestSubmitSolutionSyncDropsWhenNotAuthorized(t *testing.T) {
	c := newTestClient(t)
	// Fresh client starts Disconnected, not Authorized.
	var called bool
	c.SetShareCallback(func(nonce uint64, result ShareResult) { called = true })

	c.submitSolutionSync(model.WorkPackage{JobID: "job-1"}, model.Solution{Nonce: 1})
	if called {
		t.Fatalf("submitSolutionSync must not submit while not Authorized")
	}
}

func TestSubmitSolutionSyncMarksStaleWhenJobIDDoesNotMatchLastWork(t *testing.T) {
	c := newTestClient(t)
	c.setState(Authorized)
	c.lastWork = model.WorkPackage{JobID: "job-2", Valid: true}

	var got ShareResult
	c.SetShareCallback(func(nonce uint64, result ShareResult) { got = result })

	// job-1 was superseded by job-2 before this solution reached the wire.
	c.submitSolutionSync(model.WorkPackage{JobID: "job-1"}, model.Solution{Nonce: 1})
	c.dispatchResponse(1, json.RawMessage(`true`), nil)

	if !got.Stale {
		t.Fatalf("ShareResult.Stale = false, want true for a job superseded before submission")
	}
	if !got.Accepted {
		t.Fatalf("pool accepted the share, ShareResult.Accepted must still be true")
	}
}

func TestSubmitSolutionSyncMarksStaleOnPoolRejectionKeyword(t *testing.T) {
	c := newTestClient(t)
	c.setState(Authorized)
	c.lastWork = model.WorkPackage{JobID: "job-1", Valid: true}

	var got ShareResult
	c.SetShareCallback(func(nonce uint64, result ShareResult) { got = result })

	c.submitSolutionSync(model.WorkPackage{JobID: "job-1"}, model.Solution{Nonce: 1})
	c.dispatchResponse(1, nil, &RPCError{Code: 21, Message: "Job not found (=stale)"})

	if !got.Stale {
		t.Fatalf("ShareResult.Stale = false, want true when the pool's error names the share stale")
	}
	if got.Accepted {
		t.Fatalf("ShareResult.Accepted = true, want false for a pool error response")
	}
}

func TestSubmitSolutionSyncLeavesFreshAcceptedShareNotStale(t *testing.T) {
	c := newTestClient(t)
	c.setState(Authorized)
	c.lastWork = model.WorkPackage{JobID: "job-1", Valid: true}

	var got ShareResult
	c.SetShareCallback(func(nonce uint64, result ShareResult) { got = result })

	c.submitSolutionSync(model.WorkPackage{JobID: "job-1"}, model.Solution{Nonce: 1})
	c.dispatchResponse(1, json.RawMessage(`true`), nil)

	if got.Stale {
		t.Fatalf("ShareResult.Stale = true, want false for a fresh job with a plain pool rejection/acceptance")
	}
	if !got.Accepted {
		t.Fatalf("ShareResult.Accepted = false, want true")
	}
}
