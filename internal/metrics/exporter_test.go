package metrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tos-network/tosminer/internal/model"
)

func TestSetHashRateUpdatesBothGauges(t *testing.T) {
	e := New(nil, Config{})
	e.SetHashRate("cpu", 1000, 950)

	if got := testutil.ToFloat64(e.hashrateInstant.WithLabelValues("cpu")); got != 1000 {
		t.Fatalf("hashrateInstant = %v, want 1000", got)
	}
	if got := testutil.ToFloat64(e.hashrateEMA.WithLabelValues("cpu")); got != 950 {
		t.Fatalf("hashrateEMA = %v, want 950", got)
	}
}

func TestSetDeviceCounts(t *testing.T) {
	e := New(nil, Config{})
	e.SetDeviceCounts(3, 1)

	if got := testutil.ToFloat64(e.devicesActive); got != 3 {
		t.Fatalf("devicesActive = %v, want 3", got)
	}
	if got := testutil.ToFloat64(e.devicesFailed); got != 1 {
		t.Fatalf("devicesFailed = %v, want 1", got)
	}
}

func TestRecordShareRoutesToTheMatchingCounter(t *testing.T) {
	e := New(nil, Config{})
	e.RecordShare("accepted")
	e.RecordShare("accepted")
	e.RecordShare("rejected")
	e.RecordShare("stale")
	e.RecordShare("unknown")

	if got := testutil.ToFloat64(e.sharesAccepted); got != 2 {
		t.Fatalf("sharesAccepted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(e.sharesRejected); got != 1 {
		t.Fatalf("sharesRejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.sharesStale); got != 1 {
		t.Fatalf("sharesStale = %v, want 1", got)
	}
}

func TestSetDeviceHealthKeysByDeviceIndex(t *testing.T) {
	e := New(nil, Config{})
	e.SetDeviceHealth(0, model.Healthy)
	e.SetDeviceHealth(1, model.Failed)

	if got := testutil.ToFloat64(e.deviceHealth.WithLabelValues("0")); got != float64(model.Healthy) {
		t.Fatalf("device 0 health = %v, want %v", got, model.Healthy)
	}
	if got := testutil.ToFloat64(e.deviceHealth.WithLabelValues("1")); got != float64(model.Failed) {
		t.Fatalf("device 1 health = %v, want %v", got, model.Failed)
	}
}

func TestSetPoolStateAndRecordReconnect(t *testing.T) {
	e := New(nil, Config{})
	e.SetPoolState(4)
	e.RecordReconnect()
	e.RecordReconnect()

	if got := testutil.ToFloat64(e.poolState); got != 4 {
		t.Fatalf("poolState = %v, want 4", got)
	}
	if got := testutil.ToFloat64(e.reconnectCount); got != 2 {
		t.Fatalf("reconnectCount = %v, want 2", got)
	}
}

func TestSetWorkAgeRecordsSeconds(t *testing.T) {
	e := New(nil, Config{})
	e.SetWorkAge(2500 * time.Millisecond)
	if got := testutil.ToFloat64(e.workAge); got != 2.5 {
		t.Fatalf("workAge = %v, want 2.5", got)
	}
}

func TestStartIsNoOpWhenDisabled(t *testing.T) {
	e := New(nil, Config{Enabled: false})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start returned an error while disabled: %v", err)
	}
	if e.server != nil {
		t.Fatalf("Start must not create an HTTP server while disabled")
	}
	// Stop must tolerate a nil server.
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop returned an error with no server started: %v", err)
	}
}

func TestStartRegistersPrefixedMetricsWhenEnabled(t *testing.T) {
	e := New(nil, Config{Enabled: true, ListenAddr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start returned an error: %v", err)
	}
	defer e.Stop()

	// ListenAddr "127.0.0.1:0" picks an ephemeral port; since the exporter does
	// not expose the bound address, this test only verifies that Start
	// does not error and that metric names are registered under the
	// expected namespace once gathered.
	names, err := e.registry.Gather()
	if err != nil {
		t.Fatalf("Gather returned an error: %v", err)
	}
	found := false
	for _, mf := range names {
		if strings.HasPrefix(mf.GetName(), "tosminer_") {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("no registered metric carries the tosminer_ prefix")
	}
}
