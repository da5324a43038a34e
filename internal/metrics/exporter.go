// Package metrics exports the farm's and pool client's state as
// Prometheus metrics, following Otedama's internal/monitoring exporter:
// a dedicated registry, a promhttp handler on its own listener, and one
// update/record method per subsystem rather than one per metric.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tos-network/tosminer/internal/model"
)

// Config configures the metrics HTTP endpoint.
type Config struct {
	Enabled    bool
	ListenAddr string
}

// Exporter publishes mining metrics for Prometheus to scrape.
type Exporter struct {
	logger   *zap.Logger
	cfg      Config
	registry *prometheus.Registry
	server   *http.Server

	hashrateInstant *prometheus.GaugeVec
	hashrateEMA     *prometheus.GaugeVec
	devicesActive   prometheus.Gauge
	devicesFailed   prometheus.Gauge
	deviceHealth    *prometheus.GaugeVec

	sharesAccepted prometheus.Counter
	sharesRejected prometheus.Counter
	sharesStale    prometheus.Counter

	poolState       prometheus.Gauge
	reconnectCount  prometheus.Counter
	workAge         prometheus.Gauge
}

// New constructs an Exporter with all metrics registered under the
// "tosminer" namespace.
func New(logger *zap.Logger, cfg Config) *Exporter {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":9090"
	}

	registry := prometheus.NewRegistry()
	factory := prometheus.WrapRegistererWithPrefix("tosminer_", registry)

	e := &Exporter{
		logger:   logger,
		cfg:      cfg,
		registry: registry,

		hashrateInstant: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hashrate_instant_hashes_per_second",
			Help: "Instantaneous hash rate per device type.",
		}, []string{"device_type"}),
		hashrateEMA: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hashrate_ema_hashes_per_second",
			Help: "Exponential moving average hash rate per device type.",
		}, []string{"device_type"}),
		devicesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "devices_active",
			Help: "Number of devices currently mining.",
		}),
		devicesFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "devices_failed",
			Help: "Number of devices marked failed.",
		}),
		deviceHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "device_health_status",
			Help: "Per-device health status: 0=healthy 1=degraded 2=unhealthy 3=failed.",
		}, []string{"device_index"}),
		sharesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shares_accepted_total",
			Help: "Shares the pool accepted.",
		}),
		sharesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shares_rejected_total",
			Help: "Shares the pool rejected.",
		}),
		sharesStale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shares_stale_total",
			Help: "Shares counted as stale: dropped before submission or reported stale after it.",
		}),
		poolState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pool_connection_state",
			Help: "Pool client state: 0=disconnected 1=connecting 2=connected 3=subscribed 4=authorized.",
		}),
		reconnectCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pool_reconnects_total",
			Help: "Number of times the pool client reconnected.",
		}),
		workAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "work_age_seconds",
			Help: "Age of the most recently published work package.",
		}),
	}

	factory.MustRegister(
		e.hashrateInstant, e.hashrateEMA, e.devicesActive, e.devicesFailed, e.deviceHealth,
		e.sharesAccepted, e.sharesRejected, e.sharesStale,
		e.poolState, e.reconnectCount, e.workAge,
	)
	return e
}

// Start serves /metrics in the background until ctx is done. No-op if
// disabled in config.
func (e *Exporter) Start(ctx context.Context) error {
	if !e.cfg.Enabled {
		if e.logger != nil {
			e.logger.Info("metrics exporter disabled")
		}
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	e.server = &http.Server{Addr: e.cfg.ListenAddr, Handler: mux}

	go func() {
		if e.logger != nil {
			e.logger.Info("starting metrics exporter", zap.String("address", e.cfg.ListenAddr))
		}
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if e.logger != nil {
				e.logger.Error("metrics server error", zap.Error(err))
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = e.Stop()
	}()
	return nil
}

// Stop shuts the metrics HTTP server down gracefully.
func (e *Exporter) Stop() error {
	if e.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics: shutdown: %w", err)
	}
	return nil
}

// SetHashRate records the farm's aggregate instantaneous and EMA rates
// for one device type.
func (e *Exporter) SetHashRate(deviceType string, instant, ema float64) {
	e.hashrateInstant.WithLabelValues(deviceType).Set(instant)
	e.hashrateEMA.WithLabelValues(deviceType).Set(ema)
}

// SetDeviceCounts records how many devices are active vs failed.
func (e *Exporter) SetDeviceCounts(active, failed int) {
	e.devicesActive.Set(float64(active))
	e.devicesFailed.Set(float64(failed))
}

// SetDeviceHealth records one device's current health status, keyed by
// device index.
func (e *Exporter) SetDeviceHealth(deviceIndex int, status model.HealthStatus) {
	e.deviceHealth.WithLabelValues(strconv.Itoa(deviceIndex)).Set(float64(status))
}

// RecordShare increments the appropriate share counter.
func (e *Exporter) RecordShare(result string) {
	switch result {
	case "accepted":
		e.sharesAccepted.Inc()
	case "rejected":
		e.sharesRejected.Inc()
	case "stale":
		e.sharesStale.Inc()
	}
}

// SetPoolState records the pool client's connection state as a gauge.
func (e *Exporter) SetPoolState(state int) { e.poolState.Set(float64(state)) }

// RecordReconnect increments the reconnect counter.
func (e *Exporter) RecordReconnect() { e.reconnectCount.Inc() }

// SetWorkAge records the age of the most recently published job.
func (e *Exporter) SetWorkAge(age time.Duration) { e.workAge.Set(age.Seconds()) }
