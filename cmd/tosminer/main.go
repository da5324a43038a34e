// Command tosminer mines the TOS Hash V3 proof-of-work algorithm against
// a stratum pool across CPU, OpenCL, and CUDA devices.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tos-network/tosminer/internal/config"
	"github.com/tos-network/tosminer/internal/device"
	"github.com/tos-network/tosminer/internal/farm"
	"github.com/tos-network/tosminer/internal/metrics"
	"github.com/tos-network/tosminer/internal/model"
	"github.com/tos-network/tosminer/internal/stratum"
)

func main() {
	configPath := flag.String("config", "tosminer.yaml", "path to the YAML configuration file")
	shutdownTimeoutFlag := flag.String("shutdown-timeout", "5s", "how long to wait for in-flight shares to drain on shutdown")
	flag.Parse()

	bootstrapLogger, _ := zap.NewProduction()

	shutdownTimeout, err := config.ParseTimeout(*shutdownTimeoutFlag)
	if err != nil {
		bootstrapLogger.Fatal("invalid -shutdown-timeout", zap.Error(err))
	}

	mgr, err := config.NewManager(bootstrapLogger, *configPath)
	if err != nil {
		bootstrapLogger.Fatal("failed to load configuration", zap.Error(err))
	}
	cfg := mgr.Get()

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	fleet, err := buildFleet(logger, cfg)
	if err != nil {
		logger.Fatal("failed to build device fleet", zap.Error(err))
	}
	if len(fleet) == 0 {
		logger.Fatal("no devices enabled")
	}

	f := farm.New(logger)
	for _, worker := range fleet {
		f.AddMiner(worker)
	}

	poolCfg, err := buildPoolConfig(cfg.Pool)
	if err != nil {
		logger.Fatal("invalid pool configuration", zap.Error(err))
	}
	client, err := stratum.NewClient(logger, poolCfg)
	if err != nil {
		logger.Fatal("failed to construct pool client", zap.Error(err))
	}

	exporter := metrics.New(logger, metrics.Config{Enabled: cfg.Metrics.Enabled, ListenAddr: cfg.Metrics.ListenAddr})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := exporter.Start(ctx); err != nil {
		logger.Warn("failed to start metrics exporter", zap.Error(err))
	}

	client.SetWorkCallback(func(work model.WorkPackage) {
		f.SetWork(work)
		exporter.SetWorkAge(work.Age())
	})
	client.SetReconnectCallback(func() {
		exporter.RecordReconnect()
	})
	client.SetShareCallback(func(nonce uint64, result stratum.ShareResult) {
		switch {
		case result.Accepted:
			f.RecordAccepted()
			exporter.RecordShare("accepted")
		case result.Stale:
			f.RecordStale()
			exporter.RecordShare("stale")
			logger.Warn("share stale, job already superseded", zap.Uint64("nonce", nonce))
		default:
			f.RecordRejected()
			exporter.RecordShare("rejected")
			logger.Warn("share rejected", zap.Uint64("nonce", nonce), zap.String("reason", result.Reason))
		}
	})
	f.SetSolutionCallback(func(solution model.Solution, jobID string) {
		work, ok := f.WorkForJob(jobID)
		if !ok {
			f.RecordStale()
			exporter.RecordShare("stale")
			logger.Warn("solution's job no longer retained, dropping", zap.String("job_id", jobID))
			return
		}
		client.SubmitSolution(work, solution)
	})

	if !f.Start() {
		logger.Fatal("no device could be initialized")
	}
	client.Start()

	stopReporting := make(chan struct{})
	go reportLoop(f, client, exporter, stopReporting)

	waitForShutdown(logger)

	close(stopReporting)
	client.GracefulDisconnect(int(shutdownTimeout.Milliseconds()))
	f.Stop()
	logger.Info("tosminer stopped")
}

func buildFleet(logger *zap.Logger, cfg *config.Config) ([]device.Backend, error) {
	var fleet []device.Backend

	if cfg.Devices.EnableCPU {
		descs := device.EnumerateCPUDevices(cfg.Devices.CPUThreads)
		for _, d := range descs {
			fleet = append(fleet, device.NewCPUBackend(logger, d.Index))
		}
	}

	if cfg.Devices.EnableCL {
		for _, idx := range cfg.Devices.CLDevices {
			desc := model.DeviceDescriptor{Type: model.DeviceOpenCL, Index: idx}
			backend := device.NewOpenCLBackend(logger, idx, desc, device.OpenCLBackendConfig{
				GlobalWorkSize: cfg.Devices.OpenCLGlobalWorkSize,
				BufferCount:    cfg.Devices.OpenCLBufferCount,
			})
			fleet = append(fleet, backend)
		}
	}

	if cfg.Devices.EnableCUDA {
		for _, idx := range cfg.Devices.CUDADevices {
			desc := model.DeviceDescriptor{Type: model.DeviceCUDA, Index: idx}
			backend := device.NewCUDABackend(logger, idx, desc, device.CUDABackendConfig{
				GridSizeOverride: cfg.Devices.CUDAGridSizeOverride,
			})
			fleet = append(fleet, backend)
		}
	}

	return fleet, nil
}

func buildPoolConfig(cfg config.PoolConfig) (stratum.Config, error) {
	variant := stratum.VariantDefault
	switch cfg.Variant {
	case "ethproxy":
		variant = stratum.VariantEthProxy
	case "ethereumstratum":
		variant = stratum.VariantEthereumStratum
	}

	tlsMode := stratum.TLSPermissive
	if cfg.TLSMode == "strict" {
		tlsMode = stratum.TLSStrict
	}

	if len(cfg.Endpoints) == 0 {
		return stratum.Config{}, fmt.Errorf("no pool endpoints configured")
	}

	return stratum.Config{
		Endpoints: cfg.Endpoints,
		User:      cfg.User,
		Pass:      cfg.Pass,
		Variant:   variant,
		TLSMode:   tlsMode,
	}, nil
}

// reportLoop periodically pushes farm and pool-client state into the
// metrics exporter; neither has a push mechanism of its own.
func reportLoop(f *farm.Farm, client *stratum.Client, exporter *metrics.Exporter, stop <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rate := f.HashRate()
			exporter.SetHashRate("aggregate", rate.InstantRate, rate.EMARate)
			exporter.SetDeviceCounts(f.ActiveMinerCount(), f.MinerCount()-f.ActiveMinerCount())
			for _, dh := range f.DeviceHealths() {
				exporter.SetDeviceHealth(dh.DeviceIndex, dh.Health.Status)
			}
			exporter.SetPoolState(int(client.State()))
			f.ReapFailedMiners()
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))
}

func newLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stdout), zapLevel)
	return zap.New(core, zap.AddCaller())
}
