package device

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/tos-network/tosminer/internal/model"
	"github.com/tos-network/tosminer/internal/toshash"
)

// CPUBackend mines on a single OS thread using the reference TOS Hash
// V3 implementation directly; one instance is created per configured
// CPU thread.
type CPUBackend struct {
	*base
	scratch model.ScratchPad
}

// NewCPUBackend creates a CPU backend bound to logical thread index.
func NewCPUBackend(logger *zap.Logger, index int) *CPUBackend {
	desc := model.DeviceDescriptor{
		Type:         model.DeviceCPU,
		Index:        index,
		Name:         cpuDeviceName(index),
		ComputeUnits: 1,
	}
	c := &CPUBackend{}
	c.base = newBase(logger, index, desc, c)
	return c
}

func cpuDeviceName(index int) string {
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = "CPU"
	}
	return brand + " thread " + itoa(index)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Init logs CPU diagnostics (brand, feature flags, total system memory)
// and reports success unconditionally: a CPU backend has no external
// resource that can fail to acquire.
func (c *CPUBackend) Init() bool {
	if c.logger != nil {
		fields := []zap.Field{
			zap.Int("device_index", c.index),
			zap.String("brand", cpuid.CPU.BrandName),
			zap.Int("physical_cores", cpuid.CPU.PhysicalCores),
			zap.Int("logical_cores", cpuid.CPU.LogicalCores),
			zap.Bool("avx2", cpuid.CPU.Supports(cpuid.AVX2)),
		}
		if vm, err := mem.VirtualMemory(); err == nil {
			fields = append(fields, zap.Uint64("system_memory_bytes", vm.Total))
			c.desc.TotalMemory = vm.Total
		}
		c.logger.Info("cpu backend initialized", fields...)
	}
	return true
}

// cpuBatchWidth is the number of hashes attempted per runBatch call
// before mineLoop re-checks the running/paused/new-work flags.
const cpuBatchWidth = 4096

func (c *CPUBackend) runBatch(header [model.InputSize]byte, target model.Hash256, startNonce uint64) ([]uint64, error) {
	var candidates []uint64
	for i := uint64(0); i < cpuBatchWidth; i++ {
		nonce := startNonce + i
		if _, ok := toshash.Search(&header, target, nonce, &c.scratch); ok {
			candidates = append(candidates, nonce)
		}
	}
	return candidates, nil
}

func (c *CPUBackend) batchWidth() uint64 { return cpuBatchWidth }

func (c *CPUBackend) drain() {}

func (c *CPUBackend) reinit() bool { return c.Init() }

func (c *CPUBackend) close() {}

// EnumerateCPUDevices returns one descriptor per logical CPU, matching
// the original miner's one-thread-per-device convention. threads <= 0
// auto-detects via runtime.NumCPU().
func EnumerateCPUDevices(threads int) []model.DeviceDescriptor {
	if threads <= 0 {
		threads = runtime.NumCPU()
		if threads <= 0 {
			threads = 1
		}
	}
	devices := make([]model.DeviceDescriptor, threads)
	for i := 0; i < threads; i++ {
		devices[i] = model.DeviceDescriptor{
			Type:         model.DeviceCPU,
			Index:        i,
			Name:         cpuDeviceName(i),
			ComputeUnits: 1,
		}
	}
	return devices
}
