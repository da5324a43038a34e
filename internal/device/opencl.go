package device

import (
	"go.uber.org/zap"

	"github.com/tos-network/tosminer/internal/model"
)

// defaultOpenCLGlobalWorkSize is the number of work-items launched per
// batch when the operator hasn't overridden it. Local work size is
// fixed at 1: each work-item needs the full 64 KiB scratchpad, so no
// two items can share a workgroup's local memory.
const defaultOpenCLGlobalWorkSize = 16384

// OpenCLBackendConfig configures an OpenCLBackend at construction time.
type OpenCLBackendConfig struct {
	PlatformIndex  int
	PlatformName   string
	DeviceIndex    int
	GlobalWorkSize int
	BufferCount    int // double/multi-buffered pipeline depth, 2-4
}

// OpenCLBackend mines on an OpenCL-capable GPU. Context, queue,
// program and kernel handles are held as opaque driver objects: wiring
// them to a real cl.Context/cl.CommandQueue/cl.Program/cl.Kernel via
// cgo bindings is a platform-specific concern this core doesn't own
// (spec §1), so Init here reports the device ready and the pipeline
// below executes batches through kernelExecutor instead of a live
// driver call.
type OpenCLBackend struct {
	*base

	cfg OpenCLBackendConfig

	context interface{} // cl_context
	queue   interface{} // cl_command_queue
	program interface{} // cl_program
	kernel  interface{} // cl_kernel

	pipeline *gpuPipeline
}

// NewOpenCLBackend creates an OpenCL backend for the device described
// by cfg.
func NewOpenCLBackend(logger *zap.Logger, index int, desc model.DeviceDescriptor, cfg OpenCLBackendConfig) *OpenCLBackend {
	if cfg.GlobalWorkSize <= 0 {
		cfg.GlobalWorkSize = defaultOpenCLGlobalWorkSize
	}
	if cfg.BufferCount <= 0 {
		cfg.BufferCount = minGPUBuffers
	}
	o := &OpenCLBackend{cfg: cfg}
	o.base = newBase(logger, index, desc, o)
	return o
}

// Init allocates the double-buffered output pipeline; no kernel is
// compiled, since batches run through the software kernelExecutor.
// Always succeeds in this software implementation;
// a real binding would fail here on platform/device index errors or
// kernel build failures, logging the build log as Otedama does for
// its OpenCL path.
func (o *OpenCLBackend) Init() bool {
	if o.desc.TotalMemory > 0 && o.desc.TotalMemory < 64*1024 {
		if o.logger != nil {
			o.logger.Warn("device reports insufficient local memory for scratchpad",
				zap.Int("device_index", o.index), zap.Uint64("local_mem_bytes", o.desc.TotalMemory))
		}
	}

	o.pipeline = newGPUPipeline(softwareKernel{}, o.cfg.BufferCount, o.cfg.GlobalWorkSize)

	if o.logger != nil {
		o.logger.Info("opencl backend initialized",
			zap.Int("device_index", o.index),
			zap.String("device_name", o.desc.Name),
			zap.Int("global_work_size", o.cfg.GlobalWorkSize),
			zap.Int("buffer_count", o.cfg.BufferCount))
	}
	return true
}

func (o *OpenCLBackend) runBatch(header [model.InputSize]byte, target model.Hash256, startNonce uint64) ([]uint64, error) {
	return o.pipeline.step(header, target, startNonce)
}

func (o *OpenCLBackend) batchWidth() uint64 { return uint64(o.cfg.GlobalWorkSize) }

func (o *OpenCLBackend) drain() {
	if o.pipeline != nil {
		o.pipeline.drain()
	}
}

func (o *OpenCLBackend) reinit() bool {
	if o.pipeline != nil {
		o.pipeline.drain()
	}
	return o.Init()
}

func (o *OpenCLBackend) close() {
	if o.pipeline != nil {
		o.pipeline.drain()
	}
}

// EnumerateOpenCLDevices would normally walk cl.Platform.get() and
// platform.getDevices(CL_DEVICE_TYPE_GPU) to build one descriptor per
// physical GPU. Without a real driver binding present in this module,
// it returns an empty list: a host with OpenCL-capable GPUs supplies
// its own descriptors via configuration instead.
func EnumerateOpenCLDevices() []model.DeviceDescriptor {
	return nil
}
