package device

import (
	"go.uber.org/zap"

	"github.com/tos-network/tosminer/internal/model"
)

// cudaNumStreams is the depth of the multi-stream pipeline: one batch
// may be executing per stream while another's results are read back.
const cudaNumStreams = 2

const (
	minGridSize = 4096
	maxGridSize = 65536
	gridBatchMultiplier = 256
)

// CUDADeviceProps carries the subset of cudaDeviceProp the grid-size
// auto-tune needs; a real binding would populate this from
// cudaGetDeviceProperties. Compute capability is read from the
// device's model.DeviceDescriptor instead of duplicating it here.
type CUDADeviceProps struct {
	MultiProcessorCount   int
	SharedMemPerBlock     int
	SharedMemPerMultiproc int
}

// CUDABackendConfig configures a CUDABackend at construction time.
type CUDABackendConfig struct {
	Props            CUDADeviceProps
	GridSizeOverride int // 0 = auto-tune
}

// autoTuneGridSize implements the grid-size heuristic: scale by SM
// count, blocks-per-SM (limited by available shared memory), and a
// compute-capability scale factor, clamped to [minGridSize,
// maxGridSize] so very small or very large GPUs still get a sane
// batch size.
func autoTuneGridSize(props CUDADeviceProps, ccMajor int) int {
	blocksPerSM := 1
	if props.SharedMemPerMultiproc >= 65536*2 {
		blocksPerSM = 2
	}

	smScaleFactor := 1
	switch {
	case ccMajor >= 7:
		smScaleFactor = 4
	case ccMajor >= 6:
		smScaleFactor = 2
	}

	gridSize := props.MultiProcessorCount * blocksPerSM * smScaleFactor * gridBatchMultiplier
	if gridSize < minGridSize {
		gridSize = minGridSize
	}
	if gridSize > maxGridSize {
		gridSize = maxGridSize
	}
	return gridSize
}

// CUDABackend mines on an NVIDIA GPU. Context, module and stream
// handles are held as opaque driver objects for the same reason as
// OpenCLBackend: the actual cudaMalloc/cudaStreamCreate/kernel-launch
// sequence is platform code this core doesn't own, so batches run
// through kernelExecutor rather than a live cudaLaunchKernel call.
type CUDABackend struct {
	*base

	cfg      CUDABackendConfig
	gridSize int
	blockSize int

	context interface{} // CUcontext
	module  interface{} // CUmodule
	streams []interface{}

	pipeline *gpuPipeline
}

// NewCUDABackend creates a CUDA backend for the device described by
// cfg. blockSize is always 1: the 64 KiB scratchpad requires exclusive
// shared memory per thread, so no more than one thread can occupy a
// block.
func NewCUDABackend(logger *zap.Logger, index int, desc model.DeviceDescriptor, cfg CUDABackendConfig) *CUDABackend {
	c := &CUDABackend{cfg: cfg, blockSize: 1}
	c.base = newBase(logger, index, desc, c)
	return c
}

func (c *CUDABackend) Init() bool {
	if c.cfg.Props.SharedMemPerBlock > 0 && c.cfg.Props.SharedMemPerBlock < 65536 {
		if c.logger != nil {
			c.logger.Error("device has insufficient shared memory for scratchpad",
				zap.Int("device_index", c.index), zap.Int("shared_mem_bytes", c.cfg.Props.SharedMemPerBlock))
		}
		return false
	}

	if c.cfg.GridSizeOverride > 0 {
		c.gridSize = c.cfg.GridSizeOverride
	} else {
		c.gridSize = autoTuneGridSize(c.cfg.Props, c.desc.CUDAComputeMajor)
	}

	c.pipeline = newGPUPipeline(softwareKernel{}, cudaNumStreams, c.gridSize*c.blockSize)

	if c.logger != nil {
		c.logger.Info("cuda backend initialized",
			zap.Int("device_index", c.index),
			zap.String("device_name", c.desc.Name),
			zap.Int("grid_size", c.gridSize),
			zap.Int("block_size", c.blockSize),
			zap.Int("sm_count", c.cfg.Props.MultiProcessorCount),
			zap.Int("cc_major", c.desc.CUDAComputeMajor),
			zap.Int("cc_minor", c.desc.CUDAComputeMinor))
	}
	return true
}

func (c *CUDABackend) runBatch(header [model.InputSize]byte, target model.Hash256, startNonce uint64) ([]uint64, error) {
	return c.pipeline.step(header, target, startNonce)
}

func (c *CUDABackend) batchWidth() uint64 { return uint64(c.gridSize * c.blockSize) }

func (c *CUDABackend) drain() {
	if c.pipeline != nil {
		c.pipeline.drain()
	}
}

func (c *CUDABackend) reinit() bool {
	if c.pipeline != nil {
		c.pipeline.drain()
	}
	return c.Init()
}

func (c *CUDABackend) close() {
	if c.pipeline != nil {
		c.pipeline.drain()
	}
}

// EnumerateCUDADevices would walk cudaGetDeviceCount/
// cudaGetDeviceProperties to build one descriptor per physical GPU.
// Without a real driver binding present in this module, it returns an
// empty list: a host with CUDA-capable GPUs supplies its own
// descriptors, including CUDADeviceProps for the auto-tune, via
// configuration instead.
func EnumerateCUDADevices() []model.DeviceDescriptor {
	return nil
}
