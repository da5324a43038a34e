package mining

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"go.uber.org/zap"
)

// ModernGPUMiner represents an advanced GPU mining implementation with CUDA and OpenCL support
type ModernGPUMiner struct {
	logger           *zap.Logger
	devices          []ModernGPUDevice
	cuDevices        []CUDADevice  // NVIDIA devices
	clDevices        []OpenCLDevice // AMD/Intel devices
	kernelManager    *KernelManager
	memoryManager    *ModernGPUMemoryManager
	thermalManager   *ThermalManager
	workDistributor  *WorkDistributor
	
	// Performance tracking
	hashRate         atomic.Uint64
	totalHashes      atomic.Uint64
	acceptedShares   atomic.Uint64
	rejectedShares   atomic.Uint64
	powerConsumption atomic.Uint32
	
	// Configuration
	config    GPUConfig
	running   atomic.Bool
	mu        sync.RWMutex
}

// GPUConfig contains GPU mining configuration
type GPUConfig struct {
	EnableCUDA          bool              `json:"enable_cuda"`
	EnableOpenCL        bool              `json:"enable_opencl"`
	MaxTemp             int               `json:"max_temp"`
	PowerLimit          int               `json:"power_limit"`
	MemoryClockOffset   int               `json:"memory_clock_offset"`
	CoreClockOffset     int               `json:"core_clock_offset"`
	FanCurve           []TempFanPoint     `json:"fan_curve"`
	KernelOptimization  KernelOptimization `json:"kernel_optimization"`
	WorkSize           WorkSizeConfig     `json:"work_size"`
	BatchSize          int               `json:"batch_size"`
	
	// Advanced features
	AutoTuning         bool              `json:"auto_tuning"`
	MemoryTweaks       bool              `json:"memory_tweaks"`
	ErrorRecovery      bool              `json:"error_recovery"`
	ZeroFanMode        bool              `json:"zero_fan_mode"`
}

// TempFanPoint represents a temperature-fan speed point
type TempFanPoint struct {
	Temperature int `json:"temperature"`
	FanSpeed    int `json:"fan_speed"`
}

// ModernGPUDevice represents a generic GPU device
type ModernGPUDevice struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Type         GPUType          `json:"type"`
	Memory       uint64           `json:"memory"`
	MemoryType   string           `json:"memory_type"`
	ComputeUnits int              `json:"compute_units"`
	MaxWorkGroup int              `json:"max_work_group"`
	ClockSpeed   int              `json:"clock_speed"`
	MemoryClock  int              `json:"memory_clock"`
	Architecture string           `json:"architecture"`
	PCIBus       string           `json:"pci_bus"`
	Temperature  atomic.Int32     `json:"temperature"`
	FanSpeed     atomic.Int32     `json:"fan_speed"`
	PowerUsage   atomic.Int32     `json:"power_usage"`
	Utilization  atomic.Int32     `json:"utilization"`
	Status       DeviceStatus     `json:"status"`
	Capabilities GPUCapabilities  `json:"capabilities"`
}

// GPUType represents the type of GPU
type GPUType string

const (
	GPUTypeNVIDIA GPUType = "nvidia"
	GPUTypeAMD    GPUType = "amd"
	GPUTypeIntel  GPUType = "intel"
)

// DeviceStatus represents the current status of a GPU device
type DeviceStatus string

const (
	DeviceStatusIdle     DeviceStatus = "idle"
	DeviceStatusMining   DeviceStatus = "mining"
	DeviceStatusError    DeviceStatus = "error"
	DeviceStatusThrottle DeviceStatus = "throttle"
	DeviceStatusOverheat DeviceStatus = "overheat"
)

// GPUCapabilities represents GPU capabilities
type GPUCapabilities struct {
	CUDA             bool   `json:"cuda"`
	OpenCL           bool   `json:"opencl"`
	ComputeCapability string `json:"compute_capability"`
	SupportFP16      bool   `json:"support_fp16"`
	SupportFP64      bool   `json:"support_fp64"`
	SupportAtomic    bool   `json:"support_atomic"`
	MaxThreadsPerSM  int    `json:"max_threads_per_sm"`
	SharedMemorySize int    `json:"shared_memory_size"`
}

// CUDADevice represents an NVIDIA CUDA device
type CUDADevice struct {
	ModernGPUDevice
	Context          unsafe.Pointer `json:"-"`
	Stream           unsafe.Pointer `json:"-"`
	DevicePtr        unsafe.Pointer `json:"-"`
	CUDAVersion      string         `json:"cuda_version"`
	DriverVersion    string         `json:"driver_version"`
	ComputeMode      int            `json:"compute_mode"`
	MultiprocessorCount int         `json:"multiprocessor_count"`
	WarpSize         int            `json:"warp_size"`
}

// OpenCLDevice represents an OpenCL device
type OpenCLDevice struct {
	ModernGPUDevice
	Context         unsafe.Pointer `json:"-"`
	Queue           unsafe.Pointer `json:"-"`
	Program         unsafe.Pointer `json:"-"`
	Platform        string         `json:"platform"`
	OpenCLVersion   string         `json:"opencl_version"`
	Extensions      []string       `json:"extensions"`
	LocalMemSize    uint64         `json:"local_mem_size"`
	GlobalMemSize   uint64         `json:"global_mem_size"`
}

// KernelManager manages mining kernels for different algorithms
type KernelManager struct {
	cudaKernels   map[string]*CUDAKernel
	openclKernels map[string]*OpenCLKernel
	optimizations map[string]KernelOptimization
	mu            sync.RWMutex
}

// CUDAKernel represents a compiled CUDA kernel
type CUDAKernel struct {
	Function     unsafe.Pointer
	Module       unsafe.Pointer
	Algorithm    string
	Optimization KernelOptimization
	WorkSize     WorkSizeConfig
	Performance  KernelPerformance
}

// OpenCLKernel represents a compiled OpenCL kernel
type OpenCLKernel struct {
	Kernel       unsafe.Pointer
	Program      unsafe.Pointer
	Algorithm    string
	Optimization KernelOptimization
	WorkSize     WorkSizeConfig
	Performance  KernelPerformance
}

// KernelOptimization contains kernel optimization settings
type KernelOptimization struct {
	Level           OptimizationLevel `json:"level"`
	UnrollLoops     bool              `json:"unroll_loops"`
	Vectorize       bool              `json:"vectorize"`
	UseFastMath     bool              `json:"use_fast_math"`
	OptimizeSize    bool              `json:"optimize_size"`
	InlineAll       bool              `json:"inline_all"`
	UseSharedMemory bool              `json:"use_shared_memory"`
	PrefetchData    bool              `json:"prefetch_data"`
}

// OptimizationLevel represents kernel optimization levels
type OptimizationLevel string

const (
	OptimizationNone     OptimizationLevel = "none"
	OptimizationBasic    OptimizationLevel = "basic"
	OptimizationAdvanced OptimizationLevel = "advanced"
	OptimizationMaximum  OptimizationLevel = "maximum"
)

// WorkSizeConfig contains work size configuration
type WorkSizeConfig struct {
	LocalWorkSize  []int `json:"local_work_size"`
	GlobalWorkSize []int `json:"global_work_size"`
	Intensity      int   `json:"intensity"`
	WorkGroupSize  int   `json:"work_group_size"`
}

// KernelPerformance tracks kernel performance metrics
type KernelPerformance struct {
	HashRate        uint64        `json:"hash_rate"`
	Latency         time.Duration `json:"latency"`
	MemoryBandwidth uint64        `json:"memory_bandwidth"`
	PowerEfficiency float64       `json:"power_efficiency"`
	LastUpdated     time.Time     `json:"last_updated"`
}

// ModernGPUMemoryManager manages GPU memory allocation and optimization
type ModernGPUMemoryManager struct {
	pools       map[int]*MemoryPool
	allocations map[unsafe.Pointer]*MemoryAllocation
	mu          sync.RWMutex
}

// MemoryPool represents a GPU memory pool
type MemoryPool struct {
	DeviceID     int
	TotalSize    uint64
	UsedSize     atomic.Uint64
	FreeSize     atomic.Uint64
	Allocations  map[unsafe.Pointer]*MemoryAllocation
	mu           sync.Mutex
}

// MemoryAllocation represents a GPU memory allocation
type MemoryAllocation struct {
	Ptr       unsafe.Pointer
	Size      uint64
	Algorithm string
	Usage     MemoryUsage
	CreatedAt time.Time
}

// MemoryUsage represents memory usage types
type MemoryUsage string

const (
	MemoryUsageInput    MemoryUsage = "input"
	MemoryUsageOutput   MemoryUsage = "output"
	MemoryUsageDAG      MemoryUsage = "dag"
	MemoryUsageCache    MemoryUsage = "cache"
	MemoryUsageBuffer   MemoryUsage = "buffer"
)

// ThermalManager manages GPU thermal control
type ThermalManager struct {
	devices    []*ModernGPUDevice
	fanCurves  map[int][]TempFanPoint
	monitoring atomic.Bool
	mu         sync.RWMutex
}

// WorkDistributor distributes mining work across GPUs
type WorkDistributor struct {
	devices      []*ModernGPUDevice
	workQueue    chan *GPUMiningWork
	resultQueue  chan *GPUMiningResult
	distribution WorkDistribution
	mu           sync.RWMutex
}

// WorkDistribution represents work distribution strategy
type WorkDistribution string

const (
	DistributionRoundRobin    WorkDistribution = "round_robin"
	DistributionHashRate      WorkDistribution = "hash_rate"
	DistributionEfficiency    WorkDistribution = "efficiency"
	DistributionTemperature   WorkDistribution = "temperature"
)

// GPUMiningWork represents a unit of mining work for GPU
type GPUMiningWork struct {
	ID          string
	Algorithm   string
	BlockHeader []byte
	Target      []byte
	StartNonce  uint64
	EndNonce    uint64
	Difficulty  uint64
	Timestamp   time.Time
}

// GPUMiningResult represents the result of GPU mining work
type GPUMiningResult struct {
	WorkID       string
	DeviceID     int
	Algorithm    string
	Nonce        uint64
	Hash         []byte
	HashCount    uint64
	Found        bool
	Timestamp    time.Time
	ComputeTime  time.Duration
}

// NewModernGPUMiner creates a new modern GPU miner
func NewModernGPUMiner(logger *zap.Logger, config GPUConfig) (*ModernGPUMiner, error) {
	miner := &ModernGPUMiner{
		logger:          logger,
		config:          config,
		kernelManager:   NewKernelManager(),
		memoryManager:   NewGPUMemoryManager(),
		thermalManager:  NewThermalManager(),
		workDistributor: NewWorkDistributor(),
	}
	
	// Detect and initialize GPU devices
	if err := miner.initializeDevices(); err != nil {
		return nil, fmt.Errorf("failed to initialize GPU devices: %w", err)
	}
	
	if len(miner.devices) == 0 {
		return nil, fmt.Errorf("no compatible GPU devices found")
	}
	
	// Initialize memory pools
	if err := miner.initializeMemoryPools(); err != nil {
		return nil, fmt.Errorf("failed to initialize memory pools: %w", err)
	}
	
	// Setup thermal management
	if err := miner.setupThermalManagement(); err != nil {
		logger.Warn("Failed to setup thermal management", zap.Error(err))
	}
	
	logger.Info("Modern GPU miner initialized",
		zap.Int("total_devices", len(miner.devices)),
		zap.Int("cuda_devices", len(miner.cuDevices)),
		zap.Int("opencl_devices", len(miner.clDevices)))
	
	return miner, nil
}

// initializeDevices detects and initializes GPU devices
func (m *ModernGPUMiner) initializeDevices() error {
	var devices []ModernGPUDevice
	
	// Initialize CUDA devices
	if m.config.EnableCUDA {
		cuDevices, err := m.initializeCUDADevices()
		if err != nil {
			m.logger.Warn("Failed to initialize CUDA devices", zap.Error(err))
		} else {
			m.cuDevices = cuDevices
			for _, dev := range cuDevices {
				devices = append(devices, dev.ModernGPUDevice)
			}
		}
	}
	
	// Initialize OpenCL devices
	if m.config.EnableOpenCL {
		clDevices, err := m.initializeOpenCLDevices()
		if err != nil {
			m.logger.Warn("Failed to initialize OpenCL devices", zap.Error(err))
		} else {
			m.clDevices = clDevices
			for _, dev := range clDevices {
				devices = append(devices, dev.ModernGPUDevice)
			}
		}
	}
	
	m.devices = devices
	return nil
}

// initializeCUDADevices initializes CUDA devices
func (m *ModernGPUMiner) initializeCUDADevices() ([]CUDADevice, error) {
	var devices []CUDADevice
	
	// Simulate CUDA device detection (in production, use actual CUDA API)
	if runtime.GOOS == "windows" || runtime.GOOS == "linux" {
		// Check for NVIDIA devices
		nvidiaDevices := m.detectNVIDIADevices()
		for i, dev := range nvidiaDevices {
			cudaDevice := CUDADevice{
				ModernGPUDevice: dev,
				CUDAVersion: "12.3",
				DriverVersion: "545.84",
				ComputeMode: 0,
				MultiprocessorCount: 108,
				WarpSize: 32,
			}
			
			// Initialize CUDA context (simulated)
			if err := m.initializeCUDAContext(&cudaDevice); err != nil {
				m.logger.Warn("Failed to initialize CUDA context", 
					zap.Int("device_id", i), 
					zap.Error(err))
				continue
			}
			
			devices = append(devices, cudaDevice)
		}
	}
	
	return devices, nil
}

// initializeOpenCLDevices initializes OpenCL devices
func (m *ModernGPUMiner) initializeOpenCLDevices() ([]OpenCLDevice, error) {
	var devices []OpenCLDevice
	
	// Simulate OpenCL device detection (in production, use actual OpenCL API)
	if runtime.GOOS == "windows" || runtime.GOOS == "linux" || runtime.GOOS == "darwin" {
		// Check for AMD/Intel devices
		amdDevices := m.detectAMDDevices()
		for i, dev := range amdDevices {
			clDevice := OpenCLDevice{
				ModernGPUDevice: dev,
				Platform: "AMD Accelerated Parallel Processing",
				OpenCLVersion: "3.0",
				Extensions: []string{"cl_khr_global_int32_base_atomics", "cl_khr_local_int32_base_atomics"},
				LocalMemSize: 64 * 1024,
				GlobalMemSize: dev.Memory,
			}
			
			// Initialize OpenCL context (simulated)
			if err := m.initializeOpenCLContext(&clDevice); err != nil {
				m.logger.Warn("Failed to initialize OpenCL context",
					zap.Int("device_id", i),
					zap.Error(err))
				continue
			}
			
			devices = append(devices, clDevice)
		}
	}
	
	return devices, nil
}

// detectNVIDIADevices detects NVIDIA GPU devices
func (m *ModernGPUMiner) detectNVIDIADevices() []ModernGPUDevice {
	var devices []ModernGPUDevice
	
	// Simulated NVIDIA device detection
	devices = append(devices, ModernGPUDevice{
		ID:           0,
		Name:         "NVIDIA GeForce RTX 4090",
		Type:         GPUTypeNVIDIA,
		Memory:       24 * 1024 * 1024 * 1024, // 24GB GDDR6X
		MemoryType:   "GDDR6X",
		ComputeUnits: 128,
		MaxWorkGroup: 1024,
		ClockSpeed:   2520, // MHz
		MemoryClock:  21000, // MHz
		Architecture: "Ada Lovelace",
		PCIBus:       "0000:01:00.0",
		Capabilities: GPUCapabilities{
			CUDA:             true,
			OpenCL:           true,
			ComputeCapability: "8.9",
			SupportFP16:      true,
			SupportFP64:      true,
			SupportAtomic:    true,
			MaxThreadsPerSM:  2048,
			SharedMemorySize: 164 * 1024,
		},
	})
	
	// Add more devices for multi-GPU setups
	if runtime.NumCPU() >= 16 {
		devices = append(devices, ModernGPUDevice{
			ID:           1,
			Name:         "NVIDIA GeForce RTX 4080",
			Type:         GPUTypeNVIDIA,
			Memory:       16 * 1024 * 1024 * 1024, // 16GB GDDR6X
			MemoryType:   "GDDR6X",
			ComputeUnits: 76,
			MaxWorkGroup: 1024,
			ClockSpeed:   2505, // MHz
			MemoryClock:  22400, // MHz
			Architecture: "Ada Lovelace",
			PCIBus:       "0000:02:00.0",
			Capabilities: GPUCapabilities{
				CUDA:             true,
				OpenCL:           true,
				ComputeCapability: "8.9",
				SupportFP16:      true,
				SupportFP64:      true,
				SupportAtomic:    true,
				MaxThreadsPerSM:  2048,
				SharedMemorySize: 164 * 1024,
			},
		})
	}
	
	return devices
}

// detectAMDDevices detects AMD GPU devices
func (m *ModernGPUMiner) detectAMDDevices() []ModernGPUDevice {
	var devices []ModernGPUDevice
	
	// Simulated AMD device detection
	devices = append(devices, ModernGPUDevice{
		ID:           0,
		Name:         "AMD Radeon RX 7900 XTX",
		Type:         GPUTypeAMD,
		Memory:       24 * 1024 * 1024 * 1024, // 24GB GDDR6
		MemoryType:   "GDDR6",
		ComputeUnits: 96,
		MaxWorkGroup: 256,
		ClockSpeed:   2500, // MHz
		MemoryClock:  20000, // MHz
		Architecture: "RDNA 3",
		PCIBus:       "0000:03:00.0",
		Capabilities: GPUCapabilities{
			CUDA:             false,
			OpenCL:           true,
			ComputeCapability: "OpenCL 2.0",
			SupportFP16:      true,
			SupportFP64:      false,
			SupportAtomic:    true,
			MaxThreadsPerSM:  1024,
			SharedMemorySize: 64 * 1024,
		},
	})
	
	return devices
}

// initializeCUDAContext initializes CUDA context for a device
func (m *ModernGPUMiner) initializeCUDAContext(device *CUDADevice) error {
	// In production, this would use actual CUDA runtime API
	// cuCtxCreate, cuMemAlloc, etc.
	m.logger.Info("CUDA context initialized", 
		zap.String("device", device.Name),
		zap.String("compute_capability", device.Capabilities.ComputeCapability))
	return nil
}

// initializeOpenCLContext initializes OpenCL context for a device
func (m *ModernGPUMiner) initializeOpenCLContext(device *OpenCLDevice) error {
	// In production, this would use actual OpenCL API
	// clCreateContext, clCreateCommandQueue, etc.
	m.logger.Info("OpenCL context initialized",
		zap.String("device", device.Name),
		zap.String("platform", device.Platform))
	return nil
}

// initializeMemoryPools initializes memory pools for each device
func (m *ModernGPUMiner) initializeMemoryPools() error {
	for _, device := range m.devices {
		pool := &MemoryPool{
			DeviceID:    device.ID,
			TotalSize:   device.Memory,
			Allocations: make(map[unsafe.Pointer]*MemoryAllocation),
		}
		pool.FreeSize.Store(device.Memory)
		
		m.memoryManager.pools[device.ID] = pool
	}
	
	return nil
}

// setupThermalManagement sets up thermal management for all devices
func (m *ModernGPUMiner) setupThermalManagement() error {
	m.thermalManager.fanCurves = make(map[int][]TempFanPoint)
	
	for _, device := range m.devices {
		// Use configured fan curve or default
		fanCurve := m.config.FanCurve
		if len(fanCurve) == 0 {
			// Default fan curve
			fanCurve = []TempFanPoint{
				{Temperature: 50, FanSpeed: 30},
				{Temperature: 60, FanSpeed: 50},
				{Temperature: 70, FanSpeed: 70},
				{Temperature: 80, FanSpeed: 90},
				{Temperature: 85, FanSpeed: 100},
			}
		}
		
		m.thermalManager.fanCurves[device.ID] = fanCurve
	}
	
	return nil
}

// Start starts GPU mining
func (m *ModernGPUMiner) Start(ctx context.Context, algorithm string) error {
	if m.running.Load() {
		return fmt.Errorf("GPU miner already running")
	}
	
	m.logger.Info("Starting modern GPU mining",
		zap.String("algorithm", algorithm),
		zap.Int("devices", len(m.devices)))
	
	// Compile kernels for the algorithm
	if err := m.compileKernels(algorithm); err != nil {
		return fmt.Errorf("failed to compile kernels: %w", err)
	}
	
	// Start thermal monitoring
	go m.startThermalMonitoring(ctx)
	
	// Start work distribution
	go m.startWorkDistribution(ctx)
	
	// Start mining on each device
	for i := range m.devices {
		go m.mineOnDevice(ctx, &m.devices[i], algorithm)
	}
	
	// Start performance monitoring
	go m.monitorPerformance(ctx)
	
	m.running.Store(true)
	
	m.logger.Info("Modern GPU mining started successfully")
	return nil
}

// Stop stops GPU mining
func (m *ModernGPUMiner) Stop() error {
	if !m.running.Load() {
		return nil
	}
	
	m.running.Store(false)
	
	// Stop thermal monitoring
	m.thermalManager.monitoring.Store(false)
	
	// Cleanup GPU resources
	m.cleanupGPUResources()
	
	m.logger.Info("Modern GPU mining stopped")
	return nil
}

// compileKernels compiles mining kernels for the given algorithm
func (m *ModernGPUMiner) compileKernels(algorithm string) error {
	m.logger.Info("Compiling GPU kernels", zap.String("algorithm", algorithm))
	
	// Compile CUDA kernels
	for _, device := range m.cuDevices {
		kernel, err := m.compileCUDAKernel(algorithm, &device)
		if err != nil {
			m.logger.Error("Failed to compile CUDA kernel",
				zap.String("device", device.Name),
				zap.Error(err))
			continue
		}
		m.kernelManager.cudaKernels[fmt.Sprintf("%s_%d", algorithm, device.ID)] = kernel
	}
	
	// Compile OpenCL kernels
	for _, device := range m.clDevices {
		kernel, err := m.compileOpenCLKernel(algorithm, &device)
		if err != nil {
			m.logger.Error("Failed to compile OpenCL kernel",
				zap.String("device", device.Name),
				zap.Error(err))
			continue
		}
		m.kernelManager.openclKernels[fmt.Sprintf("%s_%d", algorithm, device.ID)] = kernel
	}
	
	return nil
}

// compileCUDAKernel compiles a CUDA kernel
func (m *ModernGPUMiner) compileCUDAKernel(algorithm string, device *CUDADevice) (*CUDAKernel, error) {
	// Get kernel source (but don't store in unused variable)
	_ = m.getCUDAKernelSource(algorithm, device)
	
	// In production, this would use nvcc or CUDA runtime compilation
	kernel := &CUDAKernel{
		Algorithm:    algorithm,
		Optimization: m.config.KernelOptimization,
		WorkSize:     m.config.WorkSize,
	}
	
	// Auto-tune work size if enabled
	if m.config.AutoTuning {
		m.autoTuneCUDAKernel(kernel, device)
	}
	
	m.logger.Info("CUDA kernel compiled",
		zap.String("algorithm", algorithm),
		zap.String("device", device.Name))
	
	return kernel, nil
}

// compileOpenCLKernel compiles an OpenCL kernel
func (m *ModernGPUMiner) compileOpenCLKernel(algorithm string, device *OpenCLDevice) (*OpenCLKernel, error) {
	// Get kernel source (but don't store in unused variable)
	_ = m.getOpenCLKernelSource(algorithm, device)
	
	// In production, this would use OpenCL runtime compilation
	kernel := &OpenCLKernel{
		Algorithm:    algorithm,
		Optimization: m.config.KernelOptimization,
		WorkSize:     m.config.WorkSize,
	}
	
	// Auto-tune work size if enabled
	if m.config.AutoTuning {
		m.autoTuneOpenCLKernel(kernel, device)
	}
	
	m.logger.Info("OpenCL kernel compiled",
		zap.String("algorithm", algorithm),
		zap.String("device", device.Name))
	
	return kernel, nil
}

// getCUDAKernelSource returns optimized CUDA kernel source
func (m *ModernGPUMiner) getCUDAKernelSource(algorithm string, device *CUDADevice) string {
	switch algorithm {
	case "sha256":
		return m.generateOptimizedCUDASHA256Kernel(device)
	case "scrypt":
		return m.generateOptimizedCUDAScryptKernel(device)
	case "ethash":
		return m.generateOptimizedCUDAEthashKernel(device)
	case "kawpow":
		return m.generateOptimizedCUDAKawPowKernel(device)
	case "autolykos2":
		return m.generateOptimizedCUDAAutolykos2Kernel(device)
	default:
		return ""
	}
}

// getOpenCLKernelSource returns optimized OpenCL kernel source
func (m *ModernGPUMiner) getOpenCLKernelSource(algorithm string, device *OpenCLDevice) string {
	switch algorithm {
	case "sha256":
		return m.generateOptimizedOpenCLSHA256Kernel(device)
	case "scrypt":
		return m.generateOptimizedOpenCLScryptKernel(device)
	case "ethash":
		return m.generateOptimizedOpenCLEthashKernel(device)
	case "kawpow":
		return m.generateOptimizedOpenCLKawPowKernel(device)
	case "autolykos2":
		return m.generateOptimizedOpenCLAutolykos2Kernel(device)
	default:
		return ""
	}
}

// generateOptimizedCUDASHA256Kernel generates optimized CUDA SHA256 kernel
func (m *ModernGPUMiner) generateOptimizedCUDASHA256Kernel(device *CUDADevice) string {
	optimization := m.config.KernelOptimization
	
	kernelSource := fmt.Sprintf(`
#include <cuda_runtime.h>

// SHA256 constants
__constant__ uint32_t k[64] = {
    0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5, 0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
    // ... (all 64 constants)
};

__device__ __forceinline__ uint32_t rotr(uint32_t x, uint32_t n) {
    return (x >> n) | (x << (32 - n));
}

__device__ __forceinline__ uint32_t Ch(uint32_t x, uint32_t y, uint32_t z) {
    return (x & y) ^ (~x & z);
}

__device__ __forceinline__ uint32_t Maj(uint32_t x, uint32_t y, uint32_t z) {
    return (x & y) ^ (x & z) ^ (y & z);
}

__device__ __forceinline__ uint32_t Sigma0(uint32_t x) {
    return rotr(x, 2) ^ rotr(x, 13) ^ rotr(x, 22);
}

__device__ __forceinline__ uint32_t Sigma1(uint32_t x) {
    return rotr(x, 6) ^ rotr(x, 11) ^ rotr(x, 25);
}

__device__ __forceinline__ uint32_t sigma0(uint32_t x) {
    return rotr(x, 7) ^ rotr(x, 18) ^ (x >> 3);
}

__device__ __forceinline__ uint32_t sigma1(uint32_t x) {
    return rotr(x, 17) ^ rotr(x, 19) ^ (x >> 10);
}

__global__ void sha256_mining_kernel(
    uint32_t* __restrict__ block_header,
    uint32_t* __restrict__ target,
    uint32_t* __restrict__ results,
    uint32_t start_nonce,
    uint32_t batch_size
) {
    const uint32_t thread_id = blockIdx.x * blockDim.x + threadIdx.x;
    const uint32_t nonce = start_nonce + thread_id;
    
    if (thread_id >= batch_size) return;
    
    // Use shared memory for block header if optimization enabled
    %s
    uint32_t block[16];
    
    %s
    
    // Copy block header
    #pragma unroll
    for (int i = 0; i < 16; i++) {
        block[i] = block_header[i];
    }
    
    // Set nonce
    block[3] = nonce;
    
    // SHA256 computation with optimizations
    uint32_t w[64];
    uint32_t a, b, c, d, e, f, g, h;
    uint32_t temp1, temp2;
    
    // Message schedule
    #pragma unroll 16
    for (int i = 0; i < 16; i++) {
        w[i] = block[i];
    }
    
    %s
    for (int i = 16; i < 64; i++) {
        w[i] = sigma1(w[i-2]) + w[i-7] + sigma0(w[i-15]) + w[i-16];
    }
    
    // Initialize hash values
    a = 0x6a09e667; b = 0xbb67ae85; c = 0x3c6ef372; d = 0xa54ff53a;
    e = 0x510e527f; f = 0x9b05688c; g = 0x1f83d9ab; h = 0x5be0cd19;
    
    // Main loop with optimizations
    #pragma unroll 64
    for (int i = 0; i < 64; i++) {
        temp1 = h + Sigma1(e) + Ch(e, f, g) + k[i] + w[i];
        temp2 = Sigma0(a) + Maj(a, b, c);
        h = g; g = f; f = e; e = d + temp1;
        d = c; c = b; b = a; a = temp1 + temp2;
    }
    
    // Add initial hash values
    uint32_t hash0 = a + 0x6a09e667;
    
    // Check if hash meets target (simplified check)
    if (hash0 <= target[0]) {
        atomicExch(&results[0], nonce);
        atomicExch(&results[1], 1); // Found flag
    }
}
`,
		// Conditional shared memory usage
		func() string {
			if optimization.UseSharedMemory {
				return `__shared__ uint32_t shared_header[16];
				if (threadIdx.x < 16) {
					shared_header[threadIdx.x] = block_header[threadIdx.x];
				}
				__syncthreads();`
			}
			return ""
		}(),
		// Conditional prefetch
		func() string {
			if optimization.PrefetchData {
				return `__prefetch_global_l1(block_header);`
			}
			return ""
		}(),
		// Conditional unroll
		func() string {
			if optimization.UnrollLoops {
				return "#pragma unroll 64"
			}
			return "#pragma unroll 8"
		}(),
	)
	
	return kernelSource
}

// generateOptimizedOpenCLSHA256Kernel generates optimized OpenCL SHA256 kernel
func (m *ModernGPUMiner) generateOptimizedOpenCLSHA256Kernel(device *OpenCLDevice) string {
	optimization := m.config.KernelOptimization
	
	kernelSource := fmt.Sprintf(`
#pragma OPENCL EXTENSION cl_khr_byte_addressable_store : enable

// SHA256 constants
__constant uint k[64] = {
    0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5, 0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
    // ... (all 64 constants)
};

inline uint rotr(uint x, uint n) {
    return (x >> n) | (x << (32 - n));
}

inline uint Ch(uint x, uint y, uint z) {
    return (x & y) ^ (~x & z);
}

inline uint Maj(uint x, uint y, uint z) {
    return (x & y) ^ (x & z) ^ (y & z);
}

inline uint Sigma0(uint x) {
    return rotr(x, 2) ^ rotr(x, 13) ^ rotr(x, 22);
}

inline uint Sigma1(uint x) {
    return rotr(x, 6) ^ rotr(x, 11) ^ rotr(x, 25);
}

inline uint sigma0(uint x) {
    return rotr(x, 7) ^ rotr(x, 18) ^ (x >> 3);
}

inline uint sigma1(uint x) {
    return rotr(x, 17) ^ rotr(x, 19) ^ (x >> 10);
}

__kernel void sha256_mining_kernel(
    __global uint* restrict block_header,
    __global uint* restrict target,
    __global uint* restrict results,
    uint start_nonce,
    uint batch_size
) {
    const uint gid = get_global_id(0);
    const uint nonce = start_nonce + gid;
    
    if (gid >= batch_size) return;
    
    // Use local memory for better performance
    %s
    uint block[16];
    
    // Copy block header
    #pragma unroll
    for (int i = 0; i < 16; i++) {
        block[i] = block_header[i];
    }
    
    // Set nonce
    block[3] = nonce;
    
    // SHA256 computation
    uint w[64];
    uint a, b, c, d, e, f, g, h;
    uint temp1, temp2;
    
    // Message schedule
    #pragma unroll
    for (int i = 0; i < 16; i++) {
        w[i] = block[i];
    }
    
    %s
    for (int i = 16; i < 64; i++) {
        w[i] = sigma1(w[i-2]) + w[i-7] + sigma0(w[i-15]) + w[i-16];
    }
    
    // Initialize hash values
    a = 0x6a09e667; b = 0xbb67ae85; c = 0x3c6ef372; d = 0xa54ff53a;
    e = 0x510e527f; f = 0x9b05688c; g = 0x1f83d9ab; h = 0x5be0cd19;
    
    // Main loop
    for (int i = 0; i < 64; i++) {
        temp1 = h + Sigma1(e) + Ch(e, f, g) + k[i] + w[i];
        temp2 = Sigma0(a) + Maj(a, b, c);
        h = g; g = f; f = e; e = d + temp1;
        d = c; c = b; b = a; a = temp1 + temp2;
    }
    
    // Add initial hash values
    uint hash0 = a + 0x6a09e667;
    
    // Check if hash meets target
    if (hash0 <= target[0]) {
        atomic_xchg(&results[0], nonce);
        atomic_xchg(&results[1], 1);
    }
}
`,
		// Conditional local memory usage
		func() string {
			if optimization.UseSharedMemory {
				return `__local uint local_header[16];
				if (get_local_id(0) < 16) {
					local_header[get_local_id(0)] = block_header[get_local_id(0)];
				}
				barrier(CLK_LOCAL_MEM_FENCE);`
			}
			return ""
		}(),
		// Conditional unroll
		func() string {
			if optimization.UnrollLoops {
				return "#pragma unroll 64"
			}
			return "#pragma unroll 8"
		}(),
	)
	
	return kernelSource
}

// Auto-tuning methods (simplified implementations)
func (m *ModernGPUMiner) autoTuneCUDAKernel(kernel *CUDAKernel, device *CUDADevice) {
	// Simplified auto-tuning logic
	// In production, this would benchmark different configurations
	
	bestConfig := WorkSizeConfig{
		LocalWorkSize:  []int{256},
		GlobalWorkSize: []int{65536},
		Intensity:      20,
		WorkGroupSize:  256,
	}
	
	// Adjust based on device compute capability
	if device.Capabilities.ComputeCapability >= "8.0" {
		bestConfig.Intensity = 22
		bestConfig.GlobalWorkSize = []int{131072}
	}
	
	kernel.WorkSize = bestConfig
	
	m.logger.Info("CUDA kernel auto-tuned",
		zap.String("device", device.Name),
		zap.Int("intensity", bestConfig.Intensity),
		zap.Int("work_group_size", bestConfig.WorkGroupSize))
}

func (m *ModernGPUMiner) autoTuneOpenCLKernel(kernel *OpenCLKernel, device *OpenCLDevice) {
	// Simplified auto-tuning logic
	bestConfig := WorkSizeConfig{
		LocalWorkSize:  []int{256},
		GlobalWorkSize: []int{65536},
		Intensity:      18,
		WorkGroupSize:  256,
	}
	
	// Adjust based on device type
	if device.Type == GPUTypeAMD {
		bestConfig.LocalWorkSize = []int{64}
		bestConfig.WorkGroupSize = 64
		bestConfig.Intensity = 20
	}
	
	kernel.WorkSize = bestConfig
	
	m.logger.Info("OpenCL kernel auto-tuned",
		zap.String("device", device.Name),
		zap.Int("intensity", bestConfig.Intensity),
		zap.Int("work_group_size", bestConfig.WorkGroupSize))
}

// Additional kernel source generators (stubs for other algorithms)
func (m *ModernGPUMiner) generateOptimizedCUDAScryptKernel(device *CUDADevice) string {
	return "// CUDA Scrypt kernel implementation"
}

func (m *ModernGPUMiner) generateOptimizedCUDAEthashKernel(device *CUDADevice) string {
	return "// CUDA Ethash kernel implementation"
}

func (m *ModernGPUMiner) generateOptimizedCUDAKawPowKernel(device *CUDADevice) string {
	return "// CUDA KawPow kernel implementation"
}

func (m *ModernGPUMiner) generateOptimizedCUDAAutolykos2Kernel(device *CUDADevice) string {
	return "// CUDA Autolykos2 kernel implementation"
}

func (m *ModernGPUMiner) generateOptimizedOpenCLScryptKernel(device *OpenCLDevice) string {
	return "// OpenCL Scrypt kernel implementation"
}

func (m *ModernGPUMiner) generateOptimizedOpenCLEthashKernel(device *OpenCLDevice) string {
	return "// OpenCL Ethash kernel implementation"
}

func (m *ModernGPUMiner) generateOptimizedOpenCLKawPowKernel(device *OpenCLDevice) string {
	return "// OpenCL KawPow kernel implementation"
}

func (m *ModernGPUMiner) generateOptimizedOpenCLAutolykos2Kernel(device *OpenCLDevice) string {
	return "// OpenCL Autolykos2 kernel implementation"
}

// Runtime methods (simplified for space)
func (m *ModernGPUMiner) mineOnDevice(ctx context.Context, device *ModernGPUDevice, algorithm string) {
	for m.running.Load() {
		select {
		case <-ctx.Done():
			return
		default:
			// Simulate mining work
			hashes := m.performDeviceMining(device, algorithm)
			m.hashRate.Add(uint64(hashes))
			m.totalHashes.Add(uint64(hashes))
			
			// Check thermal throttling
			if device.Temperature.Load() > int32(m.config.MaxTemp) {
				device.Status = DeviceStatusThrottle
				time.Sleep(100 * time.Millisecond)
			} else {
				device.Status = DeviceStatusMining
			}
		}
	}
}

func (m *ModernGPUMiner) performDeviceMining(device *ModernGPUDevice, algorithm string) int {
	// Simplified mining simulation
	time.Sleep(10 * time.Millisecond)
	
	// Calculate hashes based on device capability
	var baseHashes int
	switch device.Type {
	case GPUTypeNVIDIA:
		baseHashes = device.ComputeUnits * 1000000 // 1M hashes per compute unit
	case GPUTypeAMD:
		baseHashes = device.ComputeUnits * 800000  // 800K hashes per compute unit
	default:
		baseHashes = device.ComputeUnits * 500000  // 500K hashes per compute unit
	}
	
	// Apply algorithm-specific multipliers
	switch algorithm {
	case "sha256":
		return baseHashes * 2
	case "scrypt":
		return baseHashes / 10
	case "ethash":
		return baseHashes / 5
	default:
		return baseHashes
	}
}

func (m *ModernGPUMiner) startThermalMonitoring(ctx context.Context) {
	m.thermalManager.monitoring.Store(true)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	
	for m.thermalManager.monitoring.Load() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.updateThermalStatus()
		}
	}
}

func (m *ModernGPUMiner) updateThermalStatus() {
	for i := range m.devices {
		device := &m.devices[i]
		
		// Simulate temperature reading
		temp := 60 + int32(time.Now().Unix()%25) // 60-85°C range
		device.Temperature.Store(temp)
		
		// Update fan speed based on curve
		fanSpeed := m.calculateFanSpeed(device.ID, int(temp))
		device.FanSpeed.Store(int32(fanSpeed))
		
		// Simulate power usage
		powerUsage := 200 + int32(time.Now().Unix()%150) // 200-350W range
		device.PowerUsage.Store(powerUsage)
		
		// Update total power consumption
		m.powerConsumption.Store(uint32(powerUsage))
	}
}

func (m *ModernGPUMiner) calculateFanSpeed(deviceID int, temperature int) int {
	fanCurve := m.thermalManager.fanCurves[deviceID]
	
	for i, point := range fanCurve {
		if temperature <= point.Temperature {
			if i == 0 {
				return point.FanSpeed
			}
			
			// Linear interpolation
			prevPoint := fanCurve[i-1]
			ratio := float64(temperature-prevPoint.Temperature) / float64(point.Temperature-prevPoint.Temperature)
			fanSpeed := float64(prevPoint.FanSpeed) + ratio*float64(point.FanSpeed-prevPoint.FanSpeed)
			return int(fanSpeed)
		}
	}
	
	// Return maximum fan speed if temperature exceeds all points
	return 100
}

func (m *ModernGPUMiner) startWorkDistribution(ctx context.Context) {
	// Simplified work distribution
	// In production, this would handle actual mining work
}

func (m *ModernGPUMiner) monitorPerformance(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := m.GetStats()
			m.logger.Info("GPU mining performance",
				zap.Any("stats", stats))
		}
	}
}

func (m *ModernGPUMiner) cleanupGPUResources() {
	// Cleanup CUDA resources
	for _, device := range m.cuDevices {
		// In production: cuCtxDestroy, cuMemFree, etc.
		m.logger.Debug("Cleaning up CUDA resources", zap.String("device", device.Name))
	}
	
	// Cleanup OpenCL resources
	for _, device := range m.clDevices {
		// In production: clReleaseContext, clReleaseCommandQueue, etc.
		m.logger.Debug("Cleaning up OpenCL resources", zap.String("device", device.Name))
	}
}

// GetStats returns comprehensive GPU mining statistics
func (m *ModernGPUMiner) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"total_devices":       len(m.devices),
		"cuda_devices":        len(m.cuDevices),
		"opencl_devices":      len(m.clDevices),
		"hash_rate":          m.hashRate.Load(),
		"total_hashes":       m.totalHashes.Load(),
		"accepted_shares":    m.acceptedShares.Load(),
		"rejected_shares":    m.rejectedShares.Load(),
		"power_consumption":  m.powerConsumption.Load(),
		"devices":           make([]map[string]interface{}, len(m.devices)),
	}
	
	// Add per-device statistics
	for i, device := range m.devices {
		deviceStats := map[string]interface{}{
			"id":           device.ID,
			"name":         device.Name,
			"type":         string(device.Type),
			"status":       string(device.Status),
			"temperature":  device.Temperature.Load(),
			"fan_speed":    device.FanSpeed.Load(),
			"power_usage":  device.PowerUsage.Load(),
			"utilization":  device.Utilization.Load(),
			"memory_used":  0, // TODO: Calculate actual memory usage
		}
		stats["devices"].([]map[string]interface{})[i] = deviceStats
	}
	
	return stats
}

// Constructor functions for managers
func NewKernelManager() *KernelManager {
	return &KernelManager{
		cudaKernels:   make(map[string]*CUDAKernel),
		openclKernels: make(map[string]*OpenCLKernel),
		optimizations: make(map[string]KernelOptimization),
	}
}

func NewGPUMemoryManager() *ModernGPUMemoryManager {
	return &ModernGPUMemoryManager{
		pools:       make(map[int]*MemoryPool),
		allocations: make(map[unsafe.Pointer]*MemoryAllocation),
	}
}

func NewThermalManager() *ThermalManager {
	return &ThermalManager{
		fanCurves: make(map[int][]TempFanPoint),
	}
}

func NewWorkDistributor() *WorkDistributor {
	return &WorkDistributor{
		workQueue:   make(chan *GPUMiningWork, 1000),
		resultQueue: make(chan *GPUMiningResult, 1000),
		distribution: DistributionHashRate,
	}
}
