package gpu

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// GPUMiner represents a GPU-based cryptocurrency miner
type GPUMiner struct {
	logger     *zap.Logger
	
	// GPU devices
	devices    []*GPUDevice
	devicesMu  sync.RWMutex
	
	// Mining state
	running    atomic.Bool
	paused     atomic.Bool
	
	// Work management
	currentWork *MiningWork
	workMu      sync.RWMutex
	
	// Statistics
	stats       *MinerStats
	
	// Control
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// GPUDevice represents a single GPU device
type GPUDevice struct {
	ID           int
	Name         string
	Vendor       GPUVendor
	Memory       uint64 // bytes
	ComputeUnits int
	MaxClock     int    // MHz
	
	// Runtime state
	Temperature  atomic.Int32  // Celsius
	PowerDraw    atomic.Int32  // Watts
	FanSpeed     atomic.Int32  // Percentage
	MemoryUsed   atomic.Uint64 // bytes
	HashRate     atomic.Uint64 // H/s
	
	// Mining state
	running      atomic.Bool
	worker       *GPUWorker
}

// GPUVendor represents GPU manufacturer
type GPUVendor int

const (
	VendorNVIDIA GPUVendor = iota
	VendorAMD
	VendorIntel
	VendorUnknown
)

// GPUWorker represents a GPU mining worker
type GPUWorker struct {
	device      *GPUDevice
	miner       *GPUMiner
	
	// Compute context (CUDA/OpenCL)
	computeCtx  interface{}
	
	// Kernel programs
	kernels     map[string]interface{}
	
	// Buffers
	buffers     *GPUBuffers
	
	// Statistics
	validShares atomic.Uint64
	staleShares atomic.Uint64
	
	// Control
	ctx         context.Context
	cancel      context.CancelFunc
}

// GPUBuffers manages GPU memory buffers
type GPUBuffers struct {
	// Input buffers
	headerBuffer   interface{} // Block header
	targetBuffer   interface{} // Difficulty target
	
	// Output buffers
	nonceBuffer    interface{} // Found nonces
	hashBuffer     interface{} // Computed hashes
	
	// Working buffers
	stateBuffer    interface{} // SHA256 state
	scratchBuffer  interface{} // Temporary storage
	
	// Buffer sizes
	batchSize      int
	bufferSize     int
}

// MiningWork represents work to be mined
type MiningWork struct {
	JobID        string
	PrevHash     []byte
	MerkleRoot   []byte
	Version      uint32
	NBits        uint32
	NTime        uint32
	Target       []byte
	ExtraNonce1  []byte
	ExtraNonce2  []byte
}

// MinerStats contains mining statistics
type MinerStats struct {
	StartTime        time.Time
	TotalHashes      atomic.Uint64
	ValidShares      atomic.Uint64
	InvalidShares    atomic.Uint64
	StaleShares      atomic.Uint64
	HardwareErrors   atomic.Uint64
	LastShareTime    atomic.Int64
	BestDifficulty   atomic.Uint64
}

// GPUConfig contains GPU miner configuration
type GPUConfig struct {
	// Device selection
	DeviceIDs    []int  // Specific devices to use (-1 for all)
	
	// Performance settings
	Intensity    int    // Work intensity (8-25)
	WorkSize     int    // Work group size
	Threads      int    // GPU threads
	
	// Memory settings
	TextureCache bool   // Use texture cache
	BFactor      int    // Branching factor
	
	// Temperature limits
	TempTarget   int    // Target temperature
	TempLimit    int    // Maximum temperature
	
	// Power limits
	PowerLimit   int    // Maximum power draw (watts)
}

// NewGPUMiner creates a new GPU miner
func NewGPUMiner(logger *zap.Logger, config *GPUConfig) (*GPUMiner, error) {
	ctx, cancel := context.WithCancel(context.Background())
	
	miner := &GPUMiner{
		logger:  logger,
		stats:   &MinerStats{StartTime: time.Now()},
		ctx:     ctx,
		cancel:  cancel,
	}
	
	// Initialize GPU devices
	if err := miner.initializeDevices(config); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize GPU devices: %w", err)
	}
	
	return miner, nil
}

// initializeDevices initializes available GPU devices
func (m *GPUMiner) initializeDevices(config *GPUConfig) error {
	// Detect available GPUs
	devices, err := detectGPUDevices()
	if err != nil {
		return err
	}
	
	if len(devices) == 0 {
		return errors.New("no GPU devices found")
	}
	
	// Filter devices based on config
	selectedDevices := make([]*GPUDevice, 0)
	for _, device := range devices {
		// Check if device is selected
		if len(config.DeviceIDs) > 0 {
			selected := false
			for _, id := range config.DeviceIDs {
				if id == -1 || id == device.ID {
					selected = true
					break
				}
			}
			if !selected {
				continue
			}
		}
		
		// Initialize device
		if err := device.initialize(); err != nil {
			m.logger.Warn("Failed to initialize GPU device",
				zap.Int("device_id", device.ID),
				zap.String("name", device.Name),
				zap.Error(err),
			)
			continue
		}
		
		selectedDevices = append(selectedDevices, device)
	}
	
	if len(selectedDevices) == 0 {
		return errors.New("no usable GPU devices")
	}
	
	m.devices = selectedDevices
	
	m.logger.Info("Initialized GPU devices",
		zap.Int("count", len(selectedDevices)),
	)
	
	return nil
}

// Start begins mining on all GPUs
func (m *GPUMiner) Start() error {
	if m.running.Load() {
		return errors.New("miner already running")
	}
	
	m.running.Store(true)
	m.logger.Info("Starting GPU miner",
		zap.Int("devices", len(m.devices)),
	)
	
	// Start monitoring
	m.wg.Add(1)
	go m.monitorDevices()
	
	// Start statistics reporter
	m.wg.Add(1)
	go m.statsReporter()
	
	// Start workers for each device
	for _, device := range m.devices {
		if err := m.startDeviceWorker(device); err != nil {
			m.logger.Error("Failed to start device worker",
				zap.Int("device_id", device.ID),
				zap.Error(err),
			)
		}
	}
	
	return nil
}

// Stop stops mining on all GPUs
func (m *GPUMiner) Stop() error {
	if !m.running.Load() {
		return errors.New("miner not running")
	}
	
	m.logger.Info("Stopping GPU miner")
	m.running.Store(false)
	m.cancel()
	
	// Stop all device workers
	for _, device := range m.devices {
		if device.worker != nil {
			device.worker.stop()
		}
	}
	
	// Wait for all goroutines
	m.wg.Wait()
	
	return nil
}

// Pause temporarily pauses mining
func (m *GPUMiner) Pause() {
	m.paused.Store(true)
	m.logger.Info("GPU miner paused")
}

// Resume resumes mining after pause
func (m *GPUMiner) Resume() {
	m.paused.Store(false)
	m.logger.Info("GPU miner resumed")
}

// SetWork updates the current mining work
func (m *GPUMiner) SetWork(work *MiningWork) {
	m.workMu.Lock()
	defer m.workMu.Unlock()
	
	m.currentWork = work
	
	// Update work on all devices
	for _, device := range m.devices {
		if device.worker != nil {
			device.worker.updateWork(work)
		}
	}
	
	m.logger.Info("Updated mining work",
		zap.String("job_id", work.JobID),
	)
}

// GetHashRate returns total hash rate across all GPUs
func (m *GPUMiner) GetHashRate() uint64 {
	total := uint64(0)
	for _, device := range m.devices {
		total += device.HashRate.Load()
	}
	return total
}

// GetStats returns mining statistics
func (m *GPUMiner) GetStats() MinerStats {
	return *m.stats
}

// GetDevices returns all GPU devices
func (m *GPUMiner) GetDevices() []*GPUDevice {
	m.devicesMu.RLock()
	defer m.devicesMu.RUnlock()
	
	devices := make([]*GPUDevice, len(m.devices))
	copy(devices, m.devices)
	return devices
}

// startDeviceWorker starts mining on a specific device
func (m *GPUMiner) startDeviceWorker(device *GPUDevice) error {
	ctx, cancel := context.WithCancel(m.ctx)
	
	worker := &GPUWorker{
		device:  device,
		miner:   m,
		kernels: make(map[string]interface{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	
	// Initialize compute context based on vendor
	if err := worker.initializeCompute(); err != nil {
		cancel()
		return err
	}
	
	device.worker = worker
	device.running.Store(true)
	
	m.wg.Add(1)
	go worker.mine()
	
	return nil
}

// monitorDevices monitors GPU health and performance
func (m *GPUMiner) monitorDevices() {
	defer m.wg.Done()
	
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			for _, device := range m.devices {
				m.monitorDevice(device)
			}
		}
	}
}

// monitorDevice monitors a single GPU device
func (m *GPUMiner) monitorDevice(device *GPUDevice) {
	// Update device metrics
	metrics, err := device.getMetrics()
	if err != nil {
		m.logger.Debug("Failed to get device metrics",
			zap.Int("device_id", device.ID),
			zap.Error(err),
		)
		return
	}
	
	device.Temperature.Store(metrics.Temperature)
	device.PowerDraw.Store(metrics.PowerDraw)
	device.FanSpeed.Store(metrics.FanSpeed)
	device.MemoryUsed.Store(metrics.MemoryUsed)
	
	// Check temperature limits
	if metrics.Temperature > 85 {
		m.logger.Warn("GPU temperature too high",
			zap.Int("device_id", device.ID),
			zap.Int32("temperature", metrics.Temperature),
		)
		// Throttle or pause device
	}
}

// statsReporter periodically reports mining statistics
func (m *GPUMiner) statsReporter() {
	defer m.wg.Done()
	
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.reportStats()
		}
	}
}

// reportStats logs current mining statistics
func (m *GPUMiner) reportStats() {
	totalHashRate := m.GetHashRate()
	totalHashes := m.stats.TotalHashes.Load()
	validShares := m.stats.ValidShares.Load()
	uptime := time.Since(m.stats.StartTime)
	
	m.logger.Info("GPU Miner Statistics",
		zap.Uint64("total_hashrate", totalHashRate),
		zap.Uint64("total_hashes", totalHashes),
		zap.Uint64("valid_shares", validShares),
		zap.Duration("uptime", uptime),
	)
	
	// Log per-device stats
	for _, device := range m.devices {
		m.logger.Debug("Device statistics",
			zap.Int("device_id", device.ID),
			zap.String("name", device.Name),
			zap.Uint64("hashrate", device.HashRate.Load()),
			zap.Int32("temperature", device.Temperature.Load()),
			zap.Int32("power", device.PowerDraw.Load()),
		)
	}
}

// GPU Device methods

// initialize initializes the GPU device
func (d *GPUDevice) initialize() error {
	// This would initialize the actual GPU device
	// Using CUDA for NVIDIA or OpenCL for AMD
	
	switch d.Vendor {
	case VendorNVIDIA:
		return d.initializeCUDA()
	case VendorAMD:
		return d.initializeOpenCL()
	default:
		return errors.New("unsupported GPU vendor")
	}
}

// initializeCUDA initializes NVIDIA GPU using CUDA
func (d *GPUDevice) initializeCUDA() error {
	// This would use CUDA API to initialize device
	// For now, return success
	return nil
}

// initializeOpenCL initializes AMD GPU using OpenCL
func (d *GPUDevice) initializeOpenCL() error {
	// This would use OpenCL API to initialize device
	// For now, return success
	return nil
}

// getMetrics retrieves current GPU metrics
func (d *GPUDevice) getMetrics() (*GPUMetrics, error) {
	// This would query actual GPU metrics
	// For now, return mock data
	return &GPUMetrics{
		Temperature: 65,
		PowerDraw:   150,
		FanSpeed:    60,
		MemoryUsed:  d.Memory / 2,
		CoreClock:   1500,
		MemoryClock: 7000,
	}, nil
}

// GPUMetrics contains GPU performance metrics
type GPUMetrics struct {
	Temperature int32  // Celsius
	PowerDraw   int32  // Watts
	FanSpeed    int32  // Percentage
	MemoryUsed  uint64 // Bytes
	CoreClock   int    // MHz
	MemoryClock int    // MHz
}

// GPU Worker methods

// initializeCompute initializes the compute context
func (w *GPUWorker) initializeCompute() error {
	switch w.device.Vendor {
	case VendorNVIDIA:
		return w.initializeCUDACompute()
	case VendorAMD:
		return w.initializeOpenCLCompute()
	default:
		return errors.New("unsupported GPU vendor")
	}
}

// initializeCUDACompute initializes CUDA compute context
func (w *GPUWorker) initializeCUDACompute() error {
	// This would:
	// 1. Create CUDA context
	// 2. Load mining kernels
	// 3. Allocate device memory
	// 4. Set up streams
	
	// Allocate buffers
	w.buffers = &GPUBuffers{
		batchSize:  65536, // 64K nonces per batch
		bufferSize: 80,    // Block header size
	}
	
	return nil
}

// initializeOpenCLCompute initializes OpenCL compute context
func (w *GPUWorker) initializeOpenCLCompute() error {
	// This would:
	// 1. Create OpenCL context
	// 2. Build mining kernels
	// 3. Allocate device memory
	// 4. Set up command queues
	
	// Allocate buffers
	w.buffers = &GPUBuffers{
		batchSize:  65536, // 64K nonces per batch
		bufferSize: 80,    // Block header size
	}
	
	return nil
}

// mine is the main mining loop for the worker
func (w *GPUWorker) mine() {
	defer w.miner.wg.Done()
	
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			if w.miner.paused.Load() {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			
			// Get current work
			w.miner.workMu.RLock()
			work := w.miner.currentWork
			w.miner.workMu.RUnlock()
			
			if work == nil {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			
			// Mine batch
			w.mineBatch(work)
		}
	}
}

// mineBatch mines a batch of nonces
func (w *GPUWorker) mineBatch(work *MiningWork) {
	// This would:
	// 1. Prepare block headers
	// 2. Launch GPU kernel
	// 3. Check results
	// 4. Submit shares
	
	startNonce := uint64(time.Now().UnixNano())
	batchSize := w.buffers.batchSize
	
	// Simulate mining
	time.Sleep(10 * time.Millisecond)
	
	// Update hash rate
	hashRate := uint64(batchSize) * 100 // Simulated 100 batches/sec
	w.device.HashRate.Store(hashRate)
	w.miner.stats.TotalHashes.Add(uint64(batchSize))
}

// updateWork updates the current work
func (w *GPUWorker) updateWork(work *MiningWork) {
	// This would update GPU buffers with new work
}

// stop stops the worker
func (w *GPUWorker) stop() {
	w.cancel()
	w.device.running.Store(false)
	
	// Clean up GPU resources
	w.cleanup()
}

// cleanup releases GPU resources
func (w *GPUWorker) cleanup() {
	// This would:
	// 1. Free device memory
	// 2. Destroy compute context
	// 3. Unload kernels
}

// detectGPUDevices detects available GPU devices
func detectGPUDevices() ([]*GPUDevice, error) {
	devices := make([]*GPUDevice, 0)
	
	// Detect NVIDIA GPUs
	nvidiaDevices, err := detectNVIDIADevices()
	if err == nil {
		devices = append(devices, nvidiaDevices...)
	}
	
	// Detect AMD GPUs
	amdDevices, err := detectAMDDevices()
	if err == nil {
		devices = append(devices, amdDevices...)
	}
	
	return devices, nil
}

// detectNVIDIADevices detects NVIDIA GPUs
func detectNVIDIADevices() ([]*GPUDevice, error) {
	// This would use CUDA API to enumerate devices
	// For now, return mock device
	
	if runtime.GOOS == "windows" || runtime.GOOS == "linux" {
		return []*GPUDevice{
			{
				ID:           0,
				Name:         "NVIDIA GeForce RTX 3080",
				Vendor:       VendorNVIDIA,
				Memory:       10 * 1024 * 1024 * 1024, // 10GB
				ComputeUnits: 68, // SMs
				MaxClock:     1710,
			},
		}, nil
	}
	
	return nil, errors.New("NVIDIA GPU detection not supported on this platform")
}

// detectAMDDevices detects AMD GPUs
func detectAMDDevices() ([]*GPUDevice, error) {
	// This would use OpenCL or ROCm to enumerate devices
	// For now, return nil
	return nil, errors.New("AMD GPU detection not implemented")
}

// Helper methods

func (v GPUVendor) String() string {
	switch v {
	case VendorNVIDIA:
		return "NVIDIA"
	case VendorAMD:
		return "AMD"
	case VendorIntel:
		return "Intel"
	default:
		return "Unknown"
	}
}