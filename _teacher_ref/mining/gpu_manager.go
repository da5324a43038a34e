package mining

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// GPUManager manages GPU mining operations
type GPUManager struct {
	mu           sync.RWMutex
	config       *GPUConfig
	logger       *zap.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	
	// GPU device management
	devices      map[int]*GPUDevice
	devicePool   *DevicePool
	
	// Mining coordination
	miningEngine *MiningEngine
	jobQueue     *JobQueue
	resultQueue  *ResultQueue
	
	// CUDA/OpenCL support
	cudaEngine   *CUDAManager
	openclEngine *OpenCLManager
	
	// Performance monitoring
	stats        *GPUStats
	metrics      *MetricsCollector
	
	// Resource management
	resourceManager *ResourceManager
	
	// Health monitoring
	healthMonitor   *HealthMonitor
}

// GPUConfig contains GPU-specific configuration
type GPUConfig struct {
	Enabled       bool
	Devices       []int
	Algorithm     AlgorithmType
	TargetHash    string
	MaxRetries    int
	Timeout       time.Duration
	
	// CUDA settings
	CUDAEnabled   bool
	CUDADriver    string
	CUDAVersion   string
	
	// OpenCL settings
	OpenCLEnabled bool
	OpenCLPlatform int
	OpenCLDevice   int
	
	// Performance settings
	WorkSize      int
	Threads       int
	Blocks        int
	SharedMemory  int
	
	// Resource limits
	MaxMemory     int64
	MaxGPUUsage   float64
	MaxTemperature float64
	
	// Overclocking settings
	CoreClock     int
	MemoryClock   int
	PowerLimit    int
}

// GPUDevice represents a single GPU device
type GPUDevice struct {
	ID           int
	Name         string
	Vendor       string
	Memory       int64
	ComputeUnits int
	
	// Mining state
	worker       *GPUWorker
	isActive     bool
	
	// Performance metrics
	hashRate     float64
	temperature  float64
	powerUsage   float64
	memoryUsage  float64
	
	// Health status
	lastPing     time.Time
	healthStatus HealthStatus
}

// GPUWorker represents a single GPU mining worker
type GPUWorker struct {
	ID           string
	deviceID     int
	config       *GPUConfig
	logger       *zap.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	
	// Mining state
	currentJob   *Job
	isMining     bool
	startTime    time.Time
	
	// Performance metrics
	hashRate     float64
	totalHashes  uint64
	totalShares  uint64
	
	// Resource usage
	memoryUsage  int64
	gpuUsage     float64
	temperature  float64
	
	// Health status
	lastPing     time.Time
	healthStatus HealthStatus
}

// GPUStats contains GPU mining statistics
type GPUStats struct {
	mu           sync.RWMutex
	totalDevices int
	activeDevices int
	totalHashRate float64
	totalShares   uint64
	totalBlocks   uint64
	uptime        time.Duration
	
	// Performance metrics
	avgHashRate   float64
	maxHashRate   float64
	minHashRate   float64
	
	// Device statistics
	devices       map[int]*DeviceStats
	
	// Error tracking
	totalErrors   uint64
	lastError     error
	
	// Resource usage
	memoryUsage   int64
	gpuUsage      float64
	temperature   float64
}

// DeviceStats contains individual device statistics
type DeviceStats struct {
	deviceID      int
	hashRate      float64
	temperature   float64
	powerUsage    float64
	memoryUsage   float64
	uptime        time.Duration
	shares        uint64
	errors        uint64
}

// NewGPUManager creates a new GPU manager
func NewGPUManager() *GPUManager {
	ctx, cancel := context.WithCancel(context.Background())
	
	manager := &GPUManager{
		config:  DefaultGPUConfig(),
		devices: make(map[int]*GPUDevice),
		ctx:     ctx,
		cancel:  cancel,
	}
	
	// Initialize components
	manager.initComponents()
	
	return manager
}

// initComponents initializes all GPU manager components
func (m *GPUManager) initComponents() {
	// Initialize device pool
	m.devicePool = NewDevicePool()
	
	// Initialize job and result queues
	m.jobQueue = NewJobQueue()
	m.resultQueue = NewResultQueue()
	
	// Initialize CUDA/OpenCL engines
	m.cudaEngine = NewCUDAManager()
	m.openclEngine = NewOpenCLManager()
	
	// Initialize statistics
	m.stats = &GPUStats{
		devices: make(map[int]*DeviceStats),
	}
	m.metrics = NewMetricsCollector()
	
	// Initialize resource management
	m.resourceManager = NewResourceManager()
	
	// Initialize health monitoring
	m.healthMonitor = NewHealthMonitor()
}

// Start starts the GPU manager
func (m *GPUManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	
	m.logger.Info("Starting GPU manager")
	
	if !m.config.Enabled {
		m.logger.Info("GPU mining disabled")
		return nil
	}
	
	// Detect GPU devices
	if err := m.detectDevices(); err != nil {
		return fmt.Errorf("failed to detect GPU devices: %w", err)
	}
	
	// Start CUDA/OpenCL engines
	if err := m.startComputeEngines(); err != nil {
		return fmt.Errorf("failed to start compute engines: %w", err)
	}
	
	// Start workers
	if err := m.startWorkers(); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	
	// Start monitoring
	if err := m.startMonitoring(); err != nil {
		return fmt.Errorf("failed to start monitoring: %w", err)
	}
	
	m.logger.Info("GPU manager started successfully")
	return nil
}

// Stop stops the GPU manager
func (m *GPUManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	
	m.logger.Info("Stopping GPU manager")
	
	// Stop workers
	m.stopWorkers()
	
	// Stop compute engines
	m.stopComputeEngines()
	
	// Stop monitoring
	m.stopMonitoring()
	
	// Cancel context
	m.cancel()
	
	m.logger.Info("GPU manager stopped")
	return nil
}

// detectDevices detects available GPU devices
func (m *GPUManager) detectDevices() error {
	m.logger.Info("Detecting GPU devices")
	
	// Detect CUDA devices
	cudaDevices, err := m.cudaEngine.DetectDevices()
	if err != nil {
		m.logger.Warn("Failed to detect CUDA devices", zap.Error(err))
	} else {
		for _, device := range cudaDevices {
			m.devices[device.ID] = device
			m.logger.Info("CUDA device detected", zap.Int("device_id", device.ID))
		}
	}
	
	// Detect OpenCL devices
	openclDevices, err := m.openclEngine.DetectDevices()
	if err != nil {
		m.logger.Warn("Failed to detect OpenCL devices", zap.Error(err))
	} else {
		for _, device := range openclDevices {
			// Skip if already detected by CUDA
			if _, exists := m.devices[device.ID]; !exists {
				m.devices[device.ID] = device
				m.logger.Info("OpenCL device detected", zap.Int("device_id", device.ID))
			}
		}
	}
	
	return nil
}

// startComputeEngines starts CUDA/OpenCL compute engines
func (m *GPUManager) startComputeEngines() error {
	// Start CUDA engine
	if m.config.CUDAEnabled {
		if err := m.cudaEngine.Start(); err != nil {
			return fmt.Errorf("failed to start CUDA engine: %w", err)
		}
	}
	
	// Start OpenCL engine
	if m.config.OpenCLEnabled {
		if err := m.openclEngine.Start(); err != nil {
			return fmt.Errorf("failed to start OpenCL engine: %w", err)
		}
	}
	
	return nil
}

// stopComputeEngines stops CUDA/OpenCL compute engines
func (m *GPUManager) stopComputeEngines() {
	m.cudaEngine.Stop()
	m.openclEngine.Stop()
}

// startWorkers starts all GPU workers
func (m *GPUManager) startWorkers() error {
	m.logger.Info("Starting GPU workers", zap.Int("devices", len(m.devices)))
	
	for deviceID, device := range m.devices {
		// Check if device should be used
		if len(m.config.Devices) > 0 {
			found := false
			for _, id := range m.config.Devices {
				if id == deviceID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		
		workerID := fmt.Sprintf("gpu-worker-%d", deviceID)
		
		worker := &GPUWorker{
			ID:       workerID,
			deviceID: deviceID,
			config:   m.config,
			logger:   m.logger,
			startTime: time.Now(),
		}
		
		// Initialize worker context
		worker.ctx, worker.cancel = context.WithCancel(m.ctx)
		
		// Assign worker to device
		device.worker = worker
		device.isActive = true
		
		// Start worker
		go worker.start()
	}
	
	return nil
}

// stopWorkers stops all GPU workers
func (m *GPUManager) stopWorkers() {
	for _, device := range m.devices {
		if device.worker != nil {
			device.worker.stop()
			device.isActive = false
		}
	}
}

// startMonitoring starts performance monitoring
func (m *GPUManager) startMonitoring() error {
	// Start statistics collection
	go m.collectStatistics()
	
	// Start health monitoring
	go m.monitorHealth()
	
	return nil
}

// stopMonitoring stops performance monitoring
func (m *GPUManager) stopMonitoring() {
	// Monitoring is stopped by context cancellation
}

// collectStatistics collects performance statistics
func (m *GPUManager) collectStatistics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.updateStatistics()
		}
	}
}

// updateStatistics updates performance statistics
func (m *GPUManager) updateStatistics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	
	// Calculate total hash rate
	totalHashRate := 0.0
	activeDevices := 0
	
	for deviceID, device := range m.devices {
		if device.isActive && device.worker != nil {
			totalHashRate += device.hashRate
			activeDevices++
			
			// Update device statistics
			stats := &DeviceStats{
				deviceID:    deviceID,
				hashRate:    device.hashRate,
				temperature: device.temperature,
				powerUsage:  device.powerUsage,
				memoryUsage: device.memoryUsage,
				uptime:      time.Since(device.worker.startTime),
			}
			
			m.stats.devices[deviceID] = stats
		}
	}
	
	// Update statistics
	m.stats.totalDevices = len(m.devices)
	m.stats.activeDevices = activeDevices
	m.stats.totalHashRate = totalHashRate
	
	// Update performance metrics
	if totalHashRate > m.stats.maxHashRate {
		m.stats.maxHashRate = totalHashRate
	}
	
	if m.stats.minHashRate == 0 || totalHashRate < m.stats.minHashRate {
		m.stats.minHashRate = totalHashRate
	}
	
	if activeDevices > 0 {
		m.stats.avgHashRate = totalHashRate / float64(activeDevices)
	}
	
	// Log statistics
	m.logger.Info("GPU statistics updated",
		zap.Int("total_devices", m.stats.totalDevices),
		zap.Int("active_devices", m.stats.activeDevices),
		zap.Float64("total_hash_rate", m.stats.totalHashRate),
	)
}

// monitorHealth monitors device health
func (m *GPUManager) monitorHealth() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.checkDeviceHealth()
		}
	}
}

// checkDeviceHealth checks device health status
func (m *GPUManager) checkDeviceHealth() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	
	for _, device := range m.devices {
		// Check temperature
		if device.temperature > m.config.MaxTemperature {
			device.healthStatus = HealthStatusUnhealthy
			m.logger.Warn("Device temperature too high", 
				zap.Int("device_id", device.ID),
				zap.Float64("temperature", device.temperature))
		}
		
		// Check memory usage
		if device.memoryUsage > float64(device.Memory)*0.9 {
			device.healthStatus = HealthStatusUnhealthy
			m.logger.Warn("Device memory usage too high", 
				zap.Int("device_id", device.ID),
				zap.Float64("memory_usage", device.memoryUsage))
		}
		
		// Check worker health
		if device.worker != nil {
			if time.Since(device.worker.lastPing) > 30*time.Second {
				device.worker.healthStatus = HealthStatusUnhealthy
				m.logger.Warn("GPU worker appears unresponsive", 
					zap.String("worker", device.worker.ID))
			}
		}
	}
}

// AddDevice adds a new GPU device
func (m *GPUManager) AddDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	
	// Create new device
	device := &GPUDevice{
		ID:           deviceID,
		Name:         fmt.Sprintf("GPU-%d", deviceID),
		Vendor:       "Unknown",
		Memory:       8 * 1024 * 1024 * 1024, // 8GB default
		ComputeUnits: 32,
	}
	
	// Add to devices
	m.devices[deviceID] = device
	
	m.logger.Info("GPU device added", zap.Int("device_id", deviceID))
	
	return nil
}

// RemoveDevice removes a GPU device
func (m *GPUManager) RemoveDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	
	device, exists := m.devices[deviceID]
	if !exists {
		return fmt.Errorf("device not found: %d", deviceID)
	}
	
	// Stop worker if active
	if device.worker != nil {
		device.worker.stop()
	}
	
	// Remove from devices
	delete(m.devices, deviceID)
	
	m.logger.Info("GPU device removed", zap.Int("device_id", deviceID))
	
	return nil
}

// GetStats returns GPU statistics
func (m *GPUManager) GetStats() *GPUStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	
	return m.stats
}

// GetHashRate returns total GPU hash rate
func (m *GPUManager) GetHashRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	
	return m.stats.totalHashRate
}

// Optimize optimizes GPU performance
func (m *GPUManager) Optimize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	
	m.logger.Info("Optimizing GPU performance")
	
	// Optimize device allocation
	m.optimizeDeviceAllocation()
	
	// Optimize compute engine settings
	m.optimizeComputeEngines()
	
	// Optimize resource usage
	m.optimizeResourceUsage()
	
	// Update configuration
	m.updateConfiguration()
	
	m.logger.Info("GPU optimization complete")
	
	return nil
}

// optimizeDeviceAllocation optimizes device allocation
func (m *GPUManager) optimizeDeviceAllocation() {
	// Analyze device performance
	for deviceID, device := range m.devices {
		stats := m.stats.devices[deviceID]
		
		// Adjust device settings based on performance
		if stats.hashRate < m.stats.avgHashRate*0.5 {
			m.logger.Info("Device underperforming", zap.Int("device_id", deviceID))
		}
	}
}

// optimizeComputeEngines optimizes compute engine settings
func (m *GPUManager) optimizeComputeEngines() {
	// Optimize CUDA settings
	if m.config.CUDAEnabled {
		m.cudaEngine.Optimize()
	}
	
	// Optimize OpenCL settings
	if m.config.OpenCLEnabled {
		m.openclEngine.Optimize()
	}
}

// optimizeResourceUsage optimizes resource usage
func (m *GPUManager) optimizeResourceUsage() {
	// Calculate optimal work size
	workSize := 256
	m.config.WorkSize = workSize
	
	// Calculate optimal threads
	threads := 128
	m.config.Threads = threads
	
	// Calculate optimal blocks
	blocks := 64
	m.config.Blocks = blocks
	
	m.logger.Info("GPU resource usage optimized")
}

// updateConfiguration updates configuration based on performance
func (m *GPUManager) updateConfiguration() {
	// Update based on current performance
	if m.stats.totalHashRate > 0 {
		// Adjust algorithm parameters based on performance
		m.logger.Info("GPU configuration updated based on performance")
	}
}

// HealthCheck performs a health check
func (m *GPUManager) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	
	// Check if any devices are active
	if len(m.devices) == 0 {
		return fmt.Errorf("no devices available")
	}
	
	// Check device health
	for _, device := range m.devices {
		if device.healthStatus == HealthStatusUnhealthy {
			return fmt.Errorf("device %d is unhealthy", device.ID)
		}
	}
	
	return nil
}

// start starts a GPU worker
func (w *GPUWorker) start() {
	w.logger.Info("Starting GPU worker", zap.String("worker", w.ID))
	
	w.isMining = true
	
	// Start mining loop
	go w.miningLoop()
	
	// Start health monitoring
	go w.healthMonitor()
}

// stop stops a GPU worker
func (w *GPUWorker) stop() {
	w.logger.Info("Stopping GPU worker", zap.String("worker", w.ID))
	
	w.isMining = false
	
	if w.cancel != nil {
		w.cancel()
	}
}

// assignJob assigns a job to the worker
func (w *GPUWorker) assignJob(job *Job) {
	w.mu.Lock()
	defer w.mu.Unlock()
	
	w.currentJob = job
	w.logger.Info("Job assigned to GPU worker", zap.String("worker", w.ID), zap.String("job", job.ID))
}

// miningLoop performs the mining loop
func (w *GPUWorker) miningLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			w.mine()
		}
	}
}

// mine performs mining operations
func (w *GPUWorker) mine() {
	if w.currentJob == nil {
		return
	}
	
	// Perform GPU mining calculations
	// This is a placeholder for actual GPU mining logic
	w.totalHashes++
	
	// Update hash rate
	w.updateHashRate()
	
	// Check for valid shares
	if w.checkShare() {
		w.totalShares++
		w.submitShare()
	}
}

// updateHashRate updates the hash rate
func (w *GPUWorker) updateHashRate() {
	// Calculate hash rate based on recent performance
	w.hashRate = float64(w.totalHashes) / time.Since(w.startTime).Seconds()
}

// checkShare checks if a valid share was found
func (w *GPUWorker) checkShare() bool {
	// This is a placeholder for actual share checking logic
	return false
}

// submitShare submits a valid share
func (w *GPUWorker) submitShare() {
	// This is a placeholder for actual share submission
	w.logger.Info("GPU share submitted", zap.String("worker", w.ID))
}

// healthMonitor monitors worker health
func (w *GPUWorker) healthMonitor() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.lastPing = time.Now()
		}
	}
}

// DefaultGPUConfig returns default GPU configuration
func DefaultGPUConfig() *GPUConfig {
	return &GPUConfig{
		Enabled:        true,
		Devices:        []int{0},
		Algorithm:      SHA256D,
		MaxRetries:     3,
		Timeout:        30 * time.Second,
		CUDAEnabled:    true,
		OpenCLEnabled:  true,
		WorkSize:       256,
		Threads:        128,
		Blocks:         64,
		SharedMemory:   4096,
		MaxMemory:      8 * 1024 * 1024 * 1024, // 8GB
		MaxGPUUsage:    0.9, // 90%
		MaxTemperature: 85.0, // 85Â°C
		CoreClock:      1000,
		MemoryClock:    2000,
		PowerLimit:     200,
	}
}
