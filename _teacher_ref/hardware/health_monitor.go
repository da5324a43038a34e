package hardware

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// HealthMonitor monitors hardware health and predicts failures
type HealthMonitor struct {
	logger *zap.Logger
	
	// Configuration
	config MonitorConfig
	
	// Hardware monitors
	cpuMonitor  *CPUHealthMonitor
	gpuMonitor  *GPUHealthMonitor
	diskMonitor *DiskHealthMonitor
	memMonitor  *MemoryHealthMonitor
	
	// Health status
	overallHealth atomic.Value // *HealthStatus
	healthHistory []HealthSnapshot
	historyMu     sync.RWMutex
	
	// Alert system
	alertChan     chan HealthAlert
	alertHandlers []AlertHandler
	
	// Predictive maintenance
	predictor     *MaintenancePredictor
	
	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// MonitorConfig configures health monitoring
type MonitorConfig struct {
	CheckInterval      time.Duration
	HistorySize        int
	
	// Thresholds
	CPUTempWarning     float64
	CPUTempCritical    float64
	GPUTempWarning     float64
	GPUTempCritical    float64
	MemoryWarning      float64 // Percentage
	DiskSpaceWarning   float64 // Percentage
	
	// Predictive maintenance
	EnablePrediction   bool
	MaintenanceWindow  time.Duration
	
	// Alert settings
	AlertCooldown      time.Duration
	MaxAlertsPerHour   int
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status       string    // healthy, warning, critical
	Score        float64   // 0-100
	LastCheck    time.Time
	
	// Component health
	CPU          ComponentHealth
	GPU          ComponentHealth
	Memory       ComponentHealth
	Disk         ComponentHealth
	
	// Issues
	ActiveIssues []HealthIssue
	
	// Predictions
	PredictedFailures []PredictedFailure
}

// ComponentHealth represents health of a component
type ComponentHealth struct {
	Status      string
	Score       float64
	Temperature float64
	Usage       float64
	Metrics     map[string]interface{}
}

// HealthIssue represents an active health issue
type HealthIssue struct {
	ID          string
	Component   string
	Severity    string // info, warning, critical
	Description string
	StartTime   time.Time
	Value       float64
	Threshold   float64
}

// PredictedFailure represents a predicted failure
type PredictedFailure struct {
	Component    string
	FailureType  string
	Probability  float64
	TimeToFailure time.Duration
	Confidence   float64
	Recommendation string
}

// HealthSnapshot represents health at a point in time
type HealthSnapshot struct {
	Timestamp time.Time
	Status    HealthStatus
}

// HealthAlert represents a health alert
type HealthAlert struct {
	ID          string
	Timestamp   time.Time
	Component   string
	Severity    string
	Message     string
	Value       float64
	Action      string // throttle, shutdown, notify
}

// AlertHandler handles health alerts
type AlertHandler interface {
	HandleAlert(alert HealthAlert) error
}

// CPUHealthMonitor monitors CPU health
type CPUHealthMonitor struct {
	logger       *zap.Logger
	tempHistory  []float64
	usageHistory []float64
	errorCount   uint32
}

// GPUHealthMonitor monitors GPU health
type GPUHealthMonitor struct {
	logger       *zap.Logger
	devices      []GPUDevice
	tempHistory  map[int][]float64
	powerHistory map[int][]float64
}

// DiskHealthMonitor monitors disk health
type DiskHealthMonitor struct {
	logger      *zap.Logger
	smartData   map[string]*SMARTData
	ioHistory   map[string]*IOStats
}

// MemoryHealthMonitor monitors memory health
type MemoryHealthMonitor struct {
	logger       *zap.Logger
	usageHistory []float64
	errorHistory []MemoryError
}

// MaintenancePredictor predicts maintenance needs
type MaintenancePredictor struct {
	logger      *zap.Logger
	model       *PredictiveModel
	dataPoints  []MaintenanceData
	mu          sync.RWMutex
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(logger *zap.Logger, config MonitorConfig) *HealthMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	
	hm := &HealthMonitor{
		logger:        logger,
		config:        config,
		alertChan:     make(chan HealthAlert, 100),
		healthHistory: make([]HealthSnapshot, 0, config.HistorySize),
		ctx:           ctx,
		cancel:        cancel,
	}
	
	// Initialize component monitors
	hm.cpuMonitor = &CPUHealthMonitor{
		logger:       logger,
		tempHistory:  make([]float64, 0, 100),
		usageHistory: make([]float64, 0, 100),
	}
	
	hm.gpuMonitor = &GPUHealthMonitor{
		logger:       logger,
		tempHistory:  make(map[int][]float64),
		powerHistory: make(map[int][]float64),
	}
	
	hm.diskMonitor = &DiskHealthMonitor{
		logger:    logger,
		smartData: make(map[string]*SMARTData),
		ioHistory: make(map[string]*IOStats),
	}
	
	hm.memMonitor = &MemoryHealthMonitor{
		logger:       logger,
		usageHistory: make([]float64, 0, 100),
	}
	
	// Initialize predictor if enabled
	if config.EnablePrediction {
		hm.predictor = &MaintenancePredictor{
			logger:     logger,
			model:      NewPredictiveModel(),
			dataPoints: make([]MaintenanceData, 0, 1000),
		}
	}
	
	// Set initial status
	hm.overallHealth.Store(&HealthStatus{
		Status:    "healthy",
		Score:     100.0,
		LastCheck: time.Now(),
	})
	
	return hm
}

// Start begins health monitoring
func (hm *HealthMonitor) Start() error {
	hm.logger.Info("Starting hardware health monitor",
		zap.Duration("check_interval", hm.config.CheckInterval),
		zap.Bool("prediction_enabled", hm.config.EnablePrediction),
	)
	
	// Start monitoring loops
	hm.wg.Add(3)
	go hm.monitorLoop()
	go hm.alertLoop()
	go hm.predictionLoop()
	
	return nil
}

// Stop stops health monitoring
func (hm *HealthMonitor) Stop() error {
	hm.logger.Info("Stopping hardware health monitor")
	
	hm.cancel()
	hm.wg.Wait()
	close(hm.alertChan)
	
	return nil
}

// AddAlertHandler adds an alert handler
func (hm *HealthMonitor) AddAlertHandler(handler AlertHandler) {
	hm.alertHandlers = append(hm.alertHandlers, handler)
}

// GetHealthStatus returns current health status
func (hm *HealthMonitor) GetHealthStatus() *HealthStatus {
	if status := hm.overallHealth.Load(); status != nil {
		return status.(*HealthStatus).Copy()
	}
	return nil
}

// GetHealthHistory returns health history
func (hm *HealthMonitor) GetHealthHistory(duration time.Duration) []HealthSnapshot {
	hm.historyMu.RLock()
	defer hm.historyMu.RUnlock()
	
	cutoff := time.Now().Add(-duration)
	var history []HealthSnapshot
	
	for i := len(hm.healthHistory) - 1; i >= 0; i-- {
		if hm.healthHistory[i].Timestamp.Before(cutoff) {
			break
		}
		history = append(history, hm.healthHistory[i])
	}
	
	return history
}

// GetHealthReport generates a health report
func (hm *HealthMonitor) GetHealthReport() *HealthReport {
	status := hm.GetHealthStatus()
	
	report := &HealthReport{
		Generated:     time.Now(),
		OverallHealth: status,
		
		// Component details
		Components: map[string]ComponentReport{
			"CPU":    hm.cpuMonitor.GetReport(),
			"GPU":    hm.gpuMonitor.GetReport(),
			"Memory": hm.memMonitor.GetReport(),
			"Disk":   hm.diskMonitor.GetReport(),
		},
		
		// Maintenance predictions
		Predictions: hm.getPredictions(),
		
		// Recommendations
		Recommendations: hm.generateRecommendations(status),
	}
	
	return report
}

// HealthReport represents a comprehensive health report
type HealthReport struct {
	Generated       time.Time
	OverallHealth   *HealthStatus
	Components      map[string]ComponentReport
	Predictions     []PredictedFailure
	Recommendations []string
}

// ComponentReport represents a component health report
type ComponentReport struct {
	Status      string
	Health      float64
	Issues      []string
	Metrics     map[string]interface{}
	History     []DataPoint
}

// monitorLoop performs periodic health checks
func (hm *HealthMonitor) monitorLoop() {
	defer hm.wg.Done()
	
	ticker := time.NewTicker(hm.config.CheckInterval)
	defer ticker.Stop()
	
	for {
		select {
		case <-hm.ctx.Done():
			return
		case <-ticker.C:
			hm.performHealthCheck()
		}
	}
}

// alertLoop processes health alerts
func (hm *HealthMonitor) alertLoop() {
	defer hm.wg.Done()
	
	for {
		select {
		case <-hm.ctx.Done():
			return
		case alert := <-hm.alertChan:
			hm.processAlert(alert)
		}
	}
}

// predictionLoop performs predictive maintenance
func (hm *HealthMonitor) predictionLoop() {
	defer hm.wg.Done()
	
	if !hm.config.EnablePrediction {
		return
	}
	
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	
	for {
		select {
		case <-hm.ctx.Done():
			return
		case <-ticker.C:
			hm.updatePredictions()
		}
	}
}

// performHealthCheck performs a comprehensive health check
func (hm *HealthMonitor) performHealthCheck() {
	status := &HealthStatus{
		LastCheck:    time.Now(),
		ActiveIssues: make([]HealthIssue, 0),
	}
	
	// Check CPU health
	cpuHealth := hm.checkCPUHealth()
	status.CPU = cpuHealth
	
	// Check GPU health
	gpuHealth := hm.checkGPUHealth()
	status.GPU = gpuHealth
	
	// Check memory health
	memHealth := hm.checkMemoryHealth()
	status.Memory = memHealth
	
	// Check disk health
	diskHealth := hm.checkDiskHealth()
	status.Disk = diskHealth
	
	// Calculate overall health
	status.Score = hm.calculateOverallScore(cpuHealth, gpuHealth, memHealth, diskHealth)
	status.Status = hm.getStatusFromScore(status.Score)
	
	// Get predictions
	if hm.predictor != nil {
		status.PredictedFailures = hm.predictor.GetPredictions()
	}
	
	// Update stored status
	hm.overallHealth.Store(status)
	
	// Add to history
	hm.addToHistory(HealthSnapshot{
		Timestamp: time.Now(),
		Status:    *status,
	})
	
	// Check for alerts
	hm.checkForAlerts(status)
}

// checkCPUHealth checks CPU health
func (hm *HealthMonitor) checkCPUHealth() ComponentHealth {
	health := ComponentHealth{
		Status:  "healthy",
		Score:   100.0,
		Metrics: make(map[string]interface{}),
	}
	
	// Get CPU temperature (platform specific)
	temp := hm.getCPUTemperature()
	health.Temperature = temp
	health.Metrics["temperature"] = temp
	
	// Get CPU usage
	usage, err := cpu.Percent(1*time.Second, false)
	if err == nil && len(usage) > 0 {
		health.Usage = usage[0]
		health.Metrics["usage"] = usage[0]
		hm.cpuMonitor.usageHistory = append(hm.cpuMonitor.usageHistory, usage[0])
	}
	
	// Check temperature thresholds
	if temp > hm.config.CPUTempCritical {
		health.Status = "critical"
		health.Score = 20.0
		hm.createAlert("CPU", "critical", fmt.Sprintf("CPU temperature critical: %.1f째C", temp), temp)
	} else if temp > hm.config.CPUTempWarning {
		health.Status = "warning"
		health.Score = 60.0
		hm.createAlert("CPU", "warning", fmt.Sprintf("CPU temperature high: %.1f째C", temp), temp)
	}
	
	// Check for thermal throttling
	if hm.detectThermalThrottling() {
		health.Score *= 0.8
		health.Metrics["throttling"] = true
	}
	
	return health
}

// checkGPUHealth checks GPU health
func (hm *HealthMonitor) checkGPUHealth() ComponentHealth {
	health := ComponentHealth{
		Status:  "healthy",
		Score:   100.0,
		Metrics: make(map[string]interface{}),
	}
	
	// Get GPU info (implementation depends on GPU type)
	gpuInfo := hm.getGPUInfo()
	if gpuInfo == nil {
		health.Status = "unknown"
		return health
	}
	
	health.Temperature = gpuInfo.Temperature
	health.Usage = gpuInfo.Usage
	health.Metrics["temperature"] = gpuInfo.Temperature
	health.Metrics["usage"] = gpuInfo.Usage
	health.Metrics["power"] = gpuInfo.PowerDraw
	health.Metrics["memory_used"] = gpuInfo.MemoryUsed
	
	// Check temperature thresholds
	if gpuInfo.Temperature > hm.config.GPUTempCritical {
		health.Status = "critical"
		health.Score = 20.0
		hm.createAlert("GPU", "critical", fmt.Sprintf("GPU temperature critical: %.1f째C", gpuInfo.Temperature), gpuInfo.Temperature)
	} else if gpuInfo.Temperature > hm.config.GPUTempWarning {
		health.Status = "warning"
		health.Score = 60.0
		hm.createAlert("GPU", "warning", fmt.Sprintf("GPU temperature high: %.1f째C", gpuInfo.Temperature), gpuInfo.Temperature)
	}
	
	// Check for GPU errors
	if gpuInfo.ErrorCount > 0 {
		health.Score *= 0.9
		health.Metrics["errors"] = gpuInfo.ErrorCount
	}
	
	return health
}

// checkMemoryHealth checks memory health
func (hm *HealthMonitor) checkMemoryHealth() ComponentHealth {
	health := ComponentHealth{
		Status:  "healthy",
		Score:   100.0,
		Metrics: make(map[string]interface{}),
	}
	
	// Get memory info
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		health.Status = "error"
		return health
	}
	
	health.Usage = vmStat.UsedPercent
	health.Metrics["used_percent"] = vmStat.UsedPercent
	health.Metrics["available"] = vmStat.Available
	health.Metrics["total"] = vmStat.Total
	
	// Check memory usage
	if vmStat.UsedPercent > hm.config.MemoryWarning {
		health.Status = "warning"
		health.Score = 70.0
		hm.createAlert("Memory", "warning", fmt.Sprintf("High memory usage: %.1f%%", vmStat.UsedPercent), vmStat.UsedPercent)
	}
	
	// Check for memory errors
	memErrors := hm.checkMemoryErrors()
	if memErrors > 0 {
		health.Score *= 0.8
		health.Metrics["errors"] = memErrors
		hm.createAlert("Memory", "warning", fmt.Sprintf("Memory errors detected: %d", memErrors), float64(memErrors))
	}
	
	return health
}

// checkDiskHealth checks disk health
func (hm *HealthMonitor) checkDiskHealth() ComponentHealth {
	health := ComponentHealth{
		Status:  "healthy",
		Score:   100.0,
		Metrics: make(map[string]interface{}),
	}
	
	// Get disk usage
	usage, err := disk.Usage("/")
	if err != nil {
		health.Status = "error"
		return health
	}
	
	health.Usage = usage.UsedPercent
	health.Metrics["used_percent"] = usage.UsedPercent
	health.Metrics["free"] = usage.Free
	health.Metrics["total"] = usage.Total
	
	// Check disk space
	if usage.UsedPercent > hm.config.DiskSpaceWarning {
		health.Status = "warning"
		health.Score = 70.0
		hm.createAlert("Disk", "warning", fmt.Sprintf("Low disk space: %.1f%% used", usage.UsedPercent), usage.UsedPercent)
	}
	
	// Check SMART data
	smartStatus := hm.checkSMARTStatus()
	if smartStatus != "healthy" {
		health.Status = smartStatus
		health.Score *= 0.5
		health.Metrics["smart_status"] = smartStatus
	}
	
	return health
}

// Helper methods

func (hm *HealthMonitor) getCPUTemperature() float64 {
	// Platform-specific implementation
	// This is a simplified version
	return 65.0 // Default temperature
}

func (hm *HealthMonitor) detectThermalThrottling() bool {
	// Check for CPU frequency drops
	// This is a simplified version
	return false
}

type GPUInfo struct {
	Temperature float64
	Usage       float64
	PowerDraw   float64
	MemoryUsed  float64
	ErrorCount  int
}

func (hm *HealthMonitor) getGPUInfo() *GPUInfo {
	// GPU-specific implementation
	// This is a simplified version
	return &GPUInfo{
		Temperature: 70.0,
		Usage:       85.0,
		PowerDraw:   200.0,
		MemoryUsed:  4096.0,
		ErrorCount:  0,
	}
}

func (hm *HealthMonitor) checkMemoryErrors() int {
	// Check system logs for memory errors
	// This is a simplified version
	return 0
}

func (hm *HealthMonitor) checkSMARTStatus() string {
	// Check disk SMART status
	// This is a simplified version
	return "healthy"
}

func (hm *HealthMonitor) calculateOverallScore(components ...ComponentHealth) float64 {
	if len(components) == 0 {
		return 0
	}
	
	totalScore := 0.0
	for _, comp := range components {
		totalScore += comp.Score
	}
	
	return totalScore / float64(len(components))
}

func (hm *HealthMonitor) getStatusFromScore(score float64) string {
	switch {
	case score >= 80:
		return "healthy"
	case score >= 50:
		return "warning"
	default:
		return "critical"
	}
}

func (hm *HealthMonitor) createAlert(component, severity, message string, value float64) {
	alert := HealthAlert{
		ID:        fmt.Sprintf("%s_%s_%d", component, severity, time.Now().Unix()),
		Timestamp: time.Now(),
		Component: component,
		Severity:  severity,
		Message:   message,
		Value:     value,
	}
	
	// Determine action
	switch severity {
	case "critical":
		alert.Action = "throttle"
	case "warning":
		alert.Action = "notify"
	default:
		alert.Action = "log"
	}
	
	select {
	case hm.alertChan <- alert:
	default:
		hm.logger.Warn("Alert channel full, dropping alert")
	}
}

func (hm *HealthMonitor) processAlert(alert HealthAlert) {
	hm.logger.Warn("Health alert",
		zap.String("component", alert.Component),
		zap.String("severity", alert.Severity),
		zap.String("message", alert.Message),
		zap.Float64("value", alert.Value),
		zap.String("action", alert.Action),
	)
	
	// Process alert handlers
	for _, handler := range hm.alertHandlers {
		if err := handler.HandleAlert(alert); err != nil {
			hm.logger.Error("Alert handler error", zap.Error(err))
		}
	}
}

func (hm *HealthMonitor) addToHistory(snapshot HealthSnapshot) {
	hm.historyMu.Lock()
	defer hm.historyMu.Unlock()
	
	hm.healthHistory = append(hm.healthHistory, snapshot)
	
	// Trim history
	if len(hm.healthHistory) > hm.config.HistorySize {
		hm.healthHistory = hm.healthHistory[len(hm.healthHistory)-hm.config.HistorySize:]
	}
}

func (hm *HealthMonitor) checkForAlerts(status *HealthStatus) {
	// Check each component for issues
	for _, issue := range status.ActiveIssues {
		hm.createAlert(issue.Component, issue.Severity, issue.Description, issue.Value)
	}
}

func (hm *HealthMonitor) updatePredictions() {
	if hm.predictor == nil {
		return
	}
	
	// Collect current data
	data := MaintenanceData{
		Timestamp:   time.Now(),
		CPUTemp:     hm.cpuMonitor.GetAverageTemp(),
		GPUTemp:     hm.gpuMonitor.GetAverageTemp(),
		FanSpeed:    hm.getFanSpeed(),
		PowerDraw:   hm.getPowerDraw(),
		ErrorCount:  hm.getErrorCount(),
	}
	
	hm.predictor.AddDataPoint(data)
	hm.predictor.UpdatePredictions()
}

func (hm *HealthMonitor) getPredictions() []PredictedFailure {
	if hm.predictor == nil {
		return nil
	}
	return hm.predictor.GetPredictions()
}

func (hm *HealthMonitor) generateRecommendations(status *HealthStatus) []string {
	var recommendations []string
	
	// Temperature recommendations
	if status.CPU.Temperature > hm.config.CPUTempWarning {
		recommendations = append(recommendations, "Improve CPU cooling or reduce workload")
	}
	
	if status.GPU.Temperature > hm.config.GPUTempWarning {
		recommendations = append(recommendations, "Check GPU thermal paste and fan operation")
	}
	
	// Memory recommendations
	if status.Memory.Usage > hm.config.MemoryWarning {
		recommendations = append(recommendations, "Consider adding more RAM or optimizing memory usage")
	}
	
	// Disk recommendations
	if status.Disk.Usage > hm.config.DiskSpaceWarning {
		recommendations = append(recommendations, "Free up disk space or add additional storage")
	}
	
	// Predictive maintenance
	for _, prediction := range status.PredictedFailures {
		recommendations = append(recommendations, prediction.Recommendation)
	}
	
	return recommendations
}

// Helper types and methods

type SMARTData struct {
	DeviceName string
	Health     string
	Attributes map[string]int
}

type IOStats struct {
	ReadBytes  uint64
	WriteBytes uint64
	ReadTime   uint64
	WriteTime  uint64
}

type MemoryError struct {
	Timestamp time.Time
	Type      string
	Address   uint64
}

type DataPoint struct {
	Timestamp time.Time
	Value     float64
}

// Copy creates a deep copy of HealthStatus
func (hs *HealthStatus) Copy() *HealthStatus {
	if hs == nil {
		return nil
	}
	
	copy := *hs
	copy.ActiveIssues = make([]HealthIssue, len(hs.ActiveIssues))
	copy(copy.ActiveIssues, hs.ActiveIssues)
	
	copy.PredictedFailures = make([]PredictedFailure, len(hs.PredictedFailures))
	copy(copy.PredictedFailures, hs.PredictedFailures)
	
	return &copy
}

// Component monitor helper methods

func (cm *CPUHealthMonitor) GetReport() ComponentReport {
	return ComponentReport{
		Status:  "healthy",
		Health:  100.0,
		Issues:  []string{},
		Metrics: make(map[string]interface{}),
		History: []DataPoint{},
	}
}

func (cm *CPUHealthMonitor) GetAverageTemp() float64 {
	if len(cm.tempHistory) == 0 {
		return 0
	}
	
	sum := 0.0
	for _, temp := range cm.tempHistory {
		sum += temp
	}
	return sum / float64(len(cm.tempHistory))
}

func (gm *GPUHealthMonitor) GetReport() ComponentReport {
	return ComponentReport{
		Status:  "healthy",
		Health:  100.0,
		Issues:  []string{},
		Metrics: make(map[string]interface{}),
		History: []DataPoint{},
	}
}

func (gm *GPUHealthMonitor) GetAverageTemp() float64 {
	// Average across all GPUs
	totalTemp := 0.0
	count := 0
	
	for _, temps := range gm.tempHistory {
		for _, temp := range temps {
			totalTemp += temp
			count++
		}
	}
	
	if count == 0 {
		return 0
	}
	return totalTemp / float64(count)
}

func (mm *MemoryHealthMonitor) GetReport() ComponentReport {
	return ComponentReport{
		Status:  "healthy",
		Health:  100.0,
		Issues:  []string{},
		Metrics: make(map[string]interface{}),
		History: []DataPoint{},
	}
}

func (dm *DiskHealthMonitor) GetReport() ComponentReport {
	return ComponentReport{
		Status:  "healthy",
		Health:  100.0,
		Issues:  []string{},
		Metrics: make(map[string]interface{}),
		History: []DataPoint{},
	}
}

// Predictive maintenance types

type MaintenanceData struct {
	Timestamp  time.Time
	CPUTemp    float64
	GPUTemp    float64
	FanSpeed   float64
	PowerDraw  float64
	ErrorCount int
}

type PredictiveModel struct {
	// Simplified predictive model
	thresholds map[string]float64
}

func NewPredictiveModel() *PredictiveModel {
	return &PredictiveModel{
		thresholds: map[string]float64{
			"cpu_temp_variance":    10.0,
			"gpu_temp_variance":    15.0,
			"fan_speed_drop":       20.0,
			"power_draw_increase":  50.0,
		},
	}
}

func (mp *MaintenancePredictor) AddDataPoint(data MaintenanceData) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	
	mp.dataPoints = append(mp.dataPoints, data)
	
	// Keep only recent data
	if len(mp.dataPoints) > 1000 {
		mp.dataPoints = mp.dataPoints[len(mp.dataPoints)-1000:]
	}
}

func (mp *MaintenancePredictor) UpdatePredictions() {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	
	// Simplified prediction logic
	// In production, this would use ML models
	
	if len(mp.dataPoints) < 100 {
		return
	}
	
	// Analyze trends
	mp.analyzeTempTrends()
	mp.analyzeFanPerformance()
	mp.analyzePowerConsumption()
}

func (mp *MaintenancePredictor) GetPredictions() []PredictedFailure {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	
	// Return current predictions
	// This is a simplified version
	return []PredictedFailure{}
}

func (mp *MaintenancePredictor) analyzeTempTrends() {
	// Analyze temperature trends
}

func (mp *MaintenancePredictor) analyzeFanPerformance() {
	// Analyze fan performance
}

func (mp *MaintenancePredictor) analyzePowerConsumption() {
	// Analyze power consumption patterns
}

// Helper methods for health monitor

func (hm *HealthMonitor) getFanSpeed() float64 {
	// Get average fan speed
	return 2000.0 // RPM
}

func (hm *HealthMonitor) getPowerDraw() float64 {
	// Get total power draw
	return 300.0 // Watts
}

func (hm *HealthMonitor) getErrorCount() int {
	// Get total error count
	return 0
}

// GPU device info
type GPUDevice struct {
	Index       int
	Name        string
	Temperature float64
	FanSpeed    float64
	PowerDraw   float64
	MemoryUsed  float64
	MemoryTotal float64
}