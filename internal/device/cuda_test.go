package device

import "testing"

func TestAutoTuneGridSizeClampsToFloor(t *testing.T) {
	props := CUDADeviceProps{MultiProcessorCount: 1, SharedMemPerMultiproc: 0}
	got := autoTuneGridSize(props, 3)
	if got != minGridSize {
		t.Fatalf("autoTuneGridSize = %d, want floor %d", got, minGridSize)
	}
}

func TestAutoTuneGridSizeClampsToCeiling(t *testing.T) {
	props := CUDADeviceProps{MultiProcessorCount: 200, SharedMemPerMultiproc: 200000}
	got := autoTuneGridSize(props, 9)
	if got != maxGridSize {
		t.Fatalf("autoTuneGridSize = %d, want ceiling %d", got, maxGridSize)
	}
}

func TestAutoTuneGridSizeScalesWithComputeCapability(t *testing.T) {
	props := CUDADeviceProps{MultiProcessorCount: 20, SharedMemPerMultiproc: 32768}
	lowCC := autoTuneGridSize(props, 5)
	highCC := autoTuneGridSize(props, 8)
	if highCC <= lowCC {
		t.Fatalf("higher compute capability should yield a larger or equal grid size: low=%d high=%d", lowCC, highCC)
	}
}

func TestAutoTuneGridSizeDoublesBlocksPerSMWithMoreSharedMemory(t *testing.T) {
	small := CUDADeviceProps{MultiProcessorCount: 10, SharedMemPerMultiproc: 65536}
	big := CUDADeviceProps{MultiProcessorCount: 10, SharedMemPerMultiproc: 131072}
	gotSmall := autoTuneGridSize(small, 6)
	gotBig := autoTuneGridSize(big, 6)
	if gotBig <= gotSmall {
		t.Fatalf("more shared memory per multiprocessor should not shrink the grid: small=%d big=%d", gotSmall, gotBig)
	}
}

func TestCUDABackendInitRejectsInsufficientSharedMemory(t *testing.T) {
	c := NewCUDABackend(nil, 0, defaultTestDescriptor(), CUDABackendConfig{
		Props: CUDADeviceProps{SharedMemPerBlock: 1024},
	})
	if c.Init() {
		t.Fatalf("Init must fail when SharedMemPerBlock is below 64KiB")
	}
}

func TestCUDABackendInitHonorsGridSizeOverride(t *testing.T) {
	c := NewCUDABackend(nil, 0, defaultTestDescriptor(), CUDABackendConfig{
		Props:            CUDADeviceProps{SharedMemPerBlock: 65536, MultiProcessorCount: 10},
		GridSizeOverride: 12345,
	})
	if !c.Init() {
		t.Fatalf("Init should succeed with sufficient shared memory")
	}
	if c.gridSize != 12345 {
		t.Fatalf("gridSize = %d, want override value 12345", c.gridSize)
	}
}

func TestCUDABackendBatchWidthMatchesGridAndBlockSize(t *testing.T) {
	c := NewCUDABackend(nil, 0, defaultTestDescriptor(), CUDABackendConfig{
		Props:            CUDADeviceProps{SharedMemPerBlock: 65536, MultiProcessorCount: 10},
		GridSizeOverride: 4096,
	})
	if !c.Init() {
		t.Fatalf("Init should succeed with sufficient shared memory")
	}
	if want := uint64(c.gridSize * c.blockSize); c.batchWidth() != want {
		t.Fatalf("batchWidth() = %d, want gridSize*blockSize = %d", c.batchWidth(), want)
	}
}
