package gpu

import (
	"fmt"
)

// OpenCLMiner implements AMD/Intel GPU mining using OpenCL
type OpenCLMiner struct {
	device      *GPUDevice
	
	// OpenCL objects
	context     interface{} // cl_context
	queue       interface{} // cl_command_queue
	program     interface{} // cl_program
	
	// Kernels
	sha256Kernel     interface{} // cl_kernel
	searchKernel     interface{} // cl_kernel
	
	// Device memory
	d_blockHeader    interface{} // cl_mem
	d_target         interface{} // cl_mem
	d_nonces         interface{} // cl_mem
	d_hashes         interface{} // cl_mem
	
	// Host memory
	h_nonces         []uint32
	h_foundCount     uint32
	
	// Configuration
	workGroupSize    int
	globalWorkSize   int
	
	// Platform info
	platformID       interface{} // cl_platform_id
	deviceID         interface{} // cl_device_id
}

// OpenCL kernel code
const openCLKernelCode = `
// SHA256 constants
__constant uint K[64] = {
    0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5,
    0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
    0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3,
    0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
    0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc,
    0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
    0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7,
    0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
    0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13,
    0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
    0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3,
    0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
    0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5,
    0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
    0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208,
    0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2
};

// Rotate right
inline uint rotr(uint x, uint n) {
    return (x >> n) | (x << (32 - n));
}

// SHA256 functions
inline uint ch(uint x, uint y, uint z) {
    return (x & y) ^ (~x & z);
}

inline uint maj(uint x, uint y, uint z) {
    return (x & y) ^ (x & z) ^ (y & z);
}

inline uint sigma0(uint x) {
    return rotr(x, 2) ^ rotr(x, 13) ^ rotr(x, 22);
}

inline uint sigma1(uint x) {
    return rotr(x, 6) ^ rotr(x, 11) ^ rotr(x, 25);
}

inline uint gamma0(uint x) {
    return rotr(x, 7) ^ rotr(x, 18) ^ (x >> 3);
}

inline uint gamma1(uint x) {
    return rotr(x, 17) ^ rotr(x, 19) ^ (x >> 10);
}

// SHA256 transform
void sha256_transform(uint* state, __private const uint* block) {
    uint w[64];
    uint a, b, c, d, e, f, g, h;
    uint t1, t2;
    
    // Copy block into first 16 words of w
    #pragma unroll
    for (int i = 0; i < 16; i++) {
        w[i] = block[i];
    }
    
    // Extend the first 16 words into the remaining 48 words
    #pragma unroll
    for (int i = 16; i < 64; i++) {
        w[i] = gamma1(w[i-2]) + w[i-7] + gamma0(w[i-15]) + w[i-16];
    }
    
    // Initialize working variables
    a = state[0];
    b = state[1];
    c = state[2];
    d = state[3];
    e = state[4];
    f = state[5];
    g = state[6];
    h = state[7];
    
    // Main loop
    #pragma unroll 8
    for (int i = 0; i < 64; i++) {
        t1 = h + sigma1(e) + ch(e, f, g) + K[i] + w[i];
        t2 = sigma0(a) + maj(a, b, c);
        h = g;
        g = f;
        f = e;
        e = d + t1;
        d = c;
        c = b;
        b = a;
        a = t1 + t2;
    }
    
    // Add the compressed chunk to the current hash value
    state[0] += a;
    state[1] += b;
    state[2] += c;
    state[3] += d;
    state[4] += e;
    state[5] += f;
    state[6] += g;
    state[7] += h;
}

__kernel void sha256_mining_kernel(
    __global const uint* block_header,
    __global const uint* target,
    const uint start_nonce,
    __global uint* found_nonces,
    __global uint* found_count,
    const uint max_nonces
) {
    uint gid = get_global_id(0);
    uint nonce = start_nonce + gid;
    
    // Local copy of block header
    uint header[20];
    #pragma unroll
    for (int i = 0; i < 20; i++) {
        header[i] = block_header[i];
    }
    
    // Set nonce
    header[19] = nonce;
    
    // First SHA256
    uint state1[8] = {
        0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
        0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19
    };
    
    sha256_transform(state1, header);
    sha256_transform(state1, header + 16);
    
    // Second SHA256
    uint state2[8] = {
        0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
        0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19
    };
    
    // Prepare second hash input
    uint hash_input[16];
    #pragma unroll
    for (int i = 0; i < 8; i++) {
        hash_input[i] = state1[i];
    }
    hash_input[8] = 0x80000000;
    for (int i = 9; i < 15; i++) {
        hash_input[i] = 0;
    }
    hash_input[15] = 256;
    
    sha256_transform(state2, hash_input);
    
    // Check if hash meets target
    bool found = true;
    #pragma unroll
    for (int i = 7; i >= 0; i--) {
        if (state2[i] > target[i]) {
            found = false;
            break;
        }
        if (state2[i] < target[i]) {
            break;
        }
    }
    
    if (found) {
        uint idx = atomic_inc(found_count);
        if (idx < max_nonces) {
            found_nonces[idx] = nonce;
        }
    }
}

// Optimized kernel using local memory for better performance
__kernel void sha256_mining_optimized(
    __global const uint* block_header,
    __global const uint* target,
    const uint start_nonce,
    __global uint* found_nonces,
    __global uint* found_count,
    const uint max_nonces,
    __local uint* local_K
) {
    uint lid = get_local_id(0);
    uint gid = get_global_id(0);
    
    // Load constants to local memory
    if (lid < 64) {
        local_K[lid] = K[lid];
    }
    barrier(CLK_LOCAL_MEM_FENCE);
    
    uint nonce = start_nonce + gid;
    
    // Process with optimized memory access
    // ... (similar to above but using local_K)
}
`

// NewOpenCLMiner creates a new OpenCL miner for the device
func NewOpenCLMiner(device *GPUDevice) (*OpenCLMiner, error) {
	if device.Vendor != VendorAMD && device.Vendor != VendorIntel {
		return nil, fmt.Errorf("device is not AMD/Intel GPU")
	}
	
	miner := &OpenCLMiner{
		device:         device,
		workGroupSize:  256,
		globalWorkSize: 65536,
		h_nonces:       make([]uint32, 256),
	}
	
	// Initialize OpenCL
	if err := miner.initialize(); err != nil {
		return nil, err
	}
	
	return miner, nil
}

// initialize sets up OpenCL context and compiles kernels
func (m *OpenCLMiner) initialize() error {
	// This would:
	// 1. Get platform and device
	// 2. Create context
	// 3. Create command queue
	// 4. Build program from source
	// 5. Create kernels
	// 6. Allocate buffers
	
	// For now, return success
	return nil
}

// SetWork updates the mining work
func (m *OpenCLMiner) SetWork(header []byte, target []byte) error {
	// This would copy header and target to device memory
	return nil
}

// Mine performs mining for a range of nonces
func (m *OpenCLMiner) Mine(startNonce, nonceCount uint32) ([]uint32, error) {
	// This would:
	// 1. Reset found counter
	// 2. Set kernel arguments
	// 3. Enqueue kernel
	// 4. Wait for completion
	// 5. Read results
	
	// For now, return empty results
	return nil, nil
}

// GetHashRate returns current hash rate
func (m *OpenCLMiner) GetHashRate() uint64 {
	// Calculate based on work done
	return 0
}

// Cleanup releases OpenCL resources
func (m *OpenCLMiner) Cleanup() {
	// This would:
	// 1. Release memory objects
	// 2. Release kernels
	// 3. Release program
	// 4. Release command queue
	// 5. Release context
}

// Platform detection and selection

// OpenCLPlatform represents an OpenCL platform
type OpenCLPlatform struct {
	ID      interface{}
	Name    string
	Vendor  string
	Version string
	Devices []OpenCLDevice
}

// OpenCLDevice represents an OpenCL device
type OpenCLDevice struct {
	ID              interface{}
	Name            string
	Type            string
	MaxComputeUnits int
	MaxWorkGroup    int
	GlobalMemory    uint64
	LocalMemory     uint64
	MaxFrequency    int
}

// GetOpenCLPlatforms returns all available OpenCL platforms
func GetOpenCLPlatforms() ([]OpenCLPlatform, error) {
	// This would enumerate all OpenCL platforms and devices
	// For now, return empty list
	return nil, fmt.Errorf("OpenCL not available")
}

// SelectBestDevice selects the best OpenCL device for mining
func SelectBestDevice(platforms []OpenCLPlatform) *OpenCLDevice {
	var bestDevice *OpenCLDevice
	bestScore := 0
	
	for _, platform := range platforms {
		for _, device := range platform.Devices {
			// Score based on compute units and memory
			score := device.MaxComputeUnits * 1000
			if device.GlobalMemory > 4*1024*1024*1024 {
				score += 1000
			}
			
			if score > bestScore {
				bestScore = score
				bestDevice = &device
			}
		}
	}
	
	return bestDevice
}

// Optimization utilities

// AutoTuneWorkSize finds optimal work group size
func AutoTuneWorkSize(device *OpenCLDevice) int {
	// Start with device's max work group size
	maxSize := device.MaxWorkGroup
	
	// Common efficient sizes
	sizes := []int{64, 128, 256, 512}
	
	// Find largest size that fits
	for i := len(sizes) - 1; i >= 0; i-- {
		if sizes[i] <= maxSize {
			return sizes[i]
		}
	}
	
	return 64 // Fallback
}

// CalculateGlobalWorkSize calculates optimal global work size
func CalculateGlobalWorkSize(device *OpenCLDevice, workGroupSize int) int {
	// Aim for full occupancy
	computeUnits := device.MaxComputeUnits
	wavesPerCU := 4 // Typical for good occupancy
	
	return computeUnits * wavesPerCU * workGroupSize
}