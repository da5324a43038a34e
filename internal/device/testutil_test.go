package device

import "github.com/tos-network/tosminer/internal/model"

func defaultTestDescriptor() model.DeviceDescriptor {
	return model.DeviceDescriptor{
		Type:             model.DeviceCUDA,
		Index:            0,
		Name:             "test-gpu",
		CUDAComputeMajor: 7,
		CUDAComputeMinor: 5,
	}
}
