package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckptgrad/ckptgrad/device"
)

func TestGetReturnsRegisteredCPUDevice(t *testing.T) {
	d, err := device.Get("cpu")
	require.NoError(t, err)
	assert.Equal(t, "cpu", d.ID())
	assert.Equal(t, device.CPU, d.Type())
}

func TestGetErrorsOnUnknownDevice(t *testing.T) {
	_, err := device.Get("cuda:0")
	assert.Error(t, err)
}

func TestCPUAllocatorAllocatesTypedSlice(t *testing.T) {
	buf, err := device.CPUAllocator[float32]().Allocate(16)
	require.NoError(t, err)
	assert.Len(t, buf, 16)
}

func TestCPUAllocatorRejectsNegativeSize(t *testing.T) {
	_, err := device.CPUAllocator[float32]().Allocate(-1)
	assert.Error(t, err)
}

func TestCPUAllocatorFreeRecordsReleasedElementCount(t *testing.T) {
	before := device.FreedElementCount()

	require.NoError(t, device.CPUAllocator[float32]().Free(make([]float32, 4)))

	assert.Equal(t, before+4, device.FreedElementCount())
}
