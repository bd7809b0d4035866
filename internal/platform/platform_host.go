//go:build !cortexm

package platform

import (
	"io"
	"os"
	"sync"

	"mpuguard-go/drivers/mpu"
	"mpuguard-go/drivers/mpu/mpusim"
)

// HostRegions is the region count of the simulated unit.
const HostRegions = 8

var (
	simOnce sync.Once
	sim     *mpusim.Block
)

// Device names the embedded configuration for this build.
func Device() string { return "host" }

// Sim returns the process-wide simulated register block.
func Sim() *mpusim.Block {
	simOnce.Do(func() { sim = mpusim.New(HostRegions) })
	return sim
}

// MPU returns a handle on the simulated unit.
func MPU() mpu.Handle {
	b := Sim()
	return mpu.Open(b, b)
}

// Console uses the process's standard streams.
func Console() (io.Reader, io.Writer) { return os.Stdin, os.Stdout }
