//go:build cortexm && !rp2040 && !rp2350

package platform

import "mpuguard-go/drivers/mpu"

// Device names the embedded configuration for this build.
func Device() string { return "cortexm" }

// MPU returns the core's memory protection unit.
func MPU() mpu.Handle { return mpu.System() }
