//go:build rp2350

package platform

import "mpuguard-go/drivers/mpu"

// Device names the embedded configuration for this build.
func Device() string { return "pico2" }

// MPU reports no unit. The RP2350 cores implement the ARMv8-M MPU, which
// this driver does not program.
func MPU() mpu.Handle { return mpu.Absent{} }
