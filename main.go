package main

import (
	"time"

	"mpuguard-go/internal/platform"
	"mpuguard-go/x/conv"
)

// Boot probe: report what the core's MPU looks like, then idle.
func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	h := platform.MPU()
	if !h.Present() {
		println("mpu: not present")
	} else {
		println("mpu:", h.Capability().RegionCount, "regions, ctrl", conv.Hex32(h.Control()))
		for _, d := range h.Regions() {
			if d.Enabled {
				println("  region", d.Index, conv.Hex32(d.Base), conv.Size(d.Bytes()), "rasr", conv.Hex32(d.Attributes()))
			}
		}
	}

	// Periodic stats.
	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	for t := range tick.C {
		println(t.Format("15:04:05"), "Heartbeat", "ctrl", conv.Hex32(h.Control()))
	}
}
