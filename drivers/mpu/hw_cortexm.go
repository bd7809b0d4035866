//go:build cortexm && !rp2350

package mpu

import (
	"device/arm"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

type block struct {
	TYPE volatile.Register32
	CTRL volatile.Register32
	RNR  volatile.Register32
	RBAR volatile.Register32
	RASR volatile.Register32
}

var hw = (*block)(unsafe.Pointer(uintptr(BlockBase)))

// hardware accesses the core's own MPU block.
type hardware struct{}

func (hardware) reg(r Reg) *volatile.Register32 {
	switch r {
	case RegTYPE:
		return &hw.TYPE
	case RegCTRL:
		return &hw.CTRL
	case RegRNR:
		return &hw.RNR
	case RegRBAR:
		return &hw.RBAR
	case RegRASR:
		return &hw.RASR
	}
	return nil
}

func (h hardware) Read(r Reg) uint32 {
	if p := h.reg(r); p != nil {
		return p.Get()
	}
	return 0
}

func (h hardware) Write(r Reg, v uint32) {
	if r == RegTYPE {
		return
	}
	if p := h.reg(r); p != nil {
		p.Set(v)
	}
}

func (hardware) DSB() { arm.Asm("dsb 0xF") }
func (hardware) ISB() { arm.Asm("isb 0xF") }

// irqLock masks interrupts for the duration of a Section. Sections do not
// nest.
type irqLock struct{ state interrupt.State }

func (l *irqLock) Lock()   { l.state = interrupt.Disable() }
func (l *irqLock) Unlock() { interrupt.Restore(l.state) }

// System returns the handle of the executing core's MPU.
func System() Handle { return Open(hardware{}, &irqLock{}) }
