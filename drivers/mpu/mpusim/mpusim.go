// Package mpusim emulates the PMSAv7 MPU register block for host builds.
//
// The model covers the register-level behaviour the driver depends on:
// read-only TYPE, three CTRL bits, the RNR cursor, RBAR writes with VALID
// moving the cursor, and reserved RASR bits reading as zero. With zero
// regions the whole block is read-as-zero/write-ignored, as on a core built
// without the MPU. Access checks are reported by Resolve but never fault.
package mpusim

import (
	"sync"

	"mpuguard-go/drivers/mpu"
)

// EventKind classifies one recorded bus operation.
type EventKind uint8

const (
	EvRead EventKind = iota
	EvWrite
	EvDSB
	EvISB
)

func (k EventKind) String() string {
	switch k {
	case EvRead:
		return "read"
	case EvWrite:
		return "write"
	case EvDSB:
		return "dsb"
	case EvISB:
		return "isb"
	}
	return "?"
}

// Event is one recorded access.
type Event struct {
	Kind  EventKind
	Reg   mpu.Reg
	Value uint32
}

// Block is a simulated MPU. It implements mpu.Registers and sync.Locker.
type Block struct {
	section sync.Mutex // held by an mpu.Section

	mu      sync.Mutex
	regions uint32
	ctrl    uint32
	rnr     uint32
	rbar    []uint32
	rasr    []uint32

	record bool
	events []Event
}

var (
	_ mpu.Registers = (*Block)(nil)
	_ sync.Locker   = (*Block)(nil)
)

// New returns a block with the given number of regions in its reset state.
// Architecturally valid counts are 0, 8 and 16; up to 255 are accepted.
func New(regions uint32) *Block {
	if regions > 0xFF {
		regions = 0xFF
	}
	return &Block{
		regions: regions,
		rbar:    make([]uint32, regions),
		rasr:    make([]uint32, regions),
		record:  true,
	}
}

// Reset restores the power-on state and drops recorded events.
func (b *Block) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctrl, b.rnr = 0, 0
	for i := range b.rbar {
		b.rbar[i], b.rasr[i] = 0, 0
	}
	b.events = b.events[:0]
}

// ---------------- mpu.Registers ----------------

func (b *Block) Read(r mpu.Reg) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.read(r)
	b.log(Event{Kind: EvRead, Reg: r, Value: v})
	return v
}

func (b *Block) read(r mpu.Reg) uint32 {
	if b.regions == 0 {
		return 0
	}
	switch r {
	case mpu.RegTYPE:
		return b.regions << 8
	case mpu.RegCTRL:
		return b.ctrl
	case mpu.RegRNR:
		return b.rnr
	case mpu.RegRBAR:
		if b.rnr >= b.regions {
			return 0
		}
		return b.rbar[b.rnr] | (b.rnr & mpu.RBARRegionMask)
	case mpu.RegRASR:
		if b.rnr >= b.regions {
			return 0
		}
		return b.rasr[b.rnr]
	}
	return 0
}

func (b *Block) Write(r mpu.Reg, v uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log(Event{Kind: EvWrite, Reg: r, Value: v})
	if b.regions == 0 {
		return
	}
	switch r {
	case mpu.RegCTRL:
		b.ctrl = v & mpu.CtrlMask
	case mpu.RegRNR:
		b.rnr = v & mpu.RNRRegionMask
	case mpu.RegRBAR:
		if v&mpu.RBARValid != 0 {
			b.rnr = v & mpu.RBARRegionMask
		}
		if b.rnr < b.regions {
			b.rbar[b.rnr] = v & mpu.RBARAddrMask
		}
	case mpu.RegRASR:
		if b.rnr < b.regions {
			b.rasr[b.rnr] = v & mpu.RASRMask
		}
	}
}

func (b *Block) DSB() {
	b.mu.Lock()
	b.log(Event{Kind: EvDSB})
	b.mu.Unlock()
}

func (b *Block) ISB() {
	b.mu.Lock()
	b.log(Event{Kind: EvISB})
	b.mu.Unlock()
}

// ---------------- sync.Locker ----------------

func (b *Block) Lock()   { b.section.Lock() }
func (b *Block) Unlock() { b.section.Unlock() }

// TryLock reports whether the section lock was free, taking it if so.
func (b *Block) TryLock() bool { return b.section.TryLock() }

// ---------------- Inspection ----------------

func (b *Block) log(e Event) {
	if b.record {
		b.events = append(b.events, e)
	}
}

// SetRecording turns event capture on or off.
func (b *Block) SetRecording(on bool) {
	b.mu.Lock()
	b.record = on
	b.mu.Unlock()
}

// Events returns a copy of the recorded accesses.
func (b *Block) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// ClearEvents drops recorded accesses.
func (b *Block) ClearEvents() {
	b.mu.Lock()
	b.events = b.events[:0]
	b.mu.Unlock()
}

// Writes counts recorded register writes.
func (b *Block) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Kind == EvWrite {
			n++
		}
	}
	return n
}

// Slot returns the stored RBAR address and RASR word of region i without
// going through the cursor.
func (b *Block) Slot(i uint32) (rbar, rasr uint32, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i >= b.regions {
		return 0, 0, false
	}
	return b.rbar[i], b.rasr[i], true
}

// Resolve reports which enabled region governs addr. The highest-numbered
// matching region wins; disabled sub-regions fall through to lower regions.
// ok is false when the MPU is off or no region matches.
func (b *Block) Resolve(addr uint32) (index uint32, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctrl&mpu.CtrlEnable == 0 {
		return 0, false
	}
	for i := int(b.regions) - 1; i >= 0; i-- {
		rasr := b.rasr[i]
		if rasr&mpu.RASREnable == 0 {
			continue
		}
		size := mpu.RegionBytes(mpu.SizeOf(rasr))
		base := uint64(b.rbar[i]) &^ (size - 1)
		off := uint64(addr) - base
		if uint64(addr) < base || off >= size {
			continue
		}
		if size >= 256 {
			sub := off / (size / 8)
			if mpu.SRDOf(rasr)&(1<<sub) != 0 {
				continue
			}
		}
		return uint32(i), true
	}
	return 0, false
}
