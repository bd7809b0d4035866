// Package mpu is a driver for the Cortex-M memory protection unit.
//
// Design notes (ARMv7-M / ARMv6-M architecture reference, PMSAv7):
//   - Up to 255 regions, count read from MPU_TYPE.DREGION; 0 means no MPU.
//   - Region programming goes through a single RNR cursor, so the
//     select/address/attributes sequence must not be interleaved. Region
//     returns a Section that holds the platform lock for that sequence.
//   - RASR carries size, attributes and the enable bit in one word, so a
//     region is never enabled with an undefined size.
//   - Every MPU_CTRL write is followed by DSB and ISB.
//   - A core without an MPU yields Absent: mutators are no-ops and queries
//     return fixed sentinels.
package mpu

import "sync"

// Registers is the memory-mapped access the driver is built on.
type Registers interface {
	Read(r Reg) uint32
	Write(r Reg, v uint32)
	DSB()
	ISB()
}

// Capability describes what the hardware supports.
type Capability struct {
	RegionCount uint32
}

// EnableOptions selects the CTRL bits written alongside ENABLE.
type EnableOptions struct {
	// FaultHandlers keeps the MPU active in HardFault and NMI handlers.
	FaultHandlers bool
	// PrivilegedDefault gives privileged code the default memory map
	// outside all enabled regions.
	PrivilegedDefault bool
}

// ControlWord returns the CTRL bits selected by o, ENABLE included.
func (o EnableOptions) ControlWord() uint32 {
	v := uint32(CtrlEnable)
	if o.FaultHandlers {
		v |= CtrlHFNMIEna
	}
	if o.PrivilegedDefault {
		v |= CtrlPrivDefEna
	}
	return v
}

// NoControl is returned by Control when there is no MPU.
const NoControl = 0xFFFFFFFF

// Handle is either Absent or a *Unit bound to real registers.
type Handle interface {
	Capability() Capability
	Present() bool
	ValidRegion(index uint32) bool

	// Raw region cursor access. Callers own serialisation.
	SelectRegion(index uint32) bool
	CurrentRegion() uint32
	SetRegionAddress(addr uint32)
	SetRegionAttributes(attrAndSize uint32)
	RegionAddress() uint32
	RegionAttributes() uint32

	// Control register.
	Enable(opts EnableOptions)
	Disable()
	Control() uint32
	SetControl(v uint32)

	// Serialised region access.
	Region(index uint32) (*Section, bool)
	Program(d RegionDescriptor) error
	Load(table []RegionDescriptor) error
	Clear(index uint32) bool
	ReadRegion(index uint32) (RegionDescriptor, bool)
	Regions() []RegionDescriptor
}

var (
	_ Handle = Absent{}
	_ Handle = (*Unit)(nil)
)

// Open probes MPU_TYPE once and returns Absent when the core reports no
// regions. lock guards Section; nil means callers serialise by construction.
func Open(regs Registers, lock sync.Locker) Handle {
	if regs == nil || RegionCountOf(regs.Read(RegTYPE)) == 0 {
		return Absent{}
	}
	if lock == nil {
		lock = noLock{}
	}
	return &Unit{r: regs, lock: lock}
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}
