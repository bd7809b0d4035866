// Package mpu provides constants for register offsets and bitfields of the
// PMSAv7 memory protection unit found on Cortex-M0+/M3/M4/M7 cores.
package mpu

// Reg identifies one 32-bit register of the MPU block by its offset from
// BlockBase.
type Reg uint8

const (
	// System control space address of MPU_TYPE.
	BlockBase = 0xE000ED90

	RegTYPE Reg = 0x00 // R
	RegCTRL Reg = 0x04 // R/W
	RegRNR  Reg = 0x08 // R/W
	RegRBAR Reg = 0x0C // R/W
	RegRASR Reg = 0x10 // R/W
)

const (
	// --- MPU_TYPE ---
	typeDRegionShift = 8
	typeDRegionMask  = 0xFF << typeDRegionShift
	TypeSeparate     = 1 << 0

	// --- MPU_CTRL ---
	CtrlEnable     = 1 << 0
	CtrlHFNMIEna   = 1 << 1
	CtrlPrivDefEna = 1 << 2
	CtrlMask       = CtrlEnable | CtrlHFNMIEna | CtrlPrivDefEna

	// --- MPU_RNR ---
	RNRRegionMask = 0xFF

	// --- MPU_RBAR ---
	RBARAddrMask   = 0xFFFFFFE0
	RBARValid      = 1 << 4
	RBARRegionMask = 0x0F

	// --- MPU_RASR ---
	RASREnable    = 1 << 0
	rasrSizeShift = 1
	rasrSizeMask  = 0x1F << rasrSizeShift
	rasrSRDShift  = 8
	rasrSRDMask   = 0xFF << rasrSRDShift
	RASRB         = 1 << 16
	RASRC         = 1 << 17
	RASRS         = 1 << 18
	rasrTEXShift  = 19
	rasrTEXMask   = 0x7 << rasrTEXShift
	rasrAPShift   = 24
	rasrAPMask    = 0x7 << rasrAPShift
	RASRXN        = 1 << 28
	RASRMask      = RASRXN | rasrAPMask | rasrTEXMask | RASRS | RASRC | RASRB | rasrSRDMask | rasrSizeMask | RASREnable
)

// RegionCountOf extracts DREGION from a raw MPU_TYPE value.
func RegionCountOf(typeReg uint32) uint32 {
	return (typeReg & typeDRegionMask) >> typeDRegionShift
}

// SizeField places a size encoding into the RASR SIZE field.
func SizeField(enc uint32) uint32 { return (enc << rasrSizeShift) & rasrSizeMask }

// SizeOf extracts the size encoding from a raw RASR value.
func SizeOf(rasr uint32) uint32 { return (rasr & rasrSizeMask) >> rasrSizeShift }

// SRDOf extracts the sub-region disable mask from a raw RASR value.
func SRDOf(rasr uint32) uint8 { return uint8((rasr & rasrSRDMask) >> rasrSRDShift) }
