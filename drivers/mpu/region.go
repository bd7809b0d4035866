package mpu

import (
	"math/bits"

	"mpuguard-go/errcode"
)

// AccessPermission is the 3-bit RASR AP field. The layer passes it through
// without interpretation; the named values follow the architecture manual.
type AccessPermission uint8

const (
	APNoAccess     AccessPermission = 0 // priv none, user none
	APPrivRW       AccessPermission = 1 // priv RW, user none
	APPrivRWUserRO AccessPermission = 2 // priv RW, user RO
	APFullAccess   AccessPermission = 3 // priv RW, user RW
	APPrivRO       AccessPermission = 5 // priv RO, user none
	APReadOnly     AccessPermission = 6 // priv RO, user RO
)

// MemoryType carries the TEX/S/C/B attribute bits of a region.
type MemoryType struct {
	TEX        uint8
	Shareable  bool
	Cacheable  bool
	Bufferable bool
}

// Common TEX/C/B encodings.
var (
	StronglyOrdered    = MemoryType{Shareable: true}
	Device             = MemoryType{Shareable: true, Bufferable: true}
	NormalWT           = MemoryType{Cacheable: true}
	NormalWB           = MemoryType{Cacheable: true, Bufferable: true}
	NormalNonCacheable = MemoryType{TEX: 1}
	NormalWBWA         = MemoryType{TEX: 1, Cacheable: true, Bufferable: true}
)

// Size encodings: a region spans 2^(enc+1) bytes.
const (
	Size32B uint32 = iota + 4
	Size64B
	Size128B
	Size256B
	Size512B
	Size1KB
	Size2KB
	Size4KB
	Size8KB
	Size16KB
	Size32KB
	Size64KB
	Size128KB
	Size256KB
	Size512KB
	Size1MB
	Size2MB
	Size4MB
	Size8MB
	Size16MB
	Size32MB
	Size64MB
	Size128MB
	Size256MB
	Size512MB
	Size1GB
	Size2GB
	Size4GB
)

// RegionDescriptor is the decoded configuration of one region slot.
type RegionDescriptor struct {
	Index            uint32
	Base             uint32
	Size             uint32 // encoding, see Size32B..Size4GB
	SubRegionDisable uint8
	ExecuteNever     bool
	Access           AccessPermission
	Memory           MemoryType
	Enabled          bool
}

// RegionBytes returns the byte length of a size encoding.
func RegionBytes(enc uint32) uint64 { return uint64(1) << ((enc & 0x1F) + 1) }

// SizeFor returns the size encoding for a power-of-two byte count in
// [32 B, 4 GiB].
func SizeFor(n uint64) (uint32, bool) {
	if n < 32 || n > 1<<32 || n&(n-1) != 0 {
		return 0, false
	}
	return uint32(bits.TrailingZeros64(n)) - 1, true
}

// BaseWord is the value written to RBAR for this region (VALID clear).
func (d RegionDescriptor) BaseWord() uint32 { return d.Base & RBARAddrMask }

// Attributes packs the descriptor into a RASR word.
func (d RegionDescriptor) Attributes() uint32 {
	v := uint32(d.Access&0x7)<<rasrAPShift |
		uint32(d.Memory.TEX&0x7)<<rasrTEXShift |
		uint32(d.SubRegionDisable)<<rasrSRDShift |
		SizeField(d.Size)
	if d.ExecuteNever {
		v |= RASRXN
	}
	if d.Memory.Shareable {
		v |= RASRS
	}
	if d.Memory.Cacheable {
		v |= RASRC
	}
	if d.Memory.Bufferable {
		v |= RASRB
	}
	if d.Enabled {
		v |= RASREnable
	}
	return v
}

// DecodeRegion unpacks raw RBAR/RASR values of slot index.
func DecodeRegion(index, rbar, rasr uint32) RegionDescriptor {
	return RegionDescriptor{
		Index:            index,
		Base:             rbar & RBARAddrMask,
		Size:             SizeOf(rasr),
		SubRegionDisable: SRDOf(rasr),
		ExecuteNever:     rasr&RASRXN != 0,
		Access:           AccessPermission((rasr & rasrAPMask) >> rasrAPShift),
		Memory: MemoryType{
			TEX:        uint8((rasr & rasrTEXMask) >> rasrTEXShift),
			Shareable:  rasr&RASRS != 0,
			Cacheable:  rasr&RASRC != 0,
			Bufferable: rasr&RASRB != 0,
		},
		Enabled: rasr&RASREnable != 0,
	}
}

// Bytes returns the region length in bytes.
func (d RegionDescriptor) Bytes() uint64 { return RegionBytes(d.Size) }

// Limit returns the last address covered by the region.
func (d RegionDescriptor) Limit() uint32 {
	return uint32(uint64(d.Base) + d.Bytes() - 1)
}

// Validate checks the hardware contract for the descriptor's geometry.
// The index is checked against the unit when the region is programmed.
func (d RegionDescriptor) Validate() error {
	if d.Size < Size32B || d.Size > Size4GB {
		return errcode.InvalidSize
	}
	if uint64(d.Base)&(d.Bytes()-1) != 0 {
		return errcode.Misaligned
	}
	// Regions of 128 bytes and smaller have no sub-regions.
	if d.SubRegionDisable != 0 && d.Size < Size256B {
		return errcode.SubregionUnsupported
	}
	if d.Memory.TEX > 0x7 || d.Access > 0x7 {
		return errcode.InvalidParams
	}
	return nil
}
