package protect

import (
	"mpuguard-go/drivers/mpu"
	"mpuguard-go/errcode"
	"mpuguard-go/types"
	"mpuguard-go/x/conv"
)

var accessByName = map[string]mpu.AccessPermission{
	types.AccessNone:         mpu.APNoAccess,
	types.AccessPrivRW:       mpu.APPrivRW,
	types.AccessPrivRWUserRO: mpu.APPrivRWUserRO,
	types.AccessFull:         mpu.APFullAccess,
	types.AccessPrivRO:       mpu.APPrivRO,
	types.AccessReadOnly:     mpu.APReadOnly,
}

var memoryByName = map[string]mpu.MemoryType{
	"":                       mpu.StronglyOrdered,
	types.MemStronglyOrdered: mpu.StronglyOrdered,
	types.MemDevice:          mpu.Device,
	types.MemNormalWT:        mpu.NormalWT,
	types.MemNormalWB:        mpu.NormalWB,
	types.MemNormalNC:        mpu.NormalNonCacheable,
	types.MemNormalWBWA:      mpu.NormalWBWA,
}

// Descriptor converts a configured region into an enabled descriptor.
func Descriptor(r types.MPURegion) (mpu.RegionDescriptor, error) {
	size, ok := mpu.SizeFor(r.Size)
	if !ok {
		return mpu.RegionDescriptor{}, regionErr(errcode.InvalidSize, r.Index, "size "+conv.Size(r.Size))
	}
	ap, ok := accessByName[r.Access]
	if !ok {
		return mpu.RegionDescriptor{}, regionErr(errcode.InvalidParams, r.Index, "access "+r.Access)
	}
	mem, ok := memoryByName[r.Memory]
	if !ok {
		return mpu.RegionDescriptor{}, regionErr(errcode.InvalidParams, r.Index, "memory "+r.Memory)
	}
	d := mpu.RegionDescriptor{
		Index:            r.Index,
		Base:             r.Base,
		Size:             size,
		SubRegionDisable: r.SRD,
		ExecuteNever:     r.XN,
		Access:           ap,
		Memory:           mem,
		Enabled:          true,
	}
	if err := d.Validate(); err != nil {
		return mpu.RegionDescriptor{}, regionErr(errcode.Of(err), r.Index, conv.Hex32(r.Base))
	}
	return d, nil
}

// Compile converts a plan into a table the unit can load. Every index must
// exist on the unit and appear once.
func Compile(h mpu.Handle, cfg types.MPUConfig) ([]mpu.RegionDescriptor, error) {
	table := make([]mpu.RegionDescriptor, 0, len(cfg.Regions))
	seen := map[uint32]bool{}
	for _, r := range cfg.Regions {
		if !h.ValidRegion(r.Index) {
			return nil, regionErr(errcode.InvalidRegion, r.Index, "")
		}
		if seen[r.Index] {
			return nil, regionErr(errcode.InvalidParams, r.Index, "duplicate index")
		}
		seen[r.Index] = true
		d, err := Descriptor(r)
		if err != nil {
			return nil, err
		}
		table = append(table, d)
	}
	return table, nil
}

// AccessOf looks up an access permission by name.
func AccessOf(name string) (mpu.AccessPermission, bool) {
	ap, ok := accessByName[name]
	return ap, ok
}

// MemoryOf looks up a memory type by name.
func MemoryOf(name string) (mpu.MemoryType, bool) {
	mt, ok := memoryByName[name]
	return mt, ok
}

// Info describes a descriptor with names where the encoding has one.
func Info(d mpu.RegionDescriptor) types.RegionInfo {
	return types.RegionInfo{
		Index:      d.Index,
		Base:       d.Base,
		Size:       d.Bytes(),
		Access:     AccessName(d.Access),
		Memory:     MemoryName(d.Memory),
		XN:         d.ExecuteNever,
		SRD:        d.SubRegionDisable,
		Enabled:    d.Enabled,
		Attributes: d.Attributes(),
	}
}

// AccessName returns the configuration name of an AP value.
func AccessName(ap mpu.AccessPermission) string {
	for name, v := range accessByName {
		if v == ap {
			return name
		}
	}
	return "ap" + conv.U32(uint32(ap))
}

// MemoryName returns the configuration name of a memory type.
func MemoryName(mt mpu.MemoryType) string {
	// S is ignored for strongly-ordered memory.
	if mt.TEX == 0 && !mt.Cacheable && !mt.Bufferable {
		return types.MemStronglyOrdered
	}
	for name, v := range memoryByName {
		if name != "" && v == mt {
			return name
		}
	}
	return "custom"
}

func regionErr(c errcode.Code, index uint32, msg string) error {
	m := "region " + conv.U32(index)
	if msg != "" {
		m += ": " + msg
	}
	return &errcode.E{C: c, Op: "plan", Msg: m}
}
