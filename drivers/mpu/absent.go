package mpu

import "mpuguard-go/errcode"

// Absent is the Handle of a core without an MPU. Nothing is ever written.
type Absent struct{}

func (Absent) Capability() Capability         { return Capability{} }
func (Absent) Present() bool                  { return false }
func (Absent) ValidRegion(uint32) bool        { return false }
func (Absent) SelectRegion(uint32) bool       { return false }
func (Absent) CurrentRegion() uint32          { return 0 }
func (Absent) SetRegionAddress(uint32)        {}
func (Absent) SetRegionAttributes(uint32)     {}
func (Absent) RegionAddress() uint32          { return 0 }
func (Absent) RegionAttributes() uint32       { return 0 }
func (Absent) Enable(EnableOptions)           {}
func (Absent) Disable()                       {}
func (Absent) Control() uint32                { return NoControl }
func (Absent) SetControl(uint32)              {}
func (Absent) Region(uint32) (*Section, bool) { return nil, false }
func (Absent) Program(RegionDescriptor) error { return errcode.NotPresent }
func (Absent) Clear(uint32) bool              { return false }
func (Absent) Regions() []RegionDescriptor    { return nil }

func (Absent) Load(table []RegionDescriptor) error {
	if len(table) == 0 {
		return nil
	}
	return errcode.NotPresent
}

func (Absent) ReadRegion(uint32) (RegionDescriptor, bool) {
	return RegionDescriptor{}, false
}
