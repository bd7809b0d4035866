package mpu

import (
	"sync"

	"mpuguard-go/errcode"
	"mpuguard-go/x/conv"
)

// Unit drives a present MPU. It holds no copy of hardware state; every call
// is a register access.
type Unit struct {
	r    Registers
	lock sync.Locker
}

func (u *Unit) Capability() Capability {
	return Capability{RegionCount: RegionCountOf(u.r.Read(RegTYPE))}
}

func (u *Unit) Present() bool { return u.Capability().RegionCount != 0 }

func (u *Unit) ValidRegion(index uint32) bool { return index < u.Capability().RegionCount }

// ---------------- Region cursor ----------------

// SelectRegion points RNR at index. An out-of-range index writes nothing.
func (u *Unit) SelectRegion(index uint32) bool {
	if !u.ValidRegion(index) {
		return false
	}
	u.r.Write(RegRNR, index)
	return true
}

func (u *Unit) CurrentRegion() uint32 { return u.r.Read(RegRNR) & RNRRegionMask }

// SetRegionAddress writes RBAR of the selected region. VALID is always
// cleared so the write never moves the cursor; low bits below the region
// size are left for the hardware to ignore.
func (u *Unit) SetRegionAddress(addr uint32) { u.r.Write(RegRBAR, addr&RBARAddrMask) }

// SetRegionAttributes writes RASR of the selected region in one store.
func (u *Unit) SetRegionAttributes(attrAndSize uint32) { u.r.Write(RegRASR, attrAndSize) }

func (u *Unit) RegionAddress() uint32 { return u.r.Read(RegRBAR) & RBARAddrMask }

func (u *Unit) RegionAttributes() uint32 { return u.r.Read(RegRASR) }

// ---------------- Control ----------------

// Enable sets ENABLE and the requested coverage bits. Coverage bits already
// set stay set, mirroring Disable; write an exact value with SetControl.
func (u *Unit) Enable(opts EnableOptions) {
	u.writeControl(u.r.Read(RegCTRL) | opts.ControlWord())
}

// Disable clears ENABLE and keeps HFNMIENA/PRIVDEFENA.
func (u *Unit) Disable() { u.writeControl(u.r.Read(RegCTRL) &^ CtrlEnable) }

func (u *Unit) Control() uint32 { return u.r.Read(RegCTRL) }

func (u *Unit) SetControl(v uint32) { u.writeControl(v) }

func (u *Unit) writeControl(v uint32) {
	u.r.Write(RegCTRL, v)
	u.r.DSB()
	u.r.ISB()
}

// ---------------- Serialised region access ----------------

// Region enters the critical section and selects index. The caller must
// Release the section.
func (u *Unit) Region(index uint32) (*Section, bool) {
	u.lock.Lock()
	if !u.SelectRegion(index) {
		u.lock.Unlock()
		return nil, false
	}
	return &Section{u: u, index: index}, true
}

// Program validates d and writes it to slot d.Index.
func (u *Unit) Program(d RegionDescriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s, ok := u.Region(d.Index)
	if !ok {
		return errcode.InvalidRegion
	}
	defer s.Release()
	s.write(d)
	return nil
}

// Load validates the whole table before touching any slot, then programs
// each descriptor in order.
func (u *Unit) Load(table []RegionDescriptor) error {
	for i := range table {
		err := table[i].Validate()
		if err == nil && !u.ValidRegion(table[i].Index) {
			err = errcode.InvalidRegion
		}
		if err != nil {
			return &errcode.E{C: errcode.Of(err), Op: "load", Msg: "region " + regionName(table[i].Index), Err: err}
		}
	}
	for i := range table {
		s, _ := u.Region(table[i].Index)
		s.write(table[i])
		s.Release()
	}
	return nil
}

// Clear writes a zero attribute word to index, disabling it.
func (u *Unit) Clear(index uint32) bool {
	s, ok := u.Region(index)
	if !ok {
		return false
	}
	s.Clear()
	s.Release()
	return true
}

func (u *Unit) ReadRegion(index uint32) (RegionDescriptor, bool) {
	s, ok := u.Region(index)
	if !ok {
		return RegionDescriptor{}, false
	}
	defer s.Release()
	return s.Descriptor(), true
}

// Regions reads back every slot.
func (u *Unit) Regions() []RegionDescriptor {
	n := u.Capability().RegionCount
	out := make([]RegionDescriptor, 0, n)
	for i := uint32(0); i < n; i++ {
		if d, ok := u.ReadRegion(i); ok {
			out = append(out, d)
		}
	}
	return out
}

func regionName(i uint32) string {
	var buf [10]byte
	return string(conv.Utoa(buf[:], uint64(i)))
}
