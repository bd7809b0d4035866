package mpu

// Section is exclusive access to one selected region. It is obtained from
// Handle.Region and must be released; methods after Release do nothing.
type Section struct {
	u     *Unit
	index uint32
	done  bool
}

func (s *Section) Index() uint32 { return s.index }

func (s *Section) SetAddress(addr uint32) {
	if s.done {
		return
	}
	s.u.SetRegionAddress(addr)
}

func (s *Section) SetAttributes(attrAndSize uint32) {
	if s.done {
		return
	}
	s.u.SetRegionAttributes(attrAndSize)
}

func (s *Section) Address() uint32 {
	if s.done {
		return 0
	}
	return s.u.RegionAddress()
}

func (s *Section) Attributes() uint32 {
	if s.done {
		return 0
	}
	return s.u.RegionAttributes()
}

// Program validates d and writes its base and attributes to this slot.
// d.Index is ignored.
func (s *Section) Program(d RegionDescriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s.write(d)
	return nil
}

// Clear disables the slot by writing a zero attribute word.
func (s *Section) Clear() { s.SetAttributes(0) }

// Descriptor decodes the slot's current configuration.
func (s *Section) Descriptor() RegionDescriptor {
	return DecodeRegion(s.index, s.Address(), s.Attributes())
}

// Release leaves the critical section. It is safe to call more than once.
func (s *Section) Release() {
	if s.done {
		return
	}
	s.done = true
	s.u.lock.Unlock()
}

func (s *Section) write(d RegionDescriptor) {
	s.SetAddress(d.BaseWord())
	s.SetAttributes(d.Attributes())
}
