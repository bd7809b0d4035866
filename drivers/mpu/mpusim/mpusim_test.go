package mpusim

import (
	"testing"

	"mpuguard-go/drivers/mpu"
)

func program(b *Block, i, base, rasr uint32) {
	b.Write(mpu.RegRNR, i)
	b.Write(mpu.RegRBAR, base)
	b.Write(mpu.RegRASR, rasr)
}

func TestTypeIsReadOnly(t *testing.T) {
	b := New(8)
	b.Write(mpu.RegTYPE, 0)
	if got := mpu.RegionCountOf(b.Read(mpu.RegTYPE)); got != 8 {
		t.Fatalf("region count = %d, want 8", got)
	}
}

func TestAbsentBlockReadsZero(t *testing.T) {
	b := New(0)
	b.Write(mpu.RegCTRL, mpu.CtrlEnable)
	b.Write(mpu.RegRASR, mpu.RASRMask)
	for _, r := range []mpu.Reg{mpu.RegTYPE, mpu.RegCTRL, mpu.RegRNR, mpu.RegRBAR, mpu.RegRASR} {
		if v := b.Read(r); v != 0 {
			t.Fatalf("reg %#x = %#x, want 0", r, v)
		}
	}
}

func TestRBARValidMovesCursor(t *testing.T) {
	b := New(8)
	b.Write(mpu.RegRNR, 1)
	b.Write(mpu.RegRBAR, 0x20000000|mpu.RBARValid|6)
	if got := b.Read(mpu.RegRNR); got != 6 {
		t.Fatalf("RNR = %d, want 6", got)
	}
	if rbar, _, _ := b.Slot(6); rbar != 0x20000000 {
		t.Fatalf("slot 6 RBAR = %#x", rbar)
	}
	if got := b.Read(mpu.RegRBAR); got != 0x20000006 {
		t.Fatalf("RBAR read = %#x, want region nibble", got)
	}
}

func TestReservedBitsReadZero(t *testing.T) {
	b := New(8)
	b.Write(mpu.RegRASR, 0xFFFFFFFF)
	if got := b.Read(mpu.RegRASR); got != mpu.RASRMask {
		t.Fatalf("RASR = %#x, want %#x", got, uint32(mpu.RASRMask))
	}
	b.Write(mpu.RegCTRL, 0xFFFFFFFF)
	if got := b.Read(mpu.RegCTRL); got != mpu.CtrlMask {
		t.Fatalf("CTRL = %#x", got)
	}
}

func TestCursorOutsideTableIsInert(t *testing.T) {
	b := New(8)
	b.Write(mpu.RegRNR, 9)
	b.Write(mpu.RegRASR, mpu.RASREnable)
	if b.Read(mpu.RegRASR) != 0 || b.Read(mpu.RegRBAR) != 0 {
		t.Fatal("out-of-table slot readable")
	}
}

func TestResolveHighestRegionWins(t *testing.T) {
	b := New(8)
	b.Write(mpu.RegCTRL, mpu.CtrlEnable)
	program(b, 0, 0x00000000, mpu.SizeField(mpu.Size4GB)|mpu.RASREnable)
	program(b, 2, 0x20000000, mpu.SizeField(mpu.Size64KB)|mpu.RASREnable)
	program(b, 5, 0x20000000, mpu.SizeField(mpu.Size1KB)|mpu.RASREnable)

	cases := []struct {
		addr uint32
		want uint32
	}{
		{0x20000010, 5},
		{0x20000400, 2},
		{0x20010000, 0},
		{0x08000000, 0},
	}
	for _, c := range cases {
		got, ok := b.Resolve(c.addr)
		if !ok || got != c.want {
			t.Fatalf("Resolve(%#x) = (%d, %v), want %d", c.addr, got, ok, c.want)
		}
	}
}

func TestResolveSubregionFallsThrough(t *testing.T) {
	b := New(8)
	b.Write(mpu.RegCTRL, mpu.CtrlEnable)
	program(b, 1, 0x20000000, mpu.SizeField(mpu.Size64KB)|mpu.RASREnable)
	// 8 KiB sub-regions; disable the second one.
	program(b, 3, 0x20000000, 0x02<<8|mpu.SizeField(mpu.Size64KB)|mpu.RASREnable)
	if got, _ := b.Resolve(0x20000100); got != 3 {
		t.Fatalf("sub-region 0 resolved to %d, want 3", got)
	}
	if got, _ := b.Resolve(0x20002100); got != 1 {
		t.Fatalf("disabled sub-region resolved to %d, want 1", got)
	}
}

func TestResolveDisabledMPU(t *testing.T) {
	b := New(8)
	program(b, 0, 0, mpu.SizeField(mpu.Size4GB)|mpu.RASREnable)
	if _, ok := b.Resolve(0); ok {
		t.Fatal("Resolve with MPU off")
	}
}

func TestResetAndEvents(t *testing.T) {
	b := New(8)
	program(b, 2, 0x10000000, mpu.RASREnable)
	b.DSB()
	b.ISB()
	ev := b.Events()
	if len(ev) != 5 || ev[3].Kind != EvDSB || ev[4].Kind != EvISB {
		t.Fatalf("events = %+v", ev)
	}
	if b.Writes() != 3 {
		t.Fatalf("Writes = %d", b.Writes())
	}
	b.Reset()
	if len(b.Events()) != 0 {
		t.Fatal("Reset kept events")
	}
	if rbar, rasr, _ := b.Slot(2); rbar != 0 || rasr != 0 {
		t.Fatal("Reset kept region 2")
	}
	b.SetRecording(false)
	b.Write(mpu.RegCTRL, 1)
	if len(b.Events()) != 0 {
		t.Fatal("recording disabled but event captured")
	}
}
