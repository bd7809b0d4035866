package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"mpuguard-go/drivers/mpu"
	"mpuguard-go/drivers/mpu/mpusim"
	"mpuguard-go/errcode"
	"mpuguard-go/services/protect"
	"mpuguard-go/types"
)

func newConsole(regions uint32) (*Console, *mpusim.Block, *bytes.Buffer) {
	sim := mpusim.New(regions)
	out := &bytes.Buffer{}
	return New(mpu.Open(sim, sim), out), sim, out
}

func TestInfo(t *testing.T) {
	c, _, out := newConsole(8)
	if err := c.Exec("enable privdef"); err != nil {
		t.Fatal(err)
	}
	if err := c.Exec("info"); err != nil {
		t.Fatal(err)
	}
	want := "mpu: 8 regions ctrl=0x00000005 enabled privdef rnr=0 sel=0\n"
	if out.String() != want {
		t.Fatalf("info = %q, want %q", out.String(), want)
	}
}

func TestInfoAbsent(t *testing.T) {
	c, _, out := newConsole(0)
	if err := c.Exec("info"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "mpu: not present\n" {
		t.Fatalf("info = %q", out.String())
	}
	if err := c.Exec("regions"); err != errcode.NotPresent {
		t.Fatalf("regions on absent: %v", err)
	}
}

func TestRawCursor(t *testing.T) {
	c, sim, out := newConsole(8)
	for _, line := range []string{"select 3", "addr 0x20000000", "attr 0x03000013"} {
		if err := c.Exec(line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	rbar, rasr, _ := sim.Slot(3)
	if rbar != 0x20000000 || rasr != 0x03000013 {
		t.Fatalf("slot 3 = %#x/%#x", rbar, rasr)
	}

	out.Reset()
	c.Exec("addr")
	c.Exec("attr")
	if got := out.String(); got != "rbar 0x20000000\nrasr 0x03000013\n" {
		t.Fatalf("readback = %q", got)
	}

	if err := c.Exec("select 8"); errcode.Of(err) != errcode.InvalidRegion {
		t.Fatalf("select 8: %v", err)
	}
	if got := sim.Read(mpu.RegRNR); got != 3 {
		t.Fatalf("cursor moved to %d", got)
	}
}

func TestRawWritesFollowSelectionNotCursor(t *testing.T) {
	c, sim, _ := newConsole(8)
	svc := protect.New(mpu.Open(sim, sim))

	if err := c.Exec("select 5"); err != nil {
		t.Fatal(err)
	}
	// Another user of the unit moves the hardware cursor in between.
	err := svc.Apply(types.MPUConfig{Enable: true, Regions: []types.MPURegion{
		{Index: 2, Base: 0x20000000, Size: 1024, Access: types.AccessFull},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if got := sim.Read(mpu.RegRNR); got != 2 {
		t.Fatalf("cursor after apply = %d, want 2", got)
	}

	if err := c.Exec("addr 0x30000000"); err != nil {
		t.Fatal(err)
	}
	if err := c.Exec("attr 0x0300000F"); err != nil {
		t.Fatal(err)
	}
	if rbar, rasr, _ := sim.Slot(5); rbar != 0x30000000 || rasr != 0x0300000F {
		t.Fatalf("slot 5 = %#x/%#x", rbar, rasr)
	}
	rbar, rasr, _ := sim.Slot(2)
	if rbar != 0x20000000 || rasr&mpu.RASREnable == 0 || mpu.SizeOf(rasr) != mpu.Size1KB {
		t.Fatalf("applied slot 2 disturbed: %#x/%#x", rbar, rasr)
	}
}

func TestRawAbsent(t *testing.T) {
	c, _, _ := newConsole(0)
	if err := c.Exec("select 0"); errcode.Of(err) != errcode.InvalidRegion {
		t.Fatalf("select on absent: %v", err)
	}
	for _, line := range []string{"addr", "attr 1"} {
		if err := c.Exec(line); err != errcode.NotPresent {
			t.Fatalf("%s on absent: %v", line, err)
		}
	}
}

func TestCtrl(t *testing.T) {
	c, sim, out := newConsole(8)
	if err := c.Exec("ctrl 0x3"); err != nil {
		t.Fatal(err)
	}
	if got := sim.Read(mpu.RegCTRL); got != 3 {
		t.Fatalf("ctrl = %#x", got)
	}
	c.Exec("disable")
	c.Exec("ctrl")
	if out.String() != "ctrl 0x00000002\n" {
		t.Fatalf("ctrl = %q", out.String())
	}
}

func TestSetAndRegion(t *testing.T) {
	c, sim, out := newConsole(8)
	if err := c.Exec("set 3 0x20000000 1K ap=rw mem=normal_wb xn"); err != nil {
		t.Fatal(err)
	}
	want := "r3 0x20000000 1K ap=rw mem=normal_wb xn on\n"
	if out.String() != want {
		t.Fatalf("set = %q, want %q", out.String(), want)
	}
	_, rasr, _ := sim.Slot(3)
	if mpu.SizeOf(rasr) != mpu.Size1KB || rasr&mpu.RASREnable == 0 || rasr&mpu.RASRXN == 0 {
		t.Fatalf("rasr = %#x", rasr)
	}

	out.Reset()
	if err := c.Exec("region 3"); err != nil {
		t.Fatal(err)
	}
	if out.String() != want {
		t.Fatalf("region = %q, want %q", out.String(), want)
	}

	out.Reset()
	if err := c.Exec("set 4 0x08000000 1M ap=ro tex=1 c b srd=0x80"); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "r4 0x08000000 1M ap=ro mem=normal_wbwa srd=0x80 on\n" {
		t.Fatalf("set 4 = %q", got)
	}

	if err := c.Exec("clear 3"); err != nil {
		t.Fatal(err)
	}
	if _, rasr, _ := sim.Slot(3); rasr != 0 {
		t.Fatalf("slot 3 not cleared: %#x", rasr)
	}
}

func TestSetRejects(t *testing.T) {
	c, sim, _ := newConsole(8)
	sim.ClearEvents()
	cases := []struct {
		line string
		want errcode.Code
	}{
		{"set 3 0x20000100 1K", errcode.Misaligned},
		{"set 3 0 1000", errcode.InvalidSize},
		{"set 9 0 32", errcode.InvalidRegion},
		{"set 3 0 64 srd=1", errcode.SubregionUnsupported},
		{"set 3 0 64 ap=9", errcode.InvalidParams},
		{"set 3 0 64 mem=flash", errcode.InvalidParams},
		{"set 3 0 64 bogus", errcode.InvalidParams},
		{"set 3 0", errcode.InvalidParams},
	}
	for _, tc := range cases {
		if err := c.Exec(tc.line); errcode.Of(err) != tc.want {
			t.Fatalf("%q: %v, want %q", tc.line, err, tc.want)
		}
	}
	if n := sim.Writes(); n != 0 {
		t.Fatalf("%d writes after rejected commands", n)
	}
}

func TestUnknownAndQuoting(t *testing.T) {
	c, _, _ := newConsole(8)
	if err := c.Exec("reboot now"); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("unknown: %v", err)
	}
	if err := c.Exec(`select "3`); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("unterminated quote: %v", err)
	}
	if err := c.Exec("   "); err != nil {
		t.Fatalf("blank: %v", err)
	}
}

func TestRun(t *testing.T) {
	c, sim, out := newConsole(8)
	in := strings.NewReader("enable hfnmi\r\nselect 9\nregion 0\n" + strings.Repeat("x", maxLine+1) + "\n")
	if err := c.Run(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if got := sim.Read(mpu.RegCTRL); got != mpu.CtrlEnable|mpu.CtrlHFNMIEna {
		t.Fatalf("ctrl = %#x", got)
	}
	got := out.String()
	for _, want := range []string{
		"error: select: invalid_region: 9\n",
		"r0 0x00000000 2 ap=none mem=strongly_ordered off\n",
		"error: line too long\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output %q missing %q", got, want)
		}
	}
	if strings.Count(got, prompt) != 5 {
		t.Fatalf("prompts in %q", got)
	}
}
