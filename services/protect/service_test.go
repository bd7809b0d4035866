package protect

import (
	"context"
	"testing"
	"time"

	"mpuguard-go/bus"
	"mpuguard-go/drivers/mpu"
	"mpuguard-go/drivers/mpu/mpusim"
	"mpuguard-go/errcode"
	"mpuguard-go/types"
)

func plan() types.MPUConfig {
	return types.MPUConfig{
		Enable:            true,
		PrivilegedDefault: true,
		ClearUnused:       true,
		Regions: []types.MPURegion{
			{Index: 0, Base: 0x10000000, Size: 2 << 20, Access: types.AccessReadOnly, Memory: types.MemNormalWT},
			{Index: 1, Base: 0x20000000, Size: 256 << 10, Access: types.AccessFull, Memory: types.MemNormalWB, XN: true},
			{Index: 3, Base: 0x2003FF00, Size: 256, Access: types.AccessNone, XN: true},
		},
	}
}

func TestApply(t *testing.T) {
	sim := mpusim.New(8)
	s := New(mpu.Open(sim, sim))

	// A stale slot that the plan does not mention.
	sim.Write(mpu.RegRNR, 5)
	sim.Write(mpu.RegRASR, mpu.SizeField(mpu.Size32B)|mpu.RASREnable)

	if err := s.Apply(plan()); err != nil {
		t.Fatal(err)
	}
	if got := sim.Read(mpu.RegCTRL); got != mpu.CtrlEnable|mpu.CtrlPrivDefEna {
		t.Fatalf("ctrl = %#x", got)
	}
	if _, rasr, _ := sim.Slot(5); rasr != 0 {
		t.Fatalf("unused slot 5 not cleared: %#x", rasr)
	}
	rbar, rasr, _ := sim.Slot(3)
	if rbar != 0x2003FF00 || rasr&mpu.RASREnable == 0 {
		t.Fatalf("slot 3 = %#x/%#x", rbar, rasr)
	}
	if i, ok := sim.Resolve(0x2003FF10); !ok || i != 3 {
		t.Fatalf("guard resolve = %d,%v", i, ok)
	}
	if i, ok := sim.Resolve(0x20001000); !ok || i != 1 {
		t.Fatalf("sram resolve = %d,%v", i, ok)
	}
	if st := s.Status(); !st.Enabled || !st.PrivilegedDefault || st.FaultHandlers || st.Applied != 3 {
		t.Fatalf("status = %+v", st)
	}
}

func TestApplyRejectsWithoutWriting(t *testing.T) {
	sim := mpusim.New(8)
	s := New(mpu.Open(sim, sim))
	sim.ClearEvents()

	cfg := plan()
	cfg.Regions[2].Base = 0x2003FF80 // not aligned to 256
	err := s.Apply(cfg)
	if errcode.Of(err) != errcode.Misaligned {
		t.Fatalf("err = %v", err)
	}
	if n := sim.Writes(); n != 0 {
		t.Fatalf("%d writes after rejected plan", n)
	}
}

func TestApplyWithoutEnableLeavesMPUOff(t *testing.T) {
	sim := mpusim.New(8)
	s := New(mpu.Open(sim, sim))
	sim.Write(mpu.RegCTRL, mpu.CtrlEnable|mpu.CtrlHFNMIEna)

	cfg := plan()
	cfg.Enable = false
	if err := s.Apply(cfg); err != nil {
		t.Fatal(err)
	}
	if got := sim.Read(mpu.RegCTRL); got != mpu.CtrlHFNMIEna {
		t.Fatalf("ctrl = %#x, want HFNMIENA only", got)
	}
}

func TestApplyReplacesControlFlags(t *testing.T) {
	sim := mpusim.New(8)
	s := New(mpu.Open(sim, sim))

	first := plan()
	first.FaultHandlers = true
	first.PrivilegedDefault = false
	if err := s.Apply(first); err != nil {
		t.Fatal(err)
	}
	if got := sim.Read(mpu.RegCTRL); got != mpu.CtrlEnable|mpu.CtrlHFNMIEna {
		t.Fatalf("ctrl after first plan = %#x", got)
	}
	if err := s.Apply(plan()); err != nil {
		t.Fatal(err)
	}
	if got := sim.Read(mpu.RegCTRL); got != mpu.CtrlEnable|mpu.CtrlPrivDefEna {
		t.Fatalf("ctrl after second plan = %#x, want ENABLE|PRIVDEFENA", got)
	}
}

func TestApplyAbsent(t *testing.T) {
	s := New(nil)
	if err := s.Apply(plan()); err != errcode.NotPresent {
		t.Fatalf("err = %v", err)
	}
	if st := s.Status(); st.Present || st.Regions != 0 || st.Control != 0 {
		t.Fatalf("status = %+v", st)
	}
}

// ---------------- Bus ----------------

func startService(t *testing.T, h mpu.Handle) (*bus.Bus, *bus.Connection) {
	t.Helper()
	b := bus.NewBus(16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := New(h).Start(ctx, b.NewConnection("protect")); err != nil {
		t.Fatal(err)
	}
	return b, b.NewConnection("test")
}

func request(t *testing.T, c *bus.Connection, verb string, payload any) types.Reply {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m, err := c.RequestWait(ctx, c.NewMessage(TopicControl(verb), payload, false))
	if err != nil {
		t.Fatalf("%s: %v", verb, err)
	}
	rep, ok := m.Payload.(types.Reply)
	if !ok {
		t.Fatalf("%s: payload %T", verb, m.Payload)
	}
	return rep
}

func waitStatus(t *testing.T, sub *bus.Subscription, cond func(types.MPUStatus) bool) types.MPUStatus {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case m := <-sub.Channel():
			if st, ok := m.Payload.(types.MPUStatus); ok && cond(st) {
				return st
			}
		case <-deadline:
			t.Fatal("timeout waiting for status")
		}
	}
}

func TestConfigTopicAppliesPlan(t *testing.T) {
	sim := mpusim.New(8)
	b, c := startService(t, mpu.Open(sim, sim))

	status := c.Subscribe(TopicStatus)
	c.Publish(b.NewMessage(bus.T("config", "mpu"), plan(), true))

	st := waitStatus(t, status, func(st types.MPUStatus) bool { return st.Applied == 3 })
	if !st.Present || !st.Enabled || st.Regions != 8 {
		t.Fatalf("status = %+v", st)
	}

	region := c.Subscribe(TopicRegion(3))
	select {
	case m := <-region.Channel():
		ri := m.Payload.(types.RegionInfo)
		if ri.Base != 0x2003FF00 || ri.Size != 256 || ri.Access != types.AccessNone || !ri.Enabled {
			t.Fatalf("region 3 = %+v", ri)
		}
	case <-time.After(time.Second):
		t.Fatal("no retained region info")
	}
}

func TestConfigTopicRejectedPlanReportsError(t *testing.T) {
	sim := mpusim.New(8)
	b, c := startService(t, mpu.Open(sim, sim))

	status := c.Subscribe(TopicStatus)
	bad := plan()
	bad.Regions[0].Size = 3000
	c.Publish(b.NewMessage(bus.T("config", "mpu"), bad, true))

	st := waitStatus(t, status, func(st types.MPUStatus) bool { return st.Error != "" })
	if st.Enabled || st.Applied != 0 {
		t.Fatalf("status = %+v", st)
	}
}

func TestControlRequests(t *testing.T) {
	sim := mpusim.New(8)
	_, c := startService(t, mpu.Open(sim, sim))

	rep := request(t, c, "enable", map[string]any{"fault_handlers": true})
	if !rep.OK {
		t.Fatalf("enable: %+v", rep)
	}
	if got := sim.Read(mpu.RegCTRL); got != mpu.CtrlEnable|mpu.CtrlHFNMIEna {
		t.Fatalf("ctrl after enable = %#x", got)
	}

	rep = request(t, c, "disable", nil)
	if st := rep.Data.(types.MPUStatus); !rep.OK || st.Enabled || !st.FaultHandlers {
		t.Fatalf("disable: %+v", rep)
	}

	rep = request(t, c, "apply", plan())
	if !rep.OK {
		t.Fatalf("apply: %+v", rep)
	}

	rep = request(t, c, "read_region", 1)
	if ri := rep.Data.(types.RegionInfo); !rep.OK || ri.Base != 0x20000000 || !ri.XN {
		t.Fatalf("read_region: %+v", rep)
	}
	rep = request(t, c, "read_region", 8)
	if rep.OK || rep.Error != string(errcode.InvalidRegion) {
		t.Fatalf("read_region 8: %+v", rep)
	}
	rep = request(t, c, "read_region", "x")
	if rep.Error != string(errcode.InvalidPayload) {
		t.Fatalf("read_region x: %+v", rep)
	}

	rep = request(t, c, "regions", nil)
	if rs := rep.Data.([]types.RegionInfo); len(rs) != 8 {
		t.Fatalf("regions: %+v", rep)
	}

	rep = request(t, c, "reboot", nil)
	if rep.Error != string(errcode.InvalidTopic) {
		t.Fatalf("unknown verb: %+v", rep)
	}
}

func TestControlAbsent(t *testing.T) {
	_, c := startService(t, mpu.Absent{})

	rep := request(t, c, "status", nil)
	if st := rep.Data.(types.MPUStatus); !rep.OK || st.Present {
		t.Fatalf("status: %+v", rep)
	}
	for _, verb := range []string{"enable", "disable", "regions", "apply"} {
		if rep := request(t, c, verb, nil); rep.Error != string(errcode.NotPresent) {
			t.Fatalf("%s: %+v", verb, rep)
		}
	}
}

func TestConfigPlanIgnoredWhenAbsent(t *testing.T) {
	b, c := startService(t, mpu.Absent{})

	status := c.Subscribe(TopicStatus)
	st := waitStatus(t, status, func(types.MPUStatus) bool { return true })
	if st.Present || st.Error != "" {
		t.Fatalf("initial status = %+v", st)
	}

	c.Publish(b.NewMessage(bus.T("config", "mpu"), plan(), true))
	select {
	case m := <-status.Channel():
		t.Fatalf("status republished after plan on absent MPU: %+v", m.Payload)
	case <-time.After(150 * time.Millisecond):
	}

	rep := request(t, c, "status", nil)
	if st := rep.Data.(types.MPUStatus); st.Error != "" || st.Applied != 0 {
		t.Fatalf("status after plan = %+v", st)
	}
}
