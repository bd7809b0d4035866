package main

import (
	"context"
	"time"

	"mpuguard-go/bus"
	"mpuguard-go/errcode"
	"mpuguard-go/internal/platform"
	"mpuguard-go/services/protect"
	"mpuguard-go/types"
	"mpuguard-go/x/conv"
)

// Self-test plan: a read-only window over flash and a 256-byte no-access
// guard near the top of SRAM. Everything else falls back to the privileged
// default map.
var testPlan = types.MPUConfig{
	Enable:            true,
	PrivilegedDefault: true,
	ClearUnused:       true,
	Regions: []types.MPURegion{
		{Index: 0, Base: 0x10000000, Size: 2 << 20, Access: types.AccessReadOnly, Memory: types.MemNormalWT},
		{Index: 7, Base: 0x2003FF00, Size: 256, Access: types.AccessNone, XN: true},
	},
}

func main() {
	println("[mpu] boot …")
	time.Sleep(1500 * time.Millisecond)

	ctx := context.Background()
	b := bus.NewBus(4)
	ui := b.NewConnection("ui")
	if err := protect.New(platform.MPU()).Start(ctx, b.NewConnection("protect")); err != nil {
		println("[mpu] FAIL: start:", err.Error())
		return
	}

	rep, ok := req(ui, "status", nil, 2*time.Second)
	if !ok {
		println("[mpu] FAIL: status no reply")
		return
	}
	st, _ := rep.Data.(types.MPUStatus)
	if !st.Present {
		println("[mpu] no MPU on this core; nothing to test")
		return
	}
	println("[mpu] regions=", st.Regions, "ctrl=", conv.Hex32(st.Control))

	pass, fail := 0, 0
	check := func(name string, ok bool) {
		if ok {
			pass++
			println("[mpu]", name+": PASS")
		} else {
			fail++
			println("[mpu]", name+": FAIL")
		}
	}

	// --- Apply ---
	rep, ok = req(ui, "apply", testPlan, 2*time.Second)
	check("apply", ok && rep.OK)

	// --- Readback ---
	for _, r := range testPlan.Regions {
		rep, ok = req(ui, "read_region", int(r.Index), time.Second)
		ri, _ := rep.Data.(types.RegionInfo)
		check("readback r"+conv.U32(r.Index),
			ok && rep.OK && ri.Enabled && ri.Base == r.Base && ri.Size == r.Size && ri.Access == r.Access)
	}

	// --- Rejection leaves state untouched ---
	bad := testPlan
	bad.Regions = []types.MPURegion{{Index: 1, Base: 0x20000080, Size: 256, Access: types.AccessFull}}
	rep, ok = req(ui, "apply", bad, time.Second)
	check("reject misaligned", ok && !rep.OK && rep.Error == string(errcode.Misaligned))
	rep, ok = req(ui, "read_region", 7, time.Second)
	ri, _ := rep.Data.(types.RegionInfo)
	check("guard survives reject", ok && ri.Enabled)

	// --- Control ---
	rep, ok = req(ui, "disable", nil, time.Second)
	st, _ = rep.Data.(types.MPUStatus)
	check("disable", ok && rep.OK && !st.Enabled && st.PrivilegedDefault)
	rep, ok = req(ui, "enable", types.EnableRequest{PrivilegedDefault: true}, time.Second)
	st, _ = rep.Data.(types.MPUStatus)
	check("enable", ok && rep.OK && st.Enabled)

	println("[mpu] done: pass=", pass, "fail=", fail)
}

// ---------------- helpers ----------------

func req(ui *bus.Connection, verb string, payload any, to time.Duration) (types.Reply, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), to)
	defer cancel()
	m, err := ui.RequestWait(ctx, ui.NewMessage(protect.TopicControl(verb), payload, false))
	if err != nil {
		return types.Reply{}, false
	}
	rep, ok := m.Payload.(types.Reply)
	return rep, ok
}
