// Package protect applies the configured memory protection plan at boot
// and exposes the MPU state on the bus.
package protect

import (
	"context"
	"time"

	"mpuguard-go/bus"
	"mpuguard-go/drivers/mpu"
	"mpuguard-go/errcode"
	"mpuguard-go/types"
	"mpuguard-go/x/conv"
)

var (
	topicConfigMPU = bus.T("config", "mpu")
	topicControl   = bus.T("mpu", "control", "+")
	TopicStatus    = bus.T("mpu", "status")
)

// TopicRegion is the retained topic of one region's info.
func TopicRegion(i uint32) bus.Topic { return bus.T("mpu", "region", int(i)) }

// TopicControl is the request topic of a control verb.
func TopicControl(verb string) bus.Topic { return bus.T("mpu", "control", verb) }

type Service struct {
	h   mpu.Handle
	now func() time.Time

	applied int
	lastErr error
}

func New(h mpu.Handle) *Service {
	if h == nil {
		h = mpu.Absent{}
	}
	return &Service{h: h, now: time.Now}
}

// Apply programs a plan: disable, clear unused slots if asked, load the
// table, then enable with the plan's options. Nothing is written if the plan
// does not compile.
func (s *Service) Apply(cfg types.MPUConfig) error {
	if !s.h.Present() {
		return errcode.NotPresent
	}
	table, err := Compile(s.h, cfg)
	if err != nil {
		return err
	}

	s.h.Disable()
	if cfg.ClearUnused {
		used := map[uint32]bool{}
		for _, d := range table {
			used[d.Index] = true
		}
		for i := uint32(0); i < s.h.Capability().RegionCount; i++ {
			if !used[i] {
				s.h.Clear(i)
			}
		}
	}
	if err := s.h.Load(table); err != nil {
		return err
	}
	if cfg.Enable {
		// A plan states the whole control word; flags from an earlier plan
		// do not carry over.
		s.h.SetControl(mpu.EnableOptions{
			FaultHandlers:     cfg.FaultHandlers,
			PrivilegedDefault: cfg.PrivilegedDefault,
		}.ControlWord())
	}
	s.applied = len(table)
	return nil
}

// Status reads the control state from hardware.
func (s *Service) Status() types.MPUStatus {
	st := types.MPUStatus{
		Present: s.h.Present(),
		Regions: s.h.Capability().RegionCount,
		Applied: s.applied,
		TS:      s.now().UnixMilli(),
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	if !st.Present {
		return st
	}
	ctrl := s.h.Control()
	st.Control = ctrl
	st.Enabled = ctrl&mpu.CtrlEnable != 0
	st.FaultHandlers = ctrl&mpu.CtrlHFNMIEna != 0
	st.PrivilegedDefault = ctrl&mpu.CtrlPrivDefEna != 0
	return st
}

// Regions reads back every slot.
func (s *Service) Regions() []types.RegionInfo {
	regs := s.h.Regions()
	out := make([]types.RegionInfo, 0, len(regs))
	for _, d := range regs {
		out = append(out, Info(d))
	}
	return out
}

// ---------------- Bus loop ----------------

func (s *Service) publishStatus(conn *bus.Connection) {
	conn.Publish(conn.NewMessage(TopicStatus, s.Status(), true))
}

func (s *Service) publishRegions(conn *bus.Connection) {
	for _, ri := range s.Regions() {
		conn.Publish(conn.NewMessage(TopicRegion(ri.Index), ri, true))
	}
}

func (s *Service) handlePlan(conn *bus.Connection, payload any) error {
	cfg, err := types.DecodeMPUConfig(payload)
	if err == nil {
		err = s.Apply(cfg)
	}
	s.lastErr = err
	if err != nil {
		println("Error:", "mpu: plan rejected:", err.Error())
	} else {
		println("Info:", "mpu: plan applied,", s.applied, "regions, ctrl", conv.Hex32(s.h.Control()))
		s.publishRegions(conn)
	}
	s.publishStatus(conn)
	return err
}

func (s *Service) handleControl(conn *bus.Connection, msg *bus.Message) {
	verb, _ := msg.Topic.At(msg.Topic.Len() - 1).(string)
	var rep types.Reply
	switch verb {
	case "status":
		rep = types.Reply{OK: true, Data: s.Status()}
	case "regions":
		if !s.h.Present() {
			rep = fail(errcode.NotPresent)
			break
		}
		rep = types.Reply{OK: true, Data: s.Regions()}
	case "read_region":
		n, ok := types.NumberOf(msg.Payload)
		if !ok || n > 0xFF {
			rep = fail(errcode.InvalidPayload)
			break
		}
		d, ok := s.h.ReadRegion(uint32(n))
		if !ok {
			rep = fail(errcode.InvalidRegion)
			break
		}
		rep = types.Reply{OK: true, Data: Info(d)}
	case "enable":
		if !s.h.Present() {
			rep = fail(errcode.NotPresent)
			break
		}
		req, ok := enableRequestOf(msg.Payload)
		if !ok {
			rep = fail(errcode.InvalidPayload)
			break
		}
		s.h.Enable(mpu.EnableOptions{FaultHandlers: req.FaultHandlers, PrivilegedDefault: req.PrivilegedDefault})
		s.publishStatus(conn)
		rep = types.Reply{OK: true, Data: s.Status()}
	case "disable":
		if !s.h.Present() {
			rep = fail(errcode.NotPresent)
			break
		}
		s.h.Disable()
		s.publishStatus(conn)
		rep = types.Reply{OK: true, Data: s.Status()}
	case "apply":
		if !s.h.Present() {
			rep = fail(errcode.NotPresent)
			break
		}
		if err := s.handlePlan(conn, msg.Payload); err != nil {
			rep = fail(err)
			break
		}
		rep = types.Reply{OK: true, Data: s.Status()}
	default:
		rep = fail(errcode.InvalidTopic)
	}
	conn.Reply(msg, rep)
}

func fail(err error) types.Reply {
	return types.Reply{Error: string(errcode.Of(err))}
}

func enableRequestOf(v any) (types.EnableRequest, bool) {
	switch x := v.(type) {
	case nil:
		return types.EnableRequest{}, true
	case types.EnableRequest:
		return x, true
	case mpu.EnableOptions:
		return types.EnableRequest{FaultHandlers: x.FaultHandlers, PrivilegedDefault: x.PrivilegedDefault}, true
	case map[string]any:
		fh, _ := x["fault_handlers"].(bool)
		pd, _ := x["privileged_default"].(bool)
		return types.EnableRequest{FaultHandlers: fh, PrivilegedDefault: pd}, true
	}
	return types.EnableRequest{}, false
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, cfgSub, ctrlSub *bus.Subscription) {
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(ctrlSub)

	for {
		select {
		case <-ctx.Done():
			println("Info: mpu service stopping")
			return
		case msg := <-cfgSub.Channel():
			// Without an MPU there is nothing to apply; the status published
			// at Start already says so.
			if msg.Payload == nil || !s.h.Present() {
				continue
			}
			_ = s.handlePlan(conn, msg.Payload)
		case msg := <-ctrlSub.Channel():
			s.handleControl(conn, msg)
		}
	}
}

// Start publishes the initial status and serves requests until ctx ends.
// Subscriptions are in place when Start returns.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.h.Present() {
		println("Info:", "mpu:", s.h.Capability().RegionCount, "regions")
	} else {
		println("Info:", "mpu: not present")
	}
	s.publishStatus(conn)

	cfgSub := conn.Subscribe(topicConfigMPU)
	ctrlSub := conn.Subscribe(topicControl)
	go s.serviceLoop(ctx, conn, cfgSub, ctrlSub)
	return nil
}
