package heartbeat

import (
	"context"
	"time"

	"mpuguard-go/bus"
	"mpuguard-go/types"
	"mpuguard-go/x/conv"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicMPUStatus       = bus.T("mpu", "status")
)

const defaultInterval = time.Second

type Service struct {
	status *types.MPUStatus
}

// Line formats one heartbeat with the last MPU status seen.
func (s *Service) Line(t time.Time) string {
	line := t.Format("15:04:05") + " Heartbeat"
	st := s.status
	switch {
	case st == nil:
		return line
	case !st.Present:
		return line + " mpu=absent"
	}
	line += " mpu="
	if st.Enabled {
		line += "on"
	} else {
		line += "off"
	}
	line += " ctrl=" + conv.Hex32(st.Control) + " regions=" + conv.U32(uint32(st.Applied)) + "/" + conv.U32(st.Regions)
	if st.Error != "" {
		line += " err=" + st.Error
	}
	return line
}

// intervalOf reads "interval" (seconds) from a heartbeat config object.
func intervalOf(payload any) (time.Duration, bool) {
	m, ok := payload.(map[string]any)
	if !ok {
		return 0, false
	}
	iv, ok := m["interval"].(float64)
	if !ok || iv <= 0 {
		return 0, false
	}
	return time.Duration(iv * float64(time.Second)), true
}

func (s *Service) serviceLoop(ctx context.Context, cfgSub, stSub *bus.Subscription) {
	defer cfgSub.Unsubscribe()
	defer stSub.Unsubscribe()

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return
		case t := <-tick.C:
			println("Info:", s.Line(t))
		case msg := <-stSub.Channel():
			if st, ok := msg.Payload.(types.MPUStatus); ok {
				s.status = &st
			}
		case msg := <-cfgSub.Channel():
			if d, ok := intervalOf(msg.Payload); ok {
				tick.Reset(d)
				println("Info:", "Heartbeat interval set to", d.String())
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	stSub := conn.Subscribe(topicMPUStatus)
	go s.serviceLoop(ctx, cfgSub, stSub)
	return nil
}
