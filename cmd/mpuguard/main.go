package main

import (
	"context"
	"time"

	"mpuguard-go/bus"
	"mpuguard-go/internal/platform"
	"mpuguard-go/services/config"
	"mpuguard-go/services/console"
	"mpuguard-go/services/heartbeat"
	"mpuguard-go/services/protect"
	"mpuguard-go/types"
)

func printTopicWith(prefix string, t bus.Topic) {
	print(prefix)
	print(" ")
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			print("/")
		}
		switch v := t.At(i).(type) {
		case string:
			print(v)
		case int:
			print(v)
		default:
			print("?")
		}
	}
	println()
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot", platform.Device())

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, platform.Device())

	b := bus.NewBus(8)
	mon := b.NewConnection("monitor").Subscribe(bus.T("mpu", "status"))
	go func() {
		for m := range mon.Channel() {
			printTopicWith("[monitor] <-", m.Topic)
			if st, ok := m.Payload.(types.MPUStatus); ok && st.Error != "" {
				println("[monitor] error:", st.Error)
			}
		}
	}()

	h := platform.MPU()

	println("[main] starting protect …")
	if err := protect.New(h).Start(ctx, b.NewConnection("protect")); err != nil {
		println("Error:", "protect:", err.Error())
	}
	hb := &heartbeat.Service{}
	if err := hb.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		println("Error:", "heartbeat:", err.Error())
	}

	// Config last so retained plans land on live subscribers.
	println("[main] publishing config …")
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	r, w := platform.Console()
	if err := console.New(h, w).Run(ctx, r); err != nil {
		println("Error:", "console:", err.Error())
	}
	println("[main] console closed")
	select {}
}
