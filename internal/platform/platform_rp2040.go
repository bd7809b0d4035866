//go:build rp2040

package platform

import (
	"context"
	"io"
	"machine"

	"mpuguard-go/drivers/mpu"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// Console UART wiring on the Pico: GP0 TX, GP1 RX.
const (
	consoleTX   = 0
	consoleRX   = 1
	consoleBaud = 115200
)

// Device names the embedded configuration for this build.
func Device() string { return "pico" }

// MPU returns the core's memory protection unit.
func MPU() mpu.Handle { return mpu.System() }

// uartReader adapts the interrupt-driven UART to io.Reader.
type uartReader struct{ u *uartx.UART }

func (r uartReader) Read(b []byte) (int, error) {
	return r.u.RecvSomeContext(context.Background(), b)
}

// Console configures UART0 and returns its two directions.
func Console() (io.Reader, io.Writer) {
	hw := uartx.UART0
	// Defaults inside uartx apply if zero.
	_ = hw.Configure(uartx.UARTConfig{
		BaudRate: consoleBaud,
		TX:       machine.Pin(consoleTX),
		RX:       machine.Pin(consoleRX),
	})
	return uartReader{u: hw}, hw
}
