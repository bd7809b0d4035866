//go:build cortexm && !rp2040

package platform

import (
	"io"
	"machine"
	"time"
)

// serialReader polls the default serial port; Serial has no blocking read.
type serialReader struct{}

func (serialReader) Read(b []byte) (int, error) {
	for machine.Serial.Buffered() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	n := 0
	for n < len(b) && machine.Serial.Buffered() > 0 {
		c, err := machine.Serial.ReadByte()
		if err != nil {
			return n, err
		}
		b[n] = c
		n++
	}
	return n, nil
}

// Console uses the board's default serial port.
func Console() (io.Reader, io.Writer) { return serialReader{}, machine.Serial }
