// Package console is a line-oriented MPU shell for the serial port.
//
// Raw commands (select, addr, attr, ctrl) are meant for bring-up. select
// only records the console's own region; addr and attr then act on it
// inside a driver Section, so other users of the cursor cannot redirect
// them. region, set and clear use the driver's typed helpers.
package console

import (
	"context"
	"errors"
	"io"
	"strings"

	"mpuguard-go/drivers/mpu"
	"mpuguard-go/errcode"
	"mpuguard-go/services/protect"
	"mpuguard-go/x/conv"

	"github.com/google/shlex"
)

const (
	prompt  = "mpu> "
	maxLine = 160
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrLineTooLong    = errors.New("line too long")
)

const usage = `commands:
  info                       capability and control state
  ctrl [value]               read or write MPU_CTRL
  select <i>                 choose the region addr and attr act on
  addr [value]               read or write RBAR of the selected region
  attr [value]               read or write RASR of the selected region
  region <i>                 decode one region
  regions                    decode every region
  enable [hfnmi] [privdef]   enable the MPU
  disable                    disable the MPU
  clear <i>                  disable one region
  set <i> <base> <size> [ap=] [mem=] [xn] [tex=] [s] [c] [b] [srd=]
`

type Console struct {
	h   mpu.Handle
	w   io.Writer
	sel uint32 // region targeted by addr and attr
}

func New(h mpu.Handle, w io.Writer) *Console {
	if h == nil {
		h = mpu.Absent{}
	}
	return &Console{h: h, w: w}
}

func (c *Console) print(parts ...string) {
	io.WriteString(c.w, strings.Join(parts, " ")+"\n")
}

// Run reads lines from r and executes them until ctx ends or r is
// exhausted. Command errors are printed, not returned.
func (c *Console) Run(ctx context.Context, r io.Reader) error {
	var buf [64]byte
	line := make([]byte, 0, maxLine)
	overflow := false
	io.WriteString(c.w, prompt)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := r.Read(buf[:])
		for _, b := range buf[:n] {
			switch b {
			case '\r', '\n':
				if overflow {
					c.print("error:", ErrLineTooLong.Error())
				} else if len(line) > 0 {
					c.exec(string(line))
				}
				if overflow || len(line) > 0 {
					io.WriteString(c.w, prompt)
				}
				line, overflow = line[:0], false
			default:
				if len(line) == maxLine {
					overflow = true
					continue
				}
				line = append(line, b)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (c *Console) exec(line string) {
	if err := c.Exec(line); err != nil {
		c.print("error:", err.Error())
	}
}

// Exec runs one command line.
func (c *Console) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "parse", Err: err, Msg: err.Error()}
	}
	if len(args) == 0 {
		return nil
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "help", "?":
		io.WriteString(c.w, usage)
	case "info":
		c.info()
	case "ctrl":
		if len(args) == 0 {
			c.print("ctrl", conv.Hex32(c.h.Control()))
			return nil
		}
		v, err := number(cmd, args[0])
		if err != nil {
			return err
		}
		c.h.SetControl(v)
	case "select":
		i, err := index(cmd, args)
		if err != nil {
			return err
		}
		if !c.h.ValidRegion(i) {
			return &errcode.E{C: errcode.InvalidRegion, Op: cmd, Msg: args[0]}
		}
		c.sel = i
	case "addr", "attr":
		return c.raw(cmd, args)
	case "region":
		i, err := index(cmd, args)
		if err != nil {
			return err
		}
		d, ok := c.h.ReadRegion(i)
		if !ok {
			return &errcode.E{C: errcode.InvalidRegion, Op: cmd, Msg: args[0]}
		}
		c.print(describe(d))
	case "regions":
		if !c.h.Present() {
			return errcode.NotPresent
		}
		for _, d := range c.h.Regions() {
			c.print(describe(d))
		}
	case "enable":
		var opts mpu.EnableOptions
		for _, a := range args {
			switch a {
			case "hfnmi":
				opts.FaultHandlers = true
			case "privdef":
				opts.PrivilegedDefault = true
			default:
				return &errcode.E{C: errcode.InvalidParams, Op: cmd, Msg: a}
			}
		}
		c.h.Enable(opts)
	case "disable":
		c.h.Disable()
	case "clear":
		i, err := index(cmd, args)
		if err != nil {
			return err
		}
		if !c.h.Clear(i) {
			return &errcode.E{C: errcode.InvalidRegion, Op: cmd, Msg: args[0]}
		}
	case "set":
		d, err := parseSet(args)
		if err != nil {
			return err
		}
		if err := c.h.Program(d); err != nil {
			return &errcode.E{C: errcode.Of(err), Op: cmd, Msg: "region " + conv.U32(d.Index), Err: err}
		}
		c.print(describe(d))
	default:
		return &errcode.E{C: errcode.InvalidParams, Op: cmd, Msg: ErrUnknownCommand.Error(), Err: ErrUnknownCommand}
	}
	return nil
}

// raw reads or writes RBAR/RASR of the selected region under its Section.
func (c *Console) raw(cmd string, args []string) error {
	var v uint32
	if len(args) > 0 {
		var err error
		if v, err = number(cmd, args[0]); err != nil {
			return err
		}
	}
	if !c.h.Present() {
		return errcode.NotPresent
	}
	s, ok := c.h.Region(c.sel)
	if !ok {
		return &errcode.E{C: errcode.InvalidRegion, Op: cmd, Msg: conv.U32(c.sel)}
	}
	defer s.Release()

	switch {
	case cmd == "addr" && len(args) == 0:
		c.print("rbar", conv.Hex32(s.Address()))
	case cmd == "addr":
		s.SetAddress(v)
	case len(args) == 0:
		c.print("rasr", conv.Hex32(s.Attributes()))
	default:
		s.SetAttributes(v)
	}
	return nil
}

func (c *Console) info() {
	if !c.h.Present() {
		c.print("mpu: not present")
		return
	}
	ctrl := c.h.Control()
	line := []string{"mpu:", conv.U32(c.h.Capability().RegionCount), "regions", "ctrl=" + conv.Hex32(ctrl)}
	if ctrl&mpu.CtrlEnable != 0 {
		line = append(line, "enabled")
	} else {
		line = append(line, "disabled")
	}
	if ctrl&mpu.CtrlHFNMIEna != 0 {
		line = append(line, "hfnmi")
	}
	if ctrl&mpu.CtrlPrivDefEna != 0 {
		line = append(line, "privdef")
	}
	line = append(line, "rnr="+conv.U32(c.h.CurrentRegion()), "sel="+conv.U32(c.sel))
	c.print(line...)
}

// describe renders one region on a single line.
func describe(d mpu.RegionDescriptor) string {
	parts := []string{
		"r" + conv.U32(d.Index),
		conv.Hex32(d.Base),
		conv.Size(d.Bytes()),
		"ap=" + protect.AccessName(d.Access),
		"mem=" + protect.MemoryName(d.Memory),
	}
	if d.ExecuteNever {
		parts = append(parts, "xn")
	}
	if d.SubRegionDisable != 0 {
		parts = append(parts, "srd="+hex8(d.SubRegionDisable))
	}
	if d.Enabled {
		parts = append(parts, "on")
	} else {
		parts = append(parts, "off")
	}
	return strings.Join(parts, " ")
}

func hex8(v uint8) string {
	const digits = "0123456789ABCDEF"
	return "0x" + string([]byte{digits[v>>4], digits[v&0xF]})
}

func number(op, s string) (uint32, error) {
	v, ok := conv.ParseU32(s)
	if !ok {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "bad number " + s}
	}
	return v, nil
}

func index(op string, args []string) (uint32, error) {
	if len(args) != 1 {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "want <index>"}
	}
	return number(op, args[0])
}

// parseSet builds an enabled descriptor from "set" arguments. Defaults are
// no access and TEX/C/B all zero (strongly-ordered). Flags apply in order,
// so mem= overrides any s, c, b or tex= before it.
func parseSet(args []string) (mpu.RegionDescriptor, error) {
	const op = "set"
	if len(args) < 3 {
		return mpu.RegionDescriptor{}, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "want <i> <base> <size>"}
	}
	i, err := number(op, args[0])
	if err != nil {
		return mpu.RegionDescriptor{}, err
	}
	base, err := number(op, args[1])
	if err != nil {
		return mpu.RegionDescriptor{}, err
	}
	n, ok := conv.ParseU64(args[2])
	if !ok {
		return mpu.RegionDescriptor{}, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "bad number " + args[2]}
	}
	size, ok := mpu.SizeFor(n)
	if !ok {
		return mpu.RegionDescriptor{}, &errcode.E{C: errcode.InvalidSize, Op: op, Msg: args[2]}
	}
	d := mpu.RegionDescriptor{Index: i, Base: base, Size: size, Enabled: true}

	for _, a := range args[3:] {
		key, val, hasVal := strings.Cut(a, "=")
		switch {
		case !hasVal && key == "xn":
			d.ExecuteNever = true
		case !hasVal && key == "s":
			d.Memory.Shareable = true
		case !hasVal && key == "c":
			d.Memory.Cacheable = true
		case !hasVal && key == "b":
			d.Memory.Bufferable = true
		case hasVal && key == "ap":
			if ap, ok := protect.AccessOf(val); ok {
				d.Access = ap
				break
			}
			v, err := number(op, val)
			if err != nil || v > 7 {
				return mpu.RegionDescriptor{}, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: a}
			}
			d.Access = mpu.AccessPermission(v)
		case hasVal && key == "mem":
			mt, ok := protect.MemoryOf(val)
			if !ok {
				return mpu.RegionDescriptor{}, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: a}
			}
			d.Memory = mt
		case hasVal && key == "tex":
			v, err := number(op, val)
			if err != nil || v > 7 {
				return mpu.RegionDescriptor{}, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: a}
			}
			d.Memory.TEX = uint8(v)
		case hasVal && key == "srd":
			v, err := number(op, val)
			if err != nil || v > 0xFF {
				return mpu.RegionDescriptor{}, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: a}
			}
			d.SubRegionDisable = uint8(v)
		default:
			return mpu.RegionDescriptor{}, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: a}
		}
	}
	return d, nil
}
