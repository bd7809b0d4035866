package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

// RP2040: 2 MiB XIP flash at 0x10000000, 264 KiB SRAM at 0x20000000
// (256 KiB striped + two 4 KiB banks), peripherals from 0x40000000.
// Region 3 leaves the last 256 bytes of striped SRAM as a no-access
// stack guard.
const cfgPico = `{
  "mpu": {
    "enable": true,
    "privileged_default": true,
    "clear_unused": true,
    "regions": [
      {"index": 0, "base": "0x10000000", "size": "2M",   "access": "ro", "memory": "normal_wt"},
      {"index": 1, "base": "0x20000000", "size": "256K", "access": "rw", "memory": "normal_wb", "xn": true},
      {"index": 2, "base": "0x40000000", "size": "512M", "access": "rw", "memory": "device", "xn": true},
      {"index": 3, "base": "0x2003FF00", "size": 256,    "access": "none", "xn": true}
    ]
  },
  "heartbeat": {
      "interval": 2
  }
}`

const cfgHost = `{
  "mpu": {
    "enable": true,
    "fault_handlers": true,
    "regions": [
      {"index": 0, "base": 0, "size": "4G", "access": "none", "xn": true},
      {"index": 1, "base": "0x08000000", "size": "1M", "access": "ro", "memory": "normal_wt"},
      {"index": 2, "base": "0x20000000", "size": "128K", "access": "rw", "memory": "normal_wbwa", "xn": true}
    ]
  },
  "heartbeat": {
      "interval": 5
  }
}`

// Boards without a plan: RP2350 has no supported MPU, and a generic
// Cortex-M build has no known memory map.
const cfgNoPlan = `{
  "heartbeat": {
      "interval": 2
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico":    []byte(cfgPico),
	"host":    []byte(cfgHost),
	"pico2":   []byte(cfgNoPlan),
	"cortexm": []byte(cfgNoPlan),
}
