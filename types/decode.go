package types

import (
	"errors"

	"mpuguard-go/x/conv"
)

// Decoding from the untyped tree produced by the JSON parser
// (map[string]any, []any, float64, string, bool).

var (
	ErrNotObject   = errors.New("config is not an object")
	ErrBadRegions  = errors.New("regions is not a list")
	ErrBadNumber   = errors.New("invalid number")
	ErrMissingSize = errors.New("region size missing")
)

// DecodeMPUConfig accepts either a typed MPUConfig or a JSON object.
func DecodeMPUConfig(v any) (MPUConfig, error) {
	switch x := v.(type) {
	case MPUConfig:
		return x, nil
	case *MPUConfig:
		if x == nil {
			return MPUConfig{}, ErrNotObject
		}
		return *x, nil
	case map[string]any:
		return decodeMPUObject(x)
	}
	return MPUConfig{}, ErrNotObject
}

func decodeMPUObject(m map[string]any) (MPUConfig, error) {
	var cfg MPUConfig
	cfg.Enable = boolOf(m["enable"])
	cfg.FaultHandlers = boolOf(m["fault_handlers"])
	cfg.PrivilegedDefault = boolOf(m["privileged_default"])
	cfg.ClearUnused = boolOf(m["clear_unused"])

	raw, ok := m["regions"]
	if !ok || raw == nil {
		return cfg, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return cfg, ErrBadRegions
	}
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return cfg, ErrBadRegions
		}
		r, err := decodeRegion(obj, uint32(i))
		if err != nil {
			return cfg, err
		}
		cfg.Regions = append(cfg.Regions, r)
	}
	return cfg, nil
}

func decodeRegion(m map[string]any, defIndex uint32) (MPURegion, error) {
	r := MPURegion{Index: defIndex, Access: AccessNone}
	if v, ok := m["index"]; ok {
		n, ok := NumberOf(v)
		if !ok || n > 0xFF {
			return r, ErrBadNumber
		}
		r.Index = uint32(n)
	}
	if v, ok := m["base"]; ok {
		n, ok := NumberOf(v)
		if !ok || n > 0xFFFFFFFF {
			return r, ErrBadNumber
		}
		r.Base = uint32(n)
	}
	v, ok := m["size"]
	if !ok {
		return r, ErrMissingSize
	}
	size, ok := NumberOf(v)
	if !ok {
		return r, ErrBadNumber
	}
	r.Size = size
	if v, ok := m["srd"]; ok {
		n, ok := NumberOf(v)
		if !ok || n > 0xFF {
			return r, ErrBadNumber
		}
		r.SRD = uint8(n)
	}
	if s, ok := m["access"].(string); ok {
		r.Access = s
	}
	if s, ok := m["memory"].(string); ok {
		r.Memory = s
	}
	r.XN = boolOf(m["xn"])
	return r, nil
}

// NumberOf converts a JSON number or a numeric string ("0x20000000",
// "256K") to an unsigned integer.
func NumberOf(v any) (uint64, bool) {
	switch x := v.(type) {
	case float64:
		if x < 0 || x != float64(uint64(x)) {
			return 0, false
		}
		return uint64(x), true
	case int:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	case string:
		return conv.ParseU64(x)
	}
	return 0, false
}

func boolOf(v any) bool {
	b, _ := v.(bool)
	return b
}
