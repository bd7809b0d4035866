package types

// MPU configuration supplied on topic "config/mpu".

type MPUConfig struct {
	Regions           []MPURegion `json:"regions"`
	Enable            bool        `json:"enable"`
	FaultHandlers     bool        `json:"fault_handlers,omitempty"`
	PrivilegedDefault bool        `json:"privileged_default,omitempty"`
	ClearUnused       bool        `json:"clear_unused,omitempty"`
}

// MPURegion describes one region in bytes and named attributes.
type MPURegion struct {
	Index  uint32 `json:"index"`
	Base   uint32 `json:"base"`
	Size   uint64 `json:"size"`             // bytes, power of two >= 32
	Access string `json:"access"`           // see Access* names
	Memory string `json:"memory,omitempty"` // see Mem* names
	XN     bool   `json:"xn,omitempty"`
	SRD    uint8  `json:"srd,omitempty"`
}

// Access permission names.
const (
	AccessNone         = "none"
	AccessPrivRW       = "priv_rw"
	AccessPrivRWUserRO = "priv_rw_user_ro"
	AccessFull         = "rw"
	AccessPrivRO       = "priv_ro"
	AccessReadOnly     = "ro"
)

// Memory type names.
const (
	MemStronglyOrdered = "strongly_ordered"
	MemDevice          = "device"
	MemNormalWT        = "normal_wt"
	MemNormalWB        = "normal_wb"
	MemNormalNC        = "normal_nc"
	MemNormalWBWA      = "normal_wbwa"
)

// MPUStatus is retained on "mpu/status".
type MPUStatus struct {
	Present           bool   `json:"present"`
	Regions           uint32 `json:"regions"`
	Control           uint32 `json:"control"`
	Enabled           bool   `json:"enabled"`
	FaultHandlers     bool   `json:"fault_handlers"`
	PrivilegedDefault bool   `json:"privileged_default"`
	Applied           int    `json:"applied"` // regions programmed by the last plan
	Error             string `json:"error,omitempty"`
	TS                int64  `json:"ts_ms"`
}

// RegionInfo is retained on "mpu/region/<index>".
type RegionInfo struct {
	Index      uint32 `json:"index"`
	Base       uint32 `json:"base"`
	Size       uint64 `json:"size"`
	Access     string `json:"access"`
	Memory     string `json:"memory"`
	XN         bool   `json:"xn"`
	SRD        uint8  `json:"srd"`
	Enabled    bool   `json:"enabled"`
	Attributes uint32 `json:"attributes"` // raw RASR
}

// EnableRequest is the payload of "mpu/control/enable".
type EnableRequest struct {
	FaultHandlers     bool `json:"fault_handlers"`
	PrivilegedDefault bool `json:"privileged_default"`
}
