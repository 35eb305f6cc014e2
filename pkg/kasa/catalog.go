package kasa

// DeviceInfo is one entry of the cloud device list.
type DeviceInfo struct {
	Alias        string `json:"alias"`
	DeviceType   string `json:"deviceType"`
	DeviceModel  string `json:"deviceModel"`
	DeviceID     string `json:"deviceId"`
	DeviceName   string `json:"deviceName,omitempty"`
	Status       int    `json:"status,omitempty"`
	FwVer        string `json:"fwVer,omitempty"`
	DeviceHwVer  string `json:"deviceHwVer,omitempty"`
	DeviceMac    string `json:"deviceMac,omitempty"`
	Role         int    `json:"role,omitempty"`
	AppServerURL string `json:"appServerUrl,omitempty"`
	OemID        string `json:"oemId,omitempty"`
	HwID         string `json:"hwId,omitempty"`
}

// Online reports the cloud's view of the device connection state.
func (d DeviceInfo) Online() bool {
	return d.Status == 1
}

// Catalog is an immutable snapshot of a device list, in the order the cloud
// returned it. A refresh replaces the whole snapshot.
type Catalog struct {
	devices []DeviceInfo
}

func NewCatalog(devices []DeviceInfo) Catalog {
	c := Catalog{
		devices: make([]DeviceInfo, len(devices)),
	}
	copy(c.devices, devices)
	return c
}

// Devices returns a copy of the snapshot entries.
func (c Catalog) Devices() []DeviceInfo {
	out := make([]DeviceInfo, len(c.devices))
	copy(out, c.devices)
	return out
}

func (c Catalog) Len() int {
	return len(c.devices)
}

// Find returns the first entry whose alias matches exactly. Duplicate aliases
// are not an error; the earliest entry wins.
func (c Catalog) Find(alias string) (DeviceInfo, bool) {
	for _, d := range c.devices {
		if d.Alias == alias {
			return d, true
		}
	}

	return DeviceInfo{}, false
}
