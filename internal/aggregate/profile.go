package aggregate

import (
	"strings"
	"time"

	"netmon/internal/model"
)

// DeviceProfile is the detail view of one host.
type DeviceProfile struct {
	HostID        string                      `json:"hostid"`
	DeviceID      string                      `json:"device_id"`
	DeviceName    string                      `json:"device_name"`
	DeviceType    string                      `json:"device_type"`
	Location      string                      `json:"location"`
	Geo           *model.Geo                  `json:"geo"`
	LastSeen      time.Time                   `json:"last_seen"`
	SystemInfo    map[string]any              `json:"system_info"`
	SystemMetrics SystemMetrics               `json:"system_metrics"`
	Interfaces    map[string]*InterfaceDetail `json:"interfaces"`
}

type SystemMetrics struct {
	Memory   map[string]any `json:"memory"`
	CPU      map[string]any `json:"cpu"`
	Hardware map[string]any `json:"hardware"`
	SNMP     map[string]any `json:"snmp"`
}

type Traffic struct {
	BitsReceived float64 `json:"bits_received"`
	BitsSent     float64 `json:"bits_sent"`
	ErrorsIn     float64 `json:"errors_in"`
	ErrorsOut    float64 `json:"errors_out"`
	DiscardedIn  float64 `json:"discarded_in"`
	DiscardedOut float64 `json:"discarded_out"`
}

type InterfaceDetail struct {
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	Speed    any       `json:"speed"`
	Duplex   string    `json:"duplex,omitempty"`
	Traffic  Traffic   `json:"traffic"`
	LastSeen time.Time `json:"last_seen"`
}

type profileRule struct {
	exact    []string
	contains string
	key      string
}

// Matched top to bottom, first hit wins within each table.
var systemInfoRules = []profileRule{
	{[]string{"system.name"}, "sysName", "system_name"},
	{[]string{"system.descr[sysDescr.0]"}, "sysDescr", "system_description"},
	{[]string{"system.contact[sysContact.0]"}, "sysContact", "system_contact"},
	{[]string{"system.location[sysLocation.0]"}, "sysLocation", "system_location"},
	{[]string{"system.sw.os[sysDescr.0]"}, "Cisco IOS", "os_version"},
	{[]string{"system.hw.model"}, "Hardware model", "hardware_model"},
	{[]string{"system.hw.serialnumber", "system.hw.serialnumber[entPhysicalSerialNum.1]"}, "Hardware serial", "hardware_serial"},
	{[]string{"system.hw.uptime[hrSystemUptime.0]"}, "hrSystemUptime", "uptime_hardware"},
	{[]string{"system.net.uptime[sysUpTime.0]"}, "sysUpTime", "uptime_network"},
}

var memoryRules = []profileRule{
	{[]string{"vm.memory.util[vm.memory.util.1]", "vm.memory.util[vm.memory.util.2]"}, "Memory utilization", "utilization"},
	{[]string{"vm.memory.free[ciscoMemoryPoolFree.1]", "vm.memory.free[ciscoMemoryPoolFree.2]"}, "", "free"},
	{[]string{"vm.memory.used[ciscoMemoryPoolUsed.1]", "vm.memory.used[ciscoMemoryPoolUsed.2]"}, "", "used"},
}

func (r profileRule) match(name string) bool {
	for _, e := range r.exact {
		if name == e {
			return true
		}
	}
	return r.contains != "" && strings.Contains(name, r.contains)
}

func applyRules(rules []profileRule, name string, v model.Value, into map[string]any) {
	for _, r := range rules {
		if r.match(name) {
			into[r.key] = v.Interface()
			return
		}
	}
}

func isOne(v model.Value) bool {
	f, ok := v.Float()
	return ok && f == 1
}

func normal(v model.Value) string {
	if isOne(v) {
		return "Normal"
	}
	return "Abnormal"
}

// ProfileDevice folds all metrics of one host into a device profile. Host
// identity comes from the newest metric. Returns false for no metrics.
func ProfileDevice(metrics []model.Metric) (DeviceProfile, bool) {
	if len(metrics) == 0 {
		return DeviceProfile{}, false
	}
	sorted := newestFirst(metrics)
	head := sorted[0].Meta

	p := DeviceProfile{
		HostID:     head.HostID,
		DeviceID:   head.DeviceID,
		DeviceName: head.DeviceID,
		DeviceType: head.DeviceType,
		Location:   head.Location,
		Geo:        head.Geo,
		LastSeen:   sorted[0].Timestamp,
		SystemInfo: map[string]any{},
		SystemMetrics: SystemMetrics{
			Memory:   map[string]any{},
			CPU:      map[string]any{},
			Hardware: map[string]any{},
			SNMP:     map[string]any{},
		},
		Interfaces: map[string]*InterfaceDetail{},
	}
	if p.DeviceType == "" {
		p.DeviceType = "Router"
	}
	if p.Location == "" {
		p.Location = Unknown
	}

	// oldest first so newer readings overwrite older ones
	for i := len(sorted) - 1; i >= 0; i-- {
		p.apply(sorted[i])
	}
	return p, true
}

func (p *DeviceProfile) apply(m model.Metric) {
	name, v := m.Name, m.Value

	applyRules(systemInfoRules, name, v, p.SystemInfo)
	applyRules(memoryRules, name, v, p.SystemMetrics.Memory)

	if name == "system.cpu.util[cpmCPUTotal5minRev.1]" || strings.Contains(name, "CPU utilization") {
		p.SystemMetrics.CPU["utilization"] = v.Interface()
	}

	hw := p.SystemMetrics.Hardware
	switch {
	case strings.HasPrefix(name, "sensor.fan.status") || strings.Contains(name, "Fan status"):
		hw["fan_status"] = normal(v)
	case strings.HasPrefix(name, "sensor.psu.status") || strings.Contains(name, "Power supply status"):
		hw["power_status"] = normal(v)
	case strings.HasPrefix(name, "sensor.temp.status") || strings.Contains(name, "Temperature status"):
		hw["temperature_status"] = normal(v)
	case strings.HasPrefix(name, "sensor.temp.value") || strings.Contains(name, "Temperature"):
		hw["temperature"] = v.Interface()
	}

	snmp := p.SystemMetrics.SNMP
	switch {
	case name == "zabbix[host,snmp,available]" || strings.Contains(name, "SNMP agent"):
		if isOne(v) {
			snmp["agent_availability"] = "Available"
		} else {
			snmp["agent_availability"] = "Unavailable"
		}
	case name == "snmptrap.fallback" || strings.Contains(name, "SNMP traps"):
		snmp["traps"] = v.Interface()
	}

	if m.Meta.IfDescr == "" {
		return
	}
	iface, ok := p.Interfaces[m.Meta.IfDescr]
	if !ok {
		iface = &InterfaceDetail{Name: m.Meta.IfDescr, Status: "Unknown", LastSeen: m.Timestamp}
		p.Interfaces[m.Meta.IfDescr] = iface
	}
	iface.apply(name, v)
	if m.Timestamp.After(iface.LastSeen) {
		iface.LastSeen = m.Timestamp
	}
}

var duplexNames = map[float64]string{1: "Half", 2: "Full", 3: "Auto"}

func (d *InterfaceDetail) apply(name string, v model.Value) {
	f, _ := v.Float()
	has := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(name, s) {
				return true
			}
		}
		return false
	}

	switch {
	case has("net.if.status", "ifOperStatus", "Operational status"):
		if isOne(v) {
			d.Status = "Up"
		} else {
			d.Status = "Down"
		}
	case has("net.if.speed[ifHighSpeed", "ifSpeed", "Speed"):
		d.Speed = v.Interface()
	case has("net.if.duplex[dot3StatsDuplexStatus", "ifDuplex", "Duplex status"):
		if s, ok := duplexNames[f]; ok {
			d.Duplex = s
		} else {
			d.Duplex = "Unknown"
		}
	case has("net.if.in.errors[", "ifInErrors", "Inbound packets with errors"):
		d.Traffic.ErrorsIn = f
	case has("net.if.out.errors[", "ifOutErrors", "Outbound packets with errors"):
		d.Traffic.ErrorsOut = f
	case has("net.if.in.discards[", "ifInDiscards", "Inbound packets discarded"):
		d.Traffic.DiscardedIn = f
	case has("net.if.out.discards[", "ifOutDiscards", "Outbound packets discarded"):
		d.Traffic.DiscardedOut = f
	case has("net.if.in[", "ifInOctets", "Bits received"):
		d.Traffic.BitsReceived = f
	case has("net.if.out[", "ifOutOctets", "Bits sent"):
		d.Traffic.BitsSent = f
	}
}
