package aggregate

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"netmon/internal/health"
	"netmon/internal/model"
)

const Unknown = "Unknown"

var unknownLocationRe = regexp.MustCompile(`(?i)unknown location`)

// CategorizeDeviceType guesses a device category from its id. The checks are
// plain substring matches in a fixed order, so "rt" inside "smartphone" still
// reads as a router.
func CategorizeDeviceType(deviceID string) string {
	id := strings.ToLower(deviceID)
	switch {
	case strings.Contains(id, "switch") || strings.Contains(id, "sw"):
		return "switches"
	case strings.Contains(id, "router") || strings.Contains(id, "rt"):
		return "routers"
	case strings.Contains(id, "pc") || strings.Contains(id, "computer") ||
		strings.Contains(id, "desktop") || strings.Contains(id, "laptop"):
		return "pcs"
	case strings.Contains(id, "interface") || strings.Contains(id, "port") || strings.Contains(id, "eth"):
		return "interfaces"
	default:
		return "other"
	}
}

// Distribution counts devices per category.
type Distribution struct {
	Switches   int `json:"switches"`
	Routers    int `json:"routers"`
	PCs        int `json:"pcs"`
	Interfaces int `json:"interfaces"`
	Other      int `json:"other"`
}

func (d *Distribution) Add(category string) {
	switch category {
	case "switches":
		d.Switches++
	case "routers":
		d.Routers++
	case "pcs":
		d.PCs++
	case "interfaces":
		d.Interfaces++
	default:
		d.Other++
	}
}

func (d *Distribution) Merge(o Distribution) {
	d.Switches += o.Switches
	d.Routers += o.Routers
	d.PCs += o.PCs
	d.Interfaces += o.Interfaces
	d.Other += o.Other
}

// Hierarchy places a location string in the country/city/office tree.
type Hierarchy struct {
	Country  string `json:"country"`
	City     string `json:"city"`
	Office   string `json:"office"`
	FullPath string `json:"fullPath"`
}

// ResolveHierarchy reads "Office, City, Country" from a location string.
// Missing parts fall back to the geo city and country, then to Unknown.
func ResolveHierarchy(location string, geo *model.Geo) Hierarchy {
	var parts []string
	for _, p := range strings.Split(location, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	h := Hierarchy{Office: Unknown, City: Unknown, Country: Unknown}
	if len(parts) > 0 {
		h.Office = parts[0]
	}
	if len(parts) > 1 {
		h.City = parts[1]
	}
	if len(parts) > 2 {
		h.Country = parts[len(parts)-1]
	}
	if geo != nil {
		if h.City == Unknown && geo.City != "" {
			h.City = geo.City
		}
		if h.Country == Unknown && geo.Country != "" {
			h.Country = geo.Country
		}
	}
	h.FullPath = h.Country + " > " + h.City + " > " + h.Office
	return h
}

// LocationDevice is a device listed under a location.
type LocationDevice struct {
	HostID     string    `json:"hostid"`
	DeviceID   string    `json:"device_id"`
	Status     string    `json:"status"`
	Severity   string    `json:"severity"`
	LastSeen   time.Time `json:"last_seen"`
	DeviceType string    `json:"deviceType"`
}

// Location is one location string with its devices and health buckets.
type Location struct {
	Location           string           `json:"location"`
	Hierarchy          Hierarchy        `json:"hierarchy"`
	DeviceCount        int              `json:"deviceCount"`
	HealthyDevices     int              `json:"healthyDevices"`
	WarningDevices     int              `json:"warningDevices"`
	CriticalDevices    int              `json:"criticalDevices"`
	LastSeen           *time.Time       `json:"lastSeen"`
	DeviceDistribution Distribution     `json:"deviceDistribution"`
	Devices            []LocationDevice `json:"devices"`
}

func (l *Location) add(d LocationDevice) {
	l.Devices = append(l.Devices, d)
	l.DeviceCount++
	l.DeviceDistribution.Add(d.DeviceType)
	switch health.Bucket(d.Severity) {
	case "critical":
		l.CriticalDevices++
	case "warning":
		l.WarningDevices++
	default:
		l.HealthyDevices++
	}
	l.LastSeen = later(l.LastSeen, d.LastSeen)
}

func later(cur *time.Time, t time.Time) *time.Time {
	if cur == nil || t.After(*cur) {
		return &t
	}
	return cur
}

// BuildLocations groups hosts by location string. Hosts with no location, or
// an "Unknown Location" placeholder, are left out. A non-empty filter keeps
// only the location equal to it, ignoring case. Hosts should already carry
// their latest alert (see ApplyAlerts).
func BuildLocations(hosts []HostSummary, filter string) []Location {
	index := make(map[string]int)
	out := make([]Location, 0)

	for _, h := range hosts {
		if h.Location == "" || unknownLocationRe.MatchString(h.Location) {
			continue
		}
		if filter != "" && !strings.EqualFold(h.Location, filter) {
			continue
		}
		i, ok := index[h.Location]
		if !ok {
			i = len(out)
			index[h.Location] = i
			out = append(out, Location{
				Location:  h.Location,
				Hierarchy: ResolveHierarchy(h.Location, h.Geo),
				Devices:   make([]LocationDevice, 0),
			})
		}

		status, severity := h.Status, h.Severity
		if status == "" {
			status = DefaultHostStatus
		}
		if severity == "" {
			severity = DefaultHostSeverity
		}
		out[i].add(LocationDevice{
			HostID:     h.HostID,
			DeviceID:   h.DeviceID,
			Status:     status,
			Severity:   severity,
			LastSeen:   h.LastSeen,
			DeviceType: CategorizeDeviceType(h.DeviceID),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// Node is one level of the country/city/office tree.
type Node struct {
	Level              string        `json:"level"`
	Name               string        `json:"name"`
	Path               string        `json:"path"`
	DeviceCount        int           `json:"deviceCount"`
	HealthyDevices     int           `json:"healthyDevices"`
	WarningDevices     int           `json:"warningDevices"`
	CriticalDevices    int           `json:"criticalDevices"`
	LastSeen           *time.Time    `json:"lastSeen"`
	Children           []*Node       `json:"children"`
	DeviceDistribution *Distribution `json:"deviceDistribution,omitempty"`
}

func (n *Node) absorb(l Location) {
	n.DeviceCount += l.DeviceCount
	n.HealthyDevices += l.HealthyDevices
	n.WarningDevices += l.WarningDevices
	n.CriticalDevices += l.CriticalDevices
	if l.LastSeen != nil {
		n.LastSeen = later(n.LastSeen, *l.LastSeen)
	}
}

func (n *Node) child(level, name, path string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	c := &Node{Level: level, Name: name, Path: path, Children: make([]*Node, 0)}
	n.Children = append(n.Children, c)
	return c
}

// BuildHierarchy folds locations into a country > city > office tree. Counts
// roll up to every level. Unknown countries and cities are dropped.
func BuildHierarchy(locations []Location) []*Node {
	root := &Node{}

	for _, l := range locations {
		h := l.Hierarchy
		country := root.child("country", h.Country, "/"+strings.ToLower(h.Country))
		city := country.child("city", h.City, country.Path+"/"+strings.ToLower(h.City))
		office := city.child("office", h.Office, city.Path+"/"+strings.ToLower(h.Office))
		if office.DeviceDistribution == nil {
			office.DeviceDistribution = &Distribution{}
		}
		office.DeviceDistribution.Merge(l.DeviceDistribution)

		office.absorb(l)
		city.absorb(l)
		country.absorb(l)
	}

	out := make([]*Node, 0, len(root.Children))
	for _, country := range root.Children {
		if country.Name == Unknown {
			continue
		}
		cities := make([]*Node, 0, len(country.Children))
		for _, city := range country.Children {
			if city.Name != Unknown {
				cities = append(cities, city)
			}
		}
		country.Children = cities
		out = append(out, country)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
