package service

import (
	"context"
	"sort"

	"netmon/internal/health"
	"netmon/internal/model"
)

type CityHealth struct {
	Country string       `json:"country"`
	City    string       `json:"city"`
	Offices int          `json:"offices"`
	Devices int          `json:"devices"`
	Health  health.Score `json:"health"`
}

type CityHealthResult struct {
	Success bool         `json:"success"`
	Cities  []CityHealth `json:"cities"`
	Count   int          `json:"count"`
}

type cityKey struct{ country, city string }

// groupCities buckets offices by (country, city), keeping office order.
func groupCities(offices []model.Office) ([]cityKey, map[cityKey][]model.Office) {
	var order []cityKey
	groups := make(map[cityKey][]model.Office)
	for _, o := range offices {
		k := cityKey{o.Country, o.City}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], o)
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].country != order[j].country {
			return order[i].country < order[j].country
		}
		return order[i].city < order[j].city
	})
	return order, groups
}

func (s *Service) officesWithCounts(ctx context.Context, f model.OfficeFilter) ([]model.Office, error) {
	views, err := s.liveOffices(ctx, f)
	if err != nil {
		return nil, err
	}
	offices := make([]model.Office, len(views))
	for i, v := range views {
		offices[i] = v.Office
	}
	return offices, nil
}

// CityHealth scores every city from its offices: active with devices is
// healthy, active without devices degraded, inactive down.
func (s *Service) CityHealth(ctx context.Context, country string) (CityHealthResult, error) {
	offices, err := s.officesWithCounts(ctx, model.OfficeFilter{Country: country})
	if err != nil {
		return CityHealthResult{}, err
	}
	order, groups := groupCities(offices)

	cities := make([]CityHealth, 0, len(order))
	for _, k := range order {
		group := groups[k]
		devices := 0
		for _, o := range group {
			devices += o.DeviceCount
		}
		cities = append(cities, CityHealth{
			Country: k.country,
			City:    k.city,
			Offices: len(group),
			Devices: devices,
			Health:  s.health.Classify(health.CityCounts(group)),
		})
	}
	return CityHealthResult{Success: true, Cities: cities, Count: len(cities)}, nil
}

type CountryHealth struct {
	Country string               `json:"country"`
	Cities  []health.CitySummary `json:"cities"`
	Offices int                  `json:"offices"`
	Devices int                  `json:"devices"`
	Health  health.Score         `json:"health"`
}

type CountryHealthResult struct {
	Success   bool            `json:"success"`
	Countries []CountryHealth `json:"countries"`
	Count     int             `json:"count"`
}

// CountryHealth scores every country from its cities.
func (s *Service) CountryHealth(ctx context.Context) (CountryHealthResult, error) {
	offices, err := s.officesWithCounts(ctx, model.OfficeFilter{})
	if err != nil {
		return CountryHealthResult{}, err
	}
	order, groups := groupCities(offices)

	var countries []CountryHealth
	index := make(map[string]int)
	for _, k := range order {
		i, ok := index[k.country]
		if !ok {
			i = len(countries)
			index[k.country] = i
			countries = append(countries, CountryHealth{Country: k.country, Cities: []health.CitySummary{}})
		}
		c := &countries[i]
		city := health.CitySummary{City: k.city, Offices: len(groups[k])}
		for _, o := range groups[k] {
			city.Devices += o.DeviceCount
		}
		c.Cities = append(c.Cities, city)
		c.Offices += city.Offices
		c.Devices += city.Devices
	}
	for i := range countries {
		countries[i].Health = s.health.ClassifyScore(health.CountryCounts(countries[i].Cities))
	}
	if countries == nil {
		countries = []CountryHealth{}
	}
	return CountryHealthResult{Success: true, Countries: countries, Count: len(countries)}, nil
}

type OfficeHealthDevice struct {
	HostID   string `json:"hostid"`
	DeviceID string `json:"device_id"`
	Status   string `json:"status"`
	Severity string `json:"severity"`
}

type OfficeHealthResult struct {
	Success  bool                 `json:"success"`
	OfficeID string               `json:"office_id"`
	Office   string               `json:"office"`
	City     string               `json:"city"`
	Country  string               `json:"country"`
	Devices  []OfficeHealthDevice `json:"devices"`
	Health   health.Score         `json:"health"`
}

// OfficeHealth scores one office from its devices' latest status and alert
// severity.
func (s *Service) OfficeHealth(ctx context.Context, idOrName string) (OfficeHealthResult, error) {
	o, err := s.getOffice(ctx, idOrName)
	if err != nil {
		return OfficeHealthResult{}, err
	}
	hosts, err := s.hosts(ctx, model.MetricFilter{})
	if err != nil {
		return OfficeHealthResult{}, err
	}

	members := officeHosts(o, hosts)
	devices := make([]OfficeHealthDevice, len(members))
	states := make([]health.DeviceState, len(members))
	for i, h := range members {
		devices[i] = OfficeHealthDevice{HostID: h.HostID, DeviceID: h.DeviceID, Status: h.Status, Severity: h.Severity}
		states[i] = health.DeviceState{Status: h.Status, Severity: h.Severity}
	}
	return OfficeHealthResult{
		Success:  true,
		OfficeID: o.ID,
		Office:   o.Office,
		City:     o.City,
		Country:  o.Country,
		Devices:  devices,
		Health:   s.health.ClassifyDevices(states, len(o.DeviceIDs)),
	}, nil
}
