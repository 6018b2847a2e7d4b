package domain

import "sort"

// Area summarizes where cafés are in one city.
type Area struct {
	City      string             `json:"city"`
	CityName  string             `json:"city_name"`
	CafeCount int                `json:"cafe_count"`
	Districts []DistrictStations `json:"districts"`
	Stations  []string           `json:"mrt_stations"`
}

// DistrictStations lists the transit stations cafés in a district are near.
type DistrictStations struct {
	Name     string   `json:"name"`
	Stations []string `json:"mrt_stations"`
}

// BuildAreas groups venues by city. Cities, districts and stations are
// sorted; venues without a station still count towards CafeCount.
func (t *Tables) BuildAreas(venues []Venue) []Area {
	type cityAcc struct {
		count     int
		stations  map[string]struct{}
		districts map[string]map[string]struct{}
	}
	byCity := make(map[string]*cityAcc)
	for _, v := range venues {
		acc, ok := byCity[v.City]
		if !ok {
			acc = &cityAcc{
				stations:  make(map[string]struct{}),
				districts: make(map[string]map[string]struct{}),
			}
			byCity[v.City] = acc
		}
		acc.count++

		station := v.TransitStation
		if station == "" {
			station = NormalizeTransitName(v.Transit)
		}
		if station == "" {
			continue
		}
		acc.stations[station] = struct{}{}
		if v.District == "" {
			continue
		}
		if acc.districts[v.District] == nil {
			acc.districts[v.District] = make(map[string]struct{})
		}
		acc.districts[v.District][station] = struct{}{}
	}

	areas := make([]Area, 0, len(byCity))
	for city, acc := range byCity {
		area := Area{
			City:      city,
			CityName:  t.CityName(city),
			CafeCount: acc.count,
			Districts: make([]DistrictStations, 0, len(acc.districts)),
			Stations:  sortedKeys(acc.stations),
		}
		for name, stations := range acc.districts {
			area.Districts = append(area.Districts, DistrictStations{Name: name, Stations: sortedKeys(stations)})
		}
		sort.Slice(area.Districts, func(i, j int) bool {
			return area.Districts[i].Name < area.Districts[j].Name
		})
		areas = append(areas, area)
	}
	sort.Slice(areas, func(i, j int) bool { return areas[i].City < areas[j].City })
	return areas
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
