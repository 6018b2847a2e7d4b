package domain

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var embeddedTables []byte

// defaultTables is parsed once from the embedded tables.yaml.
var defaultTables = mustParseTables(embeddedTables)

// QuietThresholds are the lower bounds of the quiet and normal categories.
type QuietThresholds struct {
	QuietMin  float64 `yaml:"quiet_min"`
	NormalMin float64 `yaml:"normal_min"`
}

// PriceRange is the currency range the cheap score is mapped onto.
type PriceRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// ProximityBand awards Points to venues closer than UnderKm.
type ProximityBand struct {
	UnderKm float64 `yaml:"under_km"`
	Points  float64 `yaml:"points"`
}

// ScoringConfig holds the weights and partial-credit constants of the ranker.
type ScoringConfig struct {
	DimensionWeight     float64         `yaml:"dimension_weight"`
	StrongSignalMin     float64         `yaml:"strong_signal_min"`
	WeakSignalMin       float64         `yaml:"weak_signal_min"`
	WeakSignalCredit    float64         `yaml:"weak_signal_credit"`
	AdjacentQuietCredit float64         `yaml:"adjacent_quiet_credit"`
	PriceTolerance      float64         `yaml:"price_tolerance"`
	PricePartialCredit  float64         `yaml:"price_partial_credit"`
	SeatBonusThreshold  float64         `yaml:"seat_bonus_threshold"`
	SeatBonus           float64         `yaml:"seat_bonus"`
	ProximityWeight     float64         `yaml:"proximity_weight"`
	ProximityBands      []ProximityBand `yaml:"proximity_bands"`
}

// City describes one supported city.
type City struct {
	Code      string     `yaml:"code"`
	Name      string     `yaml:"name"`
	Center    Coordinate `yaml:"center"`
	Districts []string   `yaml:"districts"`
}

// Tables is the static configuration shared by the normalizer, the deriver
// and the ranker.
type Tables struct {
	QuietLevels     QuietThresholds   `yaml:"quiet_levels"`
	Price           PriceRange        `yaml:"price"`
	Scoring         ScoringConfig     `yaml:"scoring"`
	DistrictAliases map[string]string `yaml:"district_aliases"`
	Cities          []City            `yaml:"cities"`

	aliasKeys []string
	cityIndex map[string]int
}

// DefaultTables returns the tables embedded in the binary.
func DefaultTables() *Tables {
	return defaultTables
}

// LoadTables decodes and validates tables from YAML.
func LoadTables(r io.Reader) (*Tables, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tables: %w", err)
	}
	return parseTables(data)
}

// LoadTablesFile reads tables from a YAML file on disk.
func LoadTablesFile(path string) (*Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tables: %w", err)
	}
	defer f.Close()
	return LoadTables(f)
}

func mustParseTables(data []byte) *Tables {
	t, err := parseTables(data)
	if err != nil {
		panic(fmt.Sprintf("embedded tables.yaml: %v", err))
	}
	return t
}

func parseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode tables: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	t.index()
	return &t, nil
}

func (t *Tables) validate() error {
	if t.QuietLevels.QuietMin < t.QuietLevels.NormalMin {
		return errors.New("quiet_levels.quiet_min must be >= normal_min")
	}
	if t.Price.Min < 0 || t.Price.Max <= t.Price.Min {
		return errors.New("price range must satisfy 0 <= min < max")
	}
	s := t.Scoring
	if s.DimensionWeight <= 0 || s.ProximityWeight <= 0 {
		return errors.New("scoring weights must be positive")
	}
	if s.WeakSignalMin > s.StrongSignalMin {
		return errors.New("scoring.weak_signal_min must be <= strong_signal_min")
	}
	for _, credit := range []float64{s.WeakSignalCredit, s.AdjacentQuietCredit, s.PricePartialCredit} {
		if credit < 0 || credit > s.DimensionWeight {
			return errors.New("scoring partial credits must lie within [0, dimension_weight]")
		}
	}
	prev := 0.0
	for _, b := range s.ProximityBands {
		if b.UnderKm <= prev {
			return errors.New("scoring.proximity_bands must be strictly ascending")
		}
		if b.Points < 0 || b.Points > s.ProximityWeight {
			return errors.New("scoring.proximity_bands points must lie within [0, proximity_weight]")
		}
		prev = b.UnderKm
	}
	return nil
}

func (t *Tables) index() {
	t.aliasKeys = make([]string, 0, len(t.DistrictAliases))
	for k := range t.DistrictAliases {
		t.aliasKeys = append(t.aliasKeys, k)
	}
	// Longest key first so "xinzhuang district" is tried before any shorter
	// alias it happens to contain; ties are broken alphabetically.
	sort.Slice(t.aliasKeys, func(i, j int) bool {
		a, b := t.aliasKeys[i], t.aliasKeys[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	t.cityIndex = make(map[string]int, len(t.Cities))
	for i, c := range t.Cities {
		t.cityIndex[strings.ToLower(c.Code)] = i
	}
}

// City looks up a city by its code.
func (t *Tables) City(code string) (City, bool) {
	i, ok := t.cityIndex[strings.ToLower(code)]
	if !ok {
		return City{}, false
	}
	return t.Cities[i], true
}

// CityName returns the local-script name of a city, or the code itself.
func (t *Tables) CityName(code string) string {
	if c, ok := t.City(code); ok {
		return c.Name
	}
	return code
}
