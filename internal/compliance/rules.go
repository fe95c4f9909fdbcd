// Package compliance decides whether a harvest is permitted for a species at a
// given place and time. Everything here is pure: no I/O, no clocks.
package compliance

import (
	"fmt"
	"io"
	"sort"

	"github.com/BurntSushi/toml"
)

// Season is an inclusive window of 0-indexed months (January = 0).
// Windows never wrap across the year boundary.
type Season struct {
	StartMonth int `toml:"start_month"`
	EndMonth   int `toml:"end_month"`
}

// Contains reports whether month (0-indexed) falls inside the window.
func (s Season) Contains(month int) bool {
	return month >= s.StartMonth && month <= s.EndMonth
}

// Zone is a protected rectangle in degrees. Only its open interior is protected.
type Zone struct {
	MinLat float64 `toml:"min_lat"`
	MaxLat float64 `toml:"max_lat"`
	MinLon float64 `toml:"min_lon"`
	MaxLon float64 `toml:"max_lon"`
}

// StrictlyContains reports whether (lat, lon) lies strictly inside the zone.
// Points on the boundary are outside.
func (z Zone) StrictlyContains(lat, lon float64) bool {
	return lat > z.MinLat && lat < z.MaxLat &&
		lon > z.MinLon && lon < z.MaxLon
}

// Rule is the harvest policy for one species.
type Rule struct {
	Name          string `toml:"name"`
	Season        Season `toml:"season"`
	ProtectedZone *Zone  `toml:"protected_zone,omitempty"`
}

// RuleSet maps species keys to their rules.
type RuleSet struct {
	rules map[string]Rule
}

// NewRuleSet builds a RuleSet from rules, validating each one.
func NewRuleSet(rules ...Rule) (*RuleSet, error) {
	rs := &RuleSet{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := rs.rules[r.Name]; dup {
			return nil, fmt.Errorf("duplicate rule for %q", r.Name)
		}
		rs.rules[r.Name] = r
	}
	return rs, nil
}

// Validate checks month bounds and zone shape. A season whose start month is
// after its end month would wrap across December; that shape is rejected.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule has no plant name")
	}
	s := r.Season
	if s.StartMonth < 0 || s.StartMonth > 11 || s.EndMonth < 0 || s.EndMonth > 11 {
		return fmt.Errorf("rule %q: season months must be within 0-11, got %d-%d", r.Name, s.StartMonth, s.EndMonth)
	}
	if s.StartMonth > s.EndMonth {
		return fmt.Errorf("rule %q: season %d-%d wraps across the year boundary, which is not supported", r.Name, s.StartMonth, s.EndMonth)
	}
	if z := r.ProtectedZone; z != nil {
		if z.MinLat >= z.MaxLat || z.MinLon >= z.MaxLon {
			return fmt.Errorf("rule %q: protected zone has empty extent", r.Name)
		}
	}
	return nil
}

// Rule returns the rule for plant.
func (rs *RuleSet) Rule(plant string) (Rule, bool) {
	r, ok := rs.rules[plant]
	return r, ok
}

// Plants returns the known species keys in sorted order.
func (rs *RuleSet) Plants() []string {
	names := make([]string, 0, len(rs.rules))
	for name := range rs.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRuleSet returns the reference NMPB rule set.
func DefaultRuleSet() *RuleSet {
	rs, err := NewRuleSet(
		Rule{Name: "Ashwagandha", Season: Season{StartMonth: 8, EndMonth: 11}},
		Rule{Name: "Tulsi", Season: Season{StartMonth: 2, EndMonth: 4}},
		Rule{
			Name:   "Brahmi",
			Season: Season{StartMonth: 5, EndMonth: 7},
			// protected wetland near Thane
			ProtectedZone: &Zone{MinLat: 19.25, MaxLat: 19.30, MinLon: 73.00, MaxLon: 73.05},
		},
		Rule{Name: "Shatavari", Season: Season{StartMonth: 8, EndMonth: 10}},
	)
	if err != nil {
		panic(err)
	}
	return rs
}

// ruleFile is the on-disk TOML shape:
//
//	[[plants]]
//	name = "Brahmi"
//	season = { start_month = 5, end_month = 7 }
//	protected_zone = { min_lat = 19.25, max_lat = 19.30, min_lon = 73.00, max_lon = 73.05 }
type ruleFile struct {
	Plants []Rule `toml:"plants"`
}

// LoadRuleSet decodes a TOML rule file.
func LoadRuleSet(r io.Reader) (*RuleSet, error) {
	var f ruleFile
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding rule file: %w", err)
	}
	if len(f.Plants) == 0 {
		return nil, fmt.Errorf("rule file defines no plants")
	}
	return NewRuleSet(f.Plants...)
}
