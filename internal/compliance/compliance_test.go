package compliance

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herbtrace/internal/model"
)

// outside every protected zone in the reference set
var openField = model.Coordinate{Latitude: 19.2183, Longitude: 72.9781}

// inside the Brahmi reserve
var reserve = model.Coordinate{Latitude: 19.27, Longitude: 73.02}

func monthOf(m time.Month) time.Time {
	return time.Date(2025, m, 15, 12, 0, 0, 0, time.UTC)
}

func TestEvaluate_CompliantInSeason(t *testing.T) {
	rs := DefaultRuleSet()

	tests := []struct {
		plant string
		month time.Month
	}{
		{"Ashwagandha", time.September},
		{"Ashwagandha", time.December},
		{"Tulsi", time.March},
		{"Tulsi", time.May},
		{"Brahmi", time.June},
		{"Brahmi", time.August},
		{"Shatavari", time.October},
	}

	for _, tt := range tests {
		t.Run(tt.plant+"/"+tt.month.String(), func(t *testing.T) {
			v := rs.Evaluate(tt.plant, openField, monthOf(tt.month))
			assert.True(t, v.IsCompliant)
			assert.Equal(t, model.StatusCompliant, v.Status)
			assert.Contains(t, v.Message, tt.plant)
		})
	}
}

func TestEvaluate_OutOfSeason(t *testing.T) {
	rs := DefaultRuleSet()

	tests := []struct {
		plant string
		month time.Month
	}{
		{"Ashwagandha", time.August},
		{"Ashwagandha", time.January},
		{"Tulsi", time.September},
		{"Shatavari", time.December},
	}

	for _, tt := range tests {
		t.Run(tt.plant+"/"+tt.month.String(), func(t *testing.T) {
			v := rs.Evaluate(tt.plant, openField, monthOf(tt.month))
			assert.False(t, v.IsCompliant)
			assert.Equal(t, model.StatusOutOfSeason, v.Status)
			assert.Contains(t, v.Message, "(Current: "+tt.month.String()+")")
		})
	}
}

func TestEvaluate_ProtectedZoneTakesPriority(t *testing.T) {
	rs := DefaultRuleSet()

	// In season and out of season: both report the reserve.
	for _, m := range []time.Month{time.July, time.November} {
		v := rs.Evaluate("Brahmi", reserve, monthOf(m))
		assert.False(t, v.IsCompliant)
		assert.Equal(t, model.StatusProtectedZone, v.Status, "month %s", m)
		assert.True(t, strings.HasPrefix(v.Message, "WARNING:"))
	}
}

func TestEvaluate_ZoneBoundaryIsOutside(t *testing.T) {
	rs := DefaultRuleSet()

	edges := []model.Coordinate{
		{Latitude: 19.25, Longitude: 73.02},
		{Latitude: 19.30, Longitude: 73.02},
		{Latitude: 19.27, Longitude: 73.00},
		{Latitude: 19.27, Longitude: 73.05},
	}
	for _, c := range edges {
		v := rs.Evaluate("Brahmi", c, monthOf(time.July))
		assert.Equal(t, model.StatusCompliant, v.Status, "coordinate %+v", c)
	}
}

func TestEvaluate_ZoneOnlyAppliesToItsPlant(t *testing.T) {
	rs := DefaultRuleSet()

	v := rs.Evaluate("Ashwagandha", reserve, monthOf(time.September))
	assert.Equal(t, model.StatusCompliant, v.Status)
}

func TestEvaluate_UnknownPlant(t *testing.T) {
	rs := DefaultRuleSet()

	for _, plant := range []string{"Neem", "", "ashwagandha"} {
		for _, c := range []model.Coordinate{openField, reserve} {
			v := rs.Evaluate(plant, c, monthOf(time.September))
			assert.False(t, v.IsCompliant)
			assert.Equal(t, model.StatusNoRules, v.Status)
			assert.Equal(t, noRulesMessage, v.Message)
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	rs := DefaultRuleSet()
	now := monthOf(time.October)

	first := rs.Evaluate("Shatavari", openField, now)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, rs.Evaluate("Shatavari", openField, now))
	}
}

func TestRuleSet_Plants(t *testing.T) {
	assert.Equal(t, []string{"Ashwagandha", "Brahmi", "Shatavari", "Tulsi"}, DefaultRuleSet().Plants())
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr string
	}{
		{"valid", Rule{Name: "Neem", Season: Season{0, 11}}, ""},
		{"single month", Rule{Name: "Neem", Season: Season{4, 4}}, ""},
		{"missing name", Rule{Season: Season{0, 1}}, "no plant name"},
		{"month too large", Rule{Name: "Neem", Season: Season{0, 12}}, "within 0-11"},
		{"negative month", Rule{Name: "Neem", Season: Season{-1, 3}}, "within 0-11"},
		{"wrap around", Rule{Name: "Neem", Season: Season{11, 0}}, "wraps"},
		{"empty zone", Rule{Name: "Neem", Season: Season{0, 1}, ProtectedZone: &Zone{1, 1, 0, 2}}, "empty extent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewRuleSet_Duplicate(t *testing.T) {
	_, err := NewRuleSet(
		Rule{Name: "Neem", Season: Season{0, 3}},
		Rule{Name: "Neem", Season: Season{4, 6}},
	)
	require.Error(t, err)
}

func TestLoadRuleSet(t *testing.T) {
	t.Run("decodes plants and zones", func(t *testing.T) {
		src := `
[[plants]]
name = "Neem"
season = { start_month = 0, end_month = 2 }

[[plants]]
name = "Giloy"
season = { start_month = 6, end_month = 9 }
protected_zone = { min_lat = 10.0, max_lat = 11.0, min_lon = 76.0, max_lon = 77.0 }
`
		rs, err := LoadRuleSet(strings.NewReader(src))
		require.NoError(t, err)
		assert.Equal(t, []string{"Giloy", "Neem"}, rs.Plants())

		r, ok := rs.Rule("Giloy")
		require.True(t, ok)
		require.NotNil(t, r.ProtectedZone)
		assert.Equal(t, 77.0, r.ProtectedZone.MaxLon)

		v := rs.Evaluate("Giloy", model.Coordinate{Latitude: 10.5, Longitude: 76.5}, monthOf(time.August))
		assert.Equal(t, model.StatusProtectedZone, v.Status)
	})

	t.Run("rejects wrap-around season", func(t *testing.T) {
		src := `
[[plants]]
name = "Neem"
season = { start_month = 11, end_month = 1 }
`
		_, err := LoadRuleSet(strings.NewReader(src))
		require.Error(t, err)
	})

	t.Run("rejects empty file", func(t *testing.T) {
		_, err := LoadRuleSet(strings.NewReader(""))
		require.Error(t, err)
	})
}
