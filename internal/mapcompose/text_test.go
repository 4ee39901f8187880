package mapcompose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wxvisuals/warnmap/internal/alert"
)

func TestExtractHazards(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{
			name:        "empty description",
			description: "",
			want:        "Not specified",
		},
		{
			name:        "labeled hazard section",
			description: "...A SEVERE THUNDERSTORM WARNING...\n\nHAZARD...60 mph wind gusts and quarter size hail.\n\nSOURCE...Radar indicated.",
			want:        "60 mph wind gusts and quarter size hail.",
		},
		{
			name:        "hazard section strips ellipses",
			description: "HAZARD...Damaging winds...large hail.\nSOURCE...Radar.",
			want:        "Damaging windslarge hail.",
		},
		{
			name:        "keyword scan in fixed order",
			description: "Expect flooding in low lying areas along with large hail and a possible tornado.",
			want:        "Hail, Tornado, Flooding",
		},
		{
			name:        "wind gusts keyword",
			description: "Wind gusts up to 70 mph expected.",
			want:        "Wind Gusts",
		},
		{
			name:        "no recognizable hazards",
			description: "Stay tuned to local media for further updates.",
			want:        "See description for details",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractHazards(tt.description))
		})
	}
}

func TestExtractHazardsTruncatesLongSection(t *testing.T) {
	long := "HAZARD..." + strings.Repeat("a", 400) + "\n"
	got := ExtractHazards(long)
	assert.Len(t, got, hazardTextLimit+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestExtractAffectedAreas(t *testing.T) {
	tests := []struct {
		name string
		a    alert.Alert
		want string
	}{
		{
			name: "explicit area field wins",
			a: alert.Alert{
				AreaDesc: "Hardin, TN; McNairy, TN",
				Headline: "Tornado Warning issued for Hardin County",
			},
			want: "Hardin, TN; McNairy, TN",
		},
		{
			name: "headline county prefix",
			a:    alert.Alert{Headline: "Severe Thunderstorm Warning issued for Hardin County until 9 PM"},
			want: "Severe Thunderstorm Warning issued for Hardin",
		},
		{
			name: "description includes-the-county extraction",
			a: alert.Alert{
				Description: "The tornado warning includes the counties of Hardin and McNairy. Take cover now.",
			},
			want: "ies of Hardin and McNairy",
		},
		{
			name: "placeholder when nothing matches",
			a:    alert.Alert{Headline: "Special Weather Statement"},
			want: "See warning details for specific locations",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAffectedAreas(tt.a))
		})
	}
}
