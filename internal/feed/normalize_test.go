package feed

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wxvisuals/warnmap/internal/alert"
	"github.com/wxvisuals/warnmap/internal/nws"
)

func TestParsePolygonString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  alert.Polygon
	}{
		{
			name:  "lat lon pairs flip to lon lat",
			input: "35.0,-88.0 35.1,-88.1 35.2,-88.2",
			want: alert.Polygon{
				{-88.0, 35.0},
				{-88.1, 35.1},
				{-88.2, 35.2},
			},
		},
		{
			name:  "malformed point skipped",
			input: "35.0,-88.0 garbage 35.2,-88.2",
			want: alert.Polygon{
				{-88.0, 35.0},
				{-88.2, 35.2},
			},
		},
		{
			name:  "empty string",
			input: "",
			want:  nil,
		},
		{
			name:  "missing longitude skipped",
			input: "35.0",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePolygonString(tt.input))
		})
	}
}

func TestNormalizePrefersGeometryRing(t *testing.T) {
	n := NewNormalizer(nil, zap.NewNop())
	geom, err := json.Marshal(map[string]any{
		"type": "Polygon",
		"coordinates": [][][2]float64{
			{{-88.0, 35.0}, {-88.1, 35.1}, {-88.2, 35.2}, {-88.0, 35.0}},
		},
	})
	require.NoError(t, err)

	f := nws.Feature{
		ID: "urn:test:geom",
		Properties: nws.Properties{
			Event:   "Severe Thunderstorm Warning",
			Polygon: "1.0,2.0 3.0,4.0 5.0,6.0",
		},
		Geometry: geom,
	}

	a := n.Normalize(context.Background(), f)
	require.True(t, a.Polygon.Valid())
	assert.Equal(t, [2]float64{-88.0, 35.0}, a.Polygon[0])
}

func TestNormalizeFallsBackToPolygonString(t *testing.T) {
	n := NewNormalizer(nil, zap.NewNop())
	f := nws.Feature{
		ID: "urn:test:flat",
		Properties: nws.Properties{
			Event:   "Tornado Warning",
			Polygon: "35.0,-88.0 35.1,-88.1 35.2,-88.2",
		},
	}

	a := n.Normalize(context.Background(), f)
	require.True(t, a.Polygon.Valid())
	assert.Equal(t, alert.Polygon{{-88.0, 35.0}, {-88.1, 35.1}, {-88.2, 35.2}}, a.Polygon)
}

type fakeZones struct {
	names map[string]string
}

func (f *fakeZones) ZoneName(_ context.Context, zoneURL string) (string, error) {
	return f.names[zoneURL], nil
}

func TestNormalizeResolvesZoneNames(t *testing.T) {
	zones := &fakeZones{names: map[string]string{
		"https://api.weather.gov/zones/county/TNC095": "Hardin",
		"https://api.weather.gov/zones/county/TNC071": "McNairy",
	}}
	n := NewNormalizer(zones, zap.NewNop())

	f := nws.Feature{
		ID: "urn:test:zones",
		Properties: nws.Properties{
			Event: "Flood Warning",
			AffectedZones: []string{
				"https://api.weather.gov/zones/county/TNC095",
				"https://api.weather.gov/zones/county/TNC071",
			},
		},
	}

	a := n.Normalize(context.Background(), f)
	assert.Equal(t, "Hardin, McNairy", a.AreaDesc)
}

func TestNormalizeKeepsExistingAreaDesc(t *testing.T) {
	zones := &fakeZones{names: map[string]string{"z": "Wrong"}}
	n := NewNormalizer(zones, zap.NewNop())

	f := nws.Feature{
		ID: "urn:test:area",
		Properties: nws.Properties{
			Event:         "Flood Warning",
			AreaDesc:      "Hardin; McNairy",
			AffectedZones: []string{"z"},
		},
	}

	a := n.Normalize(context.Background(), f)
	assert.Equal(t, "Hardin; McNairy", a.AreaDesc)
}
