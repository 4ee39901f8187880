package feed

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wxvisuals/warnmap/internal/alert"
	"github.com/wxvisuals/warnmap/internal/nws"
)

// ZoneResolver turns an affected-zone URL into a display name.
type ZoneResolver interface {
	ZoneName(ctx context.Context, zoneURL string) (string, error)
}

// Normalizer turns raw provider features into canonical Alert records.
type Normalizer struct {
	zones  ZoneResolver
	logger *zap.Logger
}

// NewNormalizer constructs a Normalizer. zones may be nil, in which case
// empty areaDesc fields stay empty.
func NewNormalizer(zones ZoneResolver, logger *zap.Logger) *Normalizer {
	return &Normalizer{zones: zones, logger: logger}
}

// Normalize builds one Alert from one raw feature.
func (n *Normalizer) Normalize(ctx context.Context, f nws.Feature) alert.Alert {
	props := f.Properties
	id := props.ID
	if id == "" {
		id = f.ID
	}

	a := alert.Alert{
		ID:          id,
		Event:       props.Event,
		Headline:    props.Headline,
		NWSHeadline: props.NWSHeadline(),
		Description: props.Description,
		Instruction: props.Instruction,
		Severity:    props.Severity,
		Certainty:   props.Certainty,
		Urgency:     props.Urgency,
		Effective:   props.Effective,
		Expires:     props.Expires,
		Sent:        props.Sent,
		AreaDesc:    props.AreaDesc,
	}

	if ring := polygonFromGeometry(f.Geometry); ring.Valid() {
		a.Polygon = ring
	} else if props.Polygon != "" {
		a.Polygon = ParsePolygonString(props.Polygon)
	}

	if a.AreaDesc == "" && n.zones != nil && len(props.AffectedZones) > 0 {
		a.AreaDesc = n.resolveZoneNames(ctx, props.AffectedZones)
	}

	return a
}

func (n *Normalizer) resolveZoneNames(ctx context.Context, zoneURLs []string) string {
	var names []string
	for _, u := range zoneURLs {
		name, err := n.zones.ZoneName(ctx, u)
		if err != nil {
			n.logger.Warn("affected zone lookup failed", zap.String("zone_url", u), zap.Error(err))
			continue
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// polygonFromGeometry extracts the outer ring of a GeoJSON Polygon
// geometry, already in [lon, lat] order.
func polygonFromGeometry(raw json.RawMessage) alert.Polygon {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var geom nws.Geometry
	if err := json.Unmarshal(raw, &geom); err != nil || geom.Type != "Polygon" {
		return nil
	}
	var rings [][][2]float64
	if err := json.Unmarshal(geom.Coordinates, &rings); err != nil || len(rings) == 0 {
		return nil
	}
	return alert.Polygon(rings[0])
}

// ParsePolygonString normalizes a flat "lat,lon lat,lon ..." string to the
// canonical [lon, lat] ordering. Malformed points are skipped.
func ParsePolygonString(s string) alert.Polygon {
	var ring alert.Polygon
	for _, pair := range strings.Fields(s) {
		lat, lon, ok := parsePoint(pair)
		if !ok {
			continue
		}
		ring = append(ring, [2]float64{lon, lat})
	}
	return ring
}

func parsePoint(pair string) (lat, lon float64, ok bool) {
	parts := strings.Split(pair, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
