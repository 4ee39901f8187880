package nws

import "encoding/json"

// FeatureCollection is the GeoJSON envelope returned by the alerts API.
// The by-ID endpoint returns a bare Feature, so the envelope carries both
// shapes and Alerts() flattens them.
type FeatureCollection struct {
	Type       string          `json:"type"`
	Features   []Feature       `json:"features"`
	ID         string          `json:"id"`
	Properties *Properties     `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// Alerts returns the contained features, treating a bare Feature document
// as a collection of one.
func (fc *FeatureCollection) Alerts() []Feature {
	if len(fc.Features) > 0 {
		return fc.Features
	}
	if fc.Properties != nil {
		return []Feature{{ID: fc.ID, Properties: *fc.Properties, Geometry: fc.Geometry}}
	}
	return nil
}

// Feature is one alert feature.
type Feature struct {
	ID         string          `json:"id"`
	Properties Properties      `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// Properties carries the CAP-derived alert fields the pipeline consumes.
type Properties struct {
	ID            string              `json:"id"`
	Event         string              `json:"event"`
	Headline      string              `json:"headline"`
	Description   string              `json:"description"`
	Instruction   string              `json:"instruction"`
	Severity      string              `json:"severity"`
	Certainty     string              `json:"certainty"`
	Urgency       string              `json:"urgency"`
	Effective     string              `json:"effective"`
	Expires       string              `json:"expires"`
	Sent          string              `json:"sent"`
	AreaDesc      string              `json:"areaDesc"`
	Polygon       string              `json:"polygon"`
	AffectedZones []string            `json:"affectedZones"`
	Parameters    map[string][]string `json:"parameters"`
}

// NWSHeadline returns the NWSheadline parameter when present.
func (p Properties) NWSHeadline() string {
	if vals := p.Parameters["NWSheadline"]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Geometry is the decoded form of a feature geometry.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type pointResponse struct {
	Properties struct {
		County string `json:"county"`
	} `json:"properties"`
}

type zoneResponse struct {
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}
