// Package alert defines core types shared across subsystems.
package alert

import "time"

// Polygon is an ordered ring of [longitude, latitude] pairs. A usable
// polygon has at least three points and need not be closed.
type Polygon [][2]float64

// Valid reports whether the polygon has enough points to describe an area.
func (p Polygon) Valid() bool {
	return len(p) >= 3
}

// Alert is one weather warning/watch/advisory instance from the upstream
// provider. Records are immutable once built by the normalizer.
type Alert struct {
	ID          string
	Event       string
	Headline    string
	NWSHeadline string
	Description string
	Instruction string
	Severity    string
	Certainty   string
	Urgency     string
	Effective   string
	Expires     string
	Sent        string
	AreaDesc    string
	Polygon     Polygon
}

// ProcessedRecord marks one alert as already rendered. Records older than
// the dedup horizon are dropped when the store loads.
type ProcessedRecord struct {
	AlertID     string    `json:"alert_id"`
	ProcessedAt time.Time `json:"processed_at"`
	Event       string    `json:"event"`
}

// DedupHorizon is how long a processed alert ID stays ineligible for
// re-processing.
const DedupHorizon = 24 * time.Hour

// CountyFeature is one administrative boundary from the reference dataset.
type CountyFeature struct {
	Name  string
	Rings []Polygon
}

// Document is the composed, renderer-ready map page for one alert.
type Document struct {
	AlertID string
	Path    string
}

// RenderedArtifact is the final output for one alert. ImagePath points at
// the raster image, or at the intermediate document when rendering failed
// and the degraded artifact was kept.
type RenderedArtifact struct {
	AlertID   string
	ImagePath string
	CreatedAt time.Time
	Degraded  bool
}
