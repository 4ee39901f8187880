package alert

import (
	"context"
	"time"
)

// Poller fetches the upstream feed and returns alerts not seen before.
// It advances the dedup store as a side effect.
type Poller interface {
	Poll(ctx context.Context) ([]Alert, error)
}

// Store tracks which alert IDs have already produced an artifact.
type Store interface {
	// Load reads durable state, dropping records older than the dedup
	// horizon. The pruned set becomes the active in-memory state.
	Load() error
	// Seen reports whether the ID is already marked.
	Seen(id string) bool
	// Mark records the ID as processed. First mark wins; marking an
	// already-seen ID changes nothing.
	Mark(id, event string, now time.Time)
	// Persist writes the full in-memory map to durable storage.
	Persist() error
}

// CountyProvider resolves a polygon to nearby administrative boundaries.
// An unavailable dataset yields an empty result, not an error.
type CountyProvider interface {
	Nearby(p Polygon, bufferDegrees float64) []CountyFeature
}

// Composer builds a styled, self-contained map document for one alert.
type Composer interface {
	Compose(a Alert, counties []CountyFeature) (Document, error)
}

// Renderer rasterizes a composed document into an image artifact.
type Renderer interface {
	Render(ctx context.Context, doc Document) (RenderedArtifact, error)
}

// Sink receives a rendered artifact plus structured alert text. Delivery
// failures are non-fatal to the pipeline.
type Sink interface {
	Deliver(ctx context.Context, a Alert, imagePath string) error
}
