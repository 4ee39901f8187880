// Package geo resolves alert polygons to nearby county boundaries.
package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"

	"github.com/wxvisuals/warnmap/internal/alert"
)

// Provider serves read-only county reference geometry, cached locally and
// populated from a public archive on first use. When the dataset cannot be
// obtained, lookups return an empty set: a missing overlay is a degraded
// render, not an error.
type Provider struct {
	cachePath  string
	archiveURL string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger

	counties []county
	loaded   bool
	failed   bool
}

type county struct {
	name     string
	bound    orb.Bound
	rings    []alert.Polygon
	orbRings []orb.Ring
}

// NewProvider creates a county geometry provider backed by cachePath.
func NewProvider(cachePath, archiveURL, userAgent string, logger *zap.Logger) *Provider {
	return &Provider{
		cachePath:  cachePath,
		archiveURL: archiveURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}
}

// Nearby returns counties whose boundary intersects a planar buffer around
// the alert polygon. The buffer is degrees, not geodesic; acceptable at
// county scale.
func (p *Provider) Nearby(poly alert.Polygon, bufferDegrees float64) []alert.CountyFeature {
	if !poly.Valid() || !p.ensureLoaded() {
		return nil
	}

	region := polygonBound(poly).Pad(bufferDegrees)
	var features []alert.CountyFeature
	for _, c := range p.counties {
		if !region.Intersects(c.bound) {
			continue
		}
		// Bounding boxes are only a prefilter. A county whose box
		// touches the region but whose boundary does not stays out.
		if !c.intersects(region) {
			continue
		}
		features = append(features, alert.CountyFeature{Name: c.name, Rings: c.rings})
	}
	p.logger.Debug("nearby counties resolved", zap.Int("count", len(features)))
	return features
}

func (c county) intersects(region orb.Bound) bool {
	for _, ring := range c.orbRings {
		if ringIntersectsBound(ring, region) {
			return true
		}
	}
	return false
}

// ringIntersectsBound reports whether a ring's area overlaps a bound: a
// ring vertex falls inside the bound, a bound corner falls inside the
// ring, or a ring edge crosses a bound edge.
func ringIntersectsBound(ring orb.Ring, b orb.Bound) bool {
	for _, pt := range ring {
		if b.Contains(pt) {
			return true
		}
	}
	corners := [4]orb.Point{
		b.Min,
		{b.Max[0], b.Min[1]},
		b.Max,
		{b.Min[0], b.Max[1]},
	}
	for _, corner := range corners {
		if planar.RingContains(ring, corner) {
			return true
		}
	}
	edges := [4][2]orb.Point{
		{corners[0], corners[1]},
		{corners[1], corners[2]},
		{corners[2], corners[3]},
		{corners[3], corners[0]},
	}
	for i := 0; i < len(ring); i++ {
		next := ring[(i+1)%len(ring)]
		for _, edge := range edges {
			if segmentsCross(ring[i], next, edge[0], edge[1]) {
				return true
			}
		}
	}
	return false
}

// segmentsCross reports a proper crossing of two segments. Touches at
// endpoints are handled by the containment checks above.
func segmentsCross(p1, p2, q1, q2 orb.Point) bool {
	d1 := crossProduct(q1, q2, p1)
	d2 := crossProduct(q1, q2, p2)
	d3 := crossProduct(p1, p2, q1)
	d4 := crossProduct(p1, p2, q2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func crossProduct(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// ensureLoaded lazily reads the cached dataset, downloading it first if
// absent. One failed attempt disables the overlay for the process life.
func (p *Provider) ensureLoaded() bool {
	if p.loaded {
		return true
	}
	if p.failed {
		return false
	}

	if _, err := os.Stat(p.cachePath); err != nil {
		if err := p.download(); err != nil {
			p.logger.Warn("county dataset unavailable, overlays disabled", zap.Error(err))
			p.failed = true
			return false
		}
	}

	if err := p.parse(); err != nil {
		p.logger.Warn("county dataset unreadable, overlays disabled", zap.Error(err))
		p.failed = true
		return false
	}
	p.loaded = true
	return true
}

func (p *Provider) download() error {
	p.logger.Info("downloading county geometry archive", zap.String("url", p.archiveURL))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.archiveURL, nil)
	if err != nil {
		return fmt.Errorf("build archive request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch archive: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("archive fetch status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(p.cachePath), 0o750); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := p.cachePath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp, p.cachePath); err != nil {
		return fmt.Errorf("commit cache file: %w", err)
	}
	return nil
}

func (p *Provider) parse() error {
	data, err := os.ReadFile(p.cachePath)
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return fmt.Errorf("decode county geojson: %w", err)
	}

	p.counties = p.counties[:0]
	for _, f := range fc.Features {
		orbRings := outerRings(f.Geometry)
		if len(orbRings) == 0 {
			continue
		}
		rings := make([]alert.Polygon, 0, len(orbRings))
		for _, r := range orbRings {
			rings = append(rings, ringToPolygon(r))
		}
		p.counties = append(p.counties, county{
			name:     featureName(f),
			bound:    f.Geometry.Bound(),
			rings:    rings,
			orbRings: orbRings,
		})
	}
	p.logger.Info("county dataset loaded", zap.Int("counties", len(p.counties)))
	return nil
}

func featureName(f *geojson.Feature) string {
	for _, key := range []string{"NAME", "name"} {
		if v, ok := f.Properties[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// outerRings flattens a Polygon or MultiPolygon to its exterior rings.
func outerRings(g orb.Geometry) []orb.Ring {
	switch geom := g.(type) {
	case orb.Polygon:
		if len(geom) == 0 {
			return nil
		}
		return []orb.Ring{geom[0]}
	case orb.MultiPolygon:
		var rings []orb.Ring
		for _, poly := range geom {
			if len(poly) > 0 {
				rings = append(rings, poly[0])
			}
		}
		return rings
	default:
		return nil
	}
}

func ringToPolygon(r orb.Ring) alert.Polygon {
	ring := make(alert.Polygon, 0, len(r))
	for _, pt := range r {
		ring = append(ring, [2]float64{pt[0], pt[1]})
	}
	return ring
}

func polygonBound(poly alert.Polygon) orb.Bound {
	pts := make(orb.MultiPoint, 0, len(poly))
	for _, pt := range poly {
		pts = append(pts, orb.Point{pt[0], pt[1]})
	}
	return pts.Bound()
}
