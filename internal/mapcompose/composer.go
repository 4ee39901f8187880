// Package mapcompose builds styled, self-contained map documents for
// alerts. Documents carry everything inline; the only external fetches a
// renderer performs are map tiles.
package mapcompose

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/wxvisuals/warnmap/internal/alert"
)

//go:embed document.html.tmpl
var templateFS embed.FS

// Config controls map composition.
type Config struct {
	OutputDir      string
	TileURL        string
	Timezone       string
	PaddingDegrees float64
	Width          int
	Height         int
}

// Composer implements alert.Composer over an HTML document template.
type Composer struct {
	cfg    Config
	loc    *time.Location
	tmpl   *template.Template
	logger *zap.Logger
}

// NewComposer constructs a Composer, resolving the display time zone.
func NewComposer(cfg Config, logger *zap.Logger) (*Composer, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}
	tmpl, err := template.ParseFS(templateFS, "document.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse document template: %w", err)
	}
	return &Composer{cfg: cfg, loc: loc, tmpl: tmpl, logger: logger}, nil
}

type documentData struct {
	Width        int
	Height       int
	Tiles        []tileImage
	PolygonPts   string
	CountyPts    []string
	Color        string
	Title        string
	Expires      string
	Areas        string
	Hazards      string
	AlertID      string
	Event        string
	Headline     string
	EffectiveRaw string
	ExpiresRaw   string
}

// Compose writes the renderer-ready document for one alert and returns its
// location.
func (c *Composer) Compose(a alert.Alert, counties []alert.CountyFeature) (alert.Document, error) {
	if !a.Polygon.Valid() {
		return alert.Document{}, fmt.Errorf("alert %s has no usable polygon", a.ID)
	}

	anchorLat, anchorLon := Centroid(a.Polygon)
	bounds := FitBounds(a.Polygon, c.cfg.PaddingDegrees)
	zoom := fitZoom(bounds, c.cfg.Width, c.cfg.Height)
	// The fitted bounds take over from the centroid anchor so the whole
	// polygon stays in frame.
	centerLat := (bounds.MinLat + bounds.MaxLat) / 2
	centerLon := (bounds.MinLon + bounds.MaxLon) / 2
	vp := newViewport(centerLat, centerLon, zoom, c.cfg.Width, c.cfg.Height)

	c.logger.Debug("view fitted",
		zap.String("alert_id", a.ID),
		zap.Float64("anchor_lat", anchorLat),
		zap.Float64("anchor_lon", anchorLon),
		zap.Int("zoom", zoom),
	)

	data := documentData{
		Width:        c.cfg.Width,
		Height:       c.cfg.Height,
		Tiles:        vp.Tiles(c.cfg.TileURL),
		PolygonPts:   vp.svgPoints(a.Polygon),
		Color:        ResolveColor(a.Event),
		Title:        fmt.Sprintf("A %s has been issued", displayEvent(a.Event)),
		Expires:      FormatExpiry(a.Expires, c.loc),
		Areas:        ExtractAffectedAreas(a),
		Hazards:      ExtractHazards(a.Description),
		AlertID:      a.ID,
		Event:        a.Event,
		Headline:     a.Headline,
		EffectiveRaw: a.Effective,
		ExpiresRaw:   a.Expires,
	}
	for _, county := range counties {
		for _, ring := range county.Rings {
			data.CountyPts = append(data.CountyPts, vp.svgPoints(ring))
		}
	}

	path := DocumentPath(c.cfg.OutputDir, a.ID)
	f, err := os.Create(path)
	if err != nil {
		return alert.Document{}, fmt.Errorf("create document %s: %w", path, err)
	}
	if err := c.tmpl.Execute(f, data); err != nil {
		f.Close()
		os.Remove(path)
		return alert.Document{}, fmt.Errorf("render document template: %w", err)
	}
	if err := f.Close(); err != nil {
		return alert.Document{}, fmt.Errorf("close document %s: %w", path, err)
	}

	c.logger.Info("document composed", zap.String("alert_id", a.ID), zap.String("path", path))
	return alert.Document{AlertID: a.ID, Path: path}, nil
}

func displayEvent(event string) string {
	if event == "" {
		return "Unknown Warning"
	}
	return event
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// DocumentPath names the composed document deterministically from the
// alert ID, so re-processing the same alert overwrites its predecessor.
func DocumentPath(outputDir, alertID string) string {
	return filepath.Join(outputDir, "warning_"+unsafePathChars.ReplaceAllString(alertID, "_")+".html")
}
