package render

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/wxvisuals/warnmap/internal/alert"
)

// Config controls viewport geometry and render pacing.
type Config struct {
	Width   int
	Height  int
	Settle  time.Duration
	Timeout time.Duration
}

// Pipeline turns a composed document into a PNG artifact. The browser
// backend is selected lazily on first use so a broken browser install
// degrades individual renders instead of preventing startup.
type Pipeline struct {
	cfg    Config
	clock  clockwork.Clock
	logger *zap.Logger

	mu      sync.Mutex
	backend Backend
}

func NewPipeline(cfg Config, clock clockwork.Clock, logger *zap.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, clock: clock, logger: logger}
}

// NewPipelineWithBackend bypasses platform selection.
func NewPipelineWithBackend(backend Backend, cfg Config, clock clockwork.Clock, logger *zap.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, clock: clock, logger: logger, backend: backend}
}

// Render rasterizes the document and writes the PNG next to it. On
// success the intermediate HTML file is removed; on failure it is left
// on disk and the returned artifact points at it as a degraded result.
func (p *Pipeline) Render(ctx context.Context, doc alert.Document) (alert.RenderedArtifact, error) {
	degraded := alert.RenderedArtifact{
		AlertID:   doc.AlertID,
		ImagePath: doc.Path,
		CreatedAt: p.clock.Now(),
		Degraded:  true,
	}

	backend, err := p.ensureBackend()
	if err != nil {
		return degraded, &alert.RenderError{AlertID: doc.AlertID, Err: err}
	}

	abs, err := filepath.Abs(doc.Path)
	if err != nil {
		return degraded, &alert.RenderError{AlertID: doc.AlertID, Err: err}
	}
	fileURL := (&url.URL{Scheme: "file", Path: abs}).String()

	rctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	buf, err := backend.Screenshot(rctx, fileURL, p.cfg.Settle)
	if err != nil {
		return degraded, &alert.RenderError{AlertID: doc.AlertID, Err: err}
	}

	imagePath := imagePathFor(doc.Path)
	if err := os.WriteFile(imagePath, buf, 0o600); err != nil {
		return degraded, &alert.RenderError{AlertID: doc.AlertID, Err: err}
	}

	if err := os.Remove(doc.Path); err != nil {
		p.logger.Warn("removing intermediate document",
			zap.String("path", doc.Path),
			zap.Error(err))
	}

	return alert.RenderedArtifact{
		AlertID:   doc.AlertID,
		ImagePath: imagePath,
		CreatedAt: p.clock.Now(),
	}, nil
}

// ensureBackend walks the platform strategy table once and memoizes the
// first backend that starts.
func (p *Pipeline) ensureBackend() (Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.backend != nil {
		return p.backend, nil
	}

	var lastErr error
	for _, spec := range backendCandidates(runtime.GOOS, runtime.GOARCH) {
		backend, err := spec.construct(p.cfg)
		if err != nil {
			p.logger.Warn("render backend unavailable",
				zap.String("backend", spec.name),
				zap.Error(err))
			lastErr = err
			continue
		}
		p.logger.Info("render backend selected", zap.String("backend", spec.name))
		p.backend = backend
		return backend, nil
	}
	return nil, lastErr
}

func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backend != nil {
		p.backend.Close()
		p.backend = nil
	}
}

func imagePathFor(documentPath string) string {
	return strings.TrimSuffix(documentPath, filepath.Ext(documentPath)) + ".png"
}
