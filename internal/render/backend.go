// Package render rasterizes composed map documents with a headless
// browser.
package render

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// Backend rasterizes one document URL into PNG bytes.
type Backend interface {
	Screenshot(ctx context.Context, fileURL string, settle time.Duration) ([]byte, error)
	Close()
}

// backendSpec is one row of the platform strategy table.
type backendSpec struct {
	name      string
	construct func(cfg Config) (Backend, error)
}

// backendCandidates maps a platform signature to backend constructors,
// tried in order. The default configuration is always the last resort;
// when it too fails, the failure surfaces as a RenderError.
func backendCandidates(goos, goarch string) []backendSpec {
	defaultSpec := backendSpec{name: "chromedp-default", construct: newDefaultBackend}
	switch {
	case goos == "linux":
		return []backendSpec{{name: "chromium-linux", construct: newLinuxBackend}, defaultSpec}
	case goos == "darwin" && goarch == "arm64":
		return []backendSpec{{name: "chrome-darwin-arm64", construct: newDefaultBackend}, defaultSpec}
	default:
		return []backendSpec{{name: "chrome-managed", construct: newManagedBackend}, defaultSpec}
	}
}

func newDefaultBackend(cfg Config) (Backend, error) {
	return newChromedpBackend(cfg)
}

// newLinuxBackend targets distro chromium, which needs sandboxing relaxed
// when running under constrained service accounts.
func newLinuxBackend(cfg Config) (Backend, error) {
	return newChromedpBackend(cfg,
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
}

func newManagedBackend(cfg Config) (Backend, error) {
	return newChromedpBackend(cfg,
		chromedp.Flag("disable-extensions", true),
	)
}
