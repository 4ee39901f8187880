package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// chromedpBackend drives a single headless browser process. Each
// screenshot runs in its own tab so a wedged page cannot poison later
// renders.
type chromedpBackend struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	width         int
	height        int
}

func newChromedpBackend(cfg Config, extra ...chromedp.ExecAllocatorOption) (*chromedpBackend, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	opts = append(opts, extra...)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so construction fails fast when the
	// binary is missing or refuses the flag set.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	return &chromedpBackend{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		width:         cfg.Width,
		height:        cfg.Height,
	}, nil
}

func (b *chromedpBackend) Screenshot(ctx context.Context, fileURL string, settle time.Duration) ([]byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()

	// Propagate caller cancellation and deadline into the tab context.
	if done := ctx.Done(); done != nil {
		go func() {
			select {
			case <-done:
				cancelTab()
			case <-tabCtx.Done():
			}
		}()
	}

	var buf []byte
	tasks := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetDeviceMetricsOverride(int64(b.width), int64(b.height), 1, false).Do(ctx)
		}),
		chromedp.Navigate(fileURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settle),
		chromedp.CaptureScreenshot(&buf),
	}
	if err := chromedp.Run(tabCtx, tasks...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("screenshot %s: %w", fileURL, ctxErr)
		}
		return nil, fmt.Errorf("screenshot %s: %w", fileURL, err)
	}
	return buf, nil
}

func (b *chromedpBackend) Close() {
	b.browserCancel()
	b.allocCancel()
}
