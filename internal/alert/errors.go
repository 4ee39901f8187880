package alert

import "fmt"

// FetchError means the upstream feed was unreachable or returned a non-2xx
// status. The whole poll is treated as zero new alerts and retried on the
// next tick.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError means a single feed entry was malformed or unidentifiable.
// The entry is skipped; sibling entries are unaffected.
type ParseError struct {
	Entry string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse entry %q: %v", e.Entry, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RenderError means the rendering backend failed after fallback. The
// intermediate document is kept as a degraded artifact.
type RenderError struct {
	AlertID string
	Err     error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render alert %s: %v", e.AlertID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// DeliveryError means the sink was unreachable. The artifact stays on disk
// and delivery is not retried.
type DeliveryError struct {
	AlertID string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver alert %s: %v", e.AlertID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
