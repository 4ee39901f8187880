// Package feed polls the upstream alert feed and yields unseen alerts.
package feed

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/wxvisuals/warnmap/internal/alert"
	"github.com/wxvisuals/warnmap/internal/nws"
)

const (
	apiFeedMarker = "api.weather.gov/alerts"
	acceptAtom    = "application/atom+xml"
	atomURLSuffix = ".atom"
)

// Source is the subset of the NWS client the poller needs.
type Source interface {
	Get(ctx context.Context, url, accept string) ([]byte, error)
	ActiveAlertsURL(ctx context.Context, url string) (*nws.FeatureCollection, error)
	AlertByID(ctx context.Context, id string) (*nws.FeatureCollection, error)
}

// Poller fetches the configured feed, normalizes entries, and filters out
// alerts the dedup store has already seen. New alerts are marked processed
// the moment they resolve, so a failed resolution is retried next poll.
type Poller struct {
	source  Source
	store   alert.Store
	norm    *Normalizer
	feedURL string
	clock   clockwork.Clock
	logger  *zap.Logger
}

// NewPoller constructs a Poller.
func NewPoller(
	source Source,
	store alert.Store,
	norm *Normalizer,
	feedURL string,
	clock clockwork.Clock,
	logger *zap.Logger,
) *Poller {
	return &Poller{
		source:  source,
		store:   store,
		norm:    norm,
		feedURL: feedURL,
		clock:   clock,
		logger:  logger,
	}
}

// Poll returns the alerts not seen before, advancing the dedup store. A
// transport failure surfaces as a FetchError; the caller treats that as
// zero new alerts this cycle.
func (p *Poller) Poll(ctx context.Context) ([]alert.Alert, error) {
	var (
		alerts []alert.Alert
		err    error
	)
	if isAPIFeed(p.feedURL) {
		alerts, err = p.pollAPI(ctx)
	} else {
		alerts, err = p.pollAtom(ctx)
	}
	if err != nil {
		return nil, err
	}

	if perr := p.store.Persist(); perr != nil {
		p.logger.Error("persist dedup store failed", zap.Error(perr))
	}
	return alerts, nil
}

func isAPIFeed(u string) bool {
	return strings.Contains(u, apiFeedMarker)
}

// pollAPI reads the structured GeoJSON endpoint directly, stripping the
// Atom suffix when the configured URL carries one.
func (p *Poller) pollAPI(ctx context.Context) ([]alert.Alert, error) {
	url := strings.Replace(p.feedURL, atomURLSuffix, "", 1)
	fc, err := p.source.ActiveAlertsURL(ctx, url)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("api feed fetched", zap.Int("features", len(fc.Alerts())))

	var fresh []alert.Alert
	for _, f := range fc.Alerts() {
		a := p.norm.Normalize(ctx, f)
		if a.ID == "" {
			p.logger.Warn("feature without id skipped", zap.String("stage", "poll"), zap.String("event", a.Event))
			continue
		}
		if p.store.Seen(a.ID) {
			continue
		}
		p.store.Mark(a.ID, a.Event, p.clock.Now())
		fresh = append(fresh, a)
		p.logger.Info("new alert", zap.String("alert_id", a.ID), zap.String("event", a.Event))
	}
	return fresh, nil
}

// pollAtom parses the XML document and resolves each unseen entry to its
// full detail record by ID.
func (p *Poller) pollAtom(ctx context.Context) ([]alert.Alert, error) {
	body, err := p.source.Get(ctx, p.feedURL, acceptAtom)
	if err != nil {
		return nil, err
	}

	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &alert.FetchError{URL: p.feedURL, Err: err}
	}

	entries := collectEntries(doc)
	p.logger.Debug("atom feed fetched", zap.Int("entries", len(entries)))

	var fresh []alert.Alert
	for _, entry := range entries {
		id, err := entryID(entry)
		if err != nil {
			var perr *alert.ParseError
			if errors.As(err, &perr) {
				p.logger.Warn("unidentifiable feed entry skipped",
					zap.String("stage", "poll"), zap.String("entry", perr.Entry))
				continue
			}
			return nil, err
		}
		if p.store.Seen(id) {
			continue
		}

		a, ok := p.resolveEntry(ctx, id)
		if !ok {
			// Not marked: the entry stays eligible for the next poll.
			continue
		}
		p.store.Mark(id, a.Event, p.clock.Now())
		fresh = append(fresh, a)
		p.logger.Info("new alert", zap.String("alert_id", id), zap.String("event", a.Event))
	}
	return fresh, nil
}

func (p *Poller) resolveEntry(ctx context.Context, id string) (alert.Alert, bool) {
	fc, err := p.source.AlertByID(ctx, id)
	if err != nil {
		p.logger.Error("alert detail fetch failed",
			zap.String("stage", "resolve"), zap.String("alert_id", id), zap.Error(err))
		return alert.Alert{}, false
	}
	feats := fc.Alerts()
	if len(feats) == 0 {
		p.logger.Error("alert detail empty",
			zap.String("stage", "resolve"), zap.String("alert_id", id))
		return alert.Alert{}, false
	}
	a := p.norm.Normalize(ctx, feats[0])
	if a.ID == "" {
		a.ID = id
	}
	return a, true
}
