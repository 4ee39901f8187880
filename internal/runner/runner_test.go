package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wxvisuals/warnmap/internal/alert"
)

var testPolygon = alert.Polygon{{-88.0, 35.0}, {-87.0, 35.0}, {-87.0, 36.0}}

type fakePoller struct {
	alerts []alert.Alert
	err    error
	calls  int
}

func (f *fakePoller) Poll(context.Context) ([]alert.Alert, error) {
	f.calls++
	return f.alerts, f.err
}

type fakeStore struct {
	loads    int
	persists int
}

func (f *fakeStore) Load() error                    { f.loads++; return nil }
func (f *fakeStore) Seen(string) bool               { return false }
func (f *fakeStore) Mark(string, string, time.Time) {}
func (f *fakeStore) Persist() error                 { f.persists++; return nil }

type fakeCounties struct{}

func (fakeCounties) Nearby(alert.Polygon, float64) []alert.CountyFeature { return nil }

type fakeComposer struct {
	err   error
	calls []string
}

func (f *fakeComposer) Compose(a alert.Alert, _ []alert.CountyFeature) (alert.Document, error) {
	f.calls = append(f.calls, a.ID)
	if f.err != nil {
		return alert.Document{}, f.err
	}
	return alert.Document{AlertID: a.ID, Path: "out/" + a.ID + ".html"}, nil
}

type fakeRenderer struct {
	errFor     map[string]error
	noArtifact bool
	calls      []string
}

func (f *fakeRenderer) Render(_ context.Context, doc alert.Document) (alert.RenderedArtifact, error) {
	f.calls = append(f.calls, doc.AlertID)
	if err := f.errFor[doc.AlertID]; err != nil {
		if f.noArtifact {
			return alert.RenderedArtifact{AlertID: doc.AlertID, Degraded: true}, err
		}
		return alert.RenderedArtifact{AlertID: doc.AlertID, ImagePath: doc.Path, Degraded: true}, err
	}
	return alert.RenderedArtifact{AlertID: doc.AlertID, ImagePath: doc.Path + ".png"}, nil
}

type fakeSink struct {
	err   error
	calls []string
	paths []string
}

func (f *fakeSink) Deliver(_ context.Context, a alert.Alert, imagePath string) error {
	f.calls = append(f.calls, a.ID)
	f.paths = append(f.paths, imagePath)
	return f.err
}

type fixture struct {
	runner   *Runner
	poller   *fakePoller
	store    *fakeStore
	composer *fakeComposer
	renderer *fakeRenderer
	sink     *fakeSink
	clock    *clockwork.FakeClock
	slept    []time.Duration
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.CleanupMaxAge == 0 {
		cfg.CleanupMaxAge = 48 * time.Hour
	}
	if cfg.CleanupHour == 0 {
		cfg.CleanupHour = 3
	}
	f := &fixture{
		poller:   &fakePoller{},
		store:    &fakeStore{},
		composer: &fakeComposer{},
		renderer: &fakeRenderer{},
		sink:     &fakeSink{},
		clock:    clockwork.NewFakeClockAt(time.Now()),
	}
	f.runner = New(cfg, f.poller, f.store, fakeCounties{}, f.composer, f.renderer, f.sink, f.clock, zap.NewNop())
	f.runner.sleep = func(d time.Duration) { f.slept = append(f.slept, d) }
	return f
}

func TestCycleProcessesEachAlert(t *testing.T) {
	f := newFixture(t, Config{})
	f.poller.alerts = []alert.Alert{
		{ID: "a1", Event: "Tornado Warning", Polygon: testPolygon},
		{ID: "a2", Event: "Flood Warning", Polygon: testPolygon},
	}

	require.NoError(t, f.runner.Cycle(context.Background()))
	assert.Equal(t, []string{"a1", "a2"}, f.composer.calls)
	assert.Equal(t, []string{"a1", "a2"}, f.renderer.calls)
	assert.Equal(t, []string{"a1", "a2"}, f.sink.calls)
}

func TestCycleSkipsAlertsWithoutPolygon(t *testing.T) {
	f := newFixture(t, Config{})
	f.poller.alerts = []alert.Alert{
		{ID: "no-poly", Event: "Special Weather Statement"},
		{ID: "with-poly", Event: "Tornado Warning", Polygon: testPolygon},
	}

	require.NoError(t, f.runner.Cycle(context.Background()))
	assert.Equal(t, []string{"with-poly"}, f.composer.calls)
}

func TestCycleDeliversDegradedArtifactOnRenderFailure(t *testing.T) {
	f := newFixture(t, Config{})
	f.poller.alerts = []alert.Alert{
		{ID: "bad", Event: "Tornado Warning", Polygon: testPolygon},
		{ID: "good", Event: "Flood Warning", Polygon: testPolygon},
	}
	f.renderer.errFor = map[string]error{
		"bad": &alert.RenderError{AlertID: "bad", Err: errors.New("browser crashed")},
	}

	require.NoError(t, f.runner.Cycle(context.Background()))
	assert.Equal(t, []string{"bad", "good"}, f.renderer.calls)

	// The failed render's preserved document still reaches the sink; the
	// sibling is unaffected.
	require.Equal(t, []string{"bad", "good"}, f.sink.calls)
	assert.Equal(t, "out/bad.html", f.sink.paths[0])
	assert.Equal(t, "out/good.html.png", f.sink.paths[1])
}

func TestCycleSkipsSinkWhenNoArtifactSurvives(t *testing.T) {
	f := newFixture(t, Config{})
	f.poller.alerts = []alert.Alert{{ID: "gone", Event: "Tornado Warning", Polygon: testPolygon}}
	f.renderer.errFor = map[string]error{
		"gone": &alert.RenderError{AlertID: "gone", Err: errors.New("backend unavailable")},
	}
	f.renderer.noArtifact = true

	require.NoError(t, f.runner.Cycle(context.Background()))
	assert.Empty(t, f.sink.calls)
}

func TestCyclePollFailure(t *testing.T) {
	f := newFixture(t, Config{})
	f.poller.err = &alert.FetchError{URL: "https://feed", Err: errors.New("503")}

	err := f.runner.Cycle(context.Background())
	require.Error(t, err)
	assert.Empty(t, f.composer.calls)
}

func TestRunOnceLoadsAndPersists(t *testing.T) {
	f := newFixture(t, Config{})
	f.poller.alerts = []alert.Alert{{ID: "a1", Event: "Tornado Warning", Polygon: testPolygon}}

	require.NoError(t, f.runner.RunOnce(context.Background()))
	assert.Equal(t, 1, f.store.loads)
	assert.Equal(t, 1, f.store.persists)
	assert.Equal(t, []string{"a1"}, f.sink.calls)
}

func TestStartRunsImmediateInitialCycle(t *testing.T) {
	f := newFixture(t, Config{PollInterval: time.Hour})
	f.poller.alerts = []alert.Alert{{ID: "a1", Event: "Tornado Warning", Polygon: testPolygon}}

	require.NoError(t, f.runner.Start(context.Background()))
	defer f.runner.Stop()

	// The first cycle runs at startup, not an hour in.
	assert.Equal(t, 1, f.poller.calls)
	assert.Equal(t, []string{"a1"}, f.sink.calls)
}

func TestSchedulerResetsAfterConsecutiveFailures(t *testing.T) {
	f := newFixture(t, Config{})
	f.poller.err = errors.New("feed down")

	ctx := context.Background()

	// Start contributes the first failing cycle.
	require.NoError(t, f.runner.Start(ctx))
	defer f.runner.Stop()

	for i := 0; i < maxConsecutiveFailures-2; i++ {
		f.runner.scheduledCycle(ctx)
	}
	f.runner.mu.Lock()
	assert.Equal(t, maxConsecutiveFailures-1, f.runner.failures)
	f.runner.mu.Unlock()

	// Every sub-threshold failure backs off briefly before returning.
	assert.Len(t, f.slept, maxConsecutiveFailures-1)
	assert.Equal(t, failureBackoff, f.slept[0])

	// The threshold failure triggers the reset: jobs are re-registered and
	// the counter restarts from zero.
	f.runner.scheduledCycle(ctx)
	f.runner.mu.Lock()
	assert.Zero(t, f.runner.failures)
	assert.Len(t, f.runner.jobs, 2)
	f.runner.mu.Unlock()

	// The reset itself does not back off.
	assert.Len(t, f.slept, maxConsecutiveFailures-1)

	// Another failure is just failure number one of a fresh run.
	f.runner.scheduledCycle(ctx)
	f.runner.mu.Lock()
	assert.Equal(t, 1, f.runner.failures)
	f.runner.mu.Unlock()
}

func TestSuccessResetsFailureCounter(t *testing.T) {
	f := newFixture(t, Config{})
	f.poller.err = errors.New("feed down")

	ctx := context.Background()
	f.runner.scheduledCycle(ctx)
	f.runner.scheduledCycle(ctx)

	f.poller.err = nil
	f.runner.scheduledCycle(ctx)

	f.runner.mu.Lock()
	assert.Zero(t, f.runner.failures)
	f.runner.mu.Unlock()

	// Only the failing cycles slept.
	assert.Len(t, f.slept, 2)
}

func TestCleanupRemovesOnlyAgedArtifacts(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, Config{OutputDir: dir, CleanupMaxAge: 48 * time.Hour})

	old := filepath.Join(dir, "warning_old.png")
	fresh := filepath.Join(dir, "warning_fresh.png")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o600))

	now := f.clock.Now()
	require.NoError(t, os.Chtimes(old, now.Add(-49*time.Hour), now.Add(-49*time.Hour)))
	require.NoError(t, os.Chtimes(fresh, now.Add(-time.Hour), now.Add(-time.Hour)))

	f.runner.Cleanup()

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}
