package nws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wxvisuals/warnmap/internal/alert"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("warnmap-test/1.0", 5*time.Second, zap.NewNop())
	c.SetBaseURL(srv.URL)
	return c, srv
}

func TestGetSetsIdentityHeaders(t *testing.T) {
	var gotAgent, gotAccept string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("ok"))
	})

	body, err := c.Get(context.Background(), srv.URL+"/anything", "application/atom+xml")
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), body)
	assert.Equal(t, "warnmap-test/1.0", gotAgent)
	assert.Equal(t, "application/atom+xml", gotAccept)
}

func TestGetNon2xxIsFetchError(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := c.Get(context.Background(), srv.URL+"/missing", "")
	require.Error(t, err)

	var ferr *alert.FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, ferr.URL, "/missing")
}

func TestGetLogsRejectedFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	c := NewClient("warnmap-test/1.0", 5*time.Second, zap.New(core))
	c.SetBaseURL(srv.URL)

	_, err := c.Get(context.Background(), srv.URL+"/feed", "")
	require.Error(t, err)

	entries := logs.FilterMessage("upstream fetch rejected").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, srv.URL+"/feed", fields["url"])
	assert.Contains(t, fields["status"], "410")
}

func TestPointZone(t *testing.T) {
	tests := []struct {
		name   string
		county string
		want   string
	}{
		{"bare id", "TNC071", "TNC071"},
		{"full url stripped", "https://api.weather.gov/zones/county/TNC071", "TNC071"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/points/35.1000,-88.2000", r.URL.Path)
				w.Write([]byte(`{"properties":{"county":"` + tt.county + `"}}`))
			})

			zone, err := c.PointZone(context.Background(), 35.1, -88.2)
			require.NoError(t, err)
			assert.Equal(t, tt.want, zone)
		})
	}
}

func TestPointZoneMissingCounty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"properties":{}}`))
	})

	_, err := c.PointZone(context.Background(), 35.1, -88.2)
	assert.Error(t, err)
}

func TestActiveAlerts(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alerts/active", r.URL.Path)
		assert.Equal(t, "TNC071", r.URL.Query().Get("zone"))
		w.Write([]byte(`{"type":"FeatureCollection","features":[
			{"id":"a1","properties":{"event":"Tornado Warning"}}]}`))
	})

	fc, err := c.ActiveAlerts(context.Background(), "TNC071")
	require.NoError(t, err)
	require.Len(t, fc.Alerts(), 1)
	assert.Equal(t, "Tornado Warning", fc.Alerts()[0].Properties.Event)
}

func TestAlertByIDBareFeature(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alerts/urn:oid:test.1", r.URL.Path)
		w.Write([]byte(`{"id":"urn:oid:test.1","properties":{"event":"Flood Warning"}}`))
	})

	fc, err := c.AlertByID(context.Background(), "urn:oid:test.1")
	require.NoError(t, err)
	feats := fc.Alerts()
	require.Len(t, feats, 1)
	assert.Equal(t, "urn:oid:test.1", feats[0].ID)
	assert.Equal(t, "Flood Warning", feats[0].Properties.Event)
}

func TestZoneName(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"properties":{"name":"McNairy"}}`))
	})

	name, err := c.ZoneName(context.Background(), srv.URL+"/zones/county/TNC071")
	require.NoError(t, err)
	assert.Equal(t, "McNairy", name)
}
