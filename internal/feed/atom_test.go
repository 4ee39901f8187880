package feed

import (
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxvisuals/warnmap/internal/alert"
)

func parseDoc(t *testing.T, xml string) *xmlquery.Node {
	t.Helper()
	doc, err := xmlquery.Parse(strings.NewReader(xml))
	require.NoError(t, err)
	return doc
}

func TestCollectEntriesCanonicalNamespace(t *testing.T) {
	doc := parseDoc(t, `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry><id>https://example.test/alerts/one</id></entry>
  <entry><id>https://example.test/alerts/two</id></entry>
</feed>`)

	entries := collectEntries(doc)
	require.Len(t, entries, 2)
}

func TestCollectEntriesNoNamespace(t *testing.T) {
	doc := parseDoc(t, `<?xml version="1.0"?>
<feed>
  <entry><id>one</id></entry>
</feed>`)

	entries := collectEntries(doc)
	require.Len(t, entries, 1)
}

func TestCollectEntriesNonStandardRootNamespace(t *testing.T) {
	// A feed using a vendor namespace still yields entries because root
	// declarations are tried first.
	doc := parseDoc(t, `<?xml version="1.0"?>
<feed xmlns="urn:example:alerts">
  <entry><id>one</id></entry>
  <entry><id>two</id></entry>
</feed>`)

	entries := collectEntries(doc)
	require.Len(t, entries, 2)
}

func TestCollectEntriesMixedTiersNoDuplicates(t *testing.T) {
	doc := parseDoc(t, `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:x="urn:example:ext">
  <entry><id>atom-entry</id></entry>
  <x:entry><id>ext-entry</id></x:entry>
</feed>`)

	entries := collectEntries(doc)
	require.Len(t, entries, 2)

	seen := make(map[*xmlquery.Node]int)
	for _, e := range entries {
		seen[e]++
	}
	for _, count := range seen {
		assert.Equal(t, 1, count)
	}
}

func TestEntryID(t *testing.T) {
	tests := []struct {
		name    string
		xml     string
		want    string
		wantErr bool
	}{
		{
			name: "id element",
			xml:  `<entry><id>https://api.weather.gov/alerts/urn:oid:2.49.0.1.840.0.abc</id></entry>`,
			want: "urn:oid:2.49.0.1.840.0.abc",
		},
		{
			name: "alternate link fallback",
			xml: `<entry>
  <link rel="self" href="https://example.test/self"/>
  <link rel="alternate" href="https://example.test/alerts/xyz-123"/>
</entry>`,
			want: "xyz-123",
		},
		{
			name: "bare id without slashes",
			xml:  `<entry><id>plain-id</id></entry>`,
			want: "plain-id",
		},
		{
			name:    "nothing resolvable",
			xml:     `<entry><title>Tornado Warning</title></entry>`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseDoc(t, tt.xml)
			entry := xmlquery.FindOne(doc, "//entry")
			require.NotNil(t, entry)

			got, err := entryID(entry)
			if tt.wantErr {
				require.Error(t, err)
				var perr *alert.ParseError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, "Tornado Warning", perr.Entry)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
