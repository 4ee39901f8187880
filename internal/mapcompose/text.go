package mapcompose

import (
	"regexp"
	"strings"

	"github.com/wxvisuals/warnmap/internal/alert"
)

// Placeholder strings for the heuristic extractors.
const (
	hazardsNotSpecified = "Not specified"
	hazardsSeeDetails   = "See description for details"
	areasSeeDetails     = "See warning details for specific locations"
)

const hazardTextLimit = 250

var hazardSectionRe = regexp.MustCompile(`(?i)HAZARD\.\.\.([^\n]+)`)

// hazardKeywords is the fixed scan list used when no labeled HAZARD
// section exists. Order fixes the output order.
var hazardKeywords = []struct {
	needle string
	label  string
}{
	{"hail", "Hail"},
	{"wind gusts", "Wind Gusts"},
	{"tornado", "Tornado"},
	{"flooding", "Flooding"},
}

// ExtractHazards pulls a best-effort hazard summary from free-form
// description text. Rules run first-match-wins: the labeled "HAZARD..."
// section, then the keyword scan, then a generic placeholder.
func ExtractHazards(description string) string {
	if description == "" {
		return hazardsNotSpecified
	}
	if s, ok := hazardSection(description); ok {
		return s
	}
	if s, ok := hazardKeywordScan(description); ok {
		return s
	}
	return hazardsSeeDetails
}

func hazardSection(description string) (string, bool) {
	m := hazardSectionRe.FindStringSubmatch(description)
	if m == nil {
		return "", false
	}
	s := strings.TrimSpace(m[1])
	s = strings.TrimSpace(strings.ReplaceAll(s, "...", ""))
	if len(s) > hazardTextLimit {
		s = s[:hazardTextLimit] + "..."
	}
	return s, true
}

func hazardKeywordScan(description string) (string, bool) {
	lower := strings.ToLower(description)
	var found []string
	for _, kw := range hazardKeywords {
		if strings.Contains(lower, kw.needle) {
			found = append(found, kw.label)
		}
	}
	if len(found) == 0 {
		return "", false
	}
	return strings.Join(found, ", "), true
}

// ExtractAffectedAreas resolves the affected-area text for the banner.
// Resolution order: the explicit area field, a "county"-anchored headline
// heuristic, an "includes the count-" description extraction, then a
// generic placeholder. The order is load-bearing.
func ExtractAffectedAreas(a alert.Alert) string {
	if a.AreaDesc != "" {
		return a.AreaDesc
	}
	if s, ok := areasFromHeadline(a.Headline); ok {
		return s
	}
	if s, ok := areasFromDescription(a.Description); ok {
		return s
	}
	return areasSeeDetails
}

// areasFromHeadline takes the text preceding "county"/"counties" in the
// headline, which usually names the counties themselves.
func areasFromHeadline(headline string) (string, bool) {
	idx := strings.Index(strings.ToLower(headline), "county")
	if idx <= 0 {
		return "", false
	}
	return strings.TrimSpace(headline[:idx]), true
}

// areasFromDescription extracts the phrase following "includes the count-"
// (covering "county of" and "counties of") up to the next period.
func areasFromDescription(description string) (string, bool) {
	const anchor = "includes the count"
	idx := strings.Index(strings.ToLower(description), anchor)
	if idx <= 0 {
		return "", false
	}
	start := idx + len(anchor)
	end := strings.Index(description[start:], ".")
	if end <= 0 {
		return "", false
	}
	return strings.TrimSpace(description[start : start+end]), true
}
