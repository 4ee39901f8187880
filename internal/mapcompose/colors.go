package mapcompose

import "strings"

type eventColor struct {
	event string
	color string
}

// eventColors maps NWS event names to display colors, following the F5
// Data scheme. Order matters: the family-keyword fallback takes the first
// entry whose name contains the matched keyword.
var eventColors = []eventColor{
	{"Tornado Warning", "#FF0000"},
	{"Tornado Emergency", "#FF00FF"},

	{"Severe Thunderstorm Warning", "#FFFF00"},

	{"Flash Flood Warning", "#00FF00"},
	{"Flash Flood Emergency", "#00FFFF"},

	{"Flood Warning", "#00A000"},
	{"Areal Flood Warning", "#00A0A0"},
	{"Flood Advisory", "#00A000"},

	{"Winter Storm Warning", "#FF69B4"},
	{"Ice Storm Warning", "#FF69B4"},
	{"Blizzard Warning", "#FF69B4"},
	{"Lake Effect Snow Warning", "#FF69B4"},

	{"Winter Weather Advisory", "#FFC0CB"},
	{"Freezing Rain Advisory", "#FFC0CB"},

	{"High Wind Warning", "#A52A2A"},
	{"Wind Advisory", "#DEB887"},

	{"Hurricane Warning", "#FD6347"},
	{"Tropical Storm Warning", "#FD6347"},
	{"Storm Surge Warning", "#FD6347"},
	{"Coastal Flood Warning", "#6495ED"},

	{"Red Flag Warning", "#FF4500"},
	{"Fire Weather Warning", "#FF4500"},

	{"Excessive Heat Warning", "#8B0000"},
	{"Heat Advisory", "#CD5C5C"},
	{"Wind Chill Warning", "#9400D3"},
	{"Extreme Cold Warning", "#9400D3"},

	{"Air Quality Alert", "#808080"},

	{"Dust Storm Warning", "#D2691E"},
	{"Dense Fog Advisory", "#F0E68C"},
}

// familyKeywords are hazard families tried, in order, when no exact event
// match exists.
var familyKeywords = []string{
	"Tornado", "Severe", "Flash Flood", "Flood", "Winter", "Wind",
	"Hurricane", "Tropical", "Heat", "Cold", "Fire",
}

// Severity-class fallback colors.
const (
	colorWarning  = "#FF0000"
	colorWatch    = "#FFA500"
	colorAdvisory = "#FFFF00"
	colorDefault  = "#808080"
)

// ResolveColor picks the display color for an event name. Resolution order
// is exact match, then family-keyword substring match against the event
// name and table entries, then a warning/watch/advisory class fallback,
// then neutral gray. Specificity always wins over severity class.
func ResolveColor(event string) string {
	for _, ec := range eventColors {
		if ec.event == event {
			return ec.color
		}
	}

	lower := strings.ToLower(event)
	for _, kw := range familyKeywords {
		k := strings.ToLower(kw)
		if !strings.Contains(lower, k) {
			continue
		}
		for _, ec := range eventColors {
			if strings.Contains(strings.ToLower(ec.event), k) {
				return ec.color
			}
		}
	}

	switch {
	case strings.Contains(lower, "warning"):
		return colorWarning
	case strings.Contains(lower, "watch"):
		return colorWatch
	case strings.Contains(lower, "advisory"):
		return colorAdvisory
	}
	return colorDefault
}
