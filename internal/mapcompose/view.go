package mapcompose

import (
	"math"
	"strconv"
	"strings"

	"github.com/wxvisuals/warnmap/internal/alert"
)

const tileSize = 256

const (
	minZoom = 3
	maxZoom = 15
)

// Bounds is a fitted lat/lon view box.
type Bounds struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Centroid returns the mean of the polygon's vertices as the initial view
// anchor.
func Centroid(p alert.Polygon) (lat, lon float64) {
	if len(p) == 0 {
		return 0, 0
	}
	for _, pt := range p {
		lon += pt[0]
		lat += pt[1]
	}
	n := float64(len(p))
	return lat / n, lon / n
}

// FitBounds returns the polygon's bounding box expanded by padding degrees
// on all sides, so the full polygon stays visible regardless of its size.
func FitBounds(p alert.Polygon, padding float64) Bounds {
	b := Bounds{
		MinLat: math.Inf(1), MinLon: math.Inf(1),
		MaxLat: math.Inf(-1), MaxLon: math.Inf(-1),
	}
	for _, pt := range p {
		b.MinLon = math.Min(b.MinLon, pt[0])
		b.MaxLon = math.Max(b.MaxLon, pt[0])
		b.MinLat = math.Min(b.MinLat, pt[1])
		b.MaxLat = math.Max(b.MaxLat, pt[1])
	}
	b.MinLat -= padding
	b.MinLon -= padding
	b.MaxLat += padding
	b.MaxLon += padding
	return b
}

// project maps lat/lon to world pixel coordinates in the Web Mercator
// projection at the given zoom.
func project(lat, lon float64, zoom int) (x, y float64) {
	scale := float64(tileSize) * math.Exp2(float64(zoom))
	x = (lon + 180) / 360 * scale
	rad := lat * math.Pi / 180
	y = (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2 * scale
	return x, y
}

// fitZoom picks the largest zoom level at which the fitted bounds fit the
// viewport.
func fitZoom(b Bounds, width, height int) int {
	for z := maxZoom; z > minZoom; z-- {
		x1, y1 := project(b.MaxLat, b.MinLon, z) // top-left
		x2, y2 := project(b.MinLat, b.MaxLon, z) // bottom-right
		if x2-x1 <= float64(width) && y2-y1 <= float64(height) {
			return z
		}
	}
	return minZoom
}

// tileImage is one slippy tile placed in the viewport.
type tileImage struct {
	Src  string
	Left int
	Top  int
}

// viewport is the resolved pixel space for one document: a zoom level and
// the world-pixel coordinate of the viewport's top-left corner.
type viewport struct {
	zoom   int
	left   float64
	top    float64
	width  int
	height int
}

func newViewport(centerLat, centerLon float64, zoom, width, height int) viewport {
	cx, cy := project(centerLat, centerLon, zoom)
	return viewport{
		zoom:   zoom,
		left:   cx - float64(width)/2,
		top:    cy - float64(height)/2,
		width:  width,
		height: height,
	}
}

// Pixel maps a lat/lon into viewport pixel coordinates.
func (v viewport) Pixel(lat, lon float64) (x, y float64) {
	wx, wy := project(lat, lon, v.zoom)
	return wx - v.left, wy - v.top
}

// Tiles lays out the tile grid covering the viewport from a tile URL
// template with {z}/{x}/{y} placeholders.
func (v viewport) Tiles(urlTemplate string) []tileImage {
	n := int(math.Exp2(float64(v.zoom)))
	firstX := int(math.Floor(v.left / tileSize))
	firstY := int(math.Floor(v.top / tileSize))
	lastX := int(math.Floor((v.left + float64(v.width)) / tileSize))
	lastY := int(math.Floor((v.top + float64(v.height)) / tileSize))

	var tiles []tileImage
	for ty := firstY; ty <= lastY; ty++ {
		if ty < 0 || ty >= n {
			continue
		}
		for tx := firstX; tx <= lastX; tx++ {
			wrapped := ((tx % n) + n) % n
			tiles = append(tiles, tileImage{
				Src:  tileURL(urlTemplate, v.zoom, wrapped, ty),
				Left: int(math.Round(float64(tx)*tileSize - v.left)),
				Top:  int(math.Round(float64(ty)*tileSize - v.top)),
			})
		}
	}
	return tiles
}

func tileURL(template string, z, x, y int) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	)
	return r.Replace(template)
}

// svgPoints renders a ring as an SVG points attribute in viewport pixels.
func (v viewport) svgPoints(ring alert.Polygon) string {
	var sb strings.Builder
	for i, pt := range ring {
		if i > 0 {
			sb.WriteByte(' ')
		}
		x, y := v.Pixel(pt[1], pt[0])
		sb.WriteString(strconv.FormatFloat(x, 'f', 1, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(y, 'f', 1, 64))
	}
	return sb.String()
}
