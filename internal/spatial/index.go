package spatial

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/property-insights/internal/models"
)

// R-tree node fan-out
const (
	minChildren = 25
	maxChildren = 50
)

// pointTolerance gives each point a non-degenerate box; rtreego treats
// touching rectangles as disjoint
const pointTolerance = 1e-9

const earthRadiusKm = 6371.0088

// ErrInvalidBox is returned for a malformed viewport
var ErrInvalidBox = errors.New("invalid bounding box")

// BBox is a lat/lng viewport, bounds inclusive
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// Validate checks ordering and coordinate ranges
func (b BBox) Validate() error {
	switch {
	case b.MinLat > b.MaxLat || b.MinLng > b.MaxLng:
		return fmt.Errorf("%w: min exceeds max", ErrInvalidBox)
	case b.MinLat < -90 || b.MaxLat > 90:
		return fmt.Errorf("%w: latitude out of range", ErrInvalidBox)
	case b.MinLng < -180 || b.MaxLng > 180:
		return fmt.Errorf("%w: longitude out of range", ErrInvalidBox)
	}
	return nil
}

// Contains reports whether the point lies inside b
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// item is one indexed property, stored as a point in (lng, lat) space
type item struct {
	pos  int
	rect rtreego.Rect
}

func (it *item) Bounds() rtreego.Rect {
	return it.rect
}

// Index answers viewport and proximity queries over enriched properties.
// It is read-only after construction and safe for concurrent queries.
type Index struct {
	tree  *rtreego.Rtree
	props []models.EnrichedProperty
}

// NewIndex bulk-loads props into an R-tree
func NewIndex(props []models.EnrichedProperty) *Index {
	objs := make([]rtreego.Spatial, len(props))
	for i, p := range props {
		objs[i] = &item{
			pos:  i,
			rect: rtreego.Point{p.Longitude, p.Latitude}.ToRect(pointTolerance),
		}
	}
	return &Index{
		tree:  rtreego.NewTree(2, minChildren, maxChildren, objs...),
		props: props,
	}
}

// Len returns the number of indexed properties
func (ix *Index) Len() int {
	return ix.tree.Size()
}

// Within returns the properties inside box in input order
func (ix *Index) Within(box BBox) ([]models.EnrichedProperty, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}

	rect, err := rtreego.NewRectFromPoints(
		rtreego.Point{box.MinLng - pointTolerance, box.MinLat - pointTolerance},
		rtreego.Point{box.MaxLng + pointTolerance, box.MaxLat + pointTolerance},
	)
	if err != nil {
		return nil, err
	}

	var positions []int
	for _, obj := range ix.tree.SearchIntersect(rect) {
		it := obj.(*item)
		p := ix.props[it.pos]
		if box.Contains(p.Latitude, p.Longitude) {
			positions = append(positions, it.pos)
		}
	}
	return ix.collect(positions), nil
}

// Nearest returns up to k properties closest to (lat, lng), nearest first.
// Distance is planar in degrees, which is enough to rank neighbours.
func (ix *Index) Nearest(lat, lng float64, k int) []models.EnrichedProperty {
	if k <= 0 || ix.Len() == 0 {
		return []models.EnrichedProperty{}
	}

	found := ix.tree.NearestNeighbors(k, rtreego.Point{lng, lat})
	out := make([]models.EnrichedProperty, 0, len(found))
	for _, obj := range found {
		if obj == nil {
			continue
		}
		out = append(out, ix.props[obj.(*item).pos])
	}
	return out
}

// Radius returns the properties within km great-circle kilometres of
// (lat, lng) in input order
func (ix *Index) Radius(lat, lng, km float64) []models.EnrichedProperty {
	if km < 0 {
		return []models.EnrichedProperty{}
	}

	// degree box enclosing the circle, widened towards the poles
	dLat := km / earthRadiusKm * 180 / math.Pi
	dLng := 180.0
	if c := math.Cos(lat * math.Pi / 180); c > 1e-9 {
		dLng = math.Min(dLat/c, 180)
	}
	box := BBox{
		MinLat: math.Max(lat-dLat, -90),
		MaxLat: math.Min(lat+dLat, 90),
		MinLng: math.Max(lng-dLng, -180),
		MaxLng: math.Min(lng+dLng, 180),
	}

	candidates, err := ix.Within(box)
	if err != nil {
		return []models.EnrichedProperty{}
	}
	out := candidates[:0]
	for _, p := range candidates {
		if Haversine(lat, lng, p.Latitude, p.Longitude) <= km {
			out = append(out, p)
		}
	}
	return out
}

func (ix *Index) collect(positions []int) []models.EnrichedProperty {
	sort.Ints(positions)
	out := make([]models.EnrichedProperty, 0, len(positions))
	for _, pos := range positions {
		out = append(out, ix.props[pos])
	}
	return out
}

// Haversine returns the great-circle distance in kilometres
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := math.Pi / 180
	dLat := (lat2 - lat1) * toRad
	dLng := (lng2 - lng1) * toRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}
