package engine

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultThreshold is the luminance above which a mask pixel is foreground.
const DefaultThreshold = 127

// Mask is a binary ground-truth raster. Pixels are foreground when their
// greyscale luminance is strictly above the threshold.
type Mask struct {
	w, h   int
	fg     []bool
	count  int
	bounds image.Rectangle
}

// NewMask classifies every pixel of img. A mask without foreground pixels is
// reported as ErrMalformedMask.
func NewMask(img image.Image, threshold uint8) (*Mask, error) {
	b := img.Bounds()
	m := &Mask{
		w:  b.Dx(),
		h:  b.Dy(),
		fg: make([]bool, b.Dx()*b.Dy()),
	}

	minX, minY := math.MaxInt, math.MaxInt
	maxX, maxY := -1, -1
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y <= threshold {
				continue
			}
			m.fg[y*m.w+x] = true
			m.count++
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
	}

	if m.count == 0 {
		return nil, fmt.Errorf("%w: no foreground pixels in %dx%d raster", ErrMalformedMask, m.w, m.h)
	}
	m.bounds = image.Rect(minX, minY, maxX+1, maxY+1)
	return m, nil
}

// LoadMask decodes a PNG, JPEG, BMP or WebP mask from disk.
func LoadMask(path string, threshold uint8) (*Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return NewMask(img, threshold)
}

func (m *Mask) Size() (w, h int) { return m.w, m.h }

// Foreground reports whether the mask-local pixel (x, y) belongs to the
// object. Coordinates outside the raster are background.
func (m *Mask) Foreground(x, y int) bool {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return false
	}
	return m.fg[y*m.w+x]
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int { return m.count }

// Bounds returns the smallest rectangle holding every foreground pixel, in
// mask-local coordinates with an exclusive Max.
func (m *Mask) Bounds() image.Rectangle { return m.bounds }

// Placement locates a drawn raster on the surface.
type Placement struct {
	Origin image.Point
	Scale  float64
}

func (p Placement) scale() float64 {
	if p.Scale <= 0 {
		return 1
	}
	return p.Scale
}

// Local maps a surface point into raster-local pixel coordinates.
func (p Placement) Local(pt image.Point) (x, y int) {
	s := p.scale()
	x = int(math.Floor(float64(pt.X-p.Origin.X) / s))
	y = int(math.Floor(float64(pt.Y-p.Origin.Y) / s))
	return x, y
}

// Rect maps a raster-local rectangle onto the surface.
func (p Placement) Rect(r image.Rectangle) image.Rectangle {
	s := p.scale()
	return image.Rect(
		p.Origin.X+int(float64(r.Min.X)*s), p.Origin.Y+int(float64(r.Min.Y)*s),
		p.Origin.X+int(float64(r.Max.X)*s), p.Origin.Y+int(float64(r.Max.Y)*s),
	)
}

type HitStrategy int

const (
	ExactPixel HitStrategy = iota
	BoundingRegion
)

func (s HitStrategy) String() string {
	switch s {
	case ExactPixel:
		return "exact-pixel"
	case BoundingRegion:
		return "bounding-region"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

func ParseHitStrategy(s string) (HitStrategy, error) {
	switch s {
	case "exact-pixel", "pixel", "":
		return ExactPixel, nil
	case "bounding-region", "bbox", "region":
		return BoundingRegion, nil
	}
	return 0, fmt.Errorf("unknown hit strategy: %q", s)
}

// HitTester decides whether a surface point lands on the target object.
type HitTester interface {
	Hit(pt image.Point) bool
}

// NewHitTester builds the tester for one trial. The result is a pure function
// of its inputs: the same point always yields the same answer.
func NewHitTester(strategy HitStrategy, mask *Mask, at Placement) (HitTester, error) {
	if mask == nil || mask.count == 0 {
		return nil, fmt.Errorf("%w: empty mask", ErrMalformedMask)
	}
	switch strategy {
	case ExactPixel:
		return &pixelTester{mask: mask, at: at}, nil
	case BoundingRegion:
		s := at.scale()
		b := mask.Bounds()
		return &regionTester{
			x0: float64(at.Origin.X) + float64(b.Min.X)*s,
			y0: float64(at.Origin.Y) + float64(b.Min.Y)*s,
			x1: float64(at.Origin.X) + float64(b.Max.X)*s,
			y1: float64(at.Origin.Y) + float64(b.Max.Y)*s,
		}, nil
	}
	return nil, fmt.Errorf("unknown hit strategy: %v", strategy)
}

type pixelTester struct {
	mask *Mask
	at   Placement
}

func (t *pixelTester) Hit(pt image.Point) bool {
	x, y := t.at.Local(pt)
	return t.mask.Foreground(x, y)
}

// regionTester holds the bounding box in surface coordinates. The far edges
// are exclusive in continuous space, which makes the last foreground row and
// column inclusive for integer clicks.
type regionTester struct {
	x0, y0, x1, y1 float64
}

func (t *regionTester) Hit(pt image.Point) bool {
	x, y := float64(pt.X), float64(pt.Y)
	return x >= t.x0 && x < t.x1 && y >= t.y0 && y < t.y1
}
