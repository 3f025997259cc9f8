package engine

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewMaskThreshold(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.SetGray(0, 0, color.Gray{Y: 127})
	img.SetGray(1, 0, color.Gray{Y: 128})
	img.SetGray(2, 0, color.Gray{Y: 255})

	m, err := NewMask(img, DefaultThreshold)
	require.NoError(t, err)

	assert.False(t, m.Foreground(0, 0), "127 is not above the threshold")
	assert.True(t, m.Foreground(1, 0))
	assert.True(t, m.Foreground(2, 0))
	assert.Equal(t, 2, m.Count())
	assert.Equal(t, image.Rect(1, 0, 3, 1), m.Bounds())
}

func TestNewMaskEmpty(t *testing.T) {
	_, err := NewMask(image.NewGray(image.Rect(0, 0, 8, 8)), DefaultThreshold)
	assert.ErrorIs(t, err, ErrMalformedMask)
}

func TestNewMaskColorLuminance(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255}) // luminance ~76
	img.Set(1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	m, err := NewMask(img, DefaultThreshold)
	require.NoError(t, err)
	assert.False(t, m.Foreground(0, 0))
	assert.True(t, m.Foreground(1, 0))
}

func TestForegroundOutOfRange(t *testing.T) {
	m, err := NewMask(grayRaster(4, 4, image.Rect(0, 0, 4, 4)), DefaultThreshold)
	require.NoError(t, err)

	for _, pt := range []image.Point{{-1, 0}, {0, -1}, {4, 0}, {0, 4}, {100, 100}} {
		assert.False(t, m.Foreground(pt.X, pt.Y), "point %v", pt)
	}
}

func TestExactPixelHit(t *testing.T) {
	trial := squareTrial(t, 1)
	at := Placement{Origin: image.Pt(45, 45), Scale: 1}

	hit, err := NewHitTester(ExactPixel, trial.Mask, at)
	require.NoError(t, err)

	assert.True(t, hit.Hit(image.Pt(47, 47)))
	assert.True(t, hit.Hit(image.Pt(49, 49)))
	assert.False(t, hit.Hit(image.Pt(50, 50)))
	assert.False(t, hit.Hit(image.Pt(46, 47)))
	assert.False(t, hit.Hit(missPoint), "outside the drawn stimulus")
	assert.False(t, hit.Hit(image.Pt(-5, -5)))
}

func TestExactPixelScaled(t *testing.T) {
	trial := squareTrial(t, 1)
	at := Placement{Origin: image.Pt(10, 10), Scale: 2}

	hit, err := NewHitTester(ExactPixel, trial.Mask, at)
	require.NoError(t, err)

	// mask pixel 2 covers surface pixels 14 and 15
	assert.False(t, hit.Hit(image.Pt(13, 14)))
	assert.True(t, hit.Hit(image.Pt(14, 14)))
	assert.True(t, hit.Hit(image.Pt(19, 19)))
	assert.False(t, hit.Hit(image.Pt(20, 20)))
}

func TestBoundingRegionCoversGaps(t *testing.T) {
	// Two foreground corners; everything between them is inside the region.
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	img.SetGray(2, 3, color.Gray{Y: 255})
	img.SetGray(6, 8, color.Gray{Y: 255})
	m, err := NewMask(img, DefaultThreshold)
	require.NoError(t, err)

	region, err := NewHitTester(BoundingRegion, m, Placement{Scale: 1})
	require.NoError(t, err)
	pixel, err := NewHitTester(ExactPixel, m, Placement{Scale: 1})
	require.NoError(t, err)

	assert.True(t, region.Hit(image.Pt(4, 5)))
	assert.False(t, pixel.Hit(image.Pt(4, 5)))
	assert.True(t, region.Hit(image.Pt(6, 8)), "far corner is inclusive")
	assert.False(t, region.Hit(image.Pt(7, 8)))
	assert.False(t, region.Hit(image.Pt(1, 3)))
}

func TestNewHitTesterEmptyMask(t *testing.T) {
	_, err := NewHitTester(ExactPixel, nil, Placement{})
	assert.ErrorIs(t, err, ErrMalformedMask)
	_, err = NewHitTester(BoundingRegion, &Mask{}, Placement{})
	assert.ErrorIs(t, err, ErrMalformedMask)
}

func TestParseHitStrategy(t *testing.T) {
	cases := map[string]HitStrategy{
		"":                ExactPixel,
		"pixel":           ExactPixel,
		"exact-pixel":     ExactPixel,
		"bbox":            BoundingRegion,
		"bounding-region": BoundingRegion,
	}
	for in, want := range cases {
		got, err := ParseHitStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseHitStrategy("circle")
	assert.Error(t, err)
	assert.Equal(t, "bounding-region", BoundingRegion.String())
}

// Every strategy's verdict on a pixel inside the drawn area matches the mask
// and the region contains every exact-pixel hit.
func TestHitTesterProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := rapid.IntRange(1, 24).Draw(rt, "w")
		h := rapid.IntRange(1, 24).Draw(rt, "h")
		x0 := rapid.IntRange(0, w-1).Draw(rt, "x0")
		y0 := rapid.IntRange(0, h-1).Draw(rt, "y0")
		x1 := rapid.IntRange(x0+1, w).Draw(rt, "x1")
		y1 := rapid.IntRange(y0+1, h).Draw(rt, "y1")
		origin := image.Pt(rapid.IntRange(-50, 50).Draw(rt, "ox"), rapid.IntRange(-50, 50).Draw(rt, "oy"))

		fg := image.Rect(x0, y0, x1, y1)
		m, err := NewMask(grayRaster(w, h, fg), DefaultThreshold)
		if err != nil {
			rt.Fatalf("NewMask: %v", err)
		}
		if m.Bounds() != fg {
			rt.Fatalf("bounds %v, want %v", m.Bounds(), fg)
		}

		at := Placement{Origin: origin, Scale: 1}
		pixel, _ := NewHitTester(ExactPixel, m, at)
		region, _ := NewHitTester(BoundingRegion, m, at)

		pt := image.Pt(
			origin.X+rapid.IntRange(-5, w+5).Draw(rt, "px"),
			origin.Y+rapid.IntRange(-5, h+5).Draw(rt, "py"),
		)
		want := pt.Sub(origin).In(fg)
		if got := pixel.Hit(pt); got != want {
			rt.Fatalf("pixel.Hit(%v) = %v, want %v", pt, got, want)
		}
		// a rectangular mask fills its own bounding region
		if got := region.Hit(pt); got != want {
			rt.Fatalf("region.Hit(%v) = %v, want %v", pt, got, want)
		}
		if pixel.Hit(pt) != pixel.Hit(pt) {
			rt.Fatalf("Hit is not deterministic at %v", pt)
		}
	})
}

func TestLoadMaskPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gt1.png")
	writePNG(t, path, grayRaster(12, 8, image.Rect(3, 1, 6, 4)))

	m, err := LoadMask(path, DefaultThreshold)
	require.NoError(t, err)
	w, h := m.Size()
	assert.Equal(t, 12, w)
	assert.Equal(t, 8, h)
	assert.Equal(t, 9, m.Count())

	_, err = LoadMask(filepath.Join(t.TempDir(), "missing.png"), DefaultThreshold)
	assert.Error(t, err)
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}
