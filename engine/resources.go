package engine

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/Zyko0/go-sdl3/img"
	"github.com/Zyko0/go-sdl3/sdl"
)

// AssetLayout locates the media of a session: two background images and, per
// trial, a target cue, a stimulus scene and a ground-truth mask.
type AssetLayout struct {
	Root            string
	Backgrounds     []string
	TargetPattern   string
	StimulusPattern string
	MaskPattern     string
}

func (l AssetLayout) BackgroundPath(i int) string {
	return filepath.Join(l.Root, "backgrounds", l.Backgrounds[i])
}

func (l AssetLayout) TargetPath(index int) string {
	return filepath.Join(l.Root, "targets", fmt.Sprintf(l.TargetPattern, index))
}

func (l AssetLayout) StimulusPath(index int) string {
	return filepath.Join(l.Root, "stimuli", fmt.Sprintf(l.StimulusPattern, index))
}

func (l AssetLayout) MaskPath(index int) string {
	return filepath.Join(l.Root, "gt", fmt.Sprintf(l.MaskPattern, index))
}

// ImageLoader turns a file into a drawable handle.
type ImageLoader interface {
	LoadImage(path string) (Image, error)
}

// AssetLoader implements TrialLoader on top of an AssetLayout.
type AssetLoader struct {
	Layout    AssetLayout
	Images    ImageLoader
	Threshold uint8
}

func (a *AssetLoader) LoadTrial(index int) (*Trial, error) {
	target, err := a.load(index, a.Layout.TargetPath(index))
	if err != nil {
		return nil, err
	}
	stim, err := a.load(index, a.Layout.StimulusPath(index))
	if err != nil {
		a.release(target)
		return nil, err
	}

	maskPath := a.Layout.MaskPath(index)
	mask, err := LoadMask(maskPath, a.Threshold)
	if err != nil {
		kind := ErrMissingAsset
		if errors.Is(err, ErrMalformedMask) {
			kind = ErrMalformedMask
		}
		a.release(target, stim)
		return nil, &AssetError{Trial: index, Path: maskPath, Kind: kind, Err: err}
	}

	return &Trial{Index: index, Target: target, Stimulus: stim, Mask: mask}, nil
}

// ReleaseTrial hands the trial's textures back when the image loader owns
// GPU memory.
func (a *AssetLoader) ReleaseTrial(t *Trial) {
	a.release(t.Target, t.Stimulus)
}

func (a *AssetLoader) release(images ...Image) {
	r, ok := a.Images.(interface{ Release(Image) })
	if !ok {
		return
	}
	for _, im := range images {
		if im != nil {
			r.Release(im)
		}
	}
}

func (a *AssetLoader) LoadBackgrounds() ([2]Image, error) {
	var bgs [2]Image
	if len(a.Layout.Backgrounds) != 2 {
		return bgs, fmt.Errorf("%w: need two backgrounds, got %d", ErrMissingAsset, len(a.Layout.Backgrounds))
	}
	for i := range bgs {
		path := a.Layout.BackgroundPath(i)
		im, err := a.Images.LoadImage(path)
		if err != nil {
			return bgs, &AssetError{Path: path, Kind: ErrMissingAsset, Err: err}
		}
		bgs[i] = im
	}
	return bgs, nil
}

func (a *AssetLoader) load(index int, path string) (Image, error) {
	im, err := a.Images.LoadImage(path)
	if err != nil {
		return nil, &AssetError{Trial: index, Path: path, Kind: ErrMissingAsset, Err: err}
	}
	return im, nil
}

// ImageInfo is the decoded header of an image file.
type ImageInfo struct {
	W, H int
}

func (i ImageInfo) Size() (w, h int) { return i.W, i.H }

// HeaderLoader reads only image headers. It is enough to validate a layout
// without a display.
type HeaderLoader struct{}

func (HeaderLoader) LoadImage(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return ImageInfo{W: cfg.Width, H: cfg.Height}, nil
}

// CheckAssets validates the backgrounds and trials 1..n of a layout and
// returns every problem found.
func CheckAssets(layout AssetLayout, n int, threshold uint8) []error {
	loader := &AssetLoader{Layout: layout, Images: HeaderLoader{}, Threshold: threshold}

	var errs []error
	if _, err := loader.LoadBackgrounds(); err != nil {
		errs = append(errs, err)
	}
	for i := 1; i <= n; i++ {
		trial, err := loader.LoadTrial(i)
		if err == nil {
			err = trial.Validate()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Resource is a texture uploaded to the renderer.
type Resource struct {
	Texture *sdl.Texture
	W, H    float32
}

func (r *Resource) Size() (w, h int) { return int(r.W), int(r.H) }

// ResourceCache loads each texture once and owns it until Destroy.
type ResourceCache struct {
	renderer *sdl.Renderer
	entries  map[string]*Resource
}

func NewResourceCache(renderer *sdl.Renderer) *ResourceCache {
	return &ResourceCache{
		renderer: renderer,
		entries:  make(map[string]*Resource),
	}
}

func (c *ResourceCache) LoadImage(path string) (Image, error) {
	if entry, ok := c.entries[path]; ok {
		return entry, nil
	}

	tex, err := img.LoadTexture(c.renderer, path)
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", path, err)
	}
	w, h, err := tex.Size()
	if err != nil {
		tex.Destroy()
		return nil, fmt.Errorf("texture size %s: %w", path, err)
	}

	entry := &Resource{Texture: tex, W: w, H: h}
	c.entries[path] = entry
	return entry, nil
}

// Release destroys one texture previously returned by LoadImage.
func (c *ResourceCache) Release(im Image) {
	for path, entry := range c.entries {
		if Image(entry) == im {
			entry.Texture.Destroy()
			delete(c.entries, path)
			return
		}
	}
}

func (c *ResourceCache) Destroy() {
	for _, entry := range c.entries {
		if entry.Texture != nil {
			entry.Texture.Destroy()
		}
	}
}
