package preprocess

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gorgonia.org/tensor"
)

const (
	// DefaultImageSize is the square input edge expected by the classifier.
	DefaultImageSize = 224
	// Channels is the number of color channels in the output tensor.
	Channels = 3
	// DefaultMaxPixels caps width*height of an upload before it is decoded.
	DefaultMaxPixels = 89478485
)

// Error is returned when an upload cannot be turned into a tensor.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to process image: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var interpolations = map[string]resize.InterpolationFunction{
	"nearest":  resize.NearestNeighbor,
	"bilinear": resize.Bilinear,
	"bicubic":  resize.Bicubic,
	"mitchell": resize.MitchellNetravali,
	"lanczos2": resize.Lanczos2,
	"lanczos3": resize.Lanczos3,
}

// ParseInterpolation resolves an interpolation name such as "bicubic".
func ParseInterpolation(name string) (resize.InterpolationFunction, error) {
	interp, ok := interpolations[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown interpolation %q", name)
	}
	return interp, nil
}

// Preprocessor turns encoded images into (1, size, size, 3) float32 tensors
// with values in [0,1].
type Preprocessor struct {
	Size          int
	Interpolation resize.InterpolationFunction
	// MaxPixels rejects images larger than this before decoding; 0 disables
	// the check.
	MaxPixels int64
}

// New returns a Preprocessor with the default size and bicubic resampling.
func New() *Preprocessor {
	return &Preprocessor{
		Size:          DefaultImageSize,
		Interpolation: resize.Bicubic,
		MaxPixels:     DefaultMaxPixels,
	}
}

var defaultPreprocessor = New()

// Preprocess runs the default Preprocessor.
func Preprocess(data []byte) (*tensor.Dense, error) {
	return defaultPreprocessor.Preprocess(data)
}

// Shape is the tensor shape produced by p.
func (p *Preprocessor) Shape() tensor.Shape {
	return tensor.Shape{1, p.Size, p.Size, Channels}
}

// Preprocess decodes data, drops any alpha channel, resizes to p.Size and
// scales every channel to [0,1] in NHWC order.
func (p *Preprocessor) Preprocess(data []byte) (t *tensor.Dense, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, &Error{Err: fmt.Errorf("%v", r)}
		}
	}()

	if len(data) == 0 {
		return nil, &Error{Err: fmt.Errorf("empty image")}
	}

	imgCfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Err: err}
	}
	if pixels := int64(imgCfg.Width) * int64(imgCfg.Height); p.MaxPixels > 0 && pixels > p.MaxPixels {
		return nil, &Error{Err: fmt.Errorf("image size (%d pixels) exceeds limit of %d pixels",
			pixels, p.MaxPixels)}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Err: err}
	}
	if img.Bounds().Empty() {
		return nil, &Error{Err: fmt.Errorf("image has no pixels")}
	}

	if hasAlpha(img) {
		img = flatten(img)
	}

	size := uint(p.Size)
	resized := imaging.Clone(resize.Resize(size, size, img, p.Interpolation))

	bounds := resized.Bounds()
	if bounds.Dx() != p.Size || bounds.Dy() != p.Size {
		return nil, &Error{Err: fmt.Errorf("resized to %dx%d, want %dx%d",
			bounds.Dx(), bounds.Dy(), p.Size, p.Size)}
	}

	values := make([]float32, p.Size*p.Size*Channels)
	for y := 0; y < p.Size; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < p.Size; x++ {
			src := row[x*4:]
			dst := values[(y*p.Size+x)*Channels:]
			dst[0] = float32(src[0]) / 255.0
			dst[1] = float32(src[1]) / 255.0
			dst[2] = float32(src[2]) / 255.0
		}
	}

	return tensor.New(tensor.WithShape(p.Shape()...), tensor.WithBacking(values)), nil
}

// hasAlpha reports whether img may carry transparency.
func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}

// flatten returns an opaque copy of img keeping the straight (non
// premultiplied) color values, i.e. the alpha channel is discarded.
func flatten(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}
