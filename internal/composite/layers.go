package composite

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"mooney-stimuli/internal/models"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

// ForegroundCutoff is the intensity below which a pixel counts as foreground.
const ForegroundCutoff = 0.5

// Tint is a named layer colour.
type Tint struct {
	Name  string
	Color colorful.Color
}

var (
	Cyan    = mustTint("cyan", "#00ffff")
	Magenta = mustTint("magenta", "#ff00ff")
)

func mustTint(name, hex string) Tint {
	c, err := colorful.Hex(hex)
	if err != nil {
		panic(fmt.Sprintf("tint %s: %v", name, err))
	}
	return Tint{Name: name, Color: c}
}

// ValidateAlpha accepts opacities in [0,1].
func ValidateAlpha(alpha float64) error {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return &models.InvalidAlphaError{Input: strconv.FormatFloat(alpha, 'g', -1, 64)}
	}
	return nil
}

// ParseAlpha reads an opacity typed by the operator.
func ParseAlpha(input string) (float64, error) {
	alpha, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return 0, &models.InvalidAlphaError{Input: input}
	}
	if err := ValidateAlpha(alpha); err != nil {
		return 0, &models.InvalidAlphaError{Input: input}
	}
	return alpha, nil
}

// Layer paints foreground pixels of gray in the tint at opacity alpha and
// leaves every other pixel fully transparent.
func Layer(gray *image.Gray, tint Tint, alpha float64) *image.NRGBA {
	b := gray.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	r, g, bl := tint.Color.RGB255()
	fg := color.NRGBA{R: r, G: g, B: bl, A: uint8(math.Round(255 * alpha))}
	bg := color.NRGBA{R: 255, G: 255, B: 255, A: 0}

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			intensity := float64(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y) / 255.0
			if intensity < ForegroundCutoff {
				out.SetNRGBA(x, y, fg)
			} else {
				out.SetNRGBA(x, y, bg)
			}
		}
	}
	return out
}

func MakeCyan(gray *image.Gray, alpha float64) *image.NRGBA {
	return Layer(gray, Cyan, alpha)
}

func MakeMagenta(gray *image.Gray, alpha float64) *image.NRGBA {
	return Layer(gray, Magenta, alpha)
}

// CompositeOverWhite draws bottom then top over an opaque white canvas with
// source-over blending.
func CompositeOverWhite(bottom, top image.Image) (*image.RGBA, error) {
	if bottom.Bounds().Size() != top.Bounds().Size() {
		return nil, fmt.Errorf("%w: %v vs %v", models.ErrSizeMismatch, bottom.Bounds().Size(), top.Bounds().Size())
	}

	size := bottom.Bounds().Size()
	canvas := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), bottom, bottom.Bounds().Min, draw.Over)
	draw.Draw(canvas, canvas.Bounds(), top, top.Bounds().Min, draw.Over)
	return canvas, nil
}
