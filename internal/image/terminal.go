package image

import (
	"fmt"
	goimage "image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/BourgeoisBear/rasterm"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// TerminalImageCapability represents the terminal's image rendering capability
type TerminalImageCapability int

const (
	CapNone  TerminalImageCapability = iota // No image support
	CapKitty                                // Kitty graphics protocol
	CapITerm                                // iTerm2 inline images
	CapSixel                                // Sixel graphics
)

// String returns the capability name
func (c TerminalImageCapability) String() string {
	switch c {
	case CapKitty:
		return "kitty"
	case CapITerm:
		return "iterm"
	case CapSixel:
		return "sixel"
	default:
		return "none"
	}
}

// DetectCapability detects the terminal's image rendering capability.
// Detection order: Kitty -> iTerm -> Sixel -> None
func DetectCapability() TerminalImageCapability {
	if os.Getenv("KITTY_WINDOW_ID") != "" {
		return CapKitty
	}
	if strings.Contains(os.Getenv("TERM"), "kitty") {
		return CapKitty
	}

	termProgram := os.Getenv("TERM_PROGRAM")
	if termProgram == "iTerm.app" {
		return CapITerm
	}
	if os.Getenv("LC_TERMINAL") == "iTerm2" {
		return CapITerm
	}

	// WezTerm supports the iTerm protocol
	if termProgram == "WezTerm" {
		return CapITerm
	}

	// Ghostty supports the Kitty protocol
	if termProgram == "ghostty" {
		return CapKitty
	}

	term := os.Getenv("TERM")
	if strings.Contains(term, "sixel") || strings.Contains(term, "mlterm") {
		return CapSixel
	}

	return CapNone
}

// RenderImageToWriter renders an image file inline using the detected
// capability. On terminals without image support it does nothing.
func RenderImageToWriter(w io.Writer, path string) error {
	cap := DetectCapability()
	if cap == CapNone {
		return nil
	}

	img, err := loadImage(path)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	// Scale image if too large (max 800px width for reasonable terminal display)
	img = scaleImageIfNeeded(img, 800)

	switch cap {
	case CapKitty:
		return rasterm.KittyWriteImage(w, img, rasterm.KittyImgOpts{})
	case CapITerm:
		return rasterm.ItermWriteImage(w, img)
	case CapSixel:
		// Sixel requires a paletted image
		paletted := convertToPaletted(img)
		return rasterm.SixelWriteImage(w, paletted)
	default:
		return nil
	}
}

// loadImage loads an image from a file path
func loadImage(path string) (goimage.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := goimage.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// scaleImageIfNeeded scales the image if it exceeds maxWidth
func scaleImageIfNeeded(img goimage.Image, maxWidth int) goimage.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxWidth {
		return img
	}

	newWidth := maxWidth
	newHeight := (height * maxWidth) / width

	dst := goimage.NewRGBA(goimage.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// convertToPaletted converts an image to a paletted image for Sixel output
func convertToPaletted(img goimage.Image) *goimage.Paletted {
	bounds := img.Bounds()

	// Fixed 256-color palette: a 6x6x6 color cube plus 40 gray levels
	palette := make(color.Palette, 256)
	idx := 0
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				palette[idx] = color.RGBA{
					R: uint8(r * 51),
					G: uint8(g * 51),
					B: uint8(b * 51),
					A: 255,
				}
				idx++
			}
		}
	}
	for i := 0; i < 40; i++ {
		gray := uint8(i * 255 / 39)
		palette[idx] = color.RGBA{R: gray, G: gray, B: gray, A: 255}
		idx++
	}

	paletted := goimage.NewPaletted(bounds, palette)
	draw.FloydSteinberg.Draw(paletted, bounds, img, bounds.Min)
	return paletted
}
