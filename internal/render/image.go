// Package render turns text prompts into multimodal payloads: a JPEG for
// the image modality, a short PCM WAV for the audio modality, both
// content-addressed and cached on disk.
package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	imageWidth  = 512
	imageHeight = 256
	imageMargin = 24
)

var (
	backgroundColor = color.RGBA{R: 173, G: 216, B: 230, A: 255}
	textColor       = color.RGBA{R: 20, G: 20, B: 20, A: 255}
)

// Image renders prompt into a fixed-size JPEG: centered text over a
// light-blue background.
func Image(prompt string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, imageWidth, imageHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: backgroundColor}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawCenteredText(img, prompt, face)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func drawCenteredText(img *image.RGBA, text string, face font.Face) {
	lines := wrapText(text, face, imageWidth-2*imageMargin)
	lineHeight := face.Metrics().Height.Ceil()
	totalHeight := lineHeight * len(lines)
	y := (imageHeight-totalHeight)/2 + lineHeight

	for _, line := range lines {
		width := font.MeasureString(face, line).Ceil()
		x := (imageWidth - width) / 2

		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(textColor),
			Face: face,
			Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
		}
		d.DrawString(line)

		y += lineHeight
	}
}

func wrapText(text string, face font.Face, maxWidth int) []string {
	words := strings.Fields(text)

	var (
		lines   []string
		current string
	)

	for _, w := range words {
		candidate := strings.TrimSpace(current + " " + w)
		if current != "" && font.MeasureString(face, candidate).Ceil() > maxWidth {
			lines = append(lines, current)
			current = w

			continue
		}

		current = candidate
	}

	if current != "" {
		lines = append(lines, current)
	}

	if len(lines) == 0 {
		lines = []string{""}
	}

	return lines
}
