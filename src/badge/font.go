// Package badge renders shields-style SVG status badges for build
// variants, sized from real glyph metrics rather than per-character
// width guesses.
package badge

import (
	"fmt"

	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// badgeFontSize matches the shields.io flat style.
const badgeFontSize = 11

// FontMetrics holds measured glyph advances plus the raw font bytes
// for embedding into the SVG.
type FontMetrics struct {
	name     string
	size     float64
	data     []byte
	advances map[rune]float64 // printable ASCII
	fallback float64          // average advance for unmapped runes
}

// TextWidth returns the pixel width of s using measured advances.
func (m *FontMetrics) TextWidth(s string) float64 {
	var w float64
	for _, r := range s {
		if adv, ok := m.advances[r]; ok {
			w += adv
		} else {
			w += m.fallback
		}
	}
	return w
}

// FontName returns the font family name.
func (m *FontMetrics) FontName() string { return m.name }

// FontSize returns the point size the metrics were measured at.
func (m *FontMetrics) FontSize() float64 { return m.size }

// FontData returns the raw TTF bytes for SVG embedding.
func (m *FontMetrics) FontData() []byte { return m.data }

// LoadFont parses TTF bytes and measures printable-ASCII glyph
// advances at the given size.
func LoadFont(name string, data []byte, size float64) (*FontMetrics, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", name, err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size: size,
		DPI:  72,
	})
	if err != nil {
		return nil, fmt.Errorf("creating face for %s: %w", name, err)
	}
	defer face.Close()

	advances := make(map[rune]float64, 95)
	var total float64
	var count int
	for r := rune(32); r <= 126; r++ {
		adv, ok := face.GlyphAdvance(r)
		if !ok {
			continue
		}
		px := float64(adv) / 64.0 // fixed.Int26_6 to pixels
		advances[r] = px
		total += px
		count++
	}

	fallback := size * 0.6
	if count > 0 {
		fallback = total / float64(count)
	}

	familyName := name
	buf := &sfnt.Buffer{}
	if n, err := f.Name(buf, sfnt.NameIDFamily); err == nil && n != "" {
		familyName = n
	}

	return &FontMetrics{
		name:     familyName,
		size:     size,
		data:     data,
		advances: advances,
		fallback: fallback,
	}, nil
}

// defaultMetrics measures the bundled Go Regular face.
func defaultMetrics() (*FontMetrics, error) {
	return LoadFont("Go Regular", goregular.TTF, badgeFontSize)
}
