package badge

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// Engine generates SVG badges from measured font metrics.
type Engine struct {
	metrics *FontMetrics
}

// New creates a badge engine using the bundled font.
func New() (*Engine, error) {
	m, err := defaultMetrics()
	if err != nil {
		return nil, err
	}
	return &Engine{metrics: m}, nil
}

// Badge defines the content and appearance of a single badge.
type Badge struct {
	Label string // left side text
	Value string // right side text
	Color string // hex color for the right side
}

// Generate produces a shields.io-compatible SVG badge string.
func (e *Engine) Generate(b Badge) string {
	return e.renderSVG(b)
}

// Write renders a selector's badge and writes it atomically under dir
// as <selector>.svg, so a half-written badge is never served.
func (e *Engine) Write(dir, selector string, b Badge) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("preparing badge dir: %w", err)
	}
	path := filepath.Join(dir, selector+".svg")
	if err := renameio.WriteFile(path, []byte(e.Generate(b)), 0o644); err != nil {
		return "", fmt.Errorf("writing badge: %w", err)
	}
	return path, nil
}

// StatusColor maps a run status to a badge hex color.
func StatusColor(status string) string {
	switch status {
	case "success", "passed":
		return "#4c1"
	case "failed", "critical":
		return "#e05d44"
	case "skipped":
		return "#9f9f9f"
	default:
		return "#4c1"
	}
}
