package badge

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestGenerate(t *testing.T) {
	e := newEngine(t)

	svg := e.Generate(Badge{Label: "cpu-shared-ml", Value: "passed", Color: "#4c1"})
	if !strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg"`) {
		t.Fatalf("not an svg: %.60s", svg)
	}
	if !strings.Contains(svg, ">cpu-shared-ml</text>") {
		t.Fatalf("label missing from svg")
	}
	if !strings.Contains(svg, ">passed</text>") {
		t.Fatalf("value missing from svg")
	}
	if !strings.Contains(svg, `fill="#4c1"`) {
		t.Fatalf("color missing from svg")
	}
	if !strings.Contains(svg, "@font-face") {
		t.Fatalf("embedded font missing from svg")
	}
}

func TestGenerate_WidthTracksText(t *testing.T) {
	e := newEngine(t)

	short := widthAttr(t, e.Generate(Badge{Label: "ci", Value: "ok", Color: "#4c1"}))
	long := widthAttr(t, e.Generate(Badge{Label: "openblas-amd64-py39-dev", Value: "failed", Color: "#e05d44"}))

	if long <= short {
		t.Fatalf("longer text did not widen the badge: %d vs %d", short, long)
	}
}

func widthAttr(t *testing.T, svg string) int {
	t.Helper()
	_, rest, ok := strings.Cut(svg, `width="`)
	if !ok {
		t.Fatalf("no width attribute in %.60s", svg)
	}
	raw, _, ok := strings.Cut(rest, `"`)
	if !ok {
		t.Fatalf("unterminated width attribute")
	}
	w, err := strconv.Atoi(raw)
	if err != nil {
		t.Fatalf("width %q is not an integer", raw)
	}
	return w
}

func TestGenerate_EscapesText(t *testing.T) {
	e := newEngine(t)

	svg := e.Generate(Badge{Label: "a<b", Value: `x&"y"`, Color: "#4c1"})
	if strings.Contains(svg, ">a<b<") {
		t.Fatalf("label not escaped")
	}
	if !strings.Contains(svg, "a&lt;b") {
		t.Fatalf("expected escaped label, got %.200s", svg)
	}
	if !strings.Contains(svg, "x&amp;&quot;y&quot;") {
		t.Fatalf("expected escaped value")
	}
}

func TestWrite(t *testing.T) {
	e := newEngine(t)
	dir := filepath.Join(t.TempDir(), "badges")

	path, err := e.Write(dir, "cuda-wheel-py38", Badge{Label: "cuda-wheel-py38", Value: "passed", Color: StatusColor("success")})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(path) != "cuda-wheel-py38.svg" {
		t.Fatalf("badge file = %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading badge: %v", err)
	}
	if !strings.Contains(string(data), "cuda-wheel-py38") {
		t.Fatalf("badge content missing selector")
	}
}

func TestStatusColor(t *testing.T) {
	cases := map[string]string{
		"success": "#4c1",
		"passed":  "#4c1",
		"failed":  "#e05d44",
		"skipped": "#9f9f9f",
	}
	for status, want := range cases {
		if got := StatusColor(status); got != want {
			t.Fatalf("StatusColor(%q) = %q, want %q", status, got, want)
		}
	}
}
