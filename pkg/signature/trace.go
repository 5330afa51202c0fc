// Package signature records freehand stroke traces for signature fields and
// serializes them to a portable PNG data URL. The drawing surface itself is
// a UI-layer concern; this package only models the captured trace.
package signature

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
)

// Point is one sampled position on the capture surface.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Trace accumulates freehand strokes. The zero value is an empty trace.
type Trace struct {
	strokes [][]Point
	current []Point
}

// Begin starts a new stroke at the given point.
func (t *Trace) Begin(p Point) {
	t.current = []Point{p}
}

// Extend appends a point to the in-progress stroke. Extending with no active
// stroke implicitly begins one.
func (t *Trace) Extend(p Point) {
	if t.current == nil {
		t.Begin(p)
		return
	}
	t.current = append(t.current, p)
}

// End completes the in-progress stroke.
func (t *Trace) End() {
	if len(t.current) == 0 {
		return
	}
	t.strokes = append(t.strokes, t.current)
	t.current = nil
}

// Clear resets the trace to empty.
func (t *Trace) Clear() {
	t.strokes = nil
	t.current = nil
}

// Empty reports whether the trace holds no completed strokes.
func (t *Trace) Empty() bool {
	return len(t.strokes) == 0
}

const (
	canvasWidth  = 400
	canvasHeight = 150
	dataURLHead  = "data:image/png;base64,"
)

// Encode rasterizes the trace onto a fixed canvas and returns a PNG data
// URL, the portable value stored in the signature field. An empty trace
// encodes to the empty string so required validation fails naturally.
func (t *Trace) Encode() (string, error) {
	if t.Empty() {
		return "", nil
	}

	canvas := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	ink := color.RGBA{A: 255}
	for _, stroke := range t.strokes {
		for i := 1; i < len(stroke); i++ {
			drawLine(canvas, stroke[i-1], stroke[i], ink)
		}
		if len(stroke) == 1 {
			plot(canvas, int(stroke[0].X), int(stroke[0].Y), ink)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return "", fmt.Errorf("signature: encode: %w", err)
	}
	return dataURLHead + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode verifies that a serialized signature value is a well-formed PNG
// data URL and returns the decoded image.
func Decode(value string) (image.Image, error) {
	if !strings.HasPrefix(value, dataURLHead) {
		return nil, errors.New("signature: value is not a PNG data URL")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, dataURLHead))
	if err != nil {
		return nil, fmt.Errorf("signature: decode: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("signature: decode: %w", err)
	}
	return img, nil
}

// drawLine plots a stroke segment with integer Bresenham stepping.
func drawLine(canvas *image.RGBA, from, to Point, ink color.RGBA) {
	x0, y0 := int(from.X), int(from.Y)
	x1, y1 := int(to.X), int(to.Y)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(canvas, x0, y0, ink)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func plot(canvas *image.RGBA, x, y int, ink color.RGBA) {
	if image.Pt(x, y).In(canvas.Bounds()) {
		canvas.SetRGBA(x, y, ink)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
