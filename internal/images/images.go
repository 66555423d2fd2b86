// Package images renders text descriptions into simple SVG documents.
package images

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	svg "github.com/ajstarks/svgo"

	"github.com/ashureev/ink/internal/shared"
)

// Canvas is the width and height of every emitted image.
const Canvas = 400

const (
	labelRunes   = 20
	maxSuffixes  = 1000
	filePerm     = 0o644
	filenameStem = "svg_"
)

// ErrInvalidFilename is returned for names that are empty or contain path elements.
var ErrInvalidFilename = errors.New("invalid image filename")

// Shape is the template chosen for a description.
type Shape int

const (
	// ShapeLabel is a gray square with the description as text.
	ShapeLabel Shape = iota
	// ShapeCircle is a filled circle.
	ShapeCircle
	// ShapeRect is a filled square.
	ShapeRect
	// ShapeStar is a ten-point star polygon.
	ShapeStar
)

func (s Shape) String() string {
	switch s {
	case ShapeCircle:
		return "circle"
	case ShapeRect:
		return "rect"
	case ShapeStar:
		return "star"
	default:
		return "label"
	}
}

var (
	starX = []int{200, 230, 350, 250, 280, 200, 120, 150, 50, 170}
	starY = []int{50, 150, 150, 220, 320, 250, 320, 220, 150, 150}
)

// Classify picks a shape by case-insensitive keyword, first match wins:
// circle, then rect or square, then star.
func Classify(description string) Shape {
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "circle"):
		return ShapeCircle
	case strings.Contains(d, "rect"), strings.Contains(d, "square"):
		return ShapeRect
	case strings.Contains(d, "star"):
		return ShapeStar
	default:
		return ShapeLabel
	}
}

// Write renders the SVG document for description to w.
func Write(w io.Writer, description string) error {
	bw := bufio.NewWriter(w)
	canvas := svg.New(bw)
	canvas.Start(Canvas, Canvas)

	switch Classify(description) {
	case ShapeCircle:
		canvas.Circle(200, 200, 100, `fill="blue"`)
	case ShapeRect:
		canvas.Rect(100, 100, 200, 200, `fill="green"`)
	case ShapeStar:
		canvas.Polygon(starX, starY, `fill="gold"`)
	default:
		canvas.Rect(50, 50, 300, 300, `fill="lightgray"`)
		canvas.Text(200, 200, shared.Truncate(description, labelRunes), `text-anchor="middle"`, `font-size="20px"`)
	}

	canvas.End()
	return bw.Flush()
}

// Emitter writes images into a directory.
type Emitter struct {
	dir string
}

// NewEmitter creates an Emitter for dir.
func NewEmitter(dir string) *Emitter {
	return &Emitter{dir: dir}
}

// Dir returns the images directory.
func (e *Emitter) Dir() string {
	return e.dir
}

// Render writes the image for description to filename inside the images
// directory, replacing any existing file, and returns the full path.
func (e *Emitter) Render(description, filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create images directory: %w", err)
	}

	path := filepath.Join(e.dir, filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	return path, writeAndClose(f, description)
}

// Create writes the image under a name derived from now (svg_<unix>.svg). When
// that name is taken, svg_<unix>_<n>.svg is used. It returns the chosen filename.
func (e *Emitter) Create(description string, now time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create images directory: %w", err)
	}

	base := fmt.Sprintf("%s%d", filenameStem, now.Unix())
	for n := 0; n < maxSuffixes; n++ {
		name := base + ".svg"
		if n > 0 {
			name = fmt.Sprintf("%s_%d.svg", base, n)
		}

		f, err := os.OpenFile(filepath.Join(e.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create image: %w", err)
		}
		return name, writeAndClose(f, description)
	}
	return "", fmt.Errorf("create image: no free name for %s", base)
}

// ValidateFilename rejects names that would escape the images directory.
func ValidateFilename(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

func writeAndClose(f *os.File, description string) error {
	if err := Write(f, description); err != nil {
		_ = f.Close()
		return fmt.Errorf("write image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close image: %w", err)
	}
	return nil
}
