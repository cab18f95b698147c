// Package export renders a completed assessment into a paginated PDF. The
// report is laid out and rasterised as one tall image, then sliced into A4
// pages at pixel boundaries.
package export

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"plantdoc/internal/model"

	"go.uber.org/zap"
	"golang.org/x/image/font"
)

const MIMEType = "application/pdf"

// Report is the input to a render
type Report struct {
	PlantName   string
	GeneratedAt time.Time
	Responses   []model.Response // rendered in the given order
	Diagnosis   string           // markdown
}

// Artifact is a rendered document
type Artifact struct {
	Filename string
	MIMEType string
	Pages    int
	Data     []byte
}

// Options controls the raster geometry
type Options struct {
	WidthPx      int     `yaml:"width_px"`
	PageHeightPx int     `yaml:"page_height_px"`
	MarginPx     int     `yaml:"margin_px"`
	DPI          float64 `yaml:"dpi"`
	BodySize     float64 `yaml:"body_size"`
}

// DefaultOptions is A4 at 96 dpi
func DefaultOptions() Options {
	return Options{
		WidthPx:      794,
		PageHeightPx: 1123,
		MarginPx:     48,
		DPI:          96,
		BodySize:     11,
	}
}

// Exporter renders reports to PDF. It is safe for concurrent use.
type Exporter struct {
	opts   Options
	logger *zap.Logger
}

// NewExporter creates an exporter; zero-valued options take defaults
func NewExporter(opts Options, logger *zap.Logger) *Exporter {
	def := DefaultOptions()
	if opts.WidthPx == 0 {
		opts.WidthPx = def.WidthPx
	}
	if opts.PageHeightPx == 0 {
		opts.PageHeightPx = def.PageHeightPx
	}
	if opts.MarginPx == 0 {
		opts.MarginPx = def.MarginPx
	}
	if opts.DPI == 0 {
		opts.DPI = def.DPI
	}
	if opts.BodySize == 0 {
		opts.BodySize = def.BodySize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{opts: opts, logger: logger}
}

// Render lays out, rasterises and paginates r
func (e *Exporter) Render(ctx context.Context, r Report) (*Artifact, error) {
	if e.opts.WidthPx <= 2*e.opts.MarginPx {
		return nil, fmt.Errorf("page width %dpx leaves no room inside %dpx margins", e.opts.WidthPx, e.opts.MarginPx)
	}
	fs, err := newFaces(e.opts.BodySize, e.opts.BodySize*1.3, e.opts.BodySize*1.8, e.opts.DPI)
	if err != nil {
		return nil, err
	}
	defer fs.Close()

	c := e.layout(r, fs)
	img := c.draw()
	slices, err := Paginate(img.Bounds().Dx(), img.Bounds().Dy(), e.opts.PageHeightPx)
	if err != nil {
		return nil, err
	}

	title := r.PlantName + " Health Report"
	data, err := writePDF(ctx, img, slices, title)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("rendered report",
		zap.String("plant", r.PlantName),
		zap.Int("heightPx", img.Bounds().Dy()),
		zap.Int("pages", len(slices)),
		zap.Int("bytes", len(data)))

	return &Artifact{
		Filename: Filename(r.PlantName, r.GeneratedAt),
		MIMEType: MIMEType,
		Pages:    len(slices),
		Data:     data,
	}, nil
}

func (e *Exporter) layout(r Report, fs *faces) *canvas {
	c := newCanvas(e.opts.WidthPx, e.opts.MarginPx)
	titleFace := func(Style) font.Face { return fs.title }
	headingFace := func(Style) font.Face { return fs.heading }
	body := fs.style

	c.paragraph([]Run{{Text: r.PlantName + " Health Report"}}, titleFace, colorTitle, 0, "")
	c.gap(8)
	c.paragraph([]Run{{Text: "Generated: " + r.GeneratedAt.Format("2006-01-02 15:04 MST")}}, body, colorMuted, 0, "")
	c.paragraph([]Run{{Text: "Plant type: ", Style: StyleBold}, {Text: r.PlantName}}, body, colorText, 0, "")
	c.gap(18)

	c.paragraph([]Run{{Text: "Assessment Responses"}}, headingFace, colorTitle, 0, "")
	c.gap(6)
	for _, resp := range r.Responses {
		c.paragraph([]Run{{Text: "Q" + strconv.Itoa(resp.QuestionIndex+1) + ": " + resp.QuestionText, Style: StyleBold}}, body, colorText, 0, "")
		c.paragraph([]Run{{Text: "A: " + resp.AnswerText}}, body, colorText, 16, "")
		c.gap(8)
	}
	c.gap(10)

	c.paragraph([]Run{{Text: "Diagnosis"}}, headingFace, colorTitle, 0, "")
	c.gap(6)
	for _, b := range ParseMarkdown(r.Diagnosis) {
		switch b.Kind {
		case BlockHeading:
			c.gap(4)
			c.paragraph(b.Runs, body, colorTitle, 0, "")
		case BlockListItem:
			c.paragraph(b.Runs, body, colorText, 12, b.Prefix)
		default:
			c.paragraph(b.Runs, body, colorText, 0, "")
		}
		c.gap(6)
	}
	return c
}
