package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidthMM  = 210.0
	pageHeightMM = 297.0
)

// writePDF places each slice of img on its own A4 page, scaled to the page
// width
func writePDF(ctx context.Context, img *image.RGBA, slices []image.Rectangle, title string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("plantdoc", true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	mmPerPx := pageWidthMM / float64(img.Bounds().Dx())
	opts := fpdf.ImageOptions{ImageType: "PNG"}

	for i, r := range slices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img.SubImage(r)); err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}
		name := fmt.Sprintf("page-%d", i+1)
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		pdf.AddPage()
		h := float64(r.Dy()) * mmPerPx
		if h > pageHeightMM {
			h = pageHeightMM
		}
		pdf.ImageOptions(name, 0, 0, pageWidthMM, h, false, opts, 0, "")
		if pdf.Err() {
			return nil, fmt.Errorf("failed to lay out page %d: %w", i+1, pdf.Error())
		}
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return out.Bytes(), nil
}
