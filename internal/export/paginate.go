package export

import (
	"errors"
	"fmt"
	"image"
)

var ErrEmptyContent = errors.New("nothing to paginate")

// Paginate splits a raster of totalHeight px into page-sized slices at pixel
// boundaries. Every row lands on exactly one page and no page is empty;
// the last page holds the remainder.
func Paginate(width, totalHeight, pageHeight int) ([]image.Rectangle, error) {
	if pageHeight <= 0 || width <= 0 {
		return nil, fmt.Errorf("invalid page geometry %dx%d", width, pageHeight)
	}
	if totalHeight <= 0 {
		return nil, ErrEmptyContent
	}
	pages := make([]image.Rectangle, 0, (totalHeight+pageHeight-1)/pageHeight)
	for y := 0; y < totalHeight; y += pageHeight {
		end := y + pageHeight
		if end > totalHeight {
			end = totalHeight
		}
		pages = append(pages, image.Rect(0, y, width, end))
	}
	return pages, nil
}
