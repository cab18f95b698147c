package export

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type typeface struct {
	regular, bold, italic, boldItalic *opentype.Font
}

var loadTypeface = sync.OnceValues(func() (*typeface, error) {
	var tf typeface
	for _, f := range []struct {
		dst **opentype.Font
		ttf []byte
	}{
		{&tf.regular, goregular.TTF},
		{&tf.bold, gobold.TTF},
		{&tf.italic, goitalic.TTF},
		{&tf.boldItalic, gobolditalic.TTF},
	} {
		parsed, err := opentype.Parse(f.ttf)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font: %w", err)
		}
		*f.dst = parsed
	}
	return &tf, nil
})

// faces holds sized faces for one render. font.Face values are not safe
// for concurrent use, so every render builds its own set.
type faces struct {
	body       [4]font.Face // indexed by Style
	heading    font.Face
	title      font.Face
	closeFuncs []func() error
}

func newFaces(bodySize, headingSize, titleSize, dpi float64) (*faces, error) {
	tf, err := loadTypeface()
	if err != nil {
		return nil, err
	}
	fs := &faces{}
	mk := func(f *opentype.Font, size float64) (font.Face, error) {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     dpi,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create font face: %w", err)
		}
		fs.closeFuncs = append(fs.closeFuncs, face.Close)
		return face, nil
	}

	specs := []struct {
		dst  *font.Face
		font *opentype.Font
		size float64
	}{
		{&fs.body[0], tf.regular, bodySize},
		{&fs.body[StyleBold], tf.bold, bodySize},
		{&fs.body[StyleItalic], tf.italic, bodySize},
		{&fs.body[StyleBold|StyleItalic], tf.boldItalic, bodySize},
		{&fs.heading, tf.bold, headingSize},
		{&fs.title, tf.bold, titleSize},
	}
	for _, s := range specs {
		face, err := mk(s.font, s.size)
		if err != nil {
			fs.Close()
			return nil, err
		}
		*s.dst = face
	}
	return fs, nil
}

func (fs *faces) style(s Style) font.Face {
	return fs.body[s&(StyleBold|StyleItalic)]
}

func (fs *faces) Close() {
	for _, c := range fs.closeFuncs {
		_ = c()
	}
}
