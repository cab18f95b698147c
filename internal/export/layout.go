package export

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

var (
	colorText  = color.RGBA{0x1f, 0x29, 0x37, 0xff}
	colorMuted = color.RGBA{0x6b, 0x72, 0x80, 0xff}
	colorTitle = color.RGBA{0x16, 0x65, 0x34, 0xff}
)

type segment struct {
	text  string
	face  font.Face
	color color.Color
	x     int
}

type line struct {
	segs    []segment
	ascent  int
	height  int
	spacing int // extra space below the line
}

// canvas lays out text into lines of fixed pixel width and then draws them
type canvas struct {
	width  int
	margin int
	lines  []line
}

func newCanvas(width, margin int) *canvas {
	return &canvas{width: width, margin: margin}
}

func (c *canvas) maxWidth() int {
	return c.width - 2*c.margin
}

// gap adds vertical whitespace
func (c *canvas) gap(px int) {
	if len(c.lines) == 0 {
		c.lines = append(c.lines, line{height: px})
		return
	}
	c.lines[len(c.lines)-1].spacing += px
}

type token struct {
	word        string
	face        font.Face
	color       color.Color
	spaceBefore bool
	brk         bool
}

func tokenize(runs []Run, pick func(Style) font.Face, col color.Color) []token {
	var toks []token
	prevTrailing := false
	for _, r := range runs {
		if r.Break {
			toks = append(toks, token{brk: true})
			prevTrailing = false
			continue
		}
		words := strings.Fields(r.Text)
		leading := len(r.Text) > 0 && strings.TrimLeft(r.Text, " \t\n") != r.Text
		for i, w := range words {
			toks = append(toks, token{
				word:        w,
				face:        pick(r.Style),
				color:       col,
				spaceBefore: i > 0 || leading || prevTrailing,
			})
		}
		if len(words) > 0 {
			prevTrailing = strings.TrimRight(r.Text, " \t\n") != r.Text
		} else if r.Text != "" {
			prevTrailing = true
		}
	}
	return toks
}

// paragraph wraps runs to the canvas width starting at indent px
func (c *canvas) paragraph(runs []Run, pick func(Style) font.Face, col color.Color, indent int, prefix string) {
	base := pick(0)
	maxX := c.margin + c.maxWidth()
	startX := c.margin + indent

	cur := line{}
	x := startX
	open := func() {
		m := base.Metrics()
		cur = line{ascent: m.Ascent.Ceil(), height: m.Height.Ceil()}
		x = startX
	}
	flush := func() {
		c.lines = append(c.lines, cur)
		open()
	}
	place := func(text string, face font.Face, col color.Color) {
		cur.segs = append(cur.segs, segment{text: text, face: face, color: col, x: x})
		m := face.Metrics()
		if a := m.Ascent.Ceil(); a > cur.ascent {
			cur.ascent = a
		}
		if h := m.Height.Ceil(); h > cur.height {
			cur.height = h
		}
		x += font.MeasureString(face, text).Ceil()
	}

	open()
	if prefix != "" {
		place(prefix, base, col)
		startX = x
	}
	for _, t := range tokenize(runs, pick, col) {
		if t.brk {
			flush()
			continue
		}
		space := 0
		if t.spaceBefore && len(cur.segs) > 0 && x > startX {
			space = font.MeasureString(t.face, " ").Ceil()
		}
		w := font.MeasureString(t.face, t.word).Ceil()
		if x+space+w > maxX && x > startX {
			flush()
			space = 0
		}
		x += space
		for _, chunk := range splitToWidth(t.word, t.face, maxX-x, maxX-startX) {
			if x > startX && x+font.MeasureString(t.face, chunk).Ceil() > maxX {
				flush()
			}
			place(chunk, t.face, t.color)
		}
	}
	c.lines = append(c.lines, cur)
}

// splitToWidth cuts a word too wide for a line into pieces. The first piece
// fits in first px, the rest in full px.
func splitToWidth(word string, face font.Face, first, full int) []string {
	if font.MeasureString(face, word).Ceil() <= first || full <= 0 {
		return []string{word}
	}
	var parts []string
	limit := first
	if limit <= 0 {
		limit = full
	}
	for word != "" {
		n := 0
		for i := range word {
			_, size := utf8.DecodeRuneInString(word[i:])
			if font.MeasureString(face, word[:i+size]).Ceil() > limit {
				break
			}
			n = i + size
		}
		if n == 0 {
			_, n = utf8.DecodeRuneInString(word)
		}
		parts = append(parts, word[:n])
		word = word[n:]
		limit = full
	}
	return parts
}

// height returns the total laid-out height including margins
func (c *canvas) height() int {
	h := 2 * c.margin
	for _, l := range c.lines {
		h += l.height + l.spacing
	}
	return h
}

// draw rasterises the laid-out lines onto a white image
func (c *canvas) draw() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.width, c.height()))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	y := c.margin
	for _, l := range c.lines {
		baseline := y + l.ascent
		for _, s := range l.segs {
			d := font.Drawer{
				Dst:  img,
				Src:  image.NewUniform(s.color),
				Face: s.face,
				Dot:  fixed.P(s.x, baseline),
			}
			d.DrawString(s.text)
		}
		y += l.height + l.spacing
	}
	return img
}
