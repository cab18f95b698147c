package export

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Style is a bit set of inline text styles
type Style uint8

const (
	StyleBold Style = 1 << iota
	StyleItalic
)

// Run is a span of text in a single style. A Run with Break set ends the
// current line and carries no text.
type Run struct {
	Text  string
	Style Style
	Break bool
}

// BlockKind classifies a rendered block
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockListItem
)

// Block is a paragraph-level unit of the diagnosis
type Block struct {
	Kind   BlockKind
	Prefix string // list marker
	Runs   []Run
}

var markdown = goldmark.New()

// ParseMarkdown reduces markdown to blocks of styled runs. Only emphasis
// and line breaks survive; links keep their text, tables and nesting are
// flattened.
func ParseMarkdown(src string) []Block {
	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))
	var blocks []Block
	collectBlocks(doc, source, &blocks)
	return blocks
}

func collectBlocks(n ast.Node, source []byte, out *[]Block) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Heading:
			*out = append(*out, Block{Kind: BlockHeading, Runs: inlineRuns(node, source, StyleBold)})
		case *ast.Paragraph, *ast.TextBlock:
			if runs := inlineRuns(node, source, 0); len(runs) > 0 {
				*out = append(*out, Block{Kind: BlockParagraph, Runs: runs})
			}
		case *ast.List:
			num := node.Start
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				marker := "• "
				if node.IsOrdered() {
					marker = strconv.Itoa(num) + ". "
					num++
				}
				var inner []Block
				collectBlocks(item, source, &inner)
				for i, b := range inner {
					if i == 0 {
						b.Kind = BlockListItem
						b.Prefix = marker
					}
					*out = append(*out, b)
				}
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			*out = append(*out, Block{Kind: BlockParagraph, Runs: codeRuns(c, source)})
		case *ast.Blockquote:
			collectBlocks(node, source, out)
		case *ast.ThematicBreak, *ast.HTMLBlock:
		default:
			collectBlocks(c, source, out)
		}
	}
}

func codeRuns(n ast.Node, source []byte) []Run {
	var runs []Run
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(source)), "\r\n")
		if i > 0 {
			runs = append(runs, Run{Break: true})
		}
		runs = append(runs, Run{Text: line})
	}
	return runs
}

func inlineRuns(n ast.Node, source []byte, style Style) []Run {
	var runs []Run
	var walk func(ast.Node, Style)
	walk = func(n ast.Node, style Style) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Text:
				runs = append(runs, Run{Text: string(node.Segment.Value(source)), Style: style})
				if node.HardLineBreak() || node.SoftLineBreak() {
					runs = append(runs, Run{Break: true})
				}
			case *ast.String:
				runs = append(runs, Run{Text: string(node.Value), Style: style})
			case *ast.Emphasis:
				s := style | StyleItalic
				if node.Level >= 2 {
					s = style | StyleBold
				}
				walk(node, s)
			case *ast.AutoLink:
				runs = append(runs, Run{Text: string(node.URL(source)), Style: style})
			case *ast.RawHTML:
			default:
				walk(c, style)
			}
		}
	}
	walk(n, style)

	// trailing breaks add nothing at the end of a block
	for len(runs) > 0 && runs[len(runs)-1].Break {
		runs = runs[:len(runs)-1]
	}
	return runs
}
