// Package report assembles narrative text and statistics tables into an
// ordered block sequence and renders it to a paginated artifact.
package report

// BlockKind discriminates the typed blocks handed to the renderer.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockTable     BlockKind = "table"
	BlockSpacer    BlockKind = "spacer"
)

// Layout constants, in points. Letter page with 0.7 inch margins.
const (
	PageMargin       = 50.4 // 0.7 * 72
	ParagraphLeading = 16
	SpacerHeight     = 14.4 // 0.2 * 72
)

// Block is one formatted unit of the output document.
// Paragraph blocks carry Text (justified, fixed leading), table blocks
// carry Headers and Rows, spacer blocks carry Height.
type Block struct {
	Kind    BlockKind
	Text    string
	Headers []string
	Rows    [][]string
	Height  float64
}

// Paragraph creates a paragraph block.
func Paragraph(text string) Block {
	return Block{Kind: BlockParagraph, Text: text}
}

// Table creates a table block.
func Table(headers []string, rows [][]string) Block {
	return Block{Kind: BlockTable, Headers: headers, Rows: rows}
}

// Spacer creates a fixed-height spacer block.
func Spacer() Block {
	return Block{Kind: BlockSpacer, Height: SpacerHeight}
}

// Renderer writes an ordered block sequence to a paginated artifact.
// Pagination and font metrics live behind this seam.
type Renderer interface {
	Render(path string, blocks []Block) error
}
