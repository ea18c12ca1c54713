package docxreader

import (
	"context"
	"fmt"
	"os"

	docx "github.com/fumiama/go-docx"

	"trialgraph/internal/domain"
)

// GoDocxOpener opens a .docx file from the local filesystem using
// github.com/fumiama/go-docx and adapts its parse tree to this package's
// Document contract. It is the only docxreader implementation that touches
// an actual file; everything else in the ingestion core consumes the
// interfaces above and never imports this file's dependency directly.
type GoDocxOpener struct{}

// Open implements internal/ingestion.SourceOpener. The context is not
// threaded into go-docx's synchronous Parse call (the library has no
// context-aware API); cancellation of a long-running open is left to the
// orchestrator's own checkCancelled calls at the next suspension point.
func (GoDocxOpener) Open(_ context.Context, path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrFileMissing
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	parsed, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParseError, path, err)
	}
	if parsed == nil || parsed.Document == nil || parsed.Document.Body == nil {
		return nil, fmt.Errorf("%w: %s: empty document body", domain.ErrParseError, path)
	}

	return newGoDocxDocument(parsed), nil
}

// goDocxDocument walks the Body.Items mixed sequence once at construction
// time and buckets paragraphs/tables into the two flat collections this
// package's Document interface exposes, recording each table's preceding
// paragraph index per the Table.PrecedingParagraphIndex contract.
type goDocxDocument struct {
	paragraphs []Paragraph
	tables     []Table
}

func newGoDocxDocument(doc *docx.Docx) *goDocxDocument {
	out := &goDocxDocument{}
	lastParaIdx := -1
	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			out.paragraphs = append(out.paragraphs, goDocxParagraph{v})
			lastParaIdx = len(out.paragraphs) - 1
		case *docx.Table:
			out.tables = append(out.tables, goDocxTable{v, lastParaIdx})
		}
	}
	return out
}

func (d *goDocxDocument) Paragraphs() []Paragraph { return d.paragraphs }
func (d *goDocxDocument) Tables() []Table         { return d.tables }

// Footnotes reports unavailable: go-docx does not expose footnotes.xml
// separately from the main body part, so there is no reliable way to walk
// them without re-parsing the raw zip part ourselves, which this adapter
// does not attempt. Callers treat a nil, nil return as
// domain.ErrFootnotesUnavailable, a warning rather than a fatal error.
func (d *goDocxDocument) Footnotes() ([]Footnote, error) { return nil, nil }

type goDocxParagraph struct{ p *docx.Paragraph }

func (p goDocxParagraph) Text() string {
	var out string
	for _, child := range p.p.Children {
		if run, ok := child.(*docx.Run); ok && run.Text != nil {
			out += run.Text.Text
		}
	}
	return out
}

func (p goDocxParagraph) StyleName() string {
	if p.p.Properties == nil || p.p.Properties.Style == nil {
		return ""
	}
	return p.p.Properties.Style.Val
}

func (p goDocxParagraph) OutlineLevel() (int, bool) {
	if p.p.Properties == nil || p.p.Properties.OutlineLvl == nil {
		return 0, false
	}
	// go-docx stores outlineLvl zero-based, like the raw w:outlineLvl
	// attribute; the heading detector wants 1-based levels (§3 ContentType
	// grammar, HDR1..HDR9), so this adds one to match the style-name path.
	return p.p.Properties.OutlineLvl.Val + 1, true
}

func (p goDocxParagraph) HasNumbering() bool {
	return p.p.Properties != nil && p.p.Properties.NumProperties != nil
}

func (p goDocxParagraph) FontSizePt() float64 {
	for _, child := range p.p.Children {
		run, ok := child.(*docx.Run)
		if !ok || run.RunProperties == nil || run.RunProperties.Sz == nil {
			continue
		}
		// w:sz is in half-points.
		return float64(run.RunProperties.Sz.Val) / 2
	}
	return 0
}

func (p goDocxParagraph) Bold() bool {
	for _, child := range p.p.Children {
		run, ok := child.(*docx.Run)
		if !ok || run.RunProperties == nil {
			continue
		}
		if run.RunProperties.Bold != nil {
			return true
		}
	}
	return false
}

type goDocxCell struct{ c *docx.WTableCell }

func (c goDocxCell) Text() string {
	var out string
	for i, para := range c.c.Paragraphs {
		if i > 0 {
			out += "\n"
		}
		out += goDocxParagraph{para}.Text()
	}
	return out
}

func (c goDocxCell) ColSpan() int {
	if c.c.TableCellProperties == nil || c.c.TableCellProperties.GridSpan == nil || c.c.TableCellProperties.GridSpan.Val < 1 {
		return 1
	}
	return c.c.TableCellProperties.GridSpan.Val
}

type goDocxRow struct{ r *docx.WTableRow }

func (r goDocxRow) Cells() []Cell {
	cells := make([]Cell, len(r.r.TableCells))
	for i, c := range r.r.TableCells {
		cells[i] = goDocxCell{c}
	}
	return cells
}

type goDocxTable struct {
	t                 *docx.Table
	precedingParaIdx int
}

func (t goDocxTable) Rows() []Row {
	rows := make([]Row, len(t.t.TableRows))
	for i, r := range t.t.TableRows {
		rows[i] = goDocxRow{r}
	}
	return rows
}

func (t goDocxTable) PrecedingParagraphIndex() int { return t.precedingParaIdx }
