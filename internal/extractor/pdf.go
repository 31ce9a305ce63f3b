package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docsearch/internal/model"
)

// pdfDocument is the subset of a parsed PDF the extractor reads.
type pdfDocument interface {
	NumPage() int
	// PageText returns the plain text of page i (1-based), or "" when the page has none.
	PageText(i int) string
	// Info returns a string entry of the document information dictionary.
	Info(key string) string
}

type ledongthucDocument struct {
	r *pdf.Reader
}

func (d ledongthucDocument) NumPage() int {
	return d.r.NumPage()
}

func (d ledongthucDocument) PageText(i int) string {
	page := d.r.Page(i)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

func (d ledongthucDocument) Info(key string) string {
	return d.r.Trailer().Key("Info").Key(key).Text()
}

// ExtractPDF concatenates every page's text with single spaces and reads
// Author and CreationDate from the information dictionary.
func ExtractPDF(ctx context.Context, path string) (res Result, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	return readPDF(ctx, ledongthucDocument{r: r})
}

func readPDF(ctx context.Context, doc pdfDocument) (Result, error) {
	n := doc.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		pages = append(pages, doc.PageText(i))
	}

	return Result{
		Text: strings.Join(pages, " "),
		Metadata: Metadata{
			Author:       valueOrUnknown(doc.Info("Author")),
			CreationDate: valueOrUnknown(doc.Info("CreationDate")),
		},
	}, nil
}

func valueOrUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return model.UnknownValue
	}
	return v
}
