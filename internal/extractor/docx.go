package extractor

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const wordDocumentPart = "word/document.xml"

// ExtractDOCX joins the text of every top-level body paragraph with single spaces.
// Paragraphs nested in tables are not part of the body paragraph list.
func ExtractDOCX(ctx context.Context, path string) (Result, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read DOCX as ZIP: %w", err)
	}
	defer zr.Close()

	var documentFile *zip.File
	for _, file := range zr.File {
		if file.Name == wordDocumentPart {
			documentFile = file
			break
		}
	}
	if documentFile == nil {
		return Result{}, fmt.Errorf("%s not found in DOCX", wordDocumentPart)
	}

	rc, err := documentFile.Open()
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %s: %w", wordDocumentPart, err)
	}
	defer rc.Close()

	paragraphs, err := bodyParagraphs(ctx, rc)
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse %s: %w", wordDocumentPart, err)
	}

	return Result{Text: strings.Join(paragraphs, " "), Metadata: unknownMetadata()}, nil
}

// bodyParagraphs streams document.xml and returns the text of each w:p that is
// a direct child of w:body, in document order.
func bodyParagraphs(ctx context.Context, r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		stack      []string
		paragraphs []string
		current    strings.Builder
		inPara     bool
		inText     bool
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			switch {
			case name == "p" && len(stack) > 0 && stack[len(stack)-1] == "body":
				inPara = true
				current.Reset()
			case inPara && name == "t":
				inText = true
			case inPara && name == "tab":
				current.WriteByte('\t')
			case inPara && (name == "br" || name == "cr"):
				current.WriteByte('\n')
			}
			stack = append(stack, name)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			switch {
			case t.Name.Local == "t":
				inText = false
			case t.Name.Local == "p" && inPara && len(stack) > 0 && stack[len(stack)-1] == "body":
				paragraphs = append(paragraphs, current.String())
				inPara = false
			}
		case xml.CharData:
			if inPara && inText {
				current.Write(t)
			}
		}
	}

	if len(stack) != 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return paragraphs, nil
}
