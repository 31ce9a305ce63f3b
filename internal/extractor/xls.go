package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/extrame/xls"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

	errLegacyWord = errors.New("binary Word 97-2003 documents are not supported")
)

// sheetSource is the subset of a parsed BIFF workbook the extractor reads.
type sheetSource interface {
	NumSheets() int
	// SheetRows returns the cell values of sheet i (0-based), row-major.
	SheetRows(i int) [][]string
}

type extrameWorkbook struct {
	wb *xls.WorkBook
}

func (w extrameWorkbook) NumSheets() int {
	return w.wb.NumSheets()
}

func (w extrameWorkbook) SheetRows(i int) [][]string {
	sheet := w.wb.GetSheet(i)
	if sheet == nil {
		return nil
	}
	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol()-row.FirstCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return rows
}

// ExtractLegacySpreadsheet reads Excel 97-2003 (BIFF) workbooks. Files
// declared as application/vnd.ms-excel that are really OOXML are handed to
// ExtractSpreadsheet.
func ExtractLegacySpreadsheet(ctx context.Context, path string) (res Result, err error) {
	magic, err := fileMagic(path)
	if err != nil {
		return Result{}, err
	}
	if bytes.HasPrefix(magic, zipMagic) {
		return ExtractSpreadsheet(ctx, path)
	}

	// The BIFF parser panics on truncated records.
	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("malformed xls: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open xls: %w", err)
	}
	defer f.Close()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return Result{}, fmt.Errorf("parse xls: %w", err)
	}

	return readSheets(ctx, extrameWorkbook{wb: wb})
}

func readSheets(ctx context.Context, src sheetSource) (Result, error) {
	var cells []string
	for i := 0; i < src.NumSheets(); i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		cells = appendNonEmpty(cells, src.SheetRows(i))
	}
	return Result{Text: joinCells(cells), Metadata: unknownMetadata()}, nil
}

// ExtractWord handles application/msword. OOXML files go to ExtractDOCX;
// the binary format fails with an extraction error.
func ExtractWord(ctx context.Context, path string) (Result, error) {
	magic, err := fileMagic(path)
	if err != nil {
		return Result{}, err
	}
	if bytes.HasPrefix(magic, oleMagic) {
		return Result{}, errLegacyWord
	}
	return ExtractDOCX(ctx, path)
}

func fileMagic(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, len(oleMagic))
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read file header: %w", err)
	}
	return buf[:n], nil
}
