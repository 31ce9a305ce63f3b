package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExtractSpreadsheet reads OOXML workbooks. It flattens every non-empty cell
// of every sheet, row-major, into a single space-separated string.
func ExtractSpreadsheet(ctx context.Context, path string) (Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	var cells []string
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return Result{}, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		cells = appendNonEmpty(cells, rows)
	}

	return Result{Text: joinCells(cells), Metadata: unknownMetadata()}, nil
}

func appendNonEmpty(cells []string, rows [][]string) []string {
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				cells = append(cells, cell)
			}
		}
	}
	return cells
}

func joinCells(cells []string) string {
	return strings.Join(cells, " ")
}
