package catalog

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"iffy/internal/domain"
)

// XLSXSource reads the catalog from a local workbook export of the sheet.
type XLSXSource struct {
	Path       string
	SheetIndex int
}

func NewXLSXSource(path string, sheetIndex int) *XLSXSource {
	return &XLSXSource{Path: path, SheetIndex: sheetIndex}
}

func (s *XLSXSource) Load(ctx context.Context) ([]domain.CatalogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if s.SheetIndex < 0 || s.SheetIndex >= len(sheets) {
		return nil, fmt.Errorf("workbook has %d sheets, index %d requested", len(sheets), s.SheetIndex)
	}
	rows, err := f.GetRows(sheets[s.SheetIndex])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[s.SheetIndex], err)
	}
	return mapRows(rows)
}
