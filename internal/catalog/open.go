package catalog

import (
	"context"
	"fmt"
	"strings"
)

// SourceConfig picks the backend a Source reads from. The sheet index always
// comes from the Variant.
type SourceConfig struct {
	Kind     string
	XLSXPath string
	Sheets   SheetsOptions
}

func NewSource(ctx context.Context, cfg SourceConfig, v Variant) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", "sheets":
		opts := cfg.Sheets
		opts.SheetIndex = v.SheetIndex
		return NewSheetsSource(ctx, opts)
	case "xlsx":
		if cfg.XLSXPath == "" {
			return nil, fmt.Errorf("catalog: xlsx path is required")
		}
		return NewXLSXSource(cfg.XLSXPath, v.SheetIndex), nil
	default:
		return nil, fmt.Errorf("catalog: unknown source %q", cfg.Kind)
	}
}
