package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"iffy/internal/domain"
)

// Source loads the full gift catalog.
type Source interface {
	Load(ctx context.Context) ([]domain.CatalogEntry, error)
}

var ErrMissingColumns = errors.New("catalog header is missing required columns")

type column int

const (
	colBrand column = iota
	colName
	colDescription
	colAgeBracket
	colLink
	colImage
)

// headerAliases covers both header sets seen in the sheets: the Korean one of
// the general catalog and the English one of the sponsor catalog.
var headerAliases = map[string]column{
	"브랜드":          colBrand,
	"brand":        colBrand,
	"제품 명":         colName,
	"제품명":          colName,
	"name":         colName,
	"product_name": colName,
	"제품 설명":        colDescription,
	"description":  colDescription,
	"나이대":          colAgeBracket,
	"age_group":    colAgeBracket,
	"age_bracket":  colAgeBracket,
	"제품 링크":        colLink,
	"product_link": colLink,
	"link":         colLink,
	"product_img":  colImage,
	"제품 이미지":       colImage,
	"image_url":    colImage,
}

// NormalizeName trims and NFC-normalizes a product name so that names typed
// in the sheet and names echoed back by a model compare equal.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func normalizeHeader(s string) string {
	return strings.ToLower(NormalizeName(strings.TrimPrefix(s, "\ufeff")))
}

// mapRows converts a header row plus data rows into entries. Rows without a
// name are skipped; short rows are padded with empty cells.
func mapRows(rows [][]string) ([]domain.CatalogEntry, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	index := make(map[column]int)
	for i, h := range rows[0] {
		if c, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, dup := index[c]; !dup {
				index[c] = i
			}
		}
	}
	if _, ok := index[colName]; !ok {
		return nil, fmt.Errorf("%w: name", ErrMissingColumns)
	}
	if _, ok := index[colAgeBracket]; !ok {
		return nil, fmt.Errorf("%w: age bracket", ErrMissingColumns)
	}

	cell := func(row []string, c column) string {
		i, ok := index[c]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	entries := make([]domain.CatalogEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		name := NormalizeName(cell(row, colName))
		if name == "" {
			continue
		}
		entries = append(entries, domain.CatalogEntry{
			Brand:        cell(row, colBrand),
			Name:         name,
			Description:  cell(row, colDescription),
			AgeBracket:   cell(row, colAgeBracket),
			PurchaseLink: cell(row, colLink),
			ImageURL:     cell(row, colImage),
		})
	}
	return entries, nil
}

// FindByName returns the entry whose normalized name equals name.
func FindByName(entries []domain.CatalogEntry, name string) (domain.CatalogEntry, bool) {
	want := NormalizeName(name)
	for _, e := range entries {
		if NormalizeName(e.Name) == want {
			return e, true
		}
	}
	return domain.CatalogEntry{}, false
}

// InBracket keeps the entries tagged with label, preserving catalog order.
func InBracket(entries []domain.CatalogEntry, label string) []domain.CatalogEntry {
	var out []domain.CatalogEntry
	for _, e := range entries {
		if strings.TrimSpace(e.AgeBracket) == label {
			out = append(out, e)
		}
	}
	return out
}
