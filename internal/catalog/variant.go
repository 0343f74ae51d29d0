package catalog

import (
	"fmt"
	"strings"
)

const OtherLabel = "기타"

// Variant bundles the per-deployment catalog settings: which sheet to read,
// how ages are bracketed and which entry is the default gift.
type Variant struct {
	Name         string
	SheetIndex   int
	Brackets     BracketTable
	DefaultEntry string
}

var (
	GeneralVariant = Variant{
		Name:       "general",
		SheetIndex: 0,
		Brackets: mustBracketTable([]Bracket{
			{5, "0-5"}, {10, "6-10"}, {20, "11-20"}, {30, "21-30"}, {40, "31-40"},
			{50, "41-50"}, {60, "51-60"}, {70, "61-70"}, {80, "71-"},
		}, OtherLabel),
		DefaultEntry: "CJ나눔재단 기부",
	}

	SponsorVariant = Variant{
		Name:       "sponsor",
		SheetIndex: 1,
		Brackets: mustBracketTable([]Bracket{
			{20, "0-20"}, {40, "21-40"}, {60, "41-60"}, {80, "61-"},
		}, OtherLabel),
		DefaultEntry: "LG QNED TV",
	}
)

// VariantOverrides replaces preset values when set. SheetIndex < 0 keeps the preset.
type VariantOverrides struct {
	SheetIndex   int
	BracketsFile string
	DefaultEntry string
}

// ResolveVariant picks a preset by name and applies overrides.
func ResolveVariant(name string, o VariantOverrides) (Variant, error) {
	var v Variant
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "general":
		v = GeneralVariant
	case "sponsor":
		v = SponsorVariant
	default:
		return Variant{}, fmt.Errorf("catalog variant %q is not supported", name)
	}
	if o.SheetIndex >= 0 {
		v.SheetIndex = o.SheetIndex
	}
	if o.BracketsFile != "" {
		table, err := LoadBracketTable(o.BracketsFile)
		if err != nil {
			return Variant{}, err
		}
		v.Brackets = table
	}
	if s := strings.TrimSpace(o.DefaultEntry); s != "" {
		v.DefaultEntry = s
	}
	return v, nil
}
