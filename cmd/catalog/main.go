package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"iffy/internal/catalog"
	"iffy/internal/domain"
	"iffy/internal/infra"
)

// catalog prints the gift table of a deployment variant and how its rows are
// spread over the age brackets. It needs only the catalog settings, not a
// database.
func main() {
	_ = godotenv.Load()

	var (
		variantName = flag.String("variant", envOr("CATALOG_VARIANT", "general"), "catalog variant: general or sponsor")
		sourceKind  = flag.String("source", envOr("CATALOG_SOURCE", "sheets"), "catalog source: sheets or xlsx")
		xlsxPath    = flag.String("xlsx", os.Getenv("CATALOG_XLSX_PATH"), "workbook path for the xlsx source")
		sheetIndex  = flag.Int("sheet", -1, "sheet index override")
		brackets    = flag.String("brackets", os.Getenv("AGE_BRACKETS_FILE"), "YAML bracket table override")
		asJSON      = flag.Bool("json", false, "print entries as JSON")
	)
	flag.Parse()

	logger := infra.NewLogger(envOr("APP_ENV", "development"))

	variant, err := catalog.ResolveVariant(*variantName, catalog.VariantOverrides{
		SheetIndex:   *sheetIndex,
		BracketsFile: *brackets,
		DefaultEntry: os.Getenv("DEFAULT_ENTRY_NAME"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve variant")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	source, err := catalog.NewSource(ctx, catalog.SourceConfig{
		Kind:     *sourceKind,
		XLSXPath: *xlsxPath,
		Sheets: catalog.SheetsOptions{
			SpreadsheetID:       os.Getenv("GIFT_SHEET_ID"),
			ServiceAccountEmail: os.Getenv("GOOGLE_SERVICE_ACCOUNT_EMAIL"),
			PrivateKey:          strings.ReplaceAll(os.Getenv("GOOGLE_PRIVATE_KEY"), `\n`, "\n"),
		},
	}, variant)
	if err != nil {
		logger.Fatal().Err(err).Msg("build catalog source")
	}
	entries, err := catalog.NewCache(source, 0, zerolog.Nop()).Entries(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalog")
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(entries)
		return
	}
	printSummary(os.Stdout, variant, entries)
}

func printSummary(out io.Writer, v catalog.Variant, entries []domain.CatalogEntry) {
	fmt.Fprintf(out, "variant %s, sheet %d, %d entries\n", v.Name, v.SheetIndex, len(entries))
	if _, ok := catalog.FindByName(entries, v.DefaultEntry); ok {
		fmt.Fprintf(out, "default entry %q present\n\n", v.DefaultEntry)
	} else {
		fmt.Fprintf(out, "default entry %q MISSING\n\n", v.DefaultEntry)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BRACKET\tENTRIES")
	known := map[string]bool{}
	for _, label := range v.Brackets.Labels() {
		known[label] = true
		fmt.Fprintf(tw, "%s\t%d\n", label, len(catalog.InBracket(entries, label)))
	}
	for _, e := range entries {
		if !known[e.AgeBracket] {
			known[e.AgeBracket] = true
			fmt.Fprintf(tw, "%s (unmapped)\t%d\n", e.AgeBracket, len(catalog.InBracket(entries, e.AgeBracket)))
		}
	}
	_ = tw.Flush()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
