package currency

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/amirasaad/valutatrade/pkg/currency"
)

//go:embed meta.csv
var metaCSV string

const expectedColumns = 6

// LoadCurrencyMetaCSV loads the currency catalog from a CSV file or the
// embedded content. If path is empty, it uses the embedded CSV content.
func LoadCurrencyMetaCSV(path string) ([]currency.Currency, error) {
	var r io.Reader

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	} else {
		r = strings.NewReader(metaCSV)
	}

	return parseCurrencyMetaCSV(r)
}

// NewRegistry builds a registry from the CSV at path (embedded when empty).
func NewRegistry(path string) (*currency.Registry, error) {
	list, err := LoadCurrencyMetaCSV(path)
	if err != nil {
		return nil, err
	}
	return currency.NewRegistry(list...)
}

func parseCurrencyMetaCSV(r io.Reader) ([]currency.Currency, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, err
	}

	var out []currency.Currency
	for i, rec := range records {
		if i == 0 {
			if len(rec) < expectedColumns {
				return nil, fmt.Errorf(
					"invalid CSV format: expected at least %d columns, got %d",
					expectedColumns,
					len(rec),
				)
			}
			continue // skip header
		}
		if len(rec) < expectedColumns {
			continue
		}

		kind, err := currency.ParseKind(rec[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		var c currency.Currency
		switch kind {
		case currency.KindFiat:
			c, err = currency.NewFiat(rec[0], rec[1], rec[3])
		case currency.KindCrypto:
			var mcap float64
			if rec[5] != "" {
				mcap, err = strconv.ParseFloat(rec[5], 64)
				if err != nil {
					return nil, fmt.Errorf("row %d: invalid market cap: %w", i+1, err)
				}
			}
			c, err = currency.NewCrypto(rec[0], rec[1], rec[4], mcap)
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, c)
	}
	return out, nil
}
