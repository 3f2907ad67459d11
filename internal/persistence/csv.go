package persistence

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/saripos/saripos/internal/inventory"
	"github.com/saripos/saripos/internal/shared"
)

var inventoryHeader = []string{"ProductName", "Unit", "Stock", "Price"}

const defaultUnit = "pc"

// EncodeInventoryCSV renders products as the ProductName,Unit,Stock,Price
// table. Prices keep two decimals.
func EncodeInventoryCSV(products []inventory.Product) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(inventoryHeader); err != nil {
		return nil, fmt.Errorf("persistence: write csv header: %w", err)
	}
	for _, p := range products {
		row := []string{p.Name, p.Unit, p.Stock.String(), p.Price.StringFixed(2)}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("persistence: write csv row %q: %w", p.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("persistence: flush csv: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeInventoryCSV parses the inventory table. Rows with fewer than three
// fields, a blank name or unit, unparsable numbers or a negative stock or
// price are skipped. Three-field rows
// have no unit column and default to "pc".
func DecodeInventoryCSV(data []byte) ([]inventory.Product, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var out []inventory.Product
	seen := make(map[string]int)
	for line := 0; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("persistence: read csv: %w", err)
		}
		if line == 0 || len(rec) < 3 {
			continue
		}
		name := shared.NormalizeName(rec[0])
		unit := defaultUnit
		if len(rec) == 4 {
			unit = strings.TrimSpace(rec[1])
		}
		stock, errStock := decimal.NewFromString(strings.TrimSpace(rec[len(rec)-2]))
		price, errPrice := decimal.NewFromString(strings.TrimSpace(rec[len(rec)-1]))
		if name == "" || unit == "" || errStock != nil || errPrice != nil {
			continue
		}
		if stock.IsNegative() || price.IsNegative() {
			continue
		}
		p := inventory.Product{Name: name, Unit: unit, Stock: stock, Price: price}
		if idx, ok := seen[name]; ok {
			out[idx] = p
			continue
		}
		seen[name] = len(out)
		out = append(out, p)
	}
	return out, nil
}
