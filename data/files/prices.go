package files

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	ex "gti/data/extensions"
	m "gti/data/models"
)

const ColumnDate = "date"

var missingMarkers = map[string]bool{
	"":     true,
	"na":   true,
	"nan":  true,
	"null": true,
	"-":    true,
}

// LoadPricesFile reads a wide price table csv from disk
func LoadPricesFile(path string) (m.PriceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return m.PriceTable{}, fmt.Errorf("error opening prices file %s: %w", path, err)
	}
	defer f.Close()

	return ReadPrices(f, path)
}

// ReadPrices parses `date,<symbol>,<symbol>...` rows, one per date in ascending order.
// Empty cells and NA style markers become missing observations.
func ReadPrices(r io.Reader, source string) (m.PriceTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return m.PriceTable{}, fmt.Errorf("error reading prices header from %s: %w", source, err)
	}

	ve := &ValidationError{Source: source}
	if len(header) == 0 || !ex.AreEqual(strings.TrimSpace(strings.TrimPrefix(header[0], "\ufeff")), ColumnDate) {
		ve.add(1, ColumnDate, "first column must be %s", ColumnDate)
		return m.PriceTable{}, ve
	}

	symbols := make([]string, 0, len(header)-1)
	for i, h := range header[1:] {
		symbol := strings.TrimSpace(h)
		if symbol == "" {
			ve.add(1, strconv.Itoa(i+2), "empty symbol header")
		}
		symbols = append(symbols, symbol)
	}
	if err := ve.orNil(); err != nil {
		return m.PriceTable{}, err
	}

	dates := []time.Time{}
	columns := make([][]null.Float, len(symbols))
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			ve.add(line, "", "unreadable row: %v", err)
			continue
		}

		date, err := ex.ParseShort(record[0])
		if err != nil {
			ve.add(line, ColumnDate, "date %q is not YYYY-MM-DD", record[0])
			continue
		}
		dates = append(dates, date)

		for i, raw := range record[1:] {
			value := strings.TrimSpace(raw)
			if missingMarkers[strings.ToLower(value)] {
				columns[i] = append(columns[i], null.Float{})
				continue
			}

			price, err := strconv.ParseFloat(value, 64)
			if err != nil || !ex.IsFinite(price) {
				ve.add(line, symbols[i], "price %q is not a number", value)
				columns[i] = append(columns[i], null.Float{})
				continue
			}
			columns[i] = append(columns[i], null.FloatFrom(price))
		}
	}

	if err := ve.orNil(); err != nil {
		return m.PriceTable{}, err
	}

	table := m.NewPriceTable(dates)
	for i, symbol := range symbols {
		if err := table.AddColumn(symbol, columns[i]); err != nil {
			return m.PriceTable{}, fmt.Errorf("%s: %w", source, err)
		}
	}

	if err := table.Validate(); err != nil {
		return m.PriceTable{}, fmt.Errorf("%s: %w", source, err)
	}

	return table, nil
}
