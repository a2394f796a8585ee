package files

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/guregu/null/v6"

	m "gti/data/models"
)

const (
	ColumnSymbol   = "symbol"
	ColumnWeight   = "weight"
	ColumnPositive = "positive"
	ColumnFullName = "full_name"
)

var validate = validator.New()

// weightRow is the raw csv shape, checked before any conversion happens
type weightRow struct {
	Symbol   string `validate:"required"`
	Weight   string `validate:"required,numeric"`
	Positive string `validate:"required,oneof=0 1 true false TRUE FALSE True False"`
	FullName string
}

// LoadWeightsFile reads a weight table csv from disk
func LoadWeightsFile(path string) (m.WeightTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening weights file %s: %w", path, err)
	}
	defer f.Close()

	return ReadWeights(f, path)
}

// ReadWeights parses `symbol,weight,positive[,full_name]` rows.
// Column order is taken from the header. Every malformed row is reported, not just the first one.
func ReadWeights(r io.Reader, source string) (m.WeightTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", source, m.ErrEmptyWeightTable)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading weights header from %s: %w", source, err)
	}

	columns := indexHeader(header)
	ve := &ValidationError{Source: source}
	for _, required := range []string{ColumnSymbol, ColumnWeight, ColumnPositive} {
		if _, ok := columns[required]; !ok {
			ve.add(1, required, "required column is missing")
		}
	}
	if err := ve.orNil(); err != nil {
		return nil, err
	}

	table := m.WeightTable{}
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
		if isBlank(record) {
			continue
		}

		row := weightRow{
			Symbol:   cell(record, columns, ColumnSymbol),
			Weight:   cell(record, columns, ColumnWeight),
			Positive: cell(record, columns, ColumnPositive),
			FullName: cell(record, columns, ColumnFullName),
		}

		if err := validate.Struct(row); err != nil {
			var fieldErrors validator.ValidationErrors
			if errors.As(err, &fieldErrors) {
				for _, fe := range fieldErrors {
					ve.add(line, strings.ToLower(fe.Field()), "failed %s check with value %q", fe.Tag(), fe.Value())
				}
				continue
			}
			return nil, fmt.Errorf("error validating weights row %d: %w", line, err)
		}

		entry, err := row.toEntry()
		if err != nil {
			ve.add(line, ColumnWeight, "%v", err)
			continue
		}
		table = append(table, entry)
	}

	if err := ve.orNil(); err != nil {
		return nil, err
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	return table, nil
}

func (row weightRow) toEntry() (m.WeightEntry, error) {
	weight, err := strconv.ParseFloat(row.Weight, 64)
	if err != nil {
		return m.WeightEntry{}, fmt.Errorf("weight %q is not a number", row.Weight)
	}
	if weight < 0 {
		return m.WeightEntry{}, fmt.Errorf("weight %v is negative", weight)
	}

	positive, err := strconv.ParseBool(row.Positive)
	if err != nil {
		return m.WeightEntry{}, fmt.Errorf("positive %q is not boolean like", row.Positive)
	}

	entry := m.WeightEntry{
		Symbol:   row.Symbol,
		Weight:   weight,
		Positive: positive,
	}
	if row.FullName != "" {
		entry.FullName = null.StringFrom(row.FullName)
	}

	return entry, nil
}

// WriteWeights writes the table back out in the same layout ReadWeights accepts
func WriteWeights(w io.Writer, table m.WeightTable) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{ColumnSymbol, ColumnWeight, ColumnPositive, ColumnFullName}); err != nil {
		return err
	}

	for _, entry := range table {
		positive := "0"
		if entry.Positive {
			positive = "1"
		}
		record := []string{
			entry.Symbol,
			strconv.FormatFloat(entry.Weight, 'f', -1, 64),
			positive,
			entry.FullName.ValueOrZero(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func indexHeader(header []string) map[string]int {
	res := make(map[string]int, len(header))
	for i, h := range header {
		res[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return res
}

func cell(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
