package table

import (
	"encoding/csv"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// FromRecords builds a table from records. The column set is the union of
// all record keys. Keys listed in order come first, in that order; the
// remaining keys follow in order of first appearance, with the new keys
// of a single record sorted by name. Each column type is taken from its
// first non-null value and widened to string on conflict. All inferred
// columns are nullable.
func FromRecords(records []map[string]interface{}, order []string, idField string) (*Table, error) {
	columns := inferColumns(records, order)

	rows := make([]Row, 0, len(records))
	for i, record := range records {
		row := make(Row, len(columns))
		for j, col := range columns {
			cell, err := Coerce(col, record[col.Name])
			if err != nil {
				return nil, errors.Wrapf(err, "record %d", i)
			}
			row[j] = cell
		}
		rows = append(rows, row)
	}

	return New(columns, rows, idField)
}

func inferColumns(records []map[string]interface{}, order []string) []Column {
	types := make(map[string]Type)
	names := make([]string, 0)
	seen := make(map[string]bool)

	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, name := range order {
		add(name)
	}

	for _, record := range records {
		keys := make([]string, 0, len(record))
		for name := range record {
			keys = append(keys, name)
		}
		sort.Strings(keys)

		for _, name := range keys {
			add(name)
			if inferred, ok := inferType(record[name]); ok {
				types[name] = promoteType(types[name], inferred)
			}
		}
	}

	columns := make([]Column, 0, len(names))
	for _, name := range names {
		typ := types[name]
		if typ == "" {
			typ = TypeString
		}
		columns = append(columns, Column{Name: name, Type: typ, Nullable: true})
	}
	return columns
}

// ReadCSV parses delimited text into raw records. Every record must have
// as many fields as the first one.
func ReadCSV(content string, delimiter rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = delimiter
	r.FieldsPerRecord = 0

	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(ErrColumn, "csv: %v", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// CheckCSV verifies that content parses as a rectangular table with a
// header row of at least minColumns columns.
func CheckCSV(content string, delimiter rune, minColumns int) error {
	if strings.TrimSpace(content) == "" {
		return errors.Wrap(ErrValidation, "empty content")
	}
	records, err := ReadCSV(content, delimiter)
	if err != nil {
		return errors.Wrapf(ErrValidation, "inconsistent row width: %v", err)
	}
	if len(records) == 0 {
		return errors.Wrap(ErrValidation, "no header row")
	}
	if len(records[0]) < minColumns {
		return errors.Wrapf(ErrValidation, "%d columns, at least %d required", len(records[0]), minColumns)
	}
	return nil
}

// ValidateCSV reports whether CheckCSV accepts content.
func ValidateCSV(content string, delimiter rune, minColumns int) bool {
	return CheckCSV(content, delimiter, minColumns) == nil
}

// FromCSV builds a table from delimited text whose first record is the
// header. Every column is a nullable string column; cells are kept as
// written so codes with leading zeros and encoded geometries survive.
func FromCSV(content string, delimiter rune, idField string) (*Table, error) {
	records, err := ReadCSV(content, delimiter)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.Wrap(ErrValidation, "csv: no header row")
	}

	header := records[0]
	body := records[1:]

	columns := make([]Column, len(header))
	for i, name := range header {
		columns[i] = Column{Name: name, Type: TypeString, Nullable: true}
	}

	rows := make([]Row, 0, len(body))
	for n, record := range body {
		row := make(Row, len(columns))
		for i, col := range columns {
			cell, err := Coerce(col, record[i])
			if err != nil {
				return nil, errors.Wrapf(err, "csv line %d", n+2)
			}
			row[i] = cell
		}
		rows = append(rows, row)
	}

	return New(columns, rows, idField)
}
