// Package table implements a columnar attribute store with typed columns.
// Every row always holds exactly one cell per column; all writes go through
// Coerce so cells match their column type.
package table

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Common errors returned by this package.
var (
	ErrColumn       = errors.New("table: invalid column")
	ErrTypeCoercion = errors.New("table: type coercion failed")
	ErrLookup       = errors.New("table: row not found")
	ErrValidation   = errors.New("table: invalid content")
)

// DefaultRowIDField is the column name used by AddRowIDs callers that have
// no naming preference.
const DefaultRowIDField = "__ROW_ID__"

// Type is a column type.
type Type string

// Column types.
const (
	TypeUUID    Type = "uuid"
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeBytes   Type = "bytes"
)

// Column describes one table column.
type Column struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Nullable bool   `json:"nullable"`
	Hidden   bool   `json:"hidden,omitempty"`
}

// Cell is a single value: nil, string, float64, bool or []byte.
type Cell = interface{}

// Row holds one cell per column, aligned with the table's columns.
type Row []Cell

// Table is a typed attribute table.
type Table struct {
	columns []Column
	rows    []Row
	idField string
}

// New creates a table from columns and rows. Column names must be unique
// and every row must have one cell per column. If idField is not empty it
// must name an existing column, which becomes hidden.
func New(columns []Column, rows []Row, idField string) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if seen[col.Name] {
			return nil, errors.Wrapf(ErrColumn, "duplicate column %q", col.Name)
		}
		seen[col.Name] = true
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, errors.Wrapf(ErrColumn, "row %d has %d cells, expected %d", i, len(row), len(columns))
		}
	}

	t := &Table{
		columns: append([]Column(nil), columns...),
		rows:    rows,
	}
	if idField != "" {
		if err := t.SetIDField(idField); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Clone returns a deep copy of the table. Byte cells share storage.
func (t *Table) Clone() *Table {
	return &Table{
		columns: t.Columns(),
		rows:    t.Rows(),
		idField: t.idField,
	}
}

// Columns returns a copy of the column definitions.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// VisibleColumns returns the columns that are not hidden.
func (t *Table) VisibleColumns() []Column {
	visible := make([]Column, 0, len(t.columns))
	for _, col := range t.columns {
		if !col.Hidden {
			visible = append(visible, col)
		}
	}
	return visible
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns copies of all rows.
func (t *Table) Rows() []Row {
	rows := make([]Row, len(t.rows))
	for i, row := range t.rows {
		rows[i] = append(Row(nil), row...)
	}
	return rows
}

// Row returns a copy of the row at index i.
func (t *Table) Row(i int) (Row, error) {
	if i < 0 || i >= len(t.rows) {
		return nil, errors.Wrapf(ErrLookup, "row index %d out of range", i)
	}
	return append(Row(nil), t.rows[i]...), nil
}

// IDField returns the name of the id column, or "".
func (t *Table) IDField() string {
	return t.idField
}

// SetIDField designates an existing column as the id column and hides it.
func (t *Table) SetIDField(name string) error {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return errors.Wrapf(ErrColumn, "id field %q does not exist", name)
	}
	t.columns[idx].Hidden = true
	t.idField = name
	return nil
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return Column{}, errors.Wrapf(ErrColumn, "unknown column %q", name)
	}
	return t.columns[idx], nil
}

// AddRowIDs appends a hidden uuid column, fills it with a fresh id for
// every row and makes it the id field.
func (t *Table) AddRowIDs(fieldName string) error {
	if fieldName == "" {
		fieldName = DefaultRowIDField
	}
	if t.ColumnIndex(fieldName) >= 0 {
		return errors.Wrapf(ErrColumn, "column %q already exists", fieldName)
	}

	t.columns = append(t.columns, Column{Name: fieldName, Type: TypeUUID, Hidden: true})
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], uuid.NewString())
	}
	t.idField = fieldName
	return nil
}

// RowIndex returns the index of the row whose id cell equals id.
func (t *Table) RowIndex(id string) (int, error) {
	idx := t.ColumnIndex(t.idField)
	if idx < 0 {
		return -1, errors.Wrap(ErrLookup, "table has no id field")
	}
	for i, row := range t.rows {
		if s, ok := row[idx].(string); ok && s == id {
			return i, nil
		}
	}
	return -1, errors.Wrapf(ErrLookup, "no row with id %q", id)
}

// RowByID returns a copy of the row with the given id.
func (t *Table) RowByID(id string) (Row, error) {
	i, err := t.RowIndex(id)
	if err != nil {
		return nil, err
	}
	return t.Row(i)
}

// Objectify maps a row to a record keyed by column name.
func (t *Table) Objectify(row Row) map[string]interface{} {
	record := make(map[string]interface{}, len(t.columns))
	for i, col := range t.columns {
		if i < len(row) {
			record[col.Name] = row[i]
		}
	}
	return record
}

// Record returns the row with the given id as a record.
func (t *Table) Record(id string) (map[string]interface{}, error) {
	row, err := t.RowByID(id)
	if err != nil {
		return nil, err
	}
	return t.Objectify(row), nil
}

// ID returns the id cell of the row at index i, or "" without an id field.
func (t *Table) ID(i int) string {
	idx := t.ColumnIndex(t.idField)
	if idx < 0 || i < 0 || i >= len(t.rows) {
		return ""
	}
	s, _ := t.rows[i][idx].(string)
	return s
}

// Cell returns a single cell of the row with the given id.
func (t *Table) Cell(id, column string) (Cell, error) {
	col := t.ColumnIndex(column)
	if col < 0 {
		return nil, errors.Wrapf(ErrColumn, "unknown column %q", column)
	}
	i, err := t.RowIndex(id)
	if err != nil {
		return nil, err
	}
	return t.rows[i][col], nil
}

// SetCell coerces value into the column type and stores it.
func (t *Table) SetCell(id, column string, value interface{}) error {
	return t.UpdateRow(id, map[string]interface{}{column: value})
}

// UpdateRow merges record into the row with the given id. Either every
// value is stored or, on error, none is. The id column cannot be written.
func (t *Table) UpdateRow(id string, record map[string]interface{}) error {
	i, err := t.RowIndex(id)
	if err != nil {
		return err
	}

	updated := append(Row(nil), t.rows[i]...)
	for name, value := range record {
		col := t.ColumnIndex(name)
		if col < 0 {
			return errors.Wrapf(ErrColumn, "unknown column %q", name)
		}
		if name == t.idField {
			return errors.Wrapf(ErrColumn, "id column %q is read-only", name)
		}
		cell, err := Coerce(t.columns[col], value)
		if err != nil {
			return errors.Wrapf(err, "column %q", name)
		}
		updated[col] = cell
	}

	t.rows[i] = updated
	return nil
}

// View is the user-facing projection of a table: hidden columns removed,
// rows tagged with their id.
type View struct {
	Columns []string  `json:"columns"`
	Rows    []ViewRow `json:"rows"`
}

// ViewRow is one row of a View.
type ViewRow struct {
	ID   string `json:"id,omitempty"`
	Data Row    `json:"data"`
}

// View projects the table for display.
func (t *Table) View() View {
	visible := make([]int, 0, len(t.columns))
	view := View{Columns: make([]string, 0, len(t.columns))}
	for i, col := range t.columns {
		if col.Hidden {
			continue
		}
		visible = append(visible, i)
		view.Columns = append(view.Columns, col.Name)
	}

	view.Rows = make([]ViewRow, 0, len(t.rows))
	for i, row := range t.rows {
		data := make(Row, 0, len(visible))
		for _, idx := range visible {
			data = append(data, row[idx])
		}
		view.Rows = append(view.Rows, ViewRow{ID: t.ID(i), Data: data})
	}
	return view
}
