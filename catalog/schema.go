package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrMissingColumn   = errors.New("missing column")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrTypeMismatch    = errors.New("value type does not match column type")
	ErrTrailingBytes   = errors.New("trailing bytes after last column")
)

// Schema is the authoritative column order and types of a table's records.
type Schema interface {
	GetColumns() []Column
	GetColIdx(name string) (int, error)
	ColumnNames() []string
}

type SchemaImpl struct {
	columns []Column
}

func (s *SchemaImpl) GetColIdx(name string) (int, error) {
	for i, column := range s.columns {
		if column.Name == name {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
}

func (s *SchemaImpl) GetColumns() []Column {
	return s.columns
}

func (s *SchemaImpl) ColumnNames() []string {
	res := make([]string, 0, len(s.columns))
	for _, column := range s.columns {
		res = append(res, column.Name)
	}
	return res
}

// NewSchema copies cols. Column types are not checked here, a schema may declare types that cannot be stored
// and fails only when a row is marshaled.
func NewSchema(cols ...Column) (Schema, error) {
	seen := make(map[string]bool, len(cols))
	for _, col := range cols {
		if seen[col.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, col.Name)
		}
		seen[col.Name] = true
	}

	return &SchemaImpl{
		columns: append([]Column(nil), cols...),
	}, nil
}
