package catalog

import (
	"errors"
	"fmt"
	"sort"

	"heapdb/catalog/db_types"
)

// Row maps column names to values. It carries no column order, the schema it is validated against does.
type Row map[string]*db_types.Value

// Project narrows the row to names. It fails if any of the names is not in the row.
func (r Row) Project(names ...string) (Row, error) {
	res := make(Row, len(names))
	for _, name := range names {
		val, ok := r[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		res[name] = val
	}
	return res, nil
}

func (r Row) Equal(other Row) bool {
	if len(r) != len(other) {
		return false
	}
	for name, val := range r {
		if !val.Equal(other[name]) {
			return false
		}
	}
	return true
}

func (r Row) String() string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)

	s := "{"
	for i, name := range names {
		if i > 0 {
			s += ", "
		}
		s += name + ": " + r[name].String()
	}
	return s + "}"
}

// Validate returns a value for every column of schema in column order. Keys of row that are not in the schema are
// ignored.
func Validate(schema Schema, row Row) ([]*db_types.Value, error) {
	values := make([]*db_types.Value, 0, len(schema.GetColumns()))
	for _, column := range schema.GetColumns() {
		val, ok := row[column.Name]
		if !ok || val == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, column.Name)
		}
		values = append(values, val)
	}
	return values, nil
}

// Marshal encodes values, which must be in schema order, as the concatenation of each column's encoding. There is
// no padding and no type or version tag.
func Marshal(schema Schema, values []*db_types.Value) ([]byte, error) {
	columns := schema.GetColumns()
	if len(values) != len(columns) {
		return nil, errors.New("schema column count is not equal to values' length")
	}

	size := 0
	for i, column := range columns {
		if _, err := db_types.GetType(column.Type); err != nil {
			return nil, fmt.Errorf("column %s: %w", column.Name, err)
		}

		if values[i].GetTypeId() != column.Type {
			return nil, fmt.Errorf("%w: column %s is %v, value is %v", ErrTypeMismatch, column.Name, column.Type, values[i].GetTypeId())
		}

		n, err := values[i].Size()
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", column.Name, err)
		}
		size += n
	}

	data := make([]byte, size)
	offset := 0
	for i, column := range columns {
		n, err := values[i].Serialize(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", column.Name, err)
		}
		offset += n
	}

	return data, nil
}

// MarshalRow validates row against schema and marshals it.
func MarshalRow(schema Schema, row Row) ([]byte, error) {
	values, err := Validate(schema, row)
	if err != nil {
		return nil, err
	}
	return Marshal(schema, values)
}

// Unmarshal is the inverse of Marshal. Since records are not self describing, decoding with a schema other than the
// one used to encode gives wrong values rather than an error whenever the lengths happen to line up.
func Unmarshal(schema Schema, data []byte) (Row, error) {
	row := make(Row, len(schema.GetColumns()))
	offset := 0
	for _, column := range schema.GetColumns() {
		val, n, err := db_types.Deserialize(column.Type, data[offset:])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", column.Name, err)
		}
		row[column.Name] = val
		offset += n
	}

	if offset != len(data) {
		return nil, fmt.Errorf("%w: %d bytes left", ErrTrailingBytes, len(data)-offset)
	}
	return row, nil
}
