package db_types

import (
	"errors"
	"fmt"
)

type TypeID uint8

const (
	Integer TypeID = iota + 1
	Text
	// Boolean can be declared in a schema but has no binary encoding yet.
	Boolean
)

var (
	ErrUnsupportedType = errors.New("unsupported type")
	ErrValueTooLarge   = errors.New("value too large to serialize")
	ErrShortBuffer     = errors.New("buffer too short")
	ErrOutOfRange      = errors.New("value out of range")
)

func (t TypeID) String() string {
	switch t {
	case Integer:
		return "INT"
	case Text:
		return "TEXT"
	case Boolean:
		return "BOOLEAN"
	default:
		return fmt.Sprintf("TYPE(%d)", uint8(t))
	}
}

// DbType is the interface that should be implemented to make a type storable in a record.
type DbType interface {
	// Serialize writes src to the beginning of dest and returns the number of bytes written, which is always
	// Length(src).
	Serialize(dest []byte, src *Value) (int, error)

	// Deserialize reads one value from the beginning of src and returns it with the number of bytes consumed.
	Deserialize(src []byte) (*Value, int, error)

	// Length returns the size of the bytes when value is serialized.
	Length(val *Value) int

	TypeId() TypeID
}

func GetType(typeID TypeID) (DbType, error) {
	switch typeID {
	case Integer:
		return &IntegerType{}, nil
	case Text:
		return &TextType{}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, typeID)
	}
}
