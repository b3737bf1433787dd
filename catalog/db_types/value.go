package db_types

import (
	"fmt"
	"math"
)

type Value struct {
	typeID TypeID
	value  interface{}
}

func (v *Value) GetTypeId() TypeID {
	return v.typeID
}

func (v *Value) GetAsInterface() interface{} {
	return v.value
}

func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	return v.typeID == other.typeID && v.value == other.value
}

func (v *Value) String() string {
	if v.typeID == Text {
		return fmt.Sprintf("%q", v.value)
	}
	return fmt.Sprint(v.value)
}

// Size returns the serialized length of the value.
func (v *Value) Size() (int, error) {
	t, err := GetType(v.typeID)
	if err != nil {
		return 0, err
	}
	return t.Length(v), nil
}

func (v *Value) Serialize(dest []byte) (int, error) {
	t, err := GetType(v.typeID)
	if err != nil {
		return 0, err
	}
	return t.Serialize(dest, v)
}

func Deserialize(typeID TypeID, src []byte) (*Value, int, error) {
	t, err := GetType(typeID)
	if err != nil {
		return nil, 0, err
	}
	return t.Deserialize(src)
}

// NewValue wraps a go value. It panics for go types that have no db type, and for ints that do not fit an
// INT column, use NewIntValue to get an error instead.
func NewValue(src interface{}) *Value {
	var typeID TypeID
	switch s := src.(type) {
	case int32:
		typeID = Integer
	case int:
		v, err := NewIntValue(s)
		if err != nil {
			panic(err)
		}
		return v
	case string:
		typeID = Text
	case bool:
		typeID = Boolean
	default:
		panic(fmt.Sprintf("not supported type %T", src))
	}

	return &Value{
		typeID: typeID,
		value:  src,
	}
}

func NewIntValue(i int) (*Value, error) {
	if i < math.MinInt32 || i > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d does not fit in %v", ErrOutOfRange, i, Integer)
	}
	return &Value{typeID: Integer, value: int32(i)}, nil
}
