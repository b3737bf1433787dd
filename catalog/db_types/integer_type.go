package db_types

import (
	"encoding/binary"
	"fmt"
)

const integerSize = 4

// IntegerType is stored as 4 bytes of big endian two's complement.
type IntegerType struct {
}

func (i *IntegerType) Serialize(dest []byte, src *Value) (int, error) {
	if len(dest) < integerSize {
		return 0, fmt.Errorf("%w: need %d bytes for %v, have %d", ErrShortBuffer, integerSize, Integer, len(dest))
	}

	binary.BigEndian.PutUint32(dest, uint32(src.GetAsInterface().(int32)))
	return integerSize, nil
}

func (i *IntegerType) Deserialize(src []byte) (*Value, int, error) {
	if len(src) < integerSize {
		return nil, 0, fmt.Errorf("%w: need %d bytes for %v, have %d", ErrShortBuffer, integerSize, Integer, len(src))
	}

	return NewValue(int32(binary.BigEndian.Uint32(src))), integerSize, nil
}

func (i *IntegerType) Length(*Value) int {
	return integerSize
}

func (i *IntegerType) TypeId() TypeID {
	return Integer
}
