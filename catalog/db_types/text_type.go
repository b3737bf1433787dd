package db_types

import (
	"encoding/binary"
	"fmt"
	"math"
)

const textLenSize = 2

// TextType is stored as an uint16 length followed by the raw bytes of the string.
type TextType struct {
}

func (c *TextType) Serialize(dest []byte, src *Value) (int, error) {
	str := src.GetAsInterface().(string)
	if len(str) > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %v of %d bytes, max is %d", ErrValueTooLarge, Text, len(str), math.MaxUint16)
	}

	n := textLenSize + len(str)
	if len(dest) < n {
		return 0, fmt.Errorf("%w: need %d bytes for %v, have %d", ErrShortBuffer, n, Text, len(dest))
	}

	// first write size then the string itself
	binary.BigEndian.PutUint16(dest, uint16(len(str)))
	copy(dest[textLenSize:], str)
	return n, nil
}

func (c *TextType) Deserialize(src []byte) (*Value, int, error) {
	if len(src) < textLenSize {
		return nil, 0, fmt.Errorf("%w: need %d bytes for %v length, have %d", ErrShortBuffer, textLenSize, Text, len(src))
	}

	l := int(binary.BigEndian.Uint16(src))
	if len(src) < textLenSize+l {
		return nil, 0, fmt.Errorf("%w: need %d bytes for %v, have %d", ErrShortBuffer, textLenSize+l, Text, len(src))
	}

	return NewValue(string(src[textLenSize : textLenSize+l])), textLenSize + l, nil
}

func (c *TextType) Length(val *Value) int {
	return textLenSize + len(val.GetAsInterface().(string))
}

func (c *TextType) TypeId() TypeID {
	return Text
}
