package pages

import (
	"encoding/binary"
	"fmt"

	"heapdb/common"
	"heapdb/disk"
)

/**
 * Slotted page format:
 *  -----------------------------------------------------------------
 *  | HEADER | SLOT_1 | ... | SLOT_N | ... FREE SPACE ... | RECORDS |
 *  -----------------------------------------------------------------
 *                                                      ^
 *                                                      free boundary
 *
 *  Header is slot 0 (size in bytes):
 *  ---------------------------------------
 *  | RecordCount (2) | FreeBoundary (2) |
 *  ---------------------------------------
 *  Each slot after it:
 *  -----------------------------
 *  | Size (2) | Location (2) |
 *  -----------------------------
 *
 * FreeBoundary is the offset of the last free byte. Records are packed downwards from the end of the block and a
 * slot with both size and location set to 0 is a deleted record. All integers are big endian.
 */

const slotSize = 4

// MaxRecordSize is the largest record an empty page of blockSize bytes accepts.
func MaxRecordSize(blockSize int) int {
	return blockSize - 2*slotSize
}

type SlottedPage struct {
	id           disk.BlockID
	data         []byte
	recordCount  uint16
	freeBoundary uint16
}

var _ Page = &SlottedPage{}

// NewSlottedPage formats data as an empty page. data is owned by the page afterwards.
func NewSlottedPage(data []byte, id disk.BlockID) (*SlottedPage, error) {
	if err := disk.ValidateBlockSize(len(data)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlock, err)
	}

	p := &SlottedPage{
		id:           id,
		data:         data,
		recordCount:  0,
		freeBoundary: uint16(len(data) - 1),
	}
	p.writeBlockHeader()
	return p, nil
}

// LoadSlottedPage wraps a block that was formatted by NewSlottedPage before, parsing its header. A block that was
// allocated but never written has an all zero header and is loaded as an empty page.
func LoadSlottedPage(data []byte, id disk.BlockID) (*SlottedPage, error) {
	if err := disk.ValidateBlockSize(len(data)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlock, err)
	}

	p := &SlottedPage{id: id, data: data}
	p.recordCount, p.freeBoundary = p.getHeader(0)
	if p.recordCount == 0 && p.freeBoundary == 0 {
		return NewSlottedPage(data, id)
	}

	if int(p.freeBoundary) >= len(data) || p.directoryEnd() > int(p.freeBoundary)+1 {
		return nil, fmt.Errorf("%w: block %d has a corrupt header, record count: %d, free boundary: %d",
			ErrInvalidBlock, id, p.recordCount, p.freeBoundary)
	}

	return p, nil
}

func (p *SlottedPage) ID() disk.BlockID {
	return p.id
}

func (p *SlottedPage) Data() []byte {
	return p.data
}

func (p *SlottedPage) Add(data []byte) (RecordID, error) {
	if !p.HasRoom(len(data)) {
		return 0, fmt.Errorf("%w: block %d has %d free bytes, record needs %d", ErrBlockFull, p.id, p.FreeSpace(), len(data)+slotSize)
	}

	p.recordCount++
	id := RecordID(p.recordCount)
	size := uint16(len(data))
	p.freeBoundary -= size
	loc := p.freeBoundary + 1

	copy(p.data[loc:], data)
	p.putHeader(id, size, loc)
	p.writeBlockHeader()
	return id, nil
}

func (p *SlottedPage) Get(id RecordID) ([]byte, error) {
	size, loc, err := p.liveHeader(id)
	if err != nil {
		return nil, err
	}

	res := make([]byte, size)
	copy(res, p.data[loc:int(loc)+int(size)])
	return res, nil
}

func (p *SlottedPage) Put(id RecordID, data []byte) error {
	size, loc, err := p.liveHeader(id)
	if err != nil {
		return err
	}

	newSize := len(data)
	var newLoc uint16
	if newSize > int(size) {
		extra := newSize - int(size)
		if !p.HasRoom(extra) {
			return fmt.Errorf("%w: block %d has %d free bytes, record %d grows by %d", ErrBlockFull, p.id, p.FreeSpace(), id, extra)
		}

		newLoc = loc - uint16(extra)
		p.slide(loc, newLoc)
		copy(p.data[newLoc:], data)
	} else {
		newLoc = loc + size - uint16(newSize)
		copy(p.data[loc:], data)
		p.slide(loc+uint16(newSize), loc+size)
	}

	// slide only moves the records below this one
	p.putHeader(id, uint16(newSize), newLoc)
	return nil
}

func (p *SlottedPage) Del(id RecordID) error {
	size, loc, err := p.liveHeader(id)
	if err != nil {
		return err
	}

	p.putHeader(id, 0, 0)
	p.slide(loc, loc+size)
	return nil
}

func (p *SlottedPage) IDs() []RecordID {
	res := make([]RecordID, 0, p.recordCount)
	for i := 1; i <= int(p.recordCount); i++ {
		res = append(res, RecordID(i))
	}
	return res
}

func (p *SlottedPage) LiveIDs() []RecordID {
	res := make([]RecordID, 0, p.recordCount)
	for _, id := range p.IDs() {
		if p.IsLive(id) {
			res = append(res, id)
		}
	}
	return res
}

func (p *SlottedPage) IsLive(id RecordID) bool {
	_, _, err := p.liveHeader(id)
	return err == nil
}

func (p *SlottedPage) HasRoom(size int) bool {
	return size >= 0 && p.FreeSpace() >= size+slotSize
}

func (p *SlottedPage) FreeSpace() int {
	return int(p.freeBoundary) + 1 - p.directoryEnd()
}

// slide moves every record located between the free boundary and start by end-start bytes, towards the end of the
// block when the shift is positive. Slots pointing at moved records are fixed up and the free boundary follows, so
// free space always stays as one contiguous region. A record that begins at start is not moved, unless it is empty
// and so sits on the edge of the moved bytes.
func (p *SlottedPage) slide(start, end uint16) {
	shift := int(end) - int(start)
	if shift == 0 {
		return
	}

	from := int(p.freeBoundary) + 1
	common.Assert(from+shift >= p.directoryEnd() && int(start)+shift <= len(p.data),
		"slide out of bounds in block %d, start: %d, end: %d, free boundary: %d", p.id, start, end, p.freeBoundary)

	copy(p.data[from+shift:], p.data[from:start])
	if shift > 0 {
		common.ZeroBytes(p.data[from : from+shift])
	}

	for _, id := range p.IDs() {
		size, loc := p.getHeader(id)
		if isTombstone(size, loc) {
			continue
		}
		if loc < start || (loc == start && size == 0) {
			p.putHeader(id, size, uint16(int(loc)+shift))
		}
	}

	p.freeBoundary = uint16(int(p.freeBoundary) + shift)
	p.writeBlockHeader()
}

func (p *SlottedPage) liveHeader(id RecordID) (size, loc uint16, err error) {
	if id == 0 || uint16(id) > p.recordCount {
		return 0, 0, fmt.Errorf("%w: record %d in block %d, record count is %d", ErrRecordNotFound, id, p.id, p.recordCount)
	}

	size, loc = p.getHeader(id)
	if isTombstone(size, loc) {
		return 0, 0, fmt.Errorf("%w: record %d in block %d is deleted", ErrRecordNotFound, id, p.id)
	}

	common.Assert(int(loc)+int(size) <= len(p.data), "record %d in block %d points outside of the block", id, p.id)
	return size, loc, nil
}

// directoryEnd is the offset of the first byte after the last slot.
func (p *SlottedPage) directoryEnd() int {
	return slotSize * (int(p.recordCount) + 1)
}

func (p *SlottedPage) writeBlockHeader() {
	p.putHeader(0, p.recordCount, p.freeBoundary)
}

// getHeader reads slot id. For id 0 it is the block header, record count and free boundary.
func (p *SlottedPage) getHeader(id RecordID) (size, loc uint16) {
	offset := slotSize * int(id)
	return p.getN(offset), p.getN(offset + 2)
}

func (p *SlottedPage) putHeader(id RecordID, size, loc uint16) {
	offset := slotSize * int(id)
	p.putN(offset, size)
	p.putN(offset+2, loc)
}

func (p *SlottedPage) getN(offset int) uint16 {
	common.Assert(offset >= 0 && offset+2 <= len(p.data), "page overflow error, offset: %d", offset)
	return binary.BigEndian.Uint16(p.data[offset:])
}

func (p *SlottedPage) putN(offset int, n uint16) {
	common.Assert(offset >= 0 && offset+2 <= len(p.data), "page overflow error, offset: %d", offset)
	binary.BigEndian.PutUint16(p.data[offset:], n)
}

func isTombstone(size, loc uint16) bool {
	return size == 0 && loc == 0
}
