package pages

import (
	"errors"

	"heapdb/disk"
)

// RecordID identifies a record inside one page. Ids are handed out sequentially starting from 1 and are never
// reused, even after the record is deleted.
type RecordID uint16

var (
	ErrBlockFull      = errors.New("not enough space in block")
	ErrRecordNotFound = errors.New("record not found")
	ErrInvalidBlock   = errors.New("invalid block")
)

// Page is an in memory view over the bytes of exactly one block. Mutations only touch the in memory buffer, they
// become durable when the owner writes Data() back to the block store.
type Page interface {
	ID() disk.BlockID

	// Data returns the whole block buffer, not a copy.
	Data() []byte

	// Add stores data as a new record and returns its id. Returns ErrBlockFull if HasRoom(len(data)) is false.
	Add(data []byte) (RecordID, error)

	// Get returns a copy of the record's bytes.
	Get(id RecordID) ([]byte, error)

	// Put replaces a record's bytes, the new content may be larger or smaller than the old one.
	Put(id RecordID, data []byte) error

	// Del deletes the record, its id stays reserved.
	Del(id RecordID) error

	// IDs returns every id ever allocated in the page including deleted ones. Use IsLive or LiveIDs to skip them.
	IDs() []RecordID
	LiveIDs() []RecordID
	IsLive(id RecordID) bool

	// HasRoom tells whether a record of size bytes and its slot fit into the free space.
	HasRoom(size int) bool
	FreeSpace() int
}
