package disk

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// BlockID addresses one block inside a BlockStore. Ids are handed out sequentially starting from 1, 0 is never a
// valid block.
type BlockID uint32

const (
	DefaultBlockSize = 4096

	// MinBlockSize leaves room for a header and a handful of slots.
	MinBlockSize = 64

	// MaxBlockSize keeps every in-block offset representable as an uint16.
	MaxBlockSize = math.MaxUint16
)

// BlockStore is durable storage of fixed size blocks. Every block is exactly BlockSize bytes and is read and
// rewritten as a whole.
type BlockStore interface {
	// Allocate appends a zeroed block and returns its id, which is always LastBlockID()+1.
	Allocate() (BlockID, error)
	ReadBlock(id BlockID) ([]byte, error)
	WriteBlock(id BlockID, data []byte) error
	LastBlockID() BlockID
	BlockSize() int
	Close() error
}

// Env is the storage context every heap file is opened against. It owns the mapping from store names to their
// backing storage and carries the logger.
type Env interface {
	// CreateStore creates an empty store. It returns an error wrapping ErrStoreExists if a store with the same name
	// is already present.
	CreateStore(name string) (BlockStore, error)

	// OpenStore opens an existing store. It returns an error wrapping ErrStoreNotFound if there is none.
	OpenStore(name string) (BlockStore, error)

	// RemoveStore permanently deletes a store's backing storage. The store must be closed.
	RemoveStore(name string) error

	BlockSize() int
	Logger() *zap.Logger
}

func ValidateBlockSize(size int) error {
	if size < MinBlockSize || size > MaxBlockSize {
		return fmt.Errorf("%w: %d is not in [%d, %d]", ErrInvalidBlockSize, size, MinBlockSize, MaxBlockSize)
	}
	return nil
}

func checkBlock(id, last BlockID) error {
	if id == 0 || id > last {
		return fmt.Errorf("%w: block %d, last block is %d", ErrBlockNotFound, id, last)
	}
	return nil
}

func checkBlockData(data []byte, blockSize int) error {
	if len(data) != blockSize {
		return fmt.Errorf("%w: got %d bytes, block size is %d", ErrInvalidBlockSize, len(data), blockSize)
	}
	return nil
}
