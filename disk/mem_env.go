package disk

/*
	MemEnv is an in memory implementation of Env. Stores survive being closed and reopened for as long as the env
	itself lives, which makes it a drop-in replacement for FileEnv in tests.
*/

import (
	"fmt"

	"go.uber.org/zap"
)

type MemEnv struct {
	blockSize int
	stores    map[string]*memBlocks
	log       *zap.Logger
}

var _ Env = &MemEnv{}

type memBlocks struct {
	blocks [][]byte
}

func NewMemEnv(blockSize int, log *zap.Logger) (*MemEnv, error) {
	if err := ValidateBlockSize(blockSize); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &MemEnv{
		blockSize: blockSize,
		stores:    map[string]*memBlocks{},
		log:       log,
	}, nil
}

func (e *MemEnv) CreateStore(name string) (BlockStore, error) {
	if _, ok := e.stores[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrStoreExists, name)
	}

	blocks := &memBlocks{}
	e.stores[name] = blocks
	e.log.Info("block store created", zap.String("store", name))
	return &MemStore{name: name, blockSize: e.blockSize, blocks: blocks, log: e.log}, nil
}

func (e *MemEnv) OpenStore(name string) (BlockStore, error) {
	blocks, ok := e.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, name)
	}

	return &MemStore{name: name, blockSize: e.blockSize, blocks: blocks, log: e.log}, nil
}

func (e *MemEnv) RemoveStore(name string) error {
	if _, ok := e.stores[name]; !ok {
		return fmt.Errorf("%w: removing %s: %w", ErrStorageIO, name, ErrStoreNotFound)
	}

	delete(e.stores, name)
	e.log.Info("block store removed", zap.String("store", name))
	return nil
}

func (e *MemEnv) BlockSize() int {
	return e.blockSize
}

func (e *MemEnv) Logger() *zap.Logger {
	return e.log
}

// MemStore copies blocks in and out so callers never share memory with the store.
type MemStore struct {
	name      string
	blockSize int
	blocks    *memBlocks
	closed    bool
	log       *zap.Logger
}

var _ BlockStore = &MemStore{}

func (m *MemStore) Allocate() (BlockID, error) {
	if m.closed {
		return 0, ErrStoreClosed
	}

	m.blocks.blocks = append(m.blocks.blocks, make([]byte, m.blockSize))
	id := m.LastBlockID()
	m.log.Debug("block allocated", zap.String("store", m.name), zap.Uint32("block_id", uint32(id)))
	return id, nil
}

func (m *MemStore) ReadBlock(id BlockID) ([]byte, error) {
	if m.closed {
		return nil, ErrStoreClosed
	}
	if err := checkBlock(id, m.LastBlockID()); err != nil {
		return nil, err
	}

	data := make([]byte, m.blockSize)
	copy(data, m.blocks.blocks[id-1])
	return data, nil
}

func (m *MemStore) WriteBlock(id BlockID, data []byte) error {
	if m.closed {
		return ErrStoreClosed
	}
	if err := checkBlock(id, m.LastBlockID()); err != nil {
		return err
	}
	if err := checkBlockData(data, m.blockSize); err != nil {
		return err
	}

	copy(m.blocks.blocks[id-1], data)
	return nil
}

func (m *MemStore) LastBlockID() BlockID {
	return BlockID(len(m.blocks.blocks))
}

func (m *MemStore) BlockSize() int {
	return m.blockSize
}

func (m *MemStore) Close() error {
	m.closed = true
	return nil
}
