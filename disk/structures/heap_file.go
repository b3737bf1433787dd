package structures

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"heapdb/disk"
	"heapdb/disk/pages"
)

var ErrFileClosed = errors.New("heap file is closed")

// File is an ordered, growing sequence of blocks belonging to one table.
type File interface {
	Name() string

	// Create creates the backing store and writes its first, empty block. The file is open afterwards.
	Create() error

	// Drop closes the file and permanently deletes its backing store.
	Drop() error
	Open() error
	Close() error
	IsOpen() bool

	// GetNew allocates the next block and returns it as an empty page. The page is not persisted until Put.
	GetNew() (pages.Page, error)
	Get(id disk.BlockID) (pages.Page, error)
	Put(page pages.Page) error

	// BlockIDs returns 1..LastBlockID(), blocks are never reclaimed so some of them may hold deleted records only.
	BlockIDs() ([]disk.BlockID, error)
	LastBlockID() disk.BlockID
}

type HeapFile struct {
	name  string
	env   disk.Env
	store disk.BlockStore
	last  disk.BlockID
	log   *zap.Logger
}

var _ File = &HeapFile{}

func NewHeapFile(name string, env disk.Env) *HeapFile {
	return &HeapFile{
		name: name,
		env:  env,
		log:  env.Logger().With(zap.String("file", name)),
	}
}

func (h *HeapFile) Name() string {
	return h.name
}

func (h *HeapFile) Create() error {
	if h.IsOpen() {
		return fmt.Errorf("heap file %s is already open", h.name)
	}

	store, err := h.env.CreateStore(h.name)
	if err != nil {
		return err
	}
	h.store, h.last = store, store.LastBlockID()

	page, err := h.GetNew()
	if err == nil {
		err = h.Put(page)
	}
	if err != nil {
		// leave nothing half created behind
		if dropErr := h.Drop(); dropErr != nil {
			h.log.Error("failed to clean up after create", zap.Error(dropErr))
		}
		return err
	}

	return nil
}

func (h *HeapFile) Drop() error {
	if err := h.Close(); err != nil {
		return err
	}
	return h.env.RemoveStore(h.name)
}

func (h *HeapFile) Open() error {
	if h.IsOpen() {
		return nil
	}

	store, err := h.env.OpenStore(h.name)
	if err != nil {
		return err
	}

	h.store, h.last = store, store.LastBlockID()
	return nil
}

func (h *HeapFile) Close() error {
	if !h.IsOpen() {
		return nil
	}

	store := h.store
	h.store = nil
	return store.Close()
}

func (h *HeapFile) IsOpen() bool {
	return h.store != nil
}

func (h *HeapFile) GetNew() (pages.Page, error) {
	if !h.IsOpen() {
		return nil, ErrFileClosed
	}

	id, err := h.store.Allocate()
	if err != nil {
		return nil, err
	}
	h.last = id

	// the page wraps the bytes the store holds, not a fresh buffer
	data, err := h.store.ReadBlock(id)
	if err != nil {
		return nil, err
	}

	h.log.Debug("new block", zap.Uint32("block_id", uint32(id)))
	return pages.NewSlottedPage(data, id)
}

func (h *HeapFile) Get(id disk.BlockID) (pages.Page, error) {
	if !h.IsOpen() {
		return nil, ErrFileClosed
	}

	data, err := h.store.ReadBlock(id)
	if err != nil {
		return nil, err
	}

	return pages.LoadSlottedPage(data, id)
}

func (h *HeapFile) Put(page pages.Page) error {
	if !h.IsOpen() {
		return ErrFileClosed
	}

	return h.store.WriteBlock(page.ID(), page.Data())
}

func (h *HeapFile) BlockIDs() ([]disk.BlockID, error) {
	if !h.IsOpen() {
		return nil, ErrFileClosed
	}

	res := make([]disk.BlockID, 0, h.last)
	for id := disk.BlockID(1); id <= h.last; id++ {
		res = append(res, id)
	}
	return res, nil
}

func (h *HeapFile) LastBlockID() disk.BlockID {
	return h.last
}
