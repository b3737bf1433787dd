package disk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const storeFileExt = ".db"

// FileEnv keeps every store as a single file named <name>.db under its home directory.
type FileEnv struct {
	home      string
	blockSize int
	fsync     bool
	log       *zap.Logger
}

var _ Env = &FileEnv{}

// NewFileEnv creates home if it does not exist. If fsync is false data might be lost even after a successful write
// when power loss occurs before the os flushes its io buffers, but tests run a lot faster.
func NewFileEnv(home string, blockSize int, fsync bool, log *zap.Logger) (*FileEnv, error) {
	if err := ValidateBlockSize(blockSize); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating home %s: %w", ErrStorageIO, home, err)
	}

	return &FileEnv{home: home, blockSize: blockSize, fsync: fsync, log: log}, nil
}

func (e *FileEnv) CreateStore(name string) (BlockStore, error) {
	path := e.path(name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w: %s", ErrStoreExists, name)
	} else if err != nil {
		return nil, fmt.Errorf("%w: creating %s: %w", ErrStorageIO, path, err)
	}

	e.log.Info("block store created", zap.String("store", name), zap.String("path", path))
	return e.newManager(name, f, 0), nil
}

func (e *FileEnv) OpenStore(name string) (BlockStore, error) {
	path := e.path(name)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, name)
	} else if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrStorageIO, path, err)
	}

	stats, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", ErrStorageIO, path, err)
	}

	size := stats.Size()
	if size%int64(e.blockSize) != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s has a partial block, size %d is not a multiple of %d", ErrStorageIO, path, size, e.blockSize)
	}

	last := BlockID(size / int64(e.blockSize))
	e.log.Info("block store opened", zap.String("store", name), zap.Uint32("last_block_id", uint32(last)))
	return e.newManager(name, f, last), nil
}

func (e *FileEnv) RemoveStore(name string) error {
	if err := os.Remove(e.path(name)); err != nil {
		return fmt.Errorf("%w: removing %s: %w", ErrStorageIO, name, err)
	}

	e.log.Info("block store removed", zap.String("store", name))
	return nil
}

func (e *FileEnv) BlockSize() int {
	return e.blockSize
}

func (e *FileEnv) Logger() *zap.Logger {
	return e.log
}

func (e *FileEnv) path(name string) string {
	return filepath.Join(e.home, name+storeFileExt)
}

func (e *FileEnv) newManager(name string, f *os.File, last BlockID) *Manager {
	return &Manager{
		file:        f,
		name:        name,
		blockSize:   e.blockSize,
		fsync:       e.fsync,
		lastBlockID: last,
		log:         e.log.With(zap.String("store", name)),
	}
}

// Manager is a file backed BlockStore. Block n is kept at byte offset (n-1)*blockSize.
type Manager struct {
	file        *os.File
	name        string
	blockSize   int
	fsync       bool
	lastBlockID BlockID
	closed      bool
	log         *zap.Logger
}

var _ BlockStore = &Manager{}

func (d *Manager) Allocate() (BlockID, error) {
	if d.closed {
		return 0, ErrStoreClosed
	}

	id := d.lastBlockID + 1
	if err := d.writeAt(id, make([]byte, d.blockSize)); err != nil {
		return 0, err
	}

	d.lastBlockID = id
	d.log.Debug("block allocated", zap.Uint32("block_id", uint32(id)))
	return id, nil
}

func (d *Manager) ReadBlock(id BlockID) ([]byte, error) {
	if d.closed {
		return nil, ErrStoreClosed
	}
	if err := checkBlock(id, d.lastBlockID); err != nil {
		return nil, err
	}

	data := make([]byte, d.blockSize)
	n, err := d.file.ReadAt(data, d.offset(id))
	if err != nil {
		return nil, fmt.Errorf("%w: reading block %d of %s: %w", ErrStorageIO, id, d.name, err)
	}
	if n != d.blockSize {
		return nil, fmt.Errorf("%w: partial block %d in %s", ErrStorageIO, id, d.name)
	}

	return data, nil
}

func (d *Manager) WriteBlock(id BlockID, data []byte) error {
	if d.closed {
		return ErrStoreClosed
	}
	if err := checkBlock(id, d.lastBlockID); err != nil {
		return err
	}
	if err := checkBlockData(data, d.blockSize); err != nil {
		return err
	}

	return d.writeAt(id, data)
}

func (d *Manager) LastBlockID() BlockID {
	return d.lastBlockID
}

func (d *Manager) BlockSize() int {
	return d.blockSize
}

func (d *Manager) Close() error {
	if d.closed {
		return nil
	}

	d.closed = true
	if err := d.file.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrStorageIO, d.name, err)
	}
	return nil
}

func (d *Manager) writeAt(id BlockID, data []byte) error {
	n, err := d.file.WriteAt(data, d.offset(id))
	if err != nil {
		return fmt.Errorf("%w: writing block %d of %s: %w", ErrStorageIO, id, d.name, err)
	}
	if n != d.blockSize {
		return fmt.Errorf("%w: short write of block %d in %s", ErrStorageIO, id, d.name)
	}

	if d.fsync {
		if err := d.file.Sync(); err != nil {
			return fmt.Errorf("%w: syncing %s: %w", ErrStorageIO, d.name, err)
		}
	}

	return nil
}

func (d *Manager) offset(id BlockID) int64 {
	return int64(id-1) * int64(d.blockSize)
}
