package disk

import "errors"

var (
	ErrStorageIO        = errors.New("storage i/o error")
	ErrStoreExists      = errors.New("block store already exists")
	ErrStoreNotFound    = errors.New("block store not found")
	ErrStoreClosed      = errors.New("block store is closed")
	ErrBlockNotFound    = errors.New("block not found")
	ErrInvalidBlockSize = errors.New("invalid block size")
)
