package structures

import (
	"fmt"

	"heapdb/disk"
	"heapdb/disk/pages"
)

// Handle addresses one row of a heap table. It stays valid for as long as neither its block nor its record is
// deleted.
type Handle struct {
	BlockID  disk.BlockID
	RecordID pages.RecordID
}

func NewHandle(blockID disk.BlockID, recordID pages.RecordID) Handle {
	return Handle{BlockID: blockID, RecordID: recordID}
}

func (h Handle) String() string {
	return fmt.Sprintf("%d.%d", h.BlockID, h.RecordID)
}
