package structures

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"heapdb/catalog"
	"heapdb/disk"
	"heapdb/disk/pages"
)

var ErrRecordTooLarge = errors.New("record does not fit in an empty block")

// Relation is the interface the query layer uses to store and read rows of one table.
type Relation interface {
	Name() string
	Schema() catalog.Schema

	Create() error

	// CreateIfNotExists creates the relation, or opens it if it already exists.
	CreateIfNotExists() error
	Drop() error
	Open() error
	Close() error

	// Insert stores row and returns its handle. Every column of the schema must be present in row, other keys are
	// ignored.
	Insert(row catalog.Row) (Handle, error)

	// Select returns handles of all rows. There is no filtering, predicates are evaluated by the caller.
	Select() ([]Handle, error)

	// Project reads the row at h. If columns are given, the result only holds those.
	Project(h Handle, columns ...string) (catalog.Row, error)
}

// HeapTable keeps rows unordered in a heap file. New rows are only ever appended to the last block, space freed in
// earlier blocks is not reused for inserts.
type HeapTable struct {
	name      string
	schema    catalog.Schema
	file      File
	blockSize int
	log       *zap.Logger
}

var _ Relation = &HeapTable{}

func NewHeapTable(name string, schema catalog.Schema, env disk.Env) *HeapTable {
	return &HeapTable{
		name:      name,
		schema:    schema,
		file:      NewHeapFile(name, env),
		blockSize: env.BlockSize(),
		log:       env.Logger().With(zap.String("table", name)),
	}
}

func (t *HeapTable) Name() string {
	return t.name
}

func (t *HeapTable) Schema() catalog.Schema {
	return t.schema
}

func (t *HeapTable) Create() error {
	if err := t.file.Create(); err != nil {
		return fmt.Errorf("create table %s: %w", t.name, err)
	}

	t.log.Info("table created", zap.Strings("columns", t.schema.ColumnNames()))
	return nil
}

func (t *HeapTable) CreateIfNotExists() error {
	err := t.Create()
	if errors.Is(err, disk.ErrStoreExists) {
		t.log.Info("table already exists, opening it")
		return t.Open()
	}
	return err
}

func (t *HeapTable) Drop() error {
	if err := t.file.Drop(); err != nil {
		return fmt.Errorf("drop table %s: %w", t.name, err)
	}

	t.log.Info("table dropped")
	return nil
}

func (t *HeapTable) Open() error {
	if err := t.file.Open(); err != nil {
		return fmt.Errorf("open table %s: %w", t.name, err)
	}
	return nil
}

func (t *HeapTable) Close() error {
	return t.file.Close()
}

func (t *HeapTable) Insert(row catalog.Row) (Handle, error) {
	data, err := catalog.MarshalRow(t.schema, row)
	if err != nil {
		return Handle{}, fmt.Errorf("insert into %s: %w", t.name, err)
	}

	return t.append(data)
}

func (t *HeapTable) append(data []byte) (Handle, error) {
	if maxSize := pages.MaxRecordSize(t.blockSize); len(data) > maxSize {
		return Handle{}, fmt.Errorf("%w: record is %d bytes, max is %d", ErrRecordTooLarge, len(data), maxSize)
	}

	var page pages.Page
	var err error
	if last := t.file.LastBlockID(); last != 0 {
		if page, err = t.file.Get(last); err != nil {
			return Handle{}, err
		}
	}

	// only the last block is tried, a full one means a new block
	if page == nil || !page.HasRoom(len(data)) {
		if page, err = t.file.GetNew(); err != nil {
			return Handle{}, err
		}
	}

	id, err := page.Add(data)
	if err != nil {
		return Handle{}, err
	}

	if err := t.file.Put(page); err != nil {
		return Handle{}, err
	}

	return NewHandle(page.ID(), id), nil
}

func (t *HeapTable) Select() ([]Handle, error) {
	blockIDs, err := t.file.BlockIDs()
	if err != nil {
		return nil, err
	}

	handles := make([]Handle, 0)
	for _, blockID := range blockIDs {
		page, err := t.file.Get(blockID)
		if err != nil {
			return nil, err
		}

		for _, recordID := range page.LiveIDs() {
			handles = append(handles, NewHandle(blockID, recordID))
		}
	}

	return handles, nil
}

func (t *HeapTable) Project(h Handle, columns ...string) (catalog.Row, error) {
	for _, name := range columns {
		if _, err := t.schema.GetColIdx(name); err != nil {
			return nil, fmt.Errorf("project %v from %s: %w", h, t.name, err)
		}
	}

	page, err := t.file.Get(h.BlockID)
	if err != nil {
		return nil, err
	}

	data, err := page.Get(h.RecordID)
	if err != nil {
		return nil, err
	}

	row, err := catalog.Unmarshal(t.schema, data)
	if err != nil {
		return nil, fmt.Errorf("project %v from %s: %w", h, t.name, err)
	}

	if len(columns) == 0 {
		return row, nil
	}
	return row.Project(columns...)
}
