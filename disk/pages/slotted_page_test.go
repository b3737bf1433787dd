package pages

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"heapdb/common"
	"heapdb/disk"
)

type idLocPair struct {
	id  RecordID
	loc int
}

func newSlottedPageTestInstance(t *testing.T) *SlottedPage {
	p, err := NewSlottedPage(make([]byte, disk.DefaultBlockSize), 1)
	require.NoError(t, err)
	return p
}

func locOf(p *SlottedPage, id RecordID) int {
	_, loc := p.getHeader(id)
	return int(loc)
}

// checkLayout validates that live records do not overlap, stay between the free boundary and the end of the block,
// and that payload plus directory fits in the block.
func checkLayout(t *testing.T, p *SlottedPage) {
	type span struct{ start, end int }
	spans := make([]span, 0)
	total := 0
	for _, id := range p.LiveIDs() {
		size, loc := p.getHeader(id)
		require.Greater(t, int(loc), int(p.freeBoundary), "record %d is inside free space", id)
		require.LessOrEqual(t, int(loc)+int(size), len(p.data))
		if size > 0 {
			spans = append(spans, span{int(loc), int(loc) + int(size)})
		}
		total += int(size)
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		require.LessOrEqual(t, spans[i-1].end, spans[i].start, "records overlap")
	}

	require.LessOrEqual(t, total+slotSize*(int(p.recordCount)+1), len(p.data))
	// free space is contiguous: everything between the free boundary and the end of the block is live payload
	require.Equal(t, len(p.data)-int(p.freeBoundary)-1, total)
}

func TestNewSlottedPage_Should_Initialize_Header(t *testing.T) {
	p := newSlottedPageTestInstance(t)

	assert.Equal(t, uint16(0), p.getN(0))
	assert.Equal(t, uint16(disk.DefaultBlockSize-1), p.getN(2))
	assert.Equal(t, disk.DefaultBlockSize-slotSize, p.FreeSpace())
	assert.Empty(t, p.IDs())
}

func TestAdd_Record(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	toInsert := []byte("selam")

	id, err := p.Add(toInsert)
	require.NoError(t, err)
	res, err := p.Get(id)
	require.NoError(t, err)

	assert.Equal(t, RecordID(1), id)
	assert.Equal(t, toInsert, res)
	assert.Equal(t, []byte("selam"), p.data[disk.DefaultBlockSize-5:])

	size, loc := p.getHeader(id)
	assert.Equal(t, uint16(5), size)
	assert.Equal(t, uint16(disk.DefaultBlockSize-5), loc)
	assert.Equal(t, uint16(1), p.getN(0))
	assert.Equal(t, uint16(disk.DefaultBlockSize-6), p.getN(2))
}

func TestAll_Added_Should_Be_Found(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	n := 100
	for i := 0; i < n; i++ {
		id, err := p.Add([]byte(fmt.Sprintf("selam_%v", i)))
		require.NoError(t, err)
		require.Equal(t, RecordID(i+1), id)
	}
	assert.Len(t, p.IDs(), n)

	for i := 0; i < n; i++ {
		res, err := p.Get(RecordID(i + 1))
		require.NoError(t, err)
		assert.Equal(t, []byte(fmt.Sprintf("selam_%v", i)), res)
	}
	checkLayout(t, p)
}

func TestGet_Should_Return_A_Copy(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	id, err := p.Add([]byte("selam"))
	require.NoError(t, err)

	res, err := p.Get(id)
	require.NoError(t, err)
	res[0] = 'x'

	again, err := p.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("selam"), again)
}

func TestAdd_Should_Return_Error_When_There_Is_No_Enough_Space_Left(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	toInsert := make([]byte, p.FreeSpace()/3)

	_, err := p.Add(toInsert)
	assert.NoError(t, err)
	_, err = p.Add(toInsert)
	assert.NoError(t, err)

	_, err = p.Add(toInsert)
	assert.ErrorIs(t, err, ErrBlockFull)
	assert.Len(t, p.IDs(), 2)
}

func TestAdd_Capacity_Boundary_Should_Be_Exact(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	_, err := p.Add(make([]byte, 100))
	require.NoError(t, err)

	// a record that leaves exactly zero free bytes fits, one byte more does not
	largest := p.FreeSpace() - slotSize
	assert.True(t, p.HasRoom(largest))
	assert.False(t, p.HasRoom(largest+1))

	_, err = p.Add(make([]byte, largest+1))
	assert.ErrorIs(t, err, ErrBlockFull)

	_, err = p.Add(make([]byte, largest))
	require.NoError(t, err)
	assert.Equal(t, 0, p.FreeSpace())
	assert.False(t, p.HasRoom(0))
	checkLayout(t, p)
}

func TestMaxRecordSize_Should_Fit_In_Empty_Page(t *testing.T) {
	for _, blockSize := range []int{disk.MinBlockSize, disk.DefaultBlockSize, disk.MaxBlockSize} {
		p, err := NewSlottedPage(make([]byte, blockSize), 1)
		require.NoError(t, err)

		assert.False(t, p.HasRoom(MaxRecordSize(blockSize)+1))
		_, err = p.Add(make([]byte, MaxRecordSize(blockSize)))
		assert.NoError(t, err, "block size %d", blockSize)
	}
}

func TestGet_Should_Return_Error_For_Unknown_Or_Deleted_Records(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	id, err := p.Add([]byte("selam"))
	require.NoError(t, err)

	_, err = p.Get(0)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = p.Get(id + 1)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	require.NoError(t, p.Del(id))
	_, err = p.Get(id)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.ErrorIs(t, p.Del(id), ErrRecordNotFound)
	assert.ErrorIs(t, p.Put(id, []byte("x")), ErrRecordNotFound)
	assert.ErrorIs(t, p.Del(id+1), ErrRecordNotFound)
}

func TestDel_Should_Update_Other_Slots_Locations_When_Deleted_Record_Is_First(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	recordSize := 10
	insertCount := 50

	pairs := make([]idLocPair, 0, insertCount)
	for i := 0; i < insertCount; i++ {
		id, err := p.Add(make([]byte, recordSize))
		require.NoError(t, err)
		pairs = append(pairs, idLocPair{id: id, loc: locOf(p, id)})
	}

	require.NoError(t, p.Del(pairs[0].id))

	for i, pair := range pairs {
		if i == 0 {
			size, loc := p.getHeader(pair.id)
			assert.True(t, isTombstone(size, loc))
			continue
		}
		assert.Equal(t, pair.loc+recordSize, locOf(p, pair.id))
	}
	checkLayout(t, p)
}

func TestDel_Should_Update_Other_Slots_Locations_When_Deleted_Record_Is_In_The_Middle(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	recordSize := 10
	insertCount := 50
	deleteIdx := 25

	pairs := make([]idLocPair, 0, insertCount)
	for i := 0; i < insertCount; i++ {
		id, err := p.Add(make([]byte, recordSize))
		require.NoError(t, err)
		pairs = append(pairs, idLocPair{id: id, loc: locOf(p, id)})
	}
	freeBefore := p.FreeSpace()

	require.NoError(t, p.Del(pairs[deleteIdx].id))

	for i, pair := range pairs {
		if i == deleteIdx {
			assert.False(t, p.IsLive(pair.id))
		} else if i < deleteIdx {
			// records added before the deleted one live above it and do not move
			assert.Equal(t, pair.loc, locOf(p, pair.id))
		} else {
			assert.Equal(t, pair.loc+recordSize, locOf(p, pair.id))
		}
	}
	assert.Equal(t, freeBefore+recordSize, p.FreeSpace())
	checkLayout(t, p)
}

func TestDeleted_Records_Should_Not_Be_Found_And_Others_Should_Keep_Their_Content(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	recordSize := 10
	insertCount := 50
	toDeleteIndexes := []int{1, 2, 3, 16, 49}

	ids := make([]RecordID, 0, insertCount)
	for i := 0; i < insertCount; i++ {
		toInsert := make([]byte, recordSize)
		toInsert[0] = byte(i)
		toInsert[recordSize-1] = byte(i)
		id, err := p.Add(toInsert)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for _, idx := range toDeleteIndexes {
		require.NoError(t, p.Del(ids[idx]))
	}

	for i, id := range ids {
		if common.Contains(toDeleteIndexes, i) {
			assert.False(t, p.IsLive(id))
			continue
		}

		record, err := p.Get(id)
		require.NoError(t, err)
		require.Equal(t, byte(i), record[0])
		require.Equal(t, byte(i), record[recordSize-1])
	}

	// ids keeps tombstones, live ids does not
	assert.Len(t, p.IDs(), insertCount)
	assert.Len(t, p.LiveIDs(), insertCount-len(toDeleteIndexes))
	checkLayout(t, p)
}

func TestDel_Then_Add_Should_Not_Reuse_Ids_And_Should_Keep_Survivors(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	contents := map[RecordID][]byte{}
	for i := 0; i < 20; i++ {
		data := bytes.Repeat([]byte{byte('a' + i)}, i+3)
		id, err := p.Add(data)
		require.NoError(t, err)
		contents[id] = data
	}

	require.NoError(t, p.Del(7))
	delete(contents, 7)

	for id, data := range contents {
		got, err := p.Get(id)
		require.NoError(t, err)
		require.Equal(t, data, got)
	}

	id, err := p.Add([]byte("a differently sized record"))
	require.NoError(t, err)
	assert.Equal(t, RecordID(21), id)

	for id, data := range contents {
		got, err := p.Get(id)
		require.NoError(t, err)
		require.Equal(t, data, got)
	}
	got, err := p.Get(21)
	require.NoError(t, err)
	assert.Equal(t, []byte("a differently sized record"), got)
	checkLayout(t, p)
}

func TestPut_Should_Grow_And_Shrink_Record_In_Place(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	first, err := p.Add([]byte("first"))
	require.NoError(t, err)
	second, err := p.Add([]byte("second"))
	require.NoError(t, err)
	third, err := p.Add([]byte("third"))
	require.NoError(t, err)

	require.NoError(t, p.Put(second, []byte("second but much longer")))
	checkLayout(t, p)

	for id, want := range map[RecordID]string{first: "first", second: "second but much longer", third: "third"} {
		got, err := p.Get(id)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	freeBefore := p.FreeSpace()
	require.NoError(t, p.Put(second, []byte("2nd")))
	checkLayout(t, p)
	assert.Equal(t, freeBefore+len("second but much longer")-len("2nd"), p.FreeSpace())

	for id, want := range map[RecordID]string{first: "first", second: "2nd", third: "third"} {
		got, err := p.Get(id)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestPut_Should_Not_Return_Error_When_There_Is_Enough_Space_In_Page(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	data := make([]byte, p.FreeSpace()-slotSize)
	id, err := p.Add(data)
	require.NoError(t, err)

	data[0] = byte('x')
	require.NoError(t, p.Put(id, data))

	newData, err := p.Get(id)
	require.NoError(t, err)
	require.Equal(t, byte('x'), newData[0])
}

func TestPut_Should_Return_Block_Full_When_Growing_Without_Room(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	id, err := p.Add([]byte("small"))
	require.NoError(t, err)
	other, err := p.Add(make([]byte, p.FreeSpace()-2*slotSize))
	require.NoError(t, err)

	err = p.Put(id, []byte("small but no longer"))
	assert.ErrorIs(t, err, ErrBlockFull)

	got, err := p.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("small"), got)
	assert.True(t, p.IsLive(other))
	checkLayout(t, p)
}

func TestZero_Length_Records_Should_Be_Live(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	a, err := p.Add([]byte("aaaa"))
	require.NoError(t, err)
	empty, err := p.Add([]byte{})
	require.NoError(t, err)
	b, err := p.Add([]byte("bbbbbb"))
	require.NoError(t, err)

	assert.True(t, p.IsLive(empty))
	got, err := p.Get(empty)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, p.Del(a))
	require.NoError(t, p.Put(empty, []byte("now it has content")))
	checkLayout(t, p)

	got, err = p.Get(empty)
	require.NoError(t, err)
	assert.Equal(t, "now it has content", string(got))
	got, err = p.Get(b)
	require.NoError(t, err)
	assert.Equal(t, "bbbbbb", string(got))
}

func TestPut_Growing_Empty_Record_Should_Not_Overwrite_Its_Neighbour(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	b, err := p.Add([]byte("bbbb"))
	require.NoError(t, err)
	empty, err := p.Add([]byte{})
	require.NoError(t, err)

	// both records start at the same offset
	require.Equal(t, locOf(p, b), locOf(p, empty))

	require.NoError(t, p.Put(empty, []byte("zz")))
	checkLayout(t, p)

	got, err := p.Get(b)
	require.NoError(t, err)
	assert.Equal(t, []byte("bbbb"), got)
	got, err = p.Get(empty)
	require.NoError(t, err)
	assert.Equal(t, []byte("zz"), got)

	// and back to empty, then deleting the neighbour
	require.NoError(t, p.Put(empty, []byte{}))
	checkLayout(t, p)
	require.NoError(t, p.Del(b))
	checkLayout(t, p)

	got, err = p.Get(empty)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, disk.DefaultBlockSize-2*slotSize-slotSize, p.FreeSpace())
}

func TestPut_Should_Keep_Stacked_Empty_Records_Out_Of_Live_Payload(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	first, err := p.Add([]byte{})
	require.NoError(t, err)
	second, err := p.Add([]byte{})
	require.NoError(t, err)
	third, err := p.Add([]byte("ccc"))
	require.NoError(t, err)

	require.NoError(t, p.Put(second, []byte("22")))
	checkLayout(t, p)
	require.NoError(t, p.Put(first, []byte("1")))
	checkLayout(t, p)
	require.NoError(t, p.Put(third, []byte{}))
	checkLayout(t, p)

	for id, want := range map[RecordID]string{first: "1", second: "22", third: ""} {
		got, err := p.Get(id)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestLoadSlottedPage_Should_Parse_Existing_Header(t *testing.T) {
	p := newSlottedPageTestInstance(t)
	for i := 0; i < 10; i++ {
		_, err := p.Add([]byte(fmt.Sprintf("record_%v", i)))
		require.NoError(t, err)
	}
	require.NoError(t, p.Del(3))

	raw := make([]byte, len(p.Data()))
	copy(raw, p.Data())

	loaded, err := LoadSlottedPage(raw, 1)
	require.NoError(t, err)
	assert.Equal(t, p.IDs(), loaded.IDs())
	assert.Equal(t, p.LiveIDs(), loaded.LiveIDs())
	assert.Equal(t, p.FreeSpace(), loaded.FreeSpace())

	got, err := loaded.Get(10)
	require.NoError(t, err)
	assert.Equal(t, "record_9", string(got))
}

func TestLoadSlottedPage_Should_Treat_Never_Written_Block_As_Empty(t *testing.T) {
	p, err := LoadSlottedPage(make([]byte, disk.DefaultBlockSize), 2)
	require.NoError(t, err)

	assert.Empty(t, p.IDs())
	assert.Equal(t, disk.DefaultBlockSize-slotSize, p.FreeSpace())
	assert.Equal(t, uint16(disk.DefaultBlockSize-1), p.getN(2))

	id, err := p.Add([]byte("selam"))
	require.NoError(t, err)
	got, err := p.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("selam"), got)
	checkLayout(t, p)
}

func TestLoadSlottedPage_Should_Reject_Corrupt_Or_Wrong_Sized_Blocks(t *testing.T) {
	data := make([]byte, disk.DefaultBlockSize)
	binary.BigEndian.PutUint16(data, 5000)
	binary.BigEndian.PutUint16(data[2:], 100)
	_, err := LoadSlottedPage(data, 1)
	assert.ErrorIs(t, err, ErrInvalidBlock)

	data = make([]byte, disk.DefaultBlockSize)
	binary.BigEndian.PutUint16(data[2:], disk.DefaultBlockSize)
	_, err = LoadSlottedPage(data, 1)
	assert.ErrorIs(t, err, ErrInvalidBlock)

	_, err = LoadSlottedPage(make([]byte, 10), 1)
	assert.ErrorIs(t, err, ErrInvalidBlock)

	_, err = NewSlottedPage(make([]byte, disk.MaxBlockSize+1), 1)
	assert.ErrorIs(t, err, ErrInvalidBlock)
}

// TestRandom_Operations_Should_Keep_Layout_Valid runs add, put and del at random against a map model of the page.
func TestRandom_Operations_Should_Keep_Layout_Valid(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	p, err := NewSlottedPage(make([]byte, 1024), 1)
	require.NoError(t, err)

	model := map[RecordID][]byte{}
	randomRecord := func() []byte {
		data := make([]byte, r.Intn(60))
		r.Read(data)
		return data
	}
	randomLive := func() (RecordID, bool) {
		if len(model) == 0 {
			return 0, false
		}
		ids := make([]RecordID, 0, len(model))
		for id := range model {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return ids[r.Intn(len(ids))], true
	}

	for i := 0; i < 2000; i++ {
		switch op := r.Intn(3); op {
		case 0:
			data := randomRecord()
			id, err := p.Add(data)
			if err != nil {
				require.ErrorIs(t, err, ErrBlockFull)
				require.False(t, p.HasRoom(len(data)))
				break
			}
			model[id] = data
		case 1:
			id, ok := randomLive()
			if !ok {
				break
			}
			data := randomRecord()
			if err := p.Put(id, data); err != nil {
				require.ErrorIs(t, err, ErrBlockFull)
				break
			}
			model[id] = data
		case 2:
			id, ok := randomLive()
			if !ok {
				break
			}
			require.NoError(t, p.Del(id))
			delete(model, id)
		}

		checkLayout(t, p)
		if p.recordCount > 150 {
			// keep the directory from eating the whole page
			break
		}
	}

	require.Len(t, p.LiveIDs(), len(model))
	for id, data := range model {
		got, err := p.Get(id)
		require.NoError(t, err)
		require.Equal(t, data, got, "record %d", id)
	}
}
