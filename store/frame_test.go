package store

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testScope = Scope{CacheName: "c", ShardName: "s", Version: "v1"}

func sampleRows() []Row {
	base := time.Unix(1_700_000_000, 123)
	return []Row{
		{CacheName: "c", ShardName: "s", Version: "v1", Key: 1, Item: []byte("one"), CreatedOn: base},
		{CacheName: "c", ShardName: "s", Version: "v1", Key: 2, Item: []byte("two"), CreatedOn: base.Add(time.Second)},
	}
}

// TestWriteReadRows decodes what was framed, with and without gzip.
func TestWriteReadRows(t *testing.T) {
	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, WriteRows(&buf, sampleRows(), compress))

		rows, err := ReadRows(&buf, testScope, compress)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for i, want := range sampleRows() {
			require.Equal(t, want.Key, rows[i].Key)
			require.Equal(t, want.Item, rows[i].Item)
			require.True(t, want.CreatedOn.Equal(rows[i].CreatedOn))
			require.Equal(t, testScope, rows[i].Scope())
		}
	}
}

// TestReadRows_SkipsCorruptedFrames keeps valid rows and reports the mismatch.
func TestReadRows_SkipsCorruptedFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, sampleRows(), false))

	data := buf.Bytes()
	data[len(data)-1] ^= 0xFF // last byte of the second item

	rows, err := ReadRows(bytes.NewReader(data), testScope, false)
	require.ErrorIs(t, err, ErrCorrupted)
	require.Len(t, rows, 1)
	require.Equal(t, uint64(1), rows[0].Key)
}

// TestReadRows_Truncated keeps the rows before a cut frame and reports corruption.
func TestReadRows_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, sampleRows(), false))

	rows, err := ReadRows(bytes.NewReader(buf.Bytes()[:buf.Len()-2]), testScope, false)
	require.ErrorIs(t, err, ErrCorrupted)
	require.Len(t, rows, 1)
}

// TestReadRows_OversizedFrame rejects a damaged header instead of allocating it.
func TestReadRows_OversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, sampleRows(), false))

	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[0:4], 0xFFFFFFF0)

	rows, err := ReadRows(bytes.NewReader(data), testScope, false)
	require.ErrorIs(t, err, ErrCorrupted)
	require.Empty(t, rows)
}

// TestWriteRows_OversizedItem refuses rows that could not be read back.
func TestWriteRows_OversizedItem(t *testing.T) {
	rows := []Row{{Key: 1, Item: make([]byte, maxFrameSize), CreatedOn: time.Now()}}
	require.Error(t, WriteRows(io.Discard, rows, false))
}

// TestNewestFirstWithout sorts, caps and filters rows.
func TestNewestFirstWithout(t *testing.T) {
	rows := NewestFirst(sampleRows(), 0)
	require.Equal(t, uint64(2), rows[0].Key)

	require.Len(t, NewestFirst(sampleRows(), 1), 1)

	require.Len(t, Without(sampleRows(), []uint64{1}), 1)
	require.Empty(t, Without(sampleRows(), nil))
}

// TestScopeOf requires a cache name and one scope per chunk.
func TestScopeOf(t *testing.T) {
	scope, err := ScopeOf(sampleRows())
	require.NoError(t, err)
	require.Equal(t, testScope, scope)

	_, err = ScopeOf([]Row{{Key: 1}})
	require.ErrorIs(t, err, ErrEmptyScope)

	mixed := sampleRows()
	mixed[1].Version = "v2"
	_, err = ScopeOf(mixed)
	require.Error(t, err)
}
