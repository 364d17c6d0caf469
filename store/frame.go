package store

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

const (
	bufSize   = 512 * 1024
	metaSize  = 8
	rowPrefix = 16

	// maxFrameSize bounds a single row, larger headers can only come from a damaged chunk.
	maxFrameSize = 64 << 20
)

// WriteRows frames rows as [len u32][crc32 u32][key u64 | created i64 | item].
// Scope fields are not written, they are implied by where the chunk lives.
func WriteRows(w io.Writer, rows []Row, compress bool) error {
	var gw *gzip.Writer
	if compress {
		gw = gzip.NewWriter(w)
		w = gw
	}
	bw := bufio.NewWriterSize(w, bufSize)

	var meta [metaSize]byte
	var prefix [rowPrefix]byte
	for _, r := range rows {
		if rowPrefix+len(r.Item) > maxFrameSize {
			return fmt.Errorf("row %d: item of %d bytes exceeds the frame limit", r.Key, len(r.Item))
		}
		binary.LittleEndian.PutUint64(prefix[0:8], r.Key)
		binary.LittleEndian.PutUint64(prefix[8:16], uint64(r.CreatedOn.UnixNano()))

		crc := crc32.NewIEEE()
		_, _ = crc.Write(prefix[:])
		_, _ = crc.Write(r.Item)

		binary.LittleEndian.PutUint32(meta[0:4], uint32(rowPrefix+len(r.Item)))
		binary.LittleEndian.PutUint32(meta[4:8], crc.Sum32())

		if _, err := bw.Write(meta[:]); err != nil {
			return fmt.Errorf("write row meta: %w", err)
		}
		if _, err := bw.Write(prefix[:]); err != nil {
			return fmt.Errorf("write row prefix: %w", err)
		}
		if _, err := bw.Write(r.Item); err != nil {
			return fmt.Errorf("write row item: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush rows: %w", err)
	}
	if gw != nil {
		if err := gw.Close(); err != nil {
			return fmt.Errorf("close gzip: %w", err)
		}
	}
	return nil
}

// ReadRows decodes a chunk written by WriteRows. Frames failing the checksum are skipped
// and reported as ErrCorrupted next to the rows that were read.
func ReadRows(r io.Reader, scope Scope, compress bool) ([]Row, error) {
	if compress {
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		defer gr.Close()
		r = gr
	}
	br := bufio.NewReaderSize(r, bufSize)

	var (
		rows      []Row
		corrupted int
		meta      [metaSize]byte
	)
	for {
		if _, err := io.ReadFull(br, meta[:]); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return rows, truncated("row meta", err)
		}

		sz := binary.LittleEndian.Uint32(meta[0:4])
		expCRC := binary.LittleEndian.Uint32(meta[4:8])
		if sz < rowPrefix || sz > maxFrameSize {
			return rows, fmt.Errorf("%w: frame of %d bytes", ErrCorrupted, sz)
		}

		buf := make([]byte, sz)
		if _, err := io.ReadFull(br, buf); err != nil {
			return rows, truncated("row", err)
		}
		if crc32.ChecksumIEEE(buf) != expCRC {
			corrupted++
			continue
		}

		rows = append(rows, Row{
			CacheName: scope.CacheName,
			ShardName: scope.ShardName,
			Version:   scope.Version,
			Key:       binary.LittleEndian.Uint64(buf[0:8]),
			CreatedOn: time.Unix(0, int64(binary.LittleEndian.Uint64(buf[8:16]))),
			Item:      buf[rowPrefix:],
		})
	}

	if corrupted > 0 {
		return rows, fmt.Errorf("%w: %d checksum mismatches", ErrCorrupted, corrupted)
	}
	return rows, nil
}

// truncated reports a cut frame as corruption, other read failures pass through.
func truncated(what string, err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s", ErrCorrupted, what)
	}
	return fmt.Errorf("read %s: %w", what, err)
}
