// Package cache persists doctor scan reports between runs so unchanged
// projects skip the esbuild pass.
//
// Each key maps to one file:
//   - Header (16 bytes): magic "UBSCAN01", version uint32, 4 reserved bytes
//   - Record: length uint32, timestamp int64 unix millis, zstd compressed
//     msgpack report, CRC64 uint64 over everything after the length field
//     except the CRC itself
//
// All integers are little endian. A record that fails any check is deleted
// and reads as a miss.
package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wolfeidau/unibuild/internal/scan"
)

const (
	cacheMagic   = "UBSCAN01"
	cacheVersion = uint32(1)
	headerSize   = 16

	fileExt = ".scan"

	// recordOverhead is the fixed part of a record: 4 byte length, 8 byte
	// timestamp, 8 byte CRC64.
	recordOverhead = 20

	// maxRecordSize bounds a record at 32MiB, far above any real report.
	maxRecordSize = 32 << 20
)

// ErrMiss indicates no usable cached report exists for the key.
var ErrMiss = errors.New("scan cache miss")

// Store keeps one compressed report file per cache key.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on first
// write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

// Put saves a report under key, replacing any previous record.
func (s *Store) Put(key string, report *scan.Report) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	payload, err := msgpack.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	compressed, err := compress(payload)
	if err != nil {
		return err
	}

	buf := new(bytes.Buffer)
	writeHeader(buf)
	writeRecord(buf, time.Now().UnixMilli(), compressed)

	path := s.path(key)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write cache record: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save cache record: %w", err)
	}

	log.Debug().Str("key", key).Int("bytes", buf.Len()).Msg("cached scan report")

	return nil
}

// Get returns the cached report for key. A missing file, a record older
// than maxAge or one that fails validation reads as ErrMiss. Corrupt files
// are deleted on the way out.
func (s *Store) Get(key string, maxAge time.Duration) (*scan.Report, error) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read cache record: %w", err)
	}

	report, timestamp, err := decodeRecord(raw)
	if err != nil {
		log.Warn().Str("key", key).Err(err).Msg("removing corrupt scan cache record")
		os.Remove(s.path(key))
		return nil, ErrMiss
	}

	if maxAge > 0 && time.Since(time.UnixMilli(timestamp)) > maxAge {
		return nil, ErrMiss
	}

	return report, nil
}

// Sweep removes cache records older than the retention period.
func (s *Store) Sweep(retention time.Duration) error {
	if retention <= 0 {
		return nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache dir: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	deleted := 0

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != fileExt {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
				log.Warn().Err(err).Str("file", entry.Name()).Msg("failed to delete old scan cache record")
				continue
			}
			deleted++
		}
	}

	if deleted > 0 {
		log.Debug().Int("deleted", deleted).Str("dir", s.dir).Msg("swept scan cache")
	}

	return nil
}

func writeHeader(buf *bytes.Buffer) {
	header := make([]byte, headerSize)
	copy(header[0:8], cacheMagic)
	binary.LittleEndian.PutUint32(header[8:12], cacheVersion)
	buf.Write(header)
}

func writeRecord(buf *bytes.Buffer, timestamp int64, payload []byte) {
	var scratch [8]byte

	binary.LittleEndian.PutUint32(scratch[0:4], uint32(recordOverhead+len(payload)))
	buf.Write(scratch[0:4])

	start := buf.Len()

	binary.LittleEndian.PutUint64(scratch[0:8], uint64(timestamp))
	buf.Write(scratch[0:8])
	buf.Write(payload)

	binary.LittleEndian.PutUint64(scratch[0:8], computeCRC64(buf.Bytes()[start:]))
	buf.Write(scratch[0:8])
}

func decodeRecord(raw []byte) (*scan.Report, int64, error) {
	if len(raw) < headerSize+recordOverhead {
		return nil, 0, errors.New("record too short")
	}

	if string(raw[0:8]) != cacheMagic {
		return nil, 0, fmt.Errorf("invalid magic: %q", raw[0:8])
	}

	version := binary.LittleEndian.Uint32(raw[8:12])
	if version != cacheVersion {
		return nil, 0, fmt.Errorf("unsupported version: %d", version)
	}

	record := raw[headerSize:]

	length := binary.LittleEndian.Uint32(record[0:4])
	if length < recordOverhead || length > maxRecordSize || int(length) != len(record) {
		return nil, 0, fmt.Errorf("invalid record length: %d", length)
	}

	storedCRC := binary.LittleEndian.Uint64(record[len(record)-8:])
	computedCRC := computeCRC64(record[4 : len(record)-8])
	if storedCRC != computedCRC {
		return nil, 0, fmt.Errorf("CRC64 mismatch: stored=%x computed=%x", storedCRC, computedCRC)
	}

	timestamp := int64(binary.LittleEndian.Uint64(record[4:12]))

	payload, err := decompress(record[12 : len(record)-8])
	if err != nil {
		return nil, 0, err
	}

	report := &scan.Report{}
	if err := msgpack.Unmarshal(payload, report); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return report, timestamp, nil
}

func compress(payload []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}
	defer enc.Close()

	return enc.EncodeAll(payload, nil), nil
}

func decompress(payload []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	defer dec.Close()

	plain, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}

	return plain, nil
}

func computeCRC64(data []byte) uint64 {
	h := crc64nvme.New()
	h.Write(data)

	return h.Sum64()
}
