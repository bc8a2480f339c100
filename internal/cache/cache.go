// Package cache persists per-file stripping results across driver runs so
// unchanged files can be skipped. The on-disk format is a magic+version
// header over a single CBOR body, since the index has no separate
// variable-length header section to frame.
package cache

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// Magic identifies a stripcomments cache file.
const Magic = "SCAC"

// Version is the cache format version (single byte; bump on breaking changes).
const Version byte = 1

// Entry is the cached result for a single file.
type Entry struct {
	ContentHash  [32]byte
	StrippedHash [32]byte
	BytesBefore  int64
	BytesAfter   int64
	LinesBefore  int64
	LinesAfter   int64
}

// Index maps a repo-relative path to its cached Entry. Get, Put, Len and
// Save are guarded by a sync.RWMutex and safe to call concurrently: the
// driver's workers call Get and Put during a run, and the CLI saves the
// index after the run.
type Index struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New returns an empty index.
func New() *Index {
	return &Index{entries: make(map[string]Entry)}
}

// ContentHash returns the BLAKE2b-256 hash of raw file bytes, the key used
// to detect whether a file has changed since it was last cached.
func ContentHash(content []byte) [32]byte {
	return blake2b.Sum256(content)
}

// Get returns the cached entry for path and whether it is present and
// still valid for the given current content hash.
func (idx *Index) Get(path string, currentHash [32]byte) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[path]
	if !ok || e.ContentHash != currentHash {
		return Entry{}, false
	}
	return e, true
}

// Put records or replaces the cached entry for path.
func (idx *Index) Put(path string, e Entry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[path] = e
}

// Len reports the number of cached entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// wireEntry mirrors Entry with CBOR-friendly field names; keeping it
// separate from Entry means renaming Go fields never changes the wire
// format and vice versa.
type wireEntry struct {
	ContentHash  []byte `cbor:"content_hash"`
	StrippedHash []byte `cbor:"stripped_hash"`
	BytesBefore  int64  `cbor:"bytes_before"`
	BytesAfter   int64  `cbor:"bytes_after"`
	LinesBefore  int64  `cbor:"lines_before"`
	LinesAfter   int64  `cbor:"lines_after"`
}

// Save writes the index to w in the framed binary format: MAGIC(4) |
// VERSION(1) | CBOR body. The body is the full entry map, keyed by path.
func (idx *Index) Save(w io.Writer) error {
	idx.mu.RLock()
	wire := make(map[string]wireEntry, len(idx.entries))
	for path, e := range idx.entries {
		wire[path] = wireEntry{
			ContentHash:  e.ContentHash[:],
			StrippedHash: e.StrippedHash[:],
			BytesBefore:  e.BytesBefore,
			BytesAfter:   e.BytesAfter,
			LinesBefore:  e.LinesBefore,
			LinesAfter:   e.LinesAfter,
		}
	}
	idx.mu.RUnlock()

	body, err := cbor.Marshal(wire)
	if err != nil {
		return fmt.Errorf("encode cache body: %w", err)
	}

	if _, err := w.Write([]byte(Magic)); err != nil {
		return err
	}
	if _, err := w.Write([]byte{Version}); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// Load reads an index previously written by Save. A magic or version
// mismatch, or any decode failure, yields an empty index rather than an
// error: a corrupt cache degrades to "start from scratch", it never
// blocks a run.
func Load(r io.Reader) *Index {
	idx := New()

	header := make([]byte, len(Magic)+1)
	if _, err := io.ReadFull(r, header); err != nil {
		return idx
	}
	if string(header[:len(Magic)]) != Magic {
		return idx
	}
	if header[len(Magic)] != Version {
		return idx
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return idx
	}

	var wire map[string]wireEntry
	if err := cbor.Unmarshal(body, &wire); err != nil {
		return idx
	}

	for path, w := range wire {
		var e Entry
		copy(e.ContentHash[:], w.ContentHash)
		copy(e.StrippedHash[:], w.StrippedHash)
		e.BytesBefore = w.BytesBefore
		e.BytesAfter = w.BytesAfter
		e.LinesBefore = w.LinesBefore
		e.LinesAfter = w.LinesAfter
		idx.entries[path] = e
	}
	return idx
}

// LoadFile loads the index at path, returning an empty index if the file
// does not exist.
func LoadFile(path string) *Index {
	f, err := os.Open(path)
	if err != nil {
		return New()
	}
	defer f.Close()
	return Load(f)
}

// SaveFile writes the index to path, replacing any existing file.
func SaveFile(idx *Index, path string) error {
	var buf bytes.Buffer
	if err := idx.Save(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

