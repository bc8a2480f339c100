package cache

import (
	"bytes"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	idx := New()
	idx.Put("input/a/main.swift", Entry{
		ContentHash:  ContentHash([]byte("original")),
		StrippedHash: ContentHash([]byte("stripped")),
		BytesBefore:  100,
		BytesAfter:   80,
		LinesBefore:  10,
		LinesAfter:   9,
	})
	idx.Put("input/a/util.swift", Entry{
		ContentHash: ContentHash([]byte("other")),
	})

	var buf bytes.Buffer
	if err := idx.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := Load(&buf)
	if loaded.Len() != 2 {
		t.Fatalf("loaded.Len() = %d, want 2", loaded.Len())
	}

	hash := ContentHash([]byte("original"))
	e, ok := loaded.Get("input/a/main.swift", hash)
	if !ok {
		t.Fatal("expected cache hit for input/a/main.swift")
	}
	if e.BytesBefore != 100 || e.BytesAfter != 80 {
		t.Errorf("unexpected entry after round trip: %+v", e)
	}
}

func TestGetMissesOnContentChange(t *testing.T) {
	idx := New()
	idx.Put("input/a/main.swift", Entry{ContentHash: ContentHash([]byte("v1"))})

	_, ok := idx.Get("input/a/main.swift", ContentHash([]byte("v2")))
	if ok {
		t.Fatal("expected a miss when content hash has changed")
	}
}

func TestLoadDegradesOnBadMagic(t *testing.T) {
	idx := Load(bytes.NewReader([]byte("NOPE\x01garbage")))
	if idx.Len() != 0 {
		t.Fatalf("expected empty index for bad magic, got %d entries", idx.Len())
	}
}

func TestLoadDegradesOnVersionMismatch(t *testing.T) {
	data := append([]byte(Magic), 0xFF)
	idx := Load(bytes.NewReader(data))
	if idx.Len() != 0 {
		t.Fatalf("expected empty index for version mismatch, got %d entries", idx.Len())
	}
}

func TestLoadDegradesOnTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	idx := New()
	idx.Put("x", Entry{ContentHash: ContentHash([]byte("x"))})
	if err := idx.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	truncated := buf.Bytes()[:len(buf.Bytes())-2]
	loaded := Load(bytes.NewReader(truncated))
	if loaded.Len() != 0 {
		t.Fatalf("expected empty index for truncated body, got %d entries", loaded.Len())
	}
}

func TestLoadFileMissingReturnsEmptyIndex(t *testing.T) {
	idx := LoadFile("/nonexistent/path/.stripcache")
	if idx.Len() != 0 {
		t.Fatalf("expected empty index for missing file, got %d entries", idx.Len())
	}
}
