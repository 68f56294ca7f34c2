package meta

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"
)

func chunk(chunkType string, data []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
	buf.WriteString(chunkType)
	buf.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(chunkType))
	crc.Write(data)
	_ = binary.Write(&buf, binary.BigEndian, crc.Sum32())
	return buf.Bytes()
}

func writePNG(t *testing.T, name string, chunks ...[]byte) string {
	t.Helper()
	var buf bytes.Buffer
	buf.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	ihdr := make([]byte, 13)
	buf.Write(chunk("IHDR", ihdr))
	for _, c := range chunks {
		buf.Write(c)
	}
	buf.Write(chunk("IEND", nil))
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestHasGeneratorMetadata_PromptChunk(t *testing.T) {
	path := writePNG(t, "with.png", chunk("tEXt", []byte("prompt\x00{\"nodes\":{}}")))
	if !HasGeneratorMetadata(path) {
		t.Fatal("tEXt prompt chunk should be detected")
	}
}

func TestHasGeneratorMetadata_WorkflowITXt(t *testing.T) {
	path := writePNG(t, "wf.png", chunk("iTXt", []byte("workflow\x00\x00\x00\x00\x00{}")))
	if !HasGeneratorMetadata(path) {
		t.Fatal("iTXt workflow chunk should be detected")
	}
}

func TestHasGeneratorMetadata_PlainPNG(t *testing.T) {
	path := writePNG(t, "plain.png", chunk("tEXt", []byte("comment\x00hello")))
	if HasGeneratorMetadata(path) {
		t.Fatal("plain text chunk must not match")
	}
}

func TestHasGeneratorMetadata_NonPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jpg")
	if err := os.WriteFile(path, []byte("prompt workflow"), 0o644); err != nil {
		t.Fatal(err)
	}
	if HasGeneratorMetadata(path) {
		t.Fatal("non-PNG extension must report false")
	}
}

func TestHasGeneratorMetadata_TruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trunc.png")
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N'}, 0o644); err != nil {
		t.Fatal(err)
	}
	if HasGeneratorMetadata(path) {
		t.Fatal("truncated file must report false, not error")
	}
}

func TestHasGeneratorMetadata_MissingFile(t *testing.T) {
	if HasGeneratorMetadata(filepath.Join(t.TempDir(), "none.png")) {
		t.Fatal("missing file must report false")
	}
}
