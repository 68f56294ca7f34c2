// Package meta detects embedded generator metadata in PNG files by scanning
// text chunks for prompt/workflow keys, without decoding the image.
package meta

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// probeLimit caps how much of a text chunk is inspected. The keys appear at
// the front of the chunk, so 1 KiB is plenty.
const probeLimit = 1024

// HasGeneratorMetadata reports whether the file is a PNG carrying a tEXt or
// iTXt chunk mentioning "prompt" or "workflow". Non-PNG files and read
// errors report false; the check is advisory, never fatal.
func HasGeneratorMetadata(path string) bool {
	if strings.ToLower(filepath.Ext(path)) != ".png" {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	return scanChunks(f)
}

func scanChunks(r io.ReadSeeker) bool {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil || !bytes.Equal(sig, pngSignature) {
		return false
	}

	hdr := make([]byte, 8)
	probe := make([]byte, probeLimit)
	for {
		if _, err := io.ReadFull(r, hdr); err != nil {
			return false
		}
		length := int64(binary.BigEndian.Uint32(hdr[:4]))
		chunkType := string(hdr[4:8])

		switch chunkType {
		case "tEXt", "iTXt":
			n := length
			if n > probeLimit {
				n = probeLimit
			}
			if _, err := io.ReadFull(r, probe[:n]); err != nil {
				return false
			}
			if bytes.Contains(probe[:n], []byte("prompt")) || bytes.Contains(probe[:n], []byte("workflow")) {
				return true
			}
			// Skip the rest of the chunk plus the CRC.
			if _, err := r.Seek(length-n+4, io.SeekCurrent); err != nil {
				return false
			}
		case "IEND":
			return false
		default:
			if _, err := r.Seek(length+4, io.SeekCurrent); err != nil {
				return false
			}
		}
	}
}
