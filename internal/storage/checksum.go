package storage

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Checksum returns the content digest of an SWC file. Line endings and
// trailing blanks are normalized first, so a file re-saved with CRLF line
// endings keeps its checksum and is not re-analyzed.
func Checksum(data []byte) string {
	sum, _ := ChecksumReader(bytes.NewReader(data))
	return sum
}

// ChecksumReader is Checksum over a stream.
func ChecksumReader(r io.Reader) (string, error) {
	h := sha256.New()
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			line = bytes.TrimRight(line, " \t\r\n")
			h.Write(line)
			h.Write([]byte{'\n'})
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("storage: checksum: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
