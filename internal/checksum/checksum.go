package checksum

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

const bufferSize = 64 * 1024 // 64KB buffer

// CalculateFile calculates the SHA-256 digest of a file and returns it hex encoded.
// A read error aborts the calculation; a digest over a partial read is never returned.
func CalculateFile(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return Calculate(file)
}

// Calculate calculates the SHA-256 digest of everything r yields, hex encoded
func Calculate(r io.Reader) (string, error) {
	hash := sha256.New()
	buffer := make([]byte, bufferSize)

	for {
		n, err := r.Read(buffer)
		if n > 0 {
			if _, err := hash.Write(buffer[:n]); err != nil {
				return "", fmt.Errorf("write to hash: %w", err)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read: %w", err)
		}
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// FromBase64 converts a base64 encoded SHA-256 digest (the form S3 reports) to hex.
func FromBase64(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode checksum: %w", err)
	}
	if len(raw) != sha256.Size {
		return "", fmt.Errorf("decode checksum: got %d bytes, want %d", len(raw), sha256.Size)
	}
	return hex.EncodeToString(raw), nil
}

// IsDigest reports whether s looks like a hex encoded SHA-256 digest
func IsDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// CompareChecksums compares two hex encoded checksums
func CompareChecksums(checksum1, checksum2 string) bool {
	return strings.EqualFold(checksum1, checksum2)
}
