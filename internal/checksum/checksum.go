// Package checksum fingerprints persisted documents so unchanged keys are not
// rewritten and the data-dir watcher can tell its own writes from outside edits.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Marshal encodes v as indented JSON and returns it with its digest.
func Marshal(v any) ([]byte, string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("checksum: marshal: %w", err)
	}
	return data, Sum(data), nil
}
