package coverage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Encode serializes c as a flat JSON object from composite key to payload.
// Keys are sorted and payload bytes are compacted but otherwise unchanged,
// so encoding the same set twice yields identical bytes.
func Encode(c *Combined) ([]byte, error) {
	flat := make(map[string]json.RawMessage, c.Len())
	for k, v := range c.entries {
		flat[k] = v
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(flat); err != nil {
		return nil, fmt.Errorf("encode combined result set: %w", err)
	}
	return buf.Bytes(), nil
}

// Persist writes c to outputPath and returns the number of bytes written.
// The parent directory is created when missing. The file is written to a
// temporary sibling and renamed into place.
func Persist(c *Combined, outputPath string) (int64, error) {
	data, err := Encode(c)
	if err != nil {
		return 0, &IOError{Path: outputPath, Err: err}
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, &IOError{Path: outputPath, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".cibot-combine-*")
	if err != nil {
		return 0, &IOError{Path: outputPath, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, &IOError{Path: outputPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return 0, &IOError{Path: outputPath, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return 0, &IOError{Path: outputPath, Err: err}
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		return 0, &IOError{Path: outputPath, Err: err}
	}
	return int64(len(data)), nil
}
