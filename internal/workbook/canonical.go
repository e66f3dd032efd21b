package workbook

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// CanonicalJSON produces a deterministic JSON encoding of a workbook:
// - Map keys sorted lexicographically (encoding/json does this)
// - Label sets sorted
// - No insignificant whitespace, no HTML escaping
func CanonicalJSON(w *Workbook) ([]byte, error) {
	normalized, err := w.Clone()
	if err != nil {
		return nil, err
	}
	for _, t := range normalized.Topics {
		sort.Strings(t.Labels)
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(normalized); err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}

	// Remove trailing newline added by Encode
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	return result, nil
}

// ComputeRev computes the sha256 hash of canonical JSON bytes.
// Returns "sha256:<hex>" format.
func ComputeRev(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// Rev returns the content revision of a workbook.
func Rev(w *Workbook) (string, error) {
	data, err := CanonicalJSON(w)
	if err != nil {
		return "", err
	}
	return ComputeRev(data), nil
}

// PrettyJSON produces human-readable indented JSON (non-canonical).
func PrettyJSON(w *Workbook) ([]byte, error) {
	return json.MarshalIndent(w, "", "  ")
}
