// Package canonjson produces a deterministic JSON encoding of a value: map
// keys sorted, no extraneous whitespace variance between runs. This backs
// the WorkspaceState sid computation (spec §3: "sid is a stable hash of its
// canonical serialization"), since Go's encoding/json already sorts map
// keys but callers composing structs with non-deterministic field order
// (e.g. assembled from map iteration) need an explicit re-marshal step.
package canonjson

import (
	"bytes"
	"encoding/json"
)

// Marshal re-encodes v through an intermediate generic representation so
// that any map[string]any values nested in v are emitted with sorted keys,
// and without HTML-escaping (which would make the same logical content
// serialize differently depending on whether it round-tripped through
// html/template anywhere upstream).
func Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a trailing newline; strip it so sid
	// computation is stable regardless of how the bytes are later embedded.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
