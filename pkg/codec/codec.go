// Package codec wraps persisted JSON snapshots in a versioned envelope so
// stored rows stay readable across schema evolution.
package codec

import (
	"encoding/json"
	"fmt"
)

// Version is the envelope version written by this build.
const Version = 1

type envelope struct {
	V    int             `json:"v"`
	Data json.RawMessage `json:"data"`
}

// Encode marshals v inside the current envelope version.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{V: Version, Data: data})
}

// Decode unwraps an envelope produced by Encode into out. Unknown or missing
// versions are rejected so a newer writer never gets silently misread.
func Decode(raw []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}
	if env.V != Version {
		return fmt.Errorf("unsupported snapshot version %d", env.V)
	}
	return json.Unmarshal(env.Data, out)
}
