package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// It produces the same bytes as GoJSON for the flat records stored in
// manifests; use it when output must match other encoding/json consumers
// byte for byte (for example indentation-sensitive golden files).
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used for newly written manifests.
var Default Codec = GoJSON{}
