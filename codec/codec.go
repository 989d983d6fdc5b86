// Package codec centralizes metadata encoding for snapshot manifests and
// command output.
//
// Manifests record the name of the codec they were written with.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Names lists the built-in codec names.
func Names() []string {
	return []string{"json", "go-json"}
}
