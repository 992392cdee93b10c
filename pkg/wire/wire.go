// Package wire defines the request/response payloads exchanged between
// pkg/client and pkg/server (spec §4.6, §6). The spec names bincode as the
// wire format, but bincode is Rust-specific and no repo in the retrieved
// pack imports a bincode/msgpack equivalent for its own application-level
// API — protobuf only ever shows up as an indirect dependency of otel/grpc
// tooling. The teacher's own wire contract (pkg/api, pkg/apiclient) is
// plain JSON over HTTP via encoding/json, so that's the idiom this package
// follows; see DESIGN.md for the full justification.
package wire

import "encoding/json"

// Encode marshals v the same way every route on this wire uses.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode unmarshals data into v.
func Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
