// Package json selects the fastest JSON codec for the platform: sonic on
// amd64 and arm64, encoding/json everywhere else.
package json

import (
	stdjson "encoding/json"
	"runtime"

	"github.com/bytedance/sonic"
)

// fastPath reports whether sonic's assembly kernels cover this architecture.
var fastPath = runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"

// Marshal encodes v into JSON bytes.
func Marshal(v interface{}) ([]byte, error) {
	if fastPath {
		return sonic.ConfigDefault.Marshal(v)
	}
	return stdjson.Marshal(v)
}

// Unmarshal decodes JSON bytes into v.
func Unmarshal(data []byte, v interface{}) error {
	if fastPath {
		return sonic.ConfigDefault.Unmarshal(data, v)
	}
	return stdjson.Unmarshal(data, v)
}
