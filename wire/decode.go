package wire

import (
	"bytes"
	"encoding/json"

	"github.com/dmora/agentwire"
)

// Decode parses one line into T. If the full line fails to parse, it retries
// from the first '{' so that terminal noise printed ahead of the JSON does not
// lose the message. When both attempts fail the result is a
// *agentwire.DecodeError carrying the raw line and the first failure.
//
// Strictness of the outer shape is T's concern: types with a closed set of
// tags reject unknown tags in their UnmarshalJSON.
func Decode[T any](line []byte) (T, error) {
	var v T
	err := json.Unmarshal(line, &v)
	if err == nil {
		return v, nil
	}
	if i := bytes.IndexByte(line, '{'); i > 0 {
		var retry T
		if json.Unmarshal(line[i:], &retry) == nil {
			return retry, nil
		}
	}
	var zero T
	return zero, &agentwire.DecodeError{Line: string(line), Err: err}
}
