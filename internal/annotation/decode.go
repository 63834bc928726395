package annotation

import (
	"bytes"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// decodeField parses a persisted JSON field into T.
//
// A JSON string is parsed a second time as the encoded value. Absent and
// null fields yield def silently; anything that fails to decode is logged
// and yields def.
func decodeField[T any](raw json.RawMessage, id, field string, def T) T {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return def
	}

	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			logDecodeFailure(id, field, err)
			return def
		}
		data = bytes.TrimSpace([]byte(encoded))
		if len(data) == 0 || bytes.Equal(data, []byte("null")) {
			return def
		}
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		logDecodeFailure(id, field, err)
		return def
	}
	return v
}

func logDecodeFailure(id, field string, err error) {
	logrus.WithFields(logrus.Fields{
		"highlight": id,
		"field":     field,
	}).WithError(err).Warn("malformed highlight field, using default")
}

// Plain deep-converts v into JSON-plain values: map[string]any, []any,
// string, float64, bool and nil. Applying it twice gives the same result
// as applying it once.
func Plain(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string, bool, float64:
		return t, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			p, err := Plain(e)
			if err != nil {
				return nil, err
			}
			out[k] = p
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			p, err := Plain(e)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// plainPayload builds the persisted payload map for the given fields.
func plainPayload(fields map[string]any) (map[string]any, error) {
	p, err := Plain(fields)
	if err != nil {
		return nil, err
	}
	return p.(map[string]any), nil
}
