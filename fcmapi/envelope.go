package fcmapi

import (
	"bytes"
	"encoding/json"
)

// The backend answers in one of three shapes:
//
//	{"success": true, "message": "...", "data": {...}}   wrapped object
//	{...}                                                 bare object
//	[...]                                                 bare list
//
// unwrap and the decode helpers below resolve all three so that callers
// never look at envelope fields themselves.

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// unwrap returns the payload of a response: the data member of a wrapped
// object, or the body itself.
func unwrap(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return trimmed
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return trimmed
	}
	return data
}

// decodeList decodes the list in a response into out. The list is the
// payload itself when it is an array, otherwise the first of keys present
// in the payload object. A response without the list leaves out untouched.
func decodeList(raw json.RawMessage, out interface{}, keys ...string) error {
	payload := unwrap(raw)
	if len(payload) == 0 {
		return nil
	}
	if payload[0] == '[' {
		return json.Unmarshal(payload, out)
	}
	if payload[0] != '{' {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return err
	}
	for _, key := range keys {
		v, ok := fields[key]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}
		return json.Unmarshal(v, out)
	}
	return nil
}

// decodeInt reads an integer field from the payload object, reporting
// whether it was present.
func decodeInt(raw json.RawMessage, key string) (int, bool) {
	payload := unwrap(raw)
	if len(payload) == 0 || payload[0] != '{' {
		return 0, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return 0, false
	}
	v, ok := fields[key]
	if !ok {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(v, &n); err != nil {
		return 0, false
	}
	return n, true
}
