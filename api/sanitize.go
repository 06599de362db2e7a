package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/microcosm-cc/bluemonday"
	"net/http"
)

var sanitizer *bluemonday.Policy

func init() {
	sanitizer = bluemonday.UGCPolicy()
}

func sanitizedJSONResponse(w http.ResponseWriter, i interface{}) {
	ret, err := marshalAndSanitizeJSON(i)
	if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, string(ret))
}

func marshalAndSanitizeJSON(i interface{}) ([]byte, error) {
	out, err := json.MarshalIndent(i, "", "    ")
	if err != nil {
		return nil, err
	}
	return sanitizeJSON(out)
}

// sanitizeJSON strips markup from every string in a JSON document. Push
// titles and bodies come from the backend and are rendered by the client.
func sanitizeJSON(s []byte) ([]byte, error) {
	d := json.NewDecoder(bytes.NewReader(s))
	d.UseNumber()

	var i interface{}
	err := d.Decode(&i)
	if err != nil {
		return nil, err
	}
	i = sanitize(i)

	return json.MarshalIndent(i, "", "    ")
}

func sanitize(data interface{}) interface{} {
	switch d := data.(type) {
	case string:
		return sanitizer.Sanitize(d)
	case map[string]interface{}:
		for k, v := range d {
			if v == nil {
				delete(d, k)
				continue
			}
			d[k] = sanitize(v)
		}
	case []interface{}:
		for i, v := range d {
			d[i] = sanitize(v)
		}
	}
	return data
}

func wrapError(err error) string {
	out, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{err.Error()})
	return string(out)
}
