package codec

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

/*
YAML stores the snapshot in a form that is easy to read and hand edit.

Values go through their JSON form on the way in and out, so field names
follow json tags and a nil slice stays distinct from an empty one (null
versus []). Encoding Go values with yaml directly would write both as [].
*/
type YAML struct{}

// numbers keeps integers exact while building the intermediate tree.
var numbers = sonic.Config{UseNumber: true}.Froze()

func (YAML) Marshal(v any) ([]byte, error) {
	b, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := numbers.Unmarshal(b, &tree); err != nil {
		return nil, err
	}
	return yaml.Marshal(plain(tree))
}

func (YAML) Unmarshal(data []byte, v any) error {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	b, err := sonic.ConfigStd.Marshal(plain(tree))
	if err != nil {
		return err
	}
	return sonic.ConfigStd.Unmarshal(b, v)
}

func (YAML) Name() string { return "yaml" }

// plain rewrites a decoded tree into values both yaml and JSON encode the
// same way: json.Number becomes int64 or float64, and non-string map keys
// (possible in hand-edited YAML) become strings.
func plain(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = plain(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}
