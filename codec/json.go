package codec

import "github.com/bytedance/sonic"

// JSON is the default codec. It uses sonic in its encoding/json compatible
// mode, which sorts map keys.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error)      { return sonic.ConfigStd.Marshal(v) }
func (JSON) Unmarshal(data []byte, v any) error { return sonic.ConfigStd.Unmarshal(data, v) }
func (JSON) Name() string                       { return "json" }
