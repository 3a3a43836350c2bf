package output

import (
	"encoding/json"
	"io"

	"github.com/knadh/koanf/parsers/yaml"
)

// YAMLFormatter writes YAML. Values are first normalised through their
// JSON encoding so json tags name the keys.
type YAMLFormatter struct{}

func (YAMLFormatter) Format(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	m, ok := generic.(map[string]any)
	if !ok {
		m = map[string]any{"items": generic}
	}
	out, err := yaml.Parser().Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
