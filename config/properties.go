package config

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/magiconair/properties"
	"github.com/spf13/viper"
)

// propertiesCodec reads and writes Java-style .properties files for viper.
// Dotted keys become nested maps so lookups like "firestore.database.uid" resolve.
type propertiesCodec struct{}

func (propertiesCodec) Decode(b []byte, v map[string]any) error {
	p, err := properties.Load(b, properties.UTF8)
	if err != nil {
		return err
	}
	for _, key := range p.Keys() {
		value, _ := p.Get(key)
		path := strings.Split(strings.ToLower(key), ".")
		parent := v
		for _, k := range path[:len(path)-1] {
			child, ok := parent[k].(map[string]any)
			if !ok {
				child = map[string]any{}
				parent[k] = child
			}
			parent = child
		}
		parent[path[len(path)-1]] = value
	}
	return nil
}

func (propertiesCodec) Encode(v map[string]any) ([]byte, error) {
	flat := map[string]string{}
	flatten("", v, flat)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := properties.NewProperties()
	for _, k := range keys {
		if _, _, err := p.Set(k, flat[k]); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flatten(prefix string, m map[string]any, out map[string]string) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := val.(map[string]any); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = fmt.Sprint(val)
	}
}

func codecRegistry() viper.CodecRegistry {
	r := viper.NewCodecRegistry()
	for _, ext := range []string{"properties", "props", "prop"} {
		_ = r.RegisterCodec(ext, propertiesCodec{})
	}
	return r
}
