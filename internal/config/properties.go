package config

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/magiconair/properties"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// propertiesFormats are the file extensions read as Java properties.
var propertiesFormats = []string{"properties", "props", "prop"}

// propertiesCodec reads and writes Java properties files. Dotted keys become
// nested maps, so uad2midi.subscription.1 lands under uad2midi.subscription.
// ${...} expansion is disabled; rule values are JSON and kept verbatim.
type propertiesCodec struct{}

func (propertiesCodec) Decode(b []byte, v map[string]any) error {
	loader := properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes(b)
	if err != nil {
		return err
	}

	for _, key := range p.Keys() {
		value, _ := p.Get(key)
		path := strings.Split(key, ".")
		node := v
		for _, segment := range path[:len(path)-1] {
			segment = strings.ToLower(segment)
			child, ok := node[segment].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[segment] = child
			}
			node = child
		}
		node[strings.ToLower(path[len(path)-1])] = value
	}
	return nil
}

func (propertiesCodec) Encode(v map[string]any) ([]byte, error) {
	flat := map[string]string{}
	flatten(flat, "", v)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := properties.NewProperties()
	p.DisableExpansion = true
	for _, k := range keys {
		if _, _, err := p.Set(k, flat[k]); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", k, err)
		}
	}

	var buf bytes.Buffer
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flatten(dst map[string]string, prefix string, m map[string]any) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := val.(map[string]any); ok {
			flatten(dst, key, child)
			continue
		}
		dst[key] = cast.ToString(val)
	}
}

// newCodecRegistry returns viper's built-in codecs plus properties.
func newCodecRegistry() *viper.DefaultCodecRegistry {
	r := viper.NewCodecRegistry()
	for _, format := range propertiesFormats {
		_ = r.RegisterCodec(format, propertiesCodec{})
	}
	return r
}
