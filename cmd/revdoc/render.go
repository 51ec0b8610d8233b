package main

import (
	"encoding/base64"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/jpl-au/revdoc/object"
)

// render formats obj for display.
func render(obj object.Object, format string) (string, error) {
	switch format {
	case "text":
		return object.Format(obj), nil
	case "json":
		b, err := json.MarshalIndent(plain(obj), "", "  ")
		return string(b), err
	case "yaml":
		b, err := yaml.Marshal(plain(obj))
		return strings.TrimRight(string(b), "\n"), err
	}
	return "", fmt.Errorf("unknown format %q", format)
}

// plain converts obj to maps, slices and scalars. Names keep their leading
// slash and references render as "N G R" so both survive as strings.
func plain(obj object.Object) any {
	switch v := obj.(type) {
	case object.Null:
		return nil
	case object.Bool:
		return bool(v)
	case object.Int:
		return int64(v)
	case object.Real:
		return float64(v)
	case object.String:
		return string(v)
	case object.Name:
		return "/" + string(v)
	case object.Ref:
		return fmt.Sprintf("%d %d R", v.Num, v.Gen)
	case object.Array:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = plain(e)
		}
		return out
	case object.Dict:
		return plainDict(v)
	case *object.Stream:
		return map[string]any{
			"dict": plainDict(v.Dict),
			"data": base64.StdEncoding.EncodeToString(v.Data),
		}
	}
	return object.Format(obj)
}

func plainDict(d object.Dict) map[string]any {
	out := make(map[string]any, len(d))
	for k, e := range d {
		out[string(k)] = plain(e)
	}
	return out
}
