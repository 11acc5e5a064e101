package jsonx

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ToObject renders val as a JSON object held in a map, which is how tool
// parameter schemas travel to the remote service. Custom MarshalJSON methods
// are honoured. A nil value gives an empty object; any other non-object value
// is an error.
func ToObject(val any) (map[string]any, error) {
	if val == nil {
		return map[string]any{}, nil
	}

	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	switch doc := gjson.ParseBytes(b); {
	case doc.Type == gjson.Null:
		return map[string]any{}, nil
	case !doc.IsObject():
		return nil, fmt.Errorf("expected a json object, got %.32s", doc.Raw)
	}

	result := make(map[string]any)
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return result, nil
}
