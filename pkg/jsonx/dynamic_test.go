package jsonx

import (
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func TestToObject(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    map[string]any
		wantErr bool
	}{
		{
			name: "tagged struct",
			input: struct {
				City string `json:"city"`
				Days int    `json:"days"`
			}{City: "Paris", Days: 3},
			want: map[string]any{"city": "Paris", "days": float64(3)},
		},
		{
			name:  "nil",
			input: nil,
			want:  map[string]any{},
		},
		{
			name:    "not an object",
			input:   []string{"city"},
			wantErr: true,
		},
		{
			name:    "unsupported value",
			input:   make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToObject(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToObject_Schema(t *testing.T) {
	props := orderedmap.New[string, *jsonschema.Schema]()
	props.Set("city", &jsonschema.Schema{Type: "string"})
	schema := &jsonschema.Schema{Type: "object", Properties: props, Required: []string{"city"}}

	got, err := ToObject(schema)
	require.NoError(t, err)
	assert.Equal(t, "object", got["type"])
	assert.Equal(t, []any{"city"}, got["required"])
	assert.Equal(t, map[string]any{"city": map[string]any{"type": "string"}}, got["properties"])
}
