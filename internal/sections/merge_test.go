package sections

import (
	"encoding/json"
	"reflect"
	"testing"
)

func decodeMap(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return m
}

// TestMergeMetadataNonDestructive checks that patching {a:1} onto {b:2}
// keeps b.
func TestMergeMetadataNonDestructive(t *testing.T) {
	out, err := MergeMetadata(json.RawMessage(`{"b": 2}`), map[string]any{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	got := decodeMap(t, out)
	want := map[string]any{"a": float64(1), "b": float64(2)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("merge = %v, want %v", got, want)
	}
}

func TestMergeMetadata(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		patch    map[string]any
		want     map[string]any
	}{
		{
			name:     "override",
			existing: `{"button_text":"Old","button_url":"/x"}`,
			patch:    map[string]any{"button_text": "New"},
			want:     map[string]any{"button_text": "New", "button_url": "/x"},
		},
		{
			name:     "empty existing",
			existing: ``,
			patch:    map[string]any{"author": "Ms. Rao"},
			want:     map[string]any{"author": "Ms. Rao"},
		},
		{
			name:     "null existing",
			existing: `null`,
			patch:    map[string]any{"columns": 3},
			want:     map[string]any{"columns": float64(3)},
		},
		{
			name:     "arrays replaced whole",
			existing: `{"stats":[{"value":"1","label":"a"},{"value":"2","label":"b"}],"keep":true}`,
			patch:    map[string]any{"stats": []Stat{{Value: "9", Label: "z"}}},
			want: map[string]any{
				"stats": []any{map[string]any{"value": "9", "label": "z"}},
				"keep":  true,
			},
		},
		{
			name:     "nil patch keeps all",
			existing: `{"a":"x"}`,
			patch:    nil,
			want:     map[string]any{"a": "x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MergeMetadata(json.RawMessage(tt.existing), tt.patch)
			if err != nil {
				t.Fatal(err)
			}
			if got := decodeMap(t, out); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("merge = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeMetadataRejectsNonObject(t *testing.T) {
	if _, err := MergeMetadata(json.RawMessage(`[1,2]`), map[string]any{"a": 1}); err == nil {
		t.Error("expected error for array metadata")
	}
}
