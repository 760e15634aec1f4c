package vivint

import (
	"encoding/json"
	"testing"
)

func TestFlexInt64(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
		wantErr  bool
	}{
		{name: "number", input: `42`, expected: 42},
		{name: "float", input: `42.9`, expected: 42},
		{name: "numeric string", input: `"17"`, expected: 17},
		{name: "null", input: `null`, expected: 0},
		{name: "empty string", input: `""`, expected: 0},
		{name: "garbage", input: `"abc"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexInt64
			err := json.Unmarshal([]byte(tt.input), &f)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && int64(f) != tt.expected {
				t.Errorf("Unmarshal(%s) = %d, want %d", tt.input, f, tt.expected)
			}
		})
	}
}

func TestFlexString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "hex object id", input: `"5e8f3a9bc0ffee0123456789"`, expected: "5e8f3a9bc0ffee0123456789"},
		{name: "exponent-shaped string stays verbatim", input: `"5e8"`, expected: "5e8"},
		{name: "number", input: `77`, expected: "77"},
		{name: "large number keeps digits", input: `123456789012345678`, expected: "123456789012345678"},
		{name: "null", input: `null`, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexString
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
			}
			if string(f) != tt.expected {
				t.Errorf("Unmarshal(%s) = %q, want %q", tt.input, f, tt.expected)
			}
		})
	}
}

func TestFlexBool(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "true", input: `true`, expected: true},
		{name: "false", input: `false`, expected: false},
		{name: "one", input: `1`, expected: true},
		{name: "zero", input: `0`, expected: false},
		{name: "string true", input: `"true"`, expected: true},
		{name: "null", input: `null`, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexBool
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
			}
			if bool(f) != tt.expected {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.input, f, tt.expected)
			}
		})
	}
}

func TestFlexList_SingletonObject(t *testing.T) {
	var list FlexList[SystemSummary]
	if err := json.Unmarshal([]byte(`{"panid": 123, "sn": "Home"}`), &list); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	if int64(list[0].PanelID) != 123 || list[0].Name != "Home" {
		t.Errorf("got %+v, want panid 123, name Home", list[0])
	}
}

func TestDecodeAuthUserData(t *testing.T) {
	raw := map[string]any{
		"u": []any{
			map[string]any{
				"_id":    "5e8f3a9bc0ffee0123456789",
				"n":      "Owner",
				"mbc":    "abcdef",
				"ad":     1,
				"system": map[string]any{"panid": 77, "sn": "Cabin", "ad": true},
			},
		},
	}
	data, err := decodeAuthUserData(raw)
	if err != nil {
		t.Fatalf("decodeAuthUserData() error = %v", err)
	}
	user := data.PrimaryUser()
	if user == nil {
		t.Fatal("PrimaryUser() = nil")
	}
	if string(user.ID) != "5e8f3a9bc0ffee0123456789" {
		t.Errorf("ID = %q, want 5e8f3a9bc0ffee0123456789", user.ID)
	}
	if !bool(user.Admin) {
		t.Error("Admin = false, want true")
	}
	if len(user.Systems) != 1 || int64(user.Systems[0].PanelID) != 77 {
		t.Errorf("Systems = %+v, want one system with panid 77", user.Systems)
	}
}

func TestAttrHelpers(t *testing.T) {
	data := map[string]any{
		"i": "42",
		"f": float64(3.5),
		"b": float64(1),
		"s": 12,
		"l": map[string]any{"_id": float64(9)},
		"n": []any{float64(1), "2", float64(3)},
	}

	if v, ok := attrInt64(data, "i"); !ok || v != 42 {
		t.Errorf("attrInt64 = %d, %v, want 42, true", v, ok)
	}
	if _, ok := attrInt64(data, "missing"); ok {
		t.Error("attrInt64 on missing key = true, want false")
	}
	if v, ok := attrFloat(data, "f"); !ok || v != 3.5 {
		t.Errorf("attrFloat = %v, %v, want 3.5, true", v, ok)
	}
	if v, ok := attrBool(data, "b"); !ok || !v {
		t.Errorf("attrBool = %v, %v, want true, true", v, ok)
	}
	if v, ok := attrString(data, "s"); !ok || v != "12" {
		t.Errorf("attrString = %q, %v, want \"12\", true", v, ok)
	}
	if list := attrMapList(data, "l"); len(list) != 1 {
		t.Errorf("attrMapList on bare object = %d entries, want 1", len(list))
	}
	if ids := attrInt64List(data, "n"); len(ids) != 3 || ids[1] != 2 {
		t.Errorf("attrInt64List = %v, want [1 2 3]", ids)
	}
}
