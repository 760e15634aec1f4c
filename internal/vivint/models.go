package vivint

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// The cloud is loose with scalar types: numbers arrive as strings, booleans
// as 0/1, and single-element collections as bare objects. The Flex types
// absorb those shapes so the typed views stay stable.

// FlexInt64 decodes from a JSON number or a numeric string.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decoding %q as integer: %w", s, err)
	}
	*f = FlexInt64(n)
	return nil
}

// FlexString decodes from a JSON string or a number, rendering numbers as
// text. The account id in particular is a hex object id that must never be
// read as a number ("5e8..." would round-trip through scientific notation).
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding string: %w", err)
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding %s as string: %w", trimmed, err)
	}
	*f = FlexString(n.String())
	return nil
}

// FlexBool decodes from a JSON bool, a number (non-zero is true) or the
// strings "true"/"false"/"0"/"1".
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	switch strings.ToLower(s) {
	case "true", "1":
		*f = true
	case "false", "0", "null", "":
		*f = false
	default:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("decoding %q as bool: %w", s, err)
		}
		*f = n != 0
	}
	return nil
}

// FlexList decodes from a JSON array or from a bare object, which the cloud
// emits for single-element collections.
type FlexList[T any] []T

func (f *FlexList[T]) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var one T
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*f = FlexList[T]{one}
		return nil
	}
	var many []T
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*f = many
	return nil
}

// AuthUserData is the authuser response: the caller's profile plus the
// systems it can reach.
type AuthUserData struct {
	Users FlexList[AuthUser] `json:"u"`
}

// PrimaryUser returns the first (and in practice only) user record.
func (d *AuthUserData) PrimaryUser() *AuthUser {
	if d == nil || len(d.Users) == 0 {
		return nil
	}
	return &d.Users[0]
}

// AuthUser is one account profile inside AuthUserData.
type AuthUser struct {
	ID                      FlexString              `json:"_id"`
	Name                    string                  `json:"n"`
	Email                   string                  `json:"e"`
	MessageBroadcastChannel string                  `json:"mbc"`
	Admin                   FlexBool                `json:"ad"`
	DocumentSequence        FlexInt64               `json:"DocumentSequence"`
	Systems                 FlexList[SystemSummary] `json:"system"`
	Settings                map[string]any          `json:"stg"`
}

// SystemSummary is the slim per-system record inside an auth user profile.
type SystemSummary struct {
	PanelID FlexInt64 `json:"panid"`
	Name    string    `json:"sn"`
	Admin   FlexBool  `json:"ad"`
}

// PanelCredentials are the local panel login credentials.
type PanelCredentials struct {
	Name     string `json:"n"`
	Password string `json:"pswd"`
}

// PanelUpdate describes panel software update availability.
type PanelUpdate struct {
	Available        FlexBool `json:"available"`
	AvailableVersion string   `json:"available_version"`
	CurrentVersion   string   `json:"current_version"`
	UpdateReason     string   `json:"update_reason"`
}

// decodeAuthUserData decodes a raw authuser response map.
func decodeAuthUserData(raw map[string]any) (*AuthUserData, error) {
	data := &AuthUserData{}
	if err := remarshal(raw, data); err != nil {
		return nil, err
	}
	return data, nil
}

// remarshal converts between representations through JSON, applying the Flex
// coercions on the way in.
func remarshal(src, dst any) error {
	buf, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	if err := json.Unmarshal(buf, dst); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}

// Raw-map accessors used by the entity layer, applying the same scalar
// coercions as the Flex types.

// attrInt64 reads an integer attribute, tolerating float and string wire
// forms. ok is false when the key is absent or uncoercible.
func attrInt64(data map[string]any, key string) (int64, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return n, true
	case string:
		n, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

// attrFloat reads a float attribute with the same tolerance as attrInt64.
func attrFloat(data map[string]any, key string) (float64, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// attrBool reads a boolean attribute, tolerating numeric and string forms.
func attrBool(data map[string]any, key string) (bool, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case int:
		return t != 0, true
	case int64:
		return t != 0, true
	case float64:
		return t != 0, true
	case string:
		switch strings.ToLower(t) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	}
	return false, false
}

// attrString reads a string attribute, rendering numbers as text.
func attrString(data map[string]any, key string) (string, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}

// attrMapList reads a collection attribute as a list of objects, coercing a
// bare object into a single-element list.
func attrMapList(data map[string]any, key string) []map[string]any {
	v, ok := data[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case []map[string]any:
		return t
	}
	return nil
}

// attrInt64List reads a list of integers, tolerating mixed scalar forms and
// a bare scalar for a single-element list.
func attrInt64List(data map[string]any, key string) []int64 {
	v, ok := data[key]
	if !ok || v == nil {
		return nil
	}
	coerce := func(item any) (int64, bool) {
		switch t := item.(type) {
		case int:
			return int64(t), true
		case int64:
			return t, true
		case float64:
			return int64(t), true
		case string:
			n, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return 0, false
			}
			return int64(n), true
		}
		return 0, false
	}
	if list, ok := v.([]any); ok {
		out := make([]int64, 0, len(list))
		for _, item := range list {
			if n, ok := coerce(item); ok {
				out = append(out, n)
			}
		}
		return out
	}
	if n, ok := coerce(v); ok {
		return []int64{n}
	}
	return nil
}
