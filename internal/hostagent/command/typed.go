package command

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Typed 是协议中的类型化对象 {"<type>": {...}}
type Typed struct {
	Type string
	Body json.RawMessage
}

// IsZero 对象为空（缺失或 null）时返回 true
func (t Typed) IsZero() bool {
	return t.Type == ""
}

// UnmarshalJSON 要求对象恰好只有一个键
func (t *Typed) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Typed{}
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("typed object: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("typed object must have exactly one key, got %d", len(m))
	}
	for k, v := range m {
		t.Type = k
		t.Body = v
	}
	return nil
}

// MarshalJSON 输出 {"<type>": body}
func (t Typed) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	body := t.Body
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	return json.Marshal(map[string]json.RawMessage{t.Type: body})
}

// Decode 把对象体解析到 v
func (t Typed) Decode(v any) error {
	if t.IsZero() {
		return errors.New("typed object is missing")
	}
	if err := json.Unmarshal(t.Body, v); err != nil {
		return fmt.Errorf("decode %s: %w", t.Type, err)
	}
	return nil
}

// Wrap 把 v 序列化为类型化对象
func Wrap(typeName string, v any) (Typed, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Typed{}, fmt.Errorf("encode %s: %w", typeName, err)
	}
	return Typed{Type: typeName, Body: body}, nil
}
