// Package command 定义编排器协议的命令与应答信封
package command

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Command 是一次请求携带的命令
// Payload 保持原始 JSON，由各个处理器按自己的结构解析
type Command struct {
	Name    string
	Payload json.RawMessage
}

// contextHolder 只用于从任意命令中取出 contextMap
type contextHolder struct {
	ContextMap json.RawMessage `json:"contextMap"`
}

// ContextMap 返回命令中的 contextMap 原文，应答原样回传
// 命令不是对象或没有 contextMap 时返回 {}
func (c *Command) ContextMap() json.RawMessage {
	var h contextHolder
	if err := json.Unmarshal(c.Payload, &h); err != nil || len(h.ContextMap) == 0 || string(h.ContextMap) == "null" {
		return json.RawMessage("{}")
	}
	return h.ContextMap
}

// Decode 把命令解析到 v
func (c *Command) Decode(v any) error {
	if len(bytes.TrimSpace(c.Payload)) == 0 {
		return fmt.Errorf("%s has an empty payload", c.Name)
	}
	if err := json.Unmarshal(c.Payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", c.Name, err)
	}
	return nil
}

// Answer 是处理器返回的应答
// 序列化为 {"<Type>": {"result": ..., "details": ..., "contextMap": ..., <Fields>}}
type Answer struct {
	Type       string
	Result     bool
	Details    *string
	ContextMap json.RawMessage
	Fields     map[string]any
}

// NewAnswer 创建默认失败的应答，details 为空
// 处理器必须调用 Succeed 或 Fail 之一
func NewAnswer(answerType string, contextMap json.RawMessage) *Answer {
	if len(contextMap) == 0 {
		contextMap = json.RawMessage("{}")
	}
	return &Answer{
		Type:       answerType,
		ContextMap: contextMap,
		Fields:     map[string]any{},
	}
}

// Succeed 标记成功，details 为空字符串时保持 null
func (a *Answer) Succeed(details string) *Answer {
	a.Result = true
	if details != "" {
		a.Details = &details
	} else {
		a.Details = nil
	}
	return a
}

// Fail 标记失败，details 不能为空
func (a *Answer) Fail(details string) *Answer {
	if details == "" {
		details = "unknown error"
	}
	a.Result = false
	a.Details = &details
	return a
}

// Set 设置业务字段
func (a *Answer) Set(key string, value any) *Answer {
	a.Fields[key] = value
	return a
}

// Body 返回不带类型包装的应答体
func (a *Answer) Body() map[string]any {
	body := make(map[string]any, len(a.Fields)+3)
	for k, v := range a.Fields {
		body[k] = v
	}
	body["result"] = a.Result
	body["details"] = a.Details
	body["contextMap"] = a.ContextMap
	return body
}

// MarshalJSON 输出带类型包装的应答
func (a *Answer) MarshalJSON() ([]byte, error) {
	if !a.Result && a.Details == nil {
		return nil, fmt.Errorf("answer %s failed without details", a.Type)
	}
	return json.Marshal(map[string]any{a.Type: a.Body()})
}
