package command

import (
	"encoding/json"
	"regexp"
	"strings"
)

const redacted = "******"

// credentialKeys 中的键（不区分大小写）在日志中被替换
var credentialKeys = map[string]struct{}{
	"password":   {},
	"secretkey":  {},
	"secret_key": {},
	"accesskey":  {},
	"access_key": {},
	"token":      {},
}

// credentialParam 匹配 URL 查询串或 key=value 形式的凭据
var credentialParam = regexp.MustCompile(`(?i)\b(password|secretkey|secret_key|accesskey|access_key|token)=([^&\s"',;]*)`)

// Redact 返回去掉凭据后的 JSON 文本，仅用于日志
// 输入不是合法 JSON 时按纯文本处理
func Redact(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return credentialParam.ReplaceAllString(string(data), "$1="+redacted)
	}
	out, err := json.Marshal(redactValue(v))
	if err != nil {
		return credentialParam.ReplaceAllString(string(data), "$1="+redacted)
	}
	return string(out)
}

// RedactValue 序列化 v 并去掉凭据
func RedactValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return Redact(data)
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if _, ok := credentialKeys[strings.ToLower(k)]; ok {
				if s, ok := val.(string); ok && s == "" {
					continue
				}
				t[k] = redacted
				continue
			}
			t[k] = redactValue(val)
		}
		return t
	case []any:
		for i := range t {
			t[i] = redactValue(t[i])
		}
		return t
	case string:
		return credentialParam.ReplaceAllString(t, "$1="+redacted)
	default:
		return v
	}
}
