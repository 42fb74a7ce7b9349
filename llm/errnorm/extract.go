package errnorm

import (
	"encoding/json"
	"strings"
)

// MaxDisplayLength 是可直接展示的错误文本的最大长度。
const MaxDisplayLength = 200

// ExtractMessage 从供应商错误体中提取可读文本。
// 依次尝试 error.message、message、error 字符串与 type=="error" 包装；
// HTML、解析失败的 JSON 与超长文本一律返回 fallback。
func ExtractMessage(raw, fallback string) string {
	text := strings.TrimSpace(raw)
	if text == "" || looksLikeHTML(text) {
		return fallback
	}

	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		msg, ok := messageFromJSON([]byte(text))
		if !ok {
			return fallback
		}
		text = msg
	} else if i, j := strings.Index(text, "{"), strings.LastIndex(text, "}"); i >= 0 && j > i {
		// "Claude API error (529): {...}" 这类前缀 + JSON 的组合
		if msg, ok := messageFromJSON([]byte(text[i : j+1])); ok {
			text = msg
		}
	}

	text = strings.TrimSpace(text)
	if text == "" || len(text) > MaxDisplayLength || looksLikeHTML(text) || strings.ContainsAny(text, "{}") {
		return fallback
	}
	return text
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "<!doctype") ||
		strings.HasPrefix(lower, "<html") ||
		strings.Contains(lower, "<body") ||
		strings.Contains(lower, "</html>")
}

func messageFromJSON(data []byte) (string, bool) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", false
	}
	msg := messageFromValue(v, 0)
	return msg, msg != ""
}

func messageFromValue(v any, depth int) string {
	if depth > 4 {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if msg := messageFromValue(item, depth+1); msg != "" {
				return msg
			}
		}
	case map[string]any:
		if typ, _ := t["type"].(string); typ == "error" {
			if inner, ok := t["error"]; ok {
				if msg := messageFromValue(inner, depth+1); msg != "" {
					return msg
				}
			}
		}
		if inner, ok := t["error"]; ok {
			if msg := messageFromValue(inner, depth+1); msg != "" {
				return msg
			}
		}
		// detail 可能是字符串，也可能是 [{"msg": ...}] 形式的校验错误列表
		for _, key := range []string{"message", "detail", "error_description", "msg"} {
			if msg := messageFromValue(t[key], depth+1); msg != "" {
				return msg
			}
		}
	}
	return ""
}
