package providers

import "regexp"

// SystemMode 决定系统提示如何发送。
type SystemMode int

const (
	// SystemInherit 表示规则不覆盖前一条规则的取值。
	SystemInherit SystemMode = iota
	// SystemAllowed 作为 system 角色消息发送。
	SystemAllowed
	// SystemDeveloper 作为 developer 角色消息发送。
	SystemDeveloper
	// SystemTopLevel 放在请求体的顶层字段。
	SystemTopLevel
	// SystemDropped 不发送。
	SystemDropped
)

// ModelQuirks 是某个模型族的参数覆盖，零值表示不覆盖。
type ModelQuirks struct {
	FixedTemperature  *float64
	OmitTemperature   bool
	MaxTokensField    string
	System            SystemMode
	StrictAlternation bool
}

// QuirkRule 把一个模型 ID 正则绑定到一组覆盖。
type QuirkRule struct {
	Pattern *regexp.Regexp
	Quirks  ModelQuirks
}

// QuirkTable 按顺序匹配，后匹配的规则覆盖先匹配规则的非零字段。
type QuirkTable struct {
	Default ModelQuirks
	Rules   []QuirkRule
}

// Resolve 返回 model 合并后的怪癖。
func (t QuirkTable) Resolve(model string) ModelQuirks {
	q := t.Default
	if q.System == SystemInherit {
		q.System = SystemAllowed
	}
	if q.MaxTokensField == "" {
		q.MaxTokensField = "max_tokens"
	}
	for _, r := range t.Rules {
		if r.Pattern == nil || !r.Pattern.MatchString(model) {
			continue
		}
		o := r.Quirks
		if o.FixedTemperature != nil {
			q.FixedTemperature = o.FixedTemperature
		}
		if o.OmitTemperature {
			q.OmitTemperature = true
		}
		if o.MaxTokensField != "" {
			q.MaxTokensField = o.MaxTokensField
		}
		if o.System != SystemInherit {
			q.System = o.System
		}
		if o.StrictAlternation {
			q.StrictAlternation = true
		}
	}
	return q
}

// Temperature 返回应发送的温度；nil 表示省略该字段。
func (q ModelQuirks) Temperature(requested *float64) *float64 {
	switch {
	case q.OmitTemperature:
		return nil
	case q.FixedTemperature != nil:
		v := *q.FixedTemperature
		return &v
	default:
		return requested
	}
}

// MaxTokens 把 n 写入 OpenAI 兼容请求中当前模型接受的字段。
func (q ModelQuirks) MaxTokens(req *OpenAICompatRequest, n int) {
	if n <= 0 {
		return
	}
	if q.MaxTokensField == "max_completion_tokens" {
		req.MaxCompletionTokens = n
		return
	}
	req.MaxTokens = n
}

// Float 返回 v 的指针，便于声明 FixedTemperature。
func Float(v float64) *float64 { return &v }
