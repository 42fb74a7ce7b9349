package llm

import (
	"context"
	"encoding/json"
)

type credentialOverrideKey struct{}

// CredentialOverride 在单次调用内覆盖适配器配置的 API Key。
// 只通过 context 传递，不参与请求体的 JSON 反序列化。
type CredentialOverride struct {
	APIKey       string
	Organization string
}

func (c CredentialOverride) String() string {
	if c.APIKey == "" {
		return "CredentialOverride{}"
	}
	return "CredentialOverride{APIKey:***}"
}

// MarshalJSON 输出时屏蔽密钥。
func (c CredentialOverride) MarshalJSON() ([]byte, error) {
	type masked struct {
		APIKey       string `json:"api_key,omitempty"`
		Organization string `json:"organization,omitempty"`
	}
	out := masked{Organization: c.Organization}
	if c.APIKey != "" {
		out.APIKey = "***"
	}
	return json.Marshal(out)
}

// WithCredentialOverride 在 ctx 中写入凭据覆盖。APIKey 为空时原样返回 ctx。
func WithCredentialOverride(ctx context.Context, c CredentialOverride) context.Context {
	if c.APIKey == "" {
		return ctx
	}
	return context.WithValue(ctx, credentialOverrideKey{}, c)
}

// CredentialOverrideFromContext 从 ctx 读取凭据覆盖。
func CredentialOverrideFromContext(ctx context.Context) (CredentialOverride, bool) {
	c, ok := ctx.Value(credentialOverrideKey{}).(CredentialOverride)
	return c, ok
}
