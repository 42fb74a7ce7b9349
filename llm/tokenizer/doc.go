// Package tokenizer 提供统一的 Token 计数接口，支持 tiktoken 精确计数与
// CJK 感知的估算器，用于在发出请求前校验消息是否超出模型上下文窗口。
package tokenizer
