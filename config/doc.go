// Package config 提供 ChatBridge 的配置加载。
//
// 加载顺序为 默认值 → YAML 文件 → 环境变量（前缀 CHATBRIDGE）。
// 各厂商的凭据位于 providers.<name> 下，例如
// CHATBRIDGE_PROVIDERS_ANTHROPIC_API_KEY。Registry 将配置转换为
// factory.RegistryConfig，未配置 API Key 的厂商会被跳过。
package config
