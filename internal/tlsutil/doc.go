// Package tlsutil 为访问模型供应商的 HTTP 客户端提供集中式 TLS 加固
// （TLS 1.2+，仅 AEAD 密码套件），并区分普通请求与长连接流式请求两种客户端。
package tlsutil
