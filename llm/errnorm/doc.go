// Copyright (c) ChatBridge Authors.
// Licensed under the MIT License.

/*
包 errnorm 将任意失败（Go 错误、HTTP 响应、流内错误事件）归一化为
types 包中的类型化错误层级。

# 入口

  - [Normalize]：任意 error → types.Typed，已类型化的错误仅合并 context
  - [FromHTTPStatus]：状态码 → APIError（权威映射表）
  - [FromResponse]：非 2xx 的 *http.Response → APIError
  - [FromTransport]：连接阶段错误（DNS、TLS、拒绝连接、超时）→ NetworkError
  - [FromStreamPayload]：流内错误事件 → APIError
  - [ExtractMessage] / [EnhanceForStatus]：供应商错误体的防御式文本提取

每个失败只在首次被观察到的边界归一化一次。
*/
package errnorm
