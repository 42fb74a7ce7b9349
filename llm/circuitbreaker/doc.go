// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package circuitbreaker 为单个供应商提供熔断保护。

连续 Threshold 次服务端瞬时故障（错误的 Retryable 为 true）后熔断打开，
期间调用立即以 API_SERVICE_UNAVAILABLE 失败，原因链包含 ErrCircuitOpen。
ResetTimeout 之后放行 HalfOpenMaxCalls 个试探调用：成功则关闭，失败则重新打开。

鉴权失败、参数错误、内容过滤等不可重试错误说明供应商在正常响应，
不计入失败；取消既不算成功也不算失败。

Adapter 通常放在重试包装之外，这样一整轮重试只计一次失败：

	reg, err := factory.NewRegistryFromConfig(cfg, logger,
		withRetry,
		circuitbreaker.Wrapper(circuitbreaker.DefaultConfig(), logger),
	)
*/
package circuitbreaker
