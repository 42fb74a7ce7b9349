// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 observability 为适配器调用提供 OpenTelemetry 追踪与指标。

# 概述

InstrumentedAdapter 包装任意 llm.Adapter：SendMessage 记录 chatbridge.send
span；StreamMessage 记录 chatbridge.stream span，并通过新的 Stream 转发
内部事件，直到 Done、Error 或取消时结束 span。取消的流标记
chatbridge.cancelled=true，不记录为错误。

# 核心类型

  - Metrics：OTel 计数器、直方图与活跃流 UpDownCounter，
    tracer/meter 为 nil 时使用全局 Provider。
  - InstrumentedAdapter：插桩包装器，可选 WithCollector 同步写入
    internal/metrics 的 Prometheus 指标。
  - Wrapper：返回 func(llm.Adapter) llm.Adapter，供 factory 构建注册表时使用。

# Span 属性

chatbridge.provider、chatbridge.operation、chatbridge.model、
chatbridge.request_id（来自 types.WithRequestID）、chatbridge.status、
error.code、chatbridge.retryable、chatbridge.tokens.prompt/completion。
*/
package observability
