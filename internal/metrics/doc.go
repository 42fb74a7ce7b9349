// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 metrics 提供基于 Prometheus 的适配器指标采集。

# 概述

Collector 通过 promauto.With 注册到调用方给定的 Registerer，
所有指标按 namespace 隔离。测试可以传入独立的 prometheus.Registry。

# 指标

  - requests_total{provider,operation,status}：send/stream 调用次数，
    status 为 ok、error 或 cancelled。
  - request_duration_seconds{provider,operation}：调用耗时，流以终止为准。
  - stream_events_total{provider,type}：交付给消费者的规范化事件。
  - active_streams{provider}：当前打开的流。
  - retries_total{provider,code}、errors_total{provider,code}：按错误码计数。
  - tokens_used_total{provider,model,type}：prompt/completion Token 用量。
  - circuit_breaker_state{provider}：熔断状态，0 关闭、1 半开、2 打开。
*/
package metrics
