// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package main 提供 ChatBridge 命令行程序入口。

# 概述

cmd/chatbridge 通过统一适配器调用各模型供应商。配置按
默认值 → YAML（--config）→ CHATBRIDGE_* 环境变量加载，未配置
API Key 的供应商不会注册。每个适配器依次包装重试（retry 策略来自配置）
与 observability 插桩，请求携带 uuid 生成的 request id。

# 子命令

  - send：一次完整往返，输出回复与引用列表。
  - stream：边接收边输出；供应商不支持流式或流式被拒绝时降级为模拟流。
    Ctrl-C 静默结束流，退出码 130。
  - compare：errgroup 并发请求多个供应商，单个失败不影响其他结果。
  - providers：列出已注册的供应商及能力，* 标记默认供应商。
  - version：Version、BuildTime、GitCommit 通过 ldflags 注入。

metrics.enabled 为 true 时在 metrics.addr 暴露 /metrics 与 /healthz。
*/
package main
