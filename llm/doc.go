// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 llm 定义多供应商对话接入的统一契约。

# 概述

不同供应商在请求结构、鉴权方式、错误语义与流式协议上各不相同。
本包只规定上层看到的形状：一条消息加历史与附件进去，
一个完整回答或一条规范化事件流出来；各供应商的差异留在 llm/providers 的子包里。

# 核心接口

  - [Adapter]：单个供应商的 send/stream 实现，构造后只读、可并发调用

# 核心类型

  - [SendRequest] / [SendResult]：一次调用的输入与输出
  - [ResumptionContext]：中断回答的续写上下文，配合 [ContinuationInstruction]
  - [CredentialOverride]：单次请求的凭据覆盖，通过 context 传递
  - [AdapterRegistry]：按名称索引适配器，并维护默认供应商

# 调用辅助

  - [SendWithRetry]：按 retry.Config 重试一次完整往返
  - [StreamWithFallback]：打开流失败且错误码允许时降级为非流式请求
  - [SimulateSend]：把非流式结果切成 TextDelta 事件，供不支持流式的模型使用

# 相关子包

  - llm/streaming：事件类型、Stream 与 Sink、SSE 解析
  - llm/errnorm：HTTP 状态码与供应商错误体到类型化错误的归一化
  - llm/retry：指数退避重试引擎
  - llm/circuitbreaker：按供应商的熔断包装
  - llm/citations：引用提取与编号
  - llm/tokenizer：Token 估算
  - llm/providers：适配器公共基础与各供应商实现
  - llm/factory：按配置构建适配器与注册表
  - llm/observability：OpenTelemetry 追踪与指标包装
*/
package llm
