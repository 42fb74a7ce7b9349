// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package types 提供 chatbridge 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 llm、providers、errnorm、
retry 等上层模块提供统一的数据契约，避免循环依赖。

# 核心类型

  - Message / SenderType：对话消息（按 Timestamp 排序）
  - Attachment：图片 / 文档附件（只读输入）
  - Capabilities：Adapter 能力声明
  - Citation / Usage：引用来源与 Token 用量
  - AppError：结构化错误基类（Code、UserMessage、Severity、Retryable …）
  - NetworkError / APIError / AuthError / ValidationError：错误特化
  - Typed：所有特化错误共同实现的接口

# 主要能力

  - 封闭的错误码枚举，以及只读的用户提示、可重试性、严重级别表
  - AsAppError：从任意 error 链中取出 AppError 基础记录
  - 请求级 Context 传播：WithRequestID / WithProvider / WithModel
*/
package types
