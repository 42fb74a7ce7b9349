// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 deepseek 提供 DeepSeek 模型的适配器。DeepSeek 使用 OpenAI 兼容的
API 格式，因此本包嵌入 openaicompat.Provider 复用 HTTP 处理、SSE 解析
与消息转换，仅定制差异部分。

# 定制行为

  - 默认 BaseURL: https://api.deepseek.com
  - 默认模型: deepseek-chat
  - Endpoint: /chat/completions
  - deepseek-reasoner: 要求 user/assistant 严格交替（连续同角色消息以空行合并），
    且不接受 temperature，请求中省略该字段

# 支持能力

  - SendMessage（同步，委托 openaicompat）
  - StreamMessage（SSE，委托 openaicompat）
  - 系统提示

# 不支持能力

  图片与文档附件，校验阶段返回 VALIDATION_UNSUPPORTED_FORMAT。
*/
package deepseek
