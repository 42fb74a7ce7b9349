// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 openai 提供 OpenAI 模型的适配器，同时支持传统 Chat Completions API
与 Responses API（/v1/responses）。

# 核心结构体

  - OpenAIProvider：嵌入 openaicompat.Provider；UseResponsesAPI 打开时
    SendMessage / StreamMessage 改走 Responses API

# 模型怪癖

  - o1 / o3 / o4 / gpt-5 系列：temperature 固定为 1，令牌上限写入
    max_completion_tokens，系统提示以 developer 角色发送
  - o1-mini / o1-preview：不接受系统提示，静默丢弃

# Responses 事件流

  - response.output_text.delta：文本增量
  - response.output_text.done：仅在该段没有收到增量时补发完整文本
  - response.output_text.annotation.added：url_citation 引用
  - response.completed：结束；若全程无文本则取响应体中的完整文本
  - response.failed / error：单个 Error 事件

# 支持能力

  - 图片与文档附件（data URI）
  - Organization 请求头
  - previous_response_id（WithPreviousResponseID）
  - CredentialOverride 运行时凭证覆盖
*/
package openai
