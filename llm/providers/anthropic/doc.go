// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 anthropic 提供 Anthropic Claude 系列模型的适配器。Messages API
与 OpenAI 格式有显著差异，本包独立实现请求映射与 SSE 事件解析，
HTTP、限流与错误归一化复用 providers.Base。

# 协议差异

  - 认证使用 x-api-key 请求头（非 Bearer Token），并携带 anthropic-version
  - system 提示放在请求体顶层的 system 字段
  - user/assistant 必须严格交替，连续同角色消息以空行合并
  - 图片与文档以裸 base64 放在 source.data（不带 data URI 前缀）
  - max_tokens 为必填字段，未指定时取能力声明中的上限

# 流式事件

  message_start → content_block_start → content_block_delta(s) →
  content_block_stop → message_delta → message_stop

  - text_delta 转为文本增量，citations_delta 收集为引用
  - ping 忽略；error 事件转为单个 Error 事件
  - stop_reason 为 refusal 时视为内容过滤
*/
package anthropic
