// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 cohere 提供 Cohere Command 系列模型的适配器，对接 v2 chat 接口
（https://api.cohere.com/v2/chat），Bearer Token 认证。

# 流式事件

Cohere 使用带类型的 SSE 事件，事件名在 type 字段中：

  - content-delta：delta.message.content.text 转为文本增量
  - citation-start：delta.message.citations 中的来源收集为引用
  - message-end：结束；finish_reason 为 ERROR_TOXIC 时视为内容过滤，
    为 ERROR / ERROR_LIMIT 时视为流失败

兼容旧版（v1）只带 event_type 的事件：text-generation 与 stream-end。

# 支持能力

  - 系统提示（system 角色）
  - 图片附件（image_url）
  - 不支持文档附件
*/
package cohere
