// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 perplexity 提供 Perplexity Sonar 系列模型的适配器。请求与响应使用
OpenAI 兼容格式，因此嵌入 openaicompat.Provider 复用请求构造与结果转换。

# 定制行为

  - 默认 BaseURL: https://api.perplexity.ai，默认模型 sonar
  - system 之后的 user/assistant 必须严格交替
  - 引用来自响应体的 citations（URL 列表）与 search_results（标题、摘要），
    两者都缺失时从正文 markdown 链接提取

# 流式

线上流式会丢失引用元数据，StreamMessage 改为一次阻塞请求，再把完整
文本按 8 个字符切片、以固定间隔投递，对调用方保持统一的增量接口。
阻塞请求的失败在 StreamMessage 返回时直接给出。
*/
package perplexity
