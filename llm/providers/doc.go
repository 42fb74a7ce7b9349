// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 是所有供应商适配器的公共基础层。各供应商子包
（openaicompat、openai、anthropic、cohere、perplexity）嵌入 [Base]，
复用 HTTP 调用、鉴权头、限流、请求校验、错误归一化与历史构建逻辑，
只在子包中保留供应商特有的请求体与流事件映射。

deepseek、mistral、grok 是 openaicompat 的预设，只提供 BaseURL、默认模型、
能力声明与模型怪癖表。

# 核心类型

  - [ProviderConfig]：适配器私有配置（BaseURL、默认模型、鉴权头构造、能力声明、模型怪癖表）
  - [BaseProviderConfig]：配置文件中每个供应商共享的字段
  - [Base]：HTTP 与校验基础设施
  - [Turn] / [BuildTurns] / [MergeConsecutive]：历史消息到供应商角色序列的转换
  - [QuirkTable]：按模型 ID 正则匹配的参数覆盖表
  - [RetryableAdapter]：重试 SendMessage 与流的连接阶段
  - OpenAICompat* 系列：OpenAI 兼容 chat completions 的线上结构

# 错误语义

非 2xx 响应在 [Base] 中经 errnorm 转换后返回，适配器不会把 *http.Response
或原始网络错误泄露给调用方。
*/
package providers
