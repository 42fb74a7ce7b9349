// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 grok 提供 xAI Grok 模型的适配器。该包基于 openaicompat 兼容层封装，
对接 xAI API（api.x.ai），使用 Bearer Token 认证。

# 构造函数

  - NewGrokProvider(cfg, logger)：创建实例，默认模型 grok-4

# 支持能力

  - SendMessage / StreamMessage（/v1/chat/completions，委托 openaicompat）
  - 系统提示
  - 图片附件
  - CredentialOverride 运行时凭证覆盖
*/
package grok
