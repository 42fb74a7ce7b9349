// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 mistral 提供 Mistral AI 模型的适配器，嵌入 openaicompat.Provider，
对接 https://api.mistral.ai/v1 的 chat completions 接口。

# 支持能力

  - SendMessage / StreamMessage（委托 openaicompat）
  - 系统提示
  - 图片附件（data URI 形式的 image_url）
*/
package mistral
