// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package testutil 提供 chatbridge 测试的共享工具和辅助函数。

# 概述

testutil 为适配器、流与重试相关的测试提供统一的基础设施，
避免各供应商包重复实现假服务器与流收集逻辑。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 假供应商: FakeVendor 基于 httptest 记录请求（头、JSON 体），
    并按脚本返回 SSE 帧、JSON 响应或挂起直到连接被关闭
  - 流辅助: CollectStream 拉取整条 streaming.Stream 并返回文本、事件与错误
  - 异步断言: AssertEventuallyTrue / WaitFor
  - 数据工具: MustJSON / MustParseJSON

# 子包

  - testutil/mocks: MockAdapter，实现 llm.Adapter，支持固定响应、
    流式分片、错误注入与调用记录
  - testutil/fixtures: 各供应商线上格式的 SSE 帧样例

# 使用示例

	vendor := testutil.NewFakeVendor(t).WithSSE(fixtures.OpenAICompatFrames("Hel", "lo")...)
	adapter := openaicompat.New(openaicompat.Config{BaseURL: vendor.URL(), APIKey: "k"}, nil)
	text, _, err := testutil.CollectStream(t, mustStream(adapter))
*/
package testutil
