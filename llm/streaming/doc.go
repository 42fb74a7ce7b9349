// 版权所有 2024 ChatBridge Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 streaming 提供规范化的流式事件模型，以及把供应商推送式回调
桥接为调用方拉取式迭代的基础设施。

# 概述

每个供应商的流式协议（事件名、增量格式、引用载荷、错误信号）都被
归约为同一个带标签的事件类型 [Event]：

  - TextDelta：按序到达、可直接拼接的文本增量
  - Citations：引用列表（1 起始的 index）
  - Error：单个终止错误，携带类型化错误与可重试标记
  - Done：正常结束

每条流恰好以一个 Done 或 Error 结束；取消是静默的，不产生 Error。

# 核心类型

  - [Queue]：无界 FIFO，生产者推入、单一消费者拉取，带等待唤醒
  - [Sink]：生产者侧句柄，保证终止事件只出现一次
  - [Stream]：消费者侧句柄，提供 Next / Events / Chunks / Collect / Close
  - [SSEReader]：逐帧解析 text/event-stream
  - [Simulate]：把完整文本按固定长度切片并按节奏投递

# 状态机

	Idle → Connecting → Open → (Delivering)* → Completed | Failed

背压是协作式的：队列不设上限，调用方需要及时消费。
*/
package streaming
