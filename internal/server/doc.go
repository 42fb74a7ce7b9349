// Copyright 2026 ChatBridge Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 server 提供 CLI 使用的指标端点服务器。

# 概述

Manager 封装 net/http.Server，暴露 GET /metrics（promhttp，读取调用方
给定的 Gatherer）与 GET /healthz。Start 非阻塞，Shutdown 在配置的超时内
排空连接，重复调用无副作用；Errors() 返回异步服务错误。
*/
package server
