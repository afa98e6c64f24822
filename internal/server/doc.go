// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 server 管理 CLI 运行期间的辅助 HTTP 端点（Prometheus /metrics）。

Manager 封装 net/http.Server：Start 非阻塞监听（支持 ":0" 随机端口，Addr 返回实际地址），
Shutdown 在配置的超时内优雅关闭，Errors 暴露后台服务错误。
*/
package server
