// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的工作流指标收集。

# 核心类型

  - Collector：实现 workflow.MetricsRecorder，按节点、路由决策与运行结果分组记录。

# 指标

  - workflow_node_executions_total{node,status} / workflow_node_duration_seconds{node}
  - workflow_route_decisions_total{decision}
  - workflow_runs_total{status} / workflow_run_duration_seconds{status} / workflow_run_cycles

NewCollectorWithRegisterer 允许注入独立的注册表，测试与 CLI 的 /metrics 端点均通过它隔离。
*/
package metrics
