// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
researchflow 命令行入口。

# 子命令

  - ask：执行或恢复某个问题的 研究 → 起草 → 评审 循环（默认子命令）
  - history：列出 thread 的 checkpoint 版本
  - rewind：以旧版本的状态追加新 checkpoint，下次运行从那里继续
  - forget：删除 thread 的全部 checkpoint
  - version / help

thread ID 由问题文本的 SHA-256 前 10 个十六进制字符派生，同一问题重复运行会恢复同一 thread。
配置优先级：默认值 → YAML（--config）→ RESEARCHFLOW_ 前缀环境变量。
*/
package main
