// Package config 提供 researchflow 的配置管理功能。
//
// 配置来源优先级：默认值 → YAML 文件 → 环境变量（RESEARCHFLOW_ 前缀）。
// 工作流控制参数（max_retries、top_k）、检索与模型凭据、checkpoint 后端
// 均集中在 Config 中，由调用方在构造组件时显式传入。
package config
