// Package telemetry 封装 OpenTelemetry SDK 初始化，为 researchflow 的
// 工作流 span 提供集中式的 TracerProvider 和 MeterProvider 配置。
// 禁用时使用 noop 实现，不连接任何外部服务。
package telemetry
