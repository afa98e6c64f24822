// Package openaicompat 提供 OpenAI 兼容 chat completions 接口的 Provider 实现，
// 可对接 OpenAI 以及任何兼容该协议的本地或托管服务（通过 BaseURL 指定）。
package openaicompat
