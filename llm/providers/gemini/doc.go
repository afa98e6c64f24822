// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 gemini 提供 Google Gemini 的 Provider 实现。

请求发送到 {BaseURL}/v1beta/models/{model}:generateContent，使用
x-goog-api-key 请求头认证。system 消息转换为 systemInstruction，assistant
角色转换为 model；ResponseFormat 为 JSON 时设置 responseMimeType 为
application/json。
*/
package gemini
