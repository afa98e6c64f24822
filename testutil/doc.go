// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 researchflow 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，避免重复实现相似的
测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertMessagesEqual / AssertJSONEqual
  - 数据工具: MustJSON / MustParseJSON

# 子包

  - testutil/mocks: 脚本化的协作者模拟实现，包括 MockProvider（LLM Provider）、
    MockRetriever（检索）、ScriptedGenerator（起草）、ScriptedCritic（评审），
    均支持 Builder 模式与错误注入

# 使用示例

	ctx := testutil.TestContext(t)
	critic := mocks.NewScriptedCritic().Reject("cite sources").Accept("")
	result, err := controller.Run(ctx, "What is X?")
	require.NoError(t, err)
*/
package testutil
