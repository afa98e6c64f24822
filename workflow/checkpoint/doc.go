// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 checkpoint 提供 workflow.CheckpointStore 的持久化后端。

# 后端

  - FileStore：每个 thread 一个目录，每个版本一个 JSON 文件，写入采用临时文件 + rename。
  - SQLStore：基于 GORM 的表存储，支持 sqlite（glebarez 纯 Go 驱动）、postgres、mysql，
    写入通过 database.PoolManager 的事务重试执行。
  - RedisStore：基于 go-redis v9，每个 thread 一个有序集合作为版本索引，
    版本数据独立存放，可选 TTL。

NewStore 根据 config.CheckpointConfig.Type 选择后端，"memory" 回落到
workflow.InMemoryCheckpointStore。
*/
package checkpoint
