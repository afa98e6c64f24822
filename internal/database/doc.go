// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 database 提供基于 GORM 的数据库打开与连接池管理，支持健康检查、
统计信息采集与事务重试。

# 概述

Open 根据 config.DatabaseConfig 选择方言（sqlite 使用 glebarez 纯 Go 驱动，
另支持 postgres 与 mysql），打开连接后交由 PoolManager 统一管理连接生命周期、
空闲回收与最大连接数限制。SQL checkpoint 后端通过 PoolManager 的事务接口写入。

# 核心类型

  - PoolManager：连接池管理器，持有 GORM DB 实例与底层 sql.DB，
    提供 DB()、Ping()、Stats()、Close() 等生命周期方法。
  - PoolConfig：连接池配置，包含最大空闲连接数、最大打开连接数、
    连接最大生命周期、空闲超时与健康检查间隔。
  - PoolStats：友好格式的连接池统计信息。
  - TransactionFunc：事务回调函数类型。

# 主要能力

  - 方言选择：Dialector / Open。
  - 健康检查：后台定时 PingContext 探活（HealthCheckInterval > 0 时）。
  - 事务管理：WithTransaction 提供单次事务执行，
    WithTransactionRetry 支持指数退避重试（死锁、序列化失败、SQLite 锁竞争等场景）。
  - 统计采集：GetStats 返回结构化的连接池运行指标。
*/
package database
