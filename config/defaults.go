// =============================================================================
// 📦 researchflow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Workflow:   DefaultWorkflowConfig(),
		Search:     DefaultSearchConfig(),
		LLM:        DefaultLLMConfig(),
		Checkpoint: DefaultCheckpointConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
		Metrics:    DefaultMetricsConfig(),
	}
}

// DefaultWorkflowConfig 返回默认工作流参数
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		MaxRetries: 3,
		TopK:       3,
	}
}

// DefaultSearchConfig 返回默认检索配置
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Provider:       "tavily",
		Depth:          "basic",
		Timeout:        30 * time.Second,
		RateLimitRPS:   1,
		RateLimitBurst: 2,
	}
}

// DefaultLLMConfig 返回默认模型配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Generator: ModelConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash",
			Temperature: 0.7,
			MaxTokens:   4096,
			Timeout:     2 * time.Minute,
		},
		Critic: ModelConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-pro",
			Temperature: 0,
			MaxTokens:   2048,
			Timeout:     2 * time.Minute,
		},
	}
}

// DefaultCheckpointConfig 返回默认 checkpoint 配置
func DefaultCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		Type:     "sql",
		BaseDir:  "checkpoints",
		Redis:    DefaultRedisConfig(),
		Database: DefaultDatabaseConfig(),
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		Password:  "",
		DB:        0,
		PoolSize:  10,
		KeyPrefix: "researchflow:checkpoint",
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "researchflow",
		Password:        "",
		Name:            "checkpoints/researchflow.sqlite",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "researchflow",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "researchflow",
		Addr:      "",
	}
}
