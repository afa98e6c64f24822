package workflow

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/BaSui01/researchflow/types"
)

// Config 控制器配置
type Config struct {
	// RESEARCH 最多执行的次数
	MaxRetries int `json:"max_retries"`
	// 每次检索保留的结果数
	TopK int `json:"top_k"`
}

// DefaultConfig returns MaxRetries=3, TopK=3.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, TopK: 3}
}

// Validate checks that both limits are positive.
func (c Config) Validate() error {
	if c.MaxRetries <= 0 {
		return types.Errorf(types.ErrInvalidInput, "max_retries must be positive, got %d", c.MaxRetries)
	}
	if c.TopK <= 0 {
		return types.Errorf(types.ErrInvalidInput, "top_k must be positive, got %d", c.TopK)
	}
	return nil
}

// ThreadID 由问题文本派生持久化 key：SHA-256 十六进制摘要的前 10 个字符。
func ThreadID(question string) string {
	sum := sha256.Sum256([]byte(question))
	return hex.EncodeToString(sum[:])[:10]
}
