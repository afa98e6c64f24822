package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/researchflow/config"
)

// =============================================================================
// 🔌 连接打开
// =============================================================================

// Dialector 根据驱动类型选择 GORM 方言。sqlite 使用纯 Go 实现，无需 cgo。
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		if cfg.Name == "" {
			return nil, fmt.Errorf("sqlite database path is required")
		}
		return sqlite.Open(cfg.DSN()), nil
	case "postgres":
		return postgres.Open(cfg.DSN()), nil
	case "mysql":
		return mysql.Open(cfg.DSN()), nil
	case "":
		return nil, fmt.Errorf("database driver not configured")
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", cfg.Driver)
	}
}

// Open 打开数据库并套上连接池管理。sqlite 文件所在目录不存在时自动创建。
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*PoolManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" && isFilePath(cfg.Name) {
		if dir := filepath.Dir(cfg.Name); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	pc := PoolConfigFrom(cfg)
	if cfg.Driver == "sqlite" {
		// SQLite 单写者
		pc.MaxOpenConns, pc.MaxIdleConns = 1, 1
	}
	pool, err := NewPoolManager(db, pc, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("database connected", zap.String("driver", cfg.Driver))
	return pool, nil
}

// isFilePath 排除内存库与 file: URI
func isFilePath(name string) bool {
	return name != ":memory:" && !strings.HasPrefix(name, "file:")
}
