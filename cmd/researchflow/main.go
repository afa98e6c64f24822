// =============================================================================
// researchflow 主入口
// =============================================================================
// 研究 → 起草 → 评审 的有界循环 CLI，checkpoint 按问题派生的 thread 持久化
//
// 使用方法:
//
//	researchflow ask "问题"                    # 执行（或恢复）一个问题
//	researchflow ask --config config.yaml     # 指定配置文件，使用默认问题
//	researchflow history <thread-id|问题>      # 查看 checkpoint 历史
//	researchflow rewind <thread-id> <version> # 回到某个版本，下次运行从那里继续
//	researchflow forget <thread-id|问题>       # 删除 thread
//	researchflow version                      # 显示版本信息
// =============================================================================

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/researchflow/config"
	"github.com/BaSui01/researchflow/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = ""
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		return runAsk(nil, stdin, stdout, stderr)
	}

	switch args[0] {
	case "ask":
		return runAsk(args[1:], stdin, stdout, stderr)
	case "history":
		return runHistory(args[1:], stdout, stderr)
	case "rewind":
		return runRewind(args[1:], stdout, stderr)
	case "forget":
		return runForget(args[1:], stdout, stderr)
	case "version":
		printVersion(stdout)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 2
	}
}

// =============================================================================
// 🔧 公共参数与初始化
// =============================================================================

type commonFlags struct {
	configPath string
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := &commonFlags{}
	fs.StringVar(&cf.configPath, "config", "", "Path to config file (YAML)")
	return fs, cf
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.NewLoader().WithConfigPath(path).Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func buildVersion() string {
	if Version != "" {
		return Version
	}
	return telemetry.Version()
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "researchflow %s\n", buildVersion())
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `researchflow - bounded research, draft and critique loop

Usage:
  researchflow [command] [options] [arguments]

Commands:
  ask       Run (or resume) the workflow for a question (default command)
  history   List the checkpoints of a thread
  rewind    Append a checkpoint restoring an earlier version of a thread
  forget    Delete every checkpoint of a thread
  version   Show version information
  help      Show this help message

Options:
  --config <path>        Path to configuration file (YAML)
  --metrics-addr <addr>  (ask) Serve Prometheus metrics on addr while running

Without a question argument, ask reads the question from stdin when it is piped
and otherwise uses a built-in default question.

Examples:
  researchflow ask "How does LangGraph persist graph state?"
  echo "What is RAG?" | researchflow ask --config config.yaml
  researchflow history 5d3e720944
  researchflow rewind 5d3e720944 4
  researchflow forget "What is RAG?"`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
