package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/agent"
	"github.com/BaSui01/researchflow/config"
	"github.com/BaSui01/researchflow/internal/metrics"
	"github.com/BaSui01/researchflow/internal/server"
	"github.com/BaSui01/researchflow/internal/telemetry"
	"github.com/BaSui01/researchflow/llm/factory"
	"github.com/BaSui01/researchflow/retrieval"
	"github.com/BaSui01/researchflow/workflow"
	"github.com/BaSui01/researchflow/workflow/checkpoint"
)

// defaultQuestion 未提供问题时使用
const defaultQuestion = "What is the primary function of the LangGraph SqliteSaver checkpointer?"

const tracerName = "github.com/BaSui01/researchflow/cmd/researchflow"

// =============================================================================
// ❓ ask 命令
// =============================================================================

func runAsk(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, cf := newFlagSet("ask", stderr)
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	question, err := resolveQuestion(fs.Args(), stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read question: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(cf.configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = *metricsAddr
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize: %v\n", err)
		return 1
	}
	defer app.close(logger)

	threadID := workflow.ThreadID(question)
	fmt.Fprintf(stdout, "Question: %s\nThread ID: %s\n\n", question, threadID)

	ctx = workflow.WithStreamEmitter(ctx, progressPrinter(stdout, cfg.Workflow.MaxRetries))
	result, err := app.controller.Run(ctx, question)
	if err != nil {
		printFailure(stderr, threadID, err)
		return 1
	}

	printSummary(stdout, result)
	return 0
}

// resolveQuestion 参数优先，其次是管道输入，最后是默认问题
func resolveQuestion(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	if stdin == nil || isTerminal(stdin) {
		return defaultQuestion, nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	if q := strings.TrimSpace(string(data)); q != "" {
		return q, nil
	}
	return defaultQuestion, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return true
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// =============================================================================
// 🧩 组件装配
// =============================================================================

type app struct {
	controller    *workflow.Controller
	store         workflow.CheckpointStore
	telemetry     *telemetry.Providers
	metricsServer *server.Manager
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	if cfg.Search.APIKey == "" {
		return nil, errors.New("search api key is not set (search.api_key or TAVILY_API_KEY)")
	}

	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.close(logger)
		}
	}()

	providers, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		// 遥测不可用不影响主流程
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	a.telemetry = providers

	store, err := checkpoint.NewStore(ctx, cfg.Checkpoint, logger)
	if err != nil {
		return nil, fmt.Errorf("checkpoint store: %w", err)
	}
	a.store = store

	search := retrieval.NewTavily(retrieval.TavilyConfig{
		APIKey:              cfg.Search.APIKey,
		BaseURL:             cfg.Search.BaseURL,
		Depth:               cfg.Search.Depth,
		Timeout:             cfg.Search.Timeout,
		MaxRateLimitRetries: cfg.Search.MaxRateLimitRetries,
	}, logger)
	retriever := retrieval.NewAdapter(search, retrieval.AdapterConfig{
		Timeout:        cfg.Search.Timeout,
		RateLimitRPS:   cfg.Search.RateLimitRPS,
		RateLimitBurst: cfg.Search.RateLimitBurst,
		Depth:          cfg.Search.Depth,
	}, logger)

	genProvider, err := factory.NewFromModelConfig(cfg.LLM.Generator, logger)
	if err != nil {
		return nil, fmt.Errorf("generator provider: %w", err)
	}
	generator := agent.NewDraftGenerator(genProvider, modelOptions(cfg.LLM.Generator), logger)

	criticProvider, err := factory.NewFromModelConfig(cfg.LLM.Critic, logger)
	if err != nil {
		return nil, fmt.Errorf("critic provider: %w", err)
	}
	critic, err := agent.NewCritic(criticProvider, modelOptions(cfg.LLM.Critic), logger)
	if err != nil {
		return nil, fmt.Errorf("critic: %w", err)
	}

	opts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithTracer(providers.Tracer(tracerName)),
	}
	if cfg.Metrics.Enabled {
		collector, srv, err := startMetrics(cfg.Metrics, logger)
		if err != nil {
			return nil, err
		}
		a.metricsServer = srv
		opts = append(opts, workflow.WithMetrics(collector))
	}

	controller, err := workflow.NewController(
		workflow.Config{MaxRetries: cfg.Workflow.MaxRetries, TopK: cfg.Workflow.TopK},
		retriever, generator, critic,
		workflow.NewCheckpointManager(store, logger),
		opts...,
	)
	if err != nil {
		return nil, err
	}
	a.controller = controller

	ok = true
	return a, nil
}

func (a *app) close(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("checkpoint store close failed", zap.Error(err))
		}
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
}

func modelOptions(mc config.ModelConfig) agent.ModelOptions {
	return agent.ModelOptions{
		Model:       mc.Model,
		Temperature: float32(mc.Temperature),
		MaxTokens:   mc.MaxTokens,
	}
}

// startMetrics 在独立注册表上创建收集器，配置了地址时同时暴露 /metrics
func startMetrics(cfg config.MetricsConfig, logger *zap.Logger) (*metrics.Collector, *server.Manager, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollectorWithRegisterer(cfg.Namespace, reg, logger)
	if cfg.Addr == "" {
		return collector, nil, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = cfg.Addr
	srv := server.NewManager(mux, srvCfg, logger)
	if err := srv.Start(); err != nil {
		return nil, nil, fmt.Errorf("metrics server: %w", err)
	}
	return collector, srv, nil
}
