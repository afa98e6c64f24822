package main

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/config"
	"github.com/BaSui01/researchflow/workflow"
	"github.com/BaSui01/researchflow/workflow/checkpoint"
)

var threadIDPattern = regexp.MustCompile(`^[0-9a-f]{10}$`)

// resolveThreadID 接受 thread ID 或原始问题
func resolveThreadID(args []string) (string, error) {
	arg := strings.TrimSpace(strings.Join(args, " "))
	if arg == "" {
		return "", fmt.Errorf("thread id or question is required")
	}
	if threadIDPattern.MatchString(arg) {
		return arg, nil
	}
	return workflow.ThreadID(arg), nil
}

// withCheckpoints 打开 checkpoint 存储并执行 fn
func withCheckpoints(configPath string, stderr io.Writer, fn func(ctx context.Context, mgr *workflow.CheckpointManager) error) int {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := openStore(ctx, cfg.Checkpoint, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open checkpoint store: %v\n", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("checkpoint store close failed", zap.Error(err))
		}
	}()

	if err := fn(ctx, workflow.NewCheckpointManager(store, logger)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

var openStore = func(ctx context.Context, cfg config.CheckpointConfig, logger *zap.Logger) (workflow.CheckpointStore, error) {
	return checkpoint.NewStore(ctx, cfg, logger)
}

// =============================================================================
// 📜 history 命令
// =============================================================================

func runHistory(args []string, stdout, stderr io.Writer) int {
	fs, cf := newFlagSet("history", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	threadID, err := resolveThreadID(fs.Args())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	return withCheckpoints(cf.configPath, stderr, func(ctx context.Context, mgr *workflow.CheckpointManager) error {
		history, err := mgr.History(ctx, threadID)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			fmt.Fprintf(stdout, "Thread %s has no checkpoints.\n", threadID)
			return nil
		}
		printHistory(stdout, threadID, history)
		return nil
	})
}

func printHistory(w io.Writer, threadID string, history []*workflow.Checkpoint) {
	fmt.Fprintf(w, "Thread %s: %s\n\n", threadID, history[0].State.Question)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSOURCE\tNEXT\tCYCLES\tDRAFT\tFINAL\tCREATED")
	for _, cp := range history {
		source := cp.Source
		if from, ok := cp.Metadata["rollback_from"]; ok {
			source = "rewind:" + from
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			cp.Version,
			source,
			cp.Next,
			cp.State.RetryCount,
			yesNo(cp.State.DraftAnswer != nil),
			yesNo(cp.State.Accepted()),
			cp.CreatedAt.Local().Format(time.DateTime),
		)
	}
	_ = tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

// =============================================================================
// ⏪ rewind 命令
// =============================================================================

func runRewind(args []string, stdout, stderr io.Writer) int {
	fs, cf := newFlagSet("rewind", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(stderr, "usage: researchflow rewind <thread-id> <version>")
		return 2
	}
	threadID := fs.Arg(0)
	version, err := strconv.Atoi(fs.Arg(1))
	if err != nil || version <= 0 {
		fmt.Fprintf(stderr, "invalid version %q\n", fs.Arg(1))
		return 2
	}

	return withCheckpoints(cf.configPath, stderr, func(ctx context.Context, mgr *workflow.CheckpointManager) error {
		cp, err := mgr.Rollback(ctx, threadID, version)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Thread %s rewound to version %d (new version %d, next node: %s).\n",
			threadID, version, cp.Version, cp.Next)
		return nil
	})
}

// =============================================================================
// 🗑️ forget 命令
// =============================================================================

func runForget(args []string, stdout, stderr io.Writer) int {
	fs, cf := newFlagSet("forget", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	threadID, err := resolveThreadID(fs.Args())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	return withCheckpoints(cf.configPath, stderr, func(ctx context.Context, mgr *workflow.CheckpointManager) error {
		if err := mgr.DeleteThread(ctx, threadID); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Thread %s forgotten.\n", threadID)
		return nil
	})
}
