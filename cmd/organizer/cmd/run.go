package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cbr9/organizer/internal/notify"
	"github.com/cbr9/organizer/internal/notify/redis"
	"github.com/cbr9/organizer/internal/notify/webhook"
	"github.com/cbr9/organizer/internal/pipeline"
)

// RunCommand returns the run command, which (like undo) can mutate the
// filesystem. Every run is a dry run unless --apply is given.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Compile and execute one or more rules",
		UsageText: `organizer run [--rule NAME] [--tag TAG ...] [--apply] \
    [--rules-dir DIR] [--connections FILE] [--journal FILE] [-- key=value ...]`,
		Flags: append(sourceFlags(),
			&cli.StringFlag{
				Name:  "rule",
				Usage: "Run only the named rule (default: every rule, optionally filtered by --tag)",
			},
			&cli.StringSliceFlag{
				Name:  "tag",
				Usage: "Run only rules carrying this tag (repeatable, OR semantics)",
			},
			&cli.BoolFlag{
				Name:  "apply",
				Usage: "Perform real mutations. Without this flag, run is a dry run: destinations are recorded but never written",
			},
			&cli.StringFlag{
				Name:  "notify-webhook",
				Usage: "POST a run-completion summary to this URL when the run ends",
			},
			&cli.StringFlag{
				Name:  "notify-redis",
				Usage: "PUBLISH a run-completion summary to this Redis URL when the run ends",
			},
		),
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	dryRun := !c.Bool("apply")

	adapters, err := buildNotifyAdapters(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer closeNotifyAdapters(adapters)

	b, err := bootstrapRun(c, dryRun)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer b.Close()

	rules, err := selectRules(b.Compiler, b.Builders, c.String("rule"), c.StringSlice("tag"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if len(rules) == 0 {
		return cli.Exit("no rule matched the given selection", 1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	args := parseArgs(c.Args().Slice())

	config, err := json.Marshal(struct {
		Version string            `json:"version"`
		DryRun  bool              `json:"dry_run"`
		Rule    string            `json:"rule,omitempty"`
		Tags    []string          `json:"tags,omitempty"`
		Args    map[string]string `json:"args,omitempty"`
	}{Version: Version, DryRun: dryRun, Rule: c.String("rule"), Tags: c.StringSlice("tag"), Args: args})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	eng := pipeline.NewEngine(b.Services)
	eng.Args = args
	eng.Config = b.Config
	eng.DryRun = dryRun
	result, runErr := eng.Run(ctx, rules, string(config))
	if result != nil {
		publishRunCompleted(ctx, adapters, result, runErr)
	}
	if runErr != nil {
		if result != nil {
			fmt.Fprintf(os.Stderr, "session %d: %d/%d rules completed\n", result.SessionID, result.RulesRun, result.RulesRun+result.RulesFailed)
		}
		return cli.Exit(runErr.Error(), 1)
	}

	fmt.Printf("session %d: %d rule(s) completed in %s\n", result.SessionID, result.RulesRun, result.Duration)
	return nil
}

// buildNotifyAdapters constructs the notify.Adapter set selected by
// --notify-webhook/--notify-redis. Either, both, or neither may be set.
func buildNotifyAdapters(c *cli.Context) ([]notify.Adapter, error) {
	var adapters []notify.Adapter

	if url := c.String("notify-webhook"); url != "" {
		a, err := webhook.New(webhook.Config{URL: url, Retries: webhook.DefaultRetries})
		if err != nil {
			return nil, fmt.Errorf("notify-webhook: %w", err)
		}
		adapters = append(adapters, a)
	}
	if url := c.String("notify-redis"); url != "" {
		a, err := redis.New(redis.Config{URL: url, Retries: redis.DefaultRetries})
		if err != nil {
			closeNotifyAdapters(adapters)
			return nil, fmt.Errorf("notify-redis: %w", err)
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

func closeNotifyAdapters(adapters []notify.Adapter) {
	for _, a := range adapters {
		_ = a.Close()
	}
}

// publishRunCompleted notifies every configured adapter of the run's
// outcome. A notification failure is logged to stderr but never fails
// the run itself: notification is best-effort.
func publishRunCompleted(ctx context.Context, adapters []notify.Adapter, result *pipeline.RunResult, runErr error) {
	if len(adapters) == 0 {
		return
	}

	// A canceled run context must not also cancel the notification: the
	// operator still wants to hear that the run was interrupted.
	canceled := ctx.Err() != nil
	if canceled {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	status := "ok"
	switch {
	case runErr != nil && canceled:
		status = "canceled"
	case runErr != nil:
		status = "error"
	}

	event := &notify.RunCompletedEvent{
		SessionID:        result.SessionID,
		Status:           status,
		DryRun:           result.Metrics.DryRun,
		RulesRun:         result.RulesRun,
		RulesFailed:      result.RulesFailed,
		ResourcesMoved:   result.Metrics.ResourcesMoved,
		ResourcesCopied:  result.Metrics.ResourcesCopied,
		ResourcesDeleted: result.Metrics.ResourcesDeleted,
		ResourcesLinked:  result.Metrics.ResourcesLinked,
		ResourcesFailed:  result.Metrics.ResourcesFailed,
		BytesTransferred: result.Metrics.BytesTransferred,
		DurationMs:       result.Duration.Milliseconds(),
		Timestamp:        notify.Timestamp(time.Now()),
	}

	for _, a := range adapters {
		if err := a.Publish(ctx, event); err != nil {
			fmt.Fprintf(os.Stderr, "notify: %v\n", err)
		}
	}
}

// parseArgs turns trailing `key=value` CLI arguments into the map a rule's
// `{{ args.KEY }}` template variable resolves against.
func parseArgs(raw []string) map[string]string {
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}
