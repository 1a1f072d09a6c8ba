package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rtsched/internal/ctxlog"
	"rtsched/internal/graph"
	"rtsched/internal/model"
	"rtsched/internal/sched"
	"rtsched/internal/ui"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
	flagAlgorithm string
	flagMode      string
	flagNodeType  string
	flagJSON      bool
	flagCSV       string
	flagEvents    string
	flagVerify    bool
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rtsched",
		Short: "Compute static schedules for real-time task graphs",
		Long: `rtsched reads an application model (tasks with wcet and deadline, plus
precedence messages) and a platform model (nodes), and computes static
non-preemptive schedules with LDF, EDF or least-laxity placement.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(flagLogLevel, flagLogFormat, stderr)
			if err != nil {
				return err
			}
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(algorithmsCmd())
	return rootCmd
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule MODEL.json",
		Short: "Schedule a model with one or all algorithms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := ctxlog.FromContext(ctx)

			m, err := model.Load(args[0])
			if err != nil {
				return err
			}

			cfg, err := buildConfig()
			if err != nil {
				return err
			}

			var opts []sched.Option
			if cfg.EventLog != "" {
				events := sched.NewEventLog()
				if err := events.EnableCSVLogging(cfg.EventLog); err != nil {
					return err
				}
				defer func() {
					if err := events.Close(); err != nil {
						logger.Error("Closing event log failed.", "path", cfg.EventLog, "error", err)
					}
				}()
				opts = append(opts, sched.WithObserver(events))
			}
			s := sched.New(cfg, opts...)

			outcomes, err := runAlgorithms(ctx, s, m)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), m, outcomes)
		},
	}

	cmd.Flags().StringVarP(&flagAlgorithm, "algorithm", "a", "all", "Algorithm name or 'all' (see 'rtsched algorithms')")
	cmd.Flags().StringVar(&flagMode, "mode", "", "Strictness: lenient or strict (overrides config)")
	cmd.Flags().StringVar(&flagNodeType, "node-type", "", "Node type eligible for placement (overrides config)")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	cmd.Flags().StringVar(&flagCSV, "csv", "", "Write the schedule as CSV to this file (single algorithm only)")
	cmd.Flags().StringVar(&flagEvents, "events", "", "Write placement events as CSV to this file (overrides config)")
	cmd.Flags().BoolVar(&flagVerify, "verify", false, "Check every schedule against duration, deadline, precedence and node laws")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate MODEL.json",
		Short: "Load a model and check its precedence graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := model.Load(args[0])
			if err != nil {
				return err
			}
			g, err := graph.Build(m.Application.Tasks, m.Application.Messages)
			if err != nil {
				return err
			}
			if cycle := g.DetectCycle(); cycle != nil {
				return &sched.CyclicDependencyError{Cycle: cycle}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d tasks, %d messages, %d nodes\n",
				ui.Green("✓"), g.TaskCount(), len(m.Application.Messages), len(m.Platform.Nodes))
			return nil
		},
	}
}

func algorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List available algorithms",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, a := range sched.Algorithms {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", a, a.Name())
			}
		},
	}
}

// buildConfig loads the config file and applies flag overrides.
func buildConfig() (sched.Config, error) {
	cfg, err := sched.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagMode != "" {
		mode, ok := sched.ParseMode(flagMode)
		if !ok {
			return cfg, fmt.Errorf("invalid --mode %q: must be 'lenient' or 'strict'", flagMode)
		}
		cfg.Mode = mode
	}
	if flagNodeType != "" {
		cfg.NodeType = flagNodeType
	}
	if flagEvents != "" {
		cfg.EventLog = flagEvents
	}
	return cfg, nil
}

func runAlgorithms(ctx context.Context, s *sched.Scheduler, m *model.Model) ([]sched.Outcome, error) {
	if strings.EqualFold(flagAlgorithm, "all") {
		if flagCSV != "" {
			return nil, errors.New("--csv needs a single --algorithm")
		}
		return s.RunAll(ctx, &m.Application, &m.Platform)
	}

	alg, err := sched.ParseAlgorithm(flagAlgorithm)
	if err != nil {
		return nil, err
	}
	res, err := s.Run(ctx, alg, &m.Application, &m.Platform)
	return []sched.Outcome{{Algorithm: alg, Result: res, Err: err}}, nil
}

// report prints outcomes and returns an error when any algorithm failed or,
// with --verify, produced a schedule that breaks a law.
func report(w io.Writer, m *model.Model, outcomes []sched.Outcome) error {
	var failed []string
	var results []*sched.Result

	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", o.Algorithm, o.Err))
			if !flagJSON {
				ui.PrintFailure(w, o.Algorithm.Name(), o.Err)
			}
			continue
		}
		if flagVerify {
			if err := o.Result.Verify(&m.Application); err != nil {
				failed = append(failed, fmt.Sprintf("%s: verify: %v", o.Algorithm, err))
			}
		}
		results = append(results, o.Result)
		if !flagJSON {
			ui.PrintResult(w, o.Result, len(m.Application.Tasks))
		}
	}

	if flagJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		var err error
		if len(outcomes) == 1 && len(results) == 1 {
			err = enc.Encode(results[0])
		} else if len(outcomes) > 1 {
			if results == nil {
				results = []*sched.Result{}
			}
			err = enc.Encode(results)
		}
		if err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
	}

	if flagCSV != "" && len(results) == 1 {
		if err := writeCSV(flagCSV, results[0]); err != nil {
			return err
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d algorithm(s) failed:\n  %s", len(failed), strings.Join(failed, "\n  "))
	}
	return nil
}

func writeCSV(path string, res *sched.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create CSV: %w", err)
	}
	if err := res.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write CSV: %w", err)
	}
	return f.Close()
}

// newLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances.
func newLogger(levelStr, formatStr string, outW io.Writer) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid --log-level %q: must be 'debug', 'info', 'warn', or 'error'", levelStr)
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(formatStr) {
	case "json":
		return slog.New(slog.NewJSONHandler(outW, handlerOpts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(outW, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: must be 'text' or 'json'", formatStr)
	}
}
