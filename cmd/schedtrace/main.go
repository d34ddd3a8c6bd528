// schedtrace inspects, validates, and replays persisted schedule traces.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/schedkit/autosched/ir"
	"github.com/schedkit/autosched/logger"
	"github.com/schedkit/autosched/schedule"
	"github.com/schedkit/autosched/trace"
)

func main() {
	app := &cli.Command{
		Name:  "schedtrace",
		Usage: "Inspect, validate, and replay schedule traces",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: "info",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			showCmd(),
			validateCmd(),
			replayCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadTrace(path string) (*trace.Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	return trace.Decode(data)
}

func showCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Pretty-print the steps of a trace file",
		ArgsUsage: "<trace.json>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("show expects exactly one trace file")
			}
			t, err := loadTrace(cmd.Args().First())
			if err != nil {
				return err
			}
			fmt.Print(t.String())
			return nil
		},
	}
}

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check a trace file for unknown opcodes, dangling references, and malformed attributes",
		ArgsUsage: "<trace.json>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("validate expects exactly one trace file")
			}
			t, err := loadTrace(cmd.Args().First())
			if err != nil {
				return err
			}
			if err := t.Validate(); err != nil {
				return err
			}
			fmt.Printf("ok: %d steps\n", t.Len())
			return nil
		},
	}
}

func replayCmd() *cli.Command {
	return &cli.Command{
		Name:  "replay",
		Usage: "Replay a trace against a loop nest and print the resulting IR",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "trace",
				Usage:    "Trace file to replay",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "nest",
				Usage:    "JSON loop-nest description to replay against",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.JSON(os.Stderr, logger.ParseLevel(cmd.String("log-level")))

			t, err := loadTrace(cmd.String("trace"))
			if err != nil {
				return err
			}
			if err := t.Validate(); err != nil {
				return err
			}
			data, err := os.ReadFile(cmd.String("nest"))
			if err != nil {
				return fmt.Errorf("reading nest: %w", err)
			}
			arena, err := ir.DecodeNest(data)
			if err != nil {
				return err
			}

			sch := schedule.New(arena)
			if _, err := t.Replay(sch); err != nil {
				return err
			}
			log.Debug("replay finished", "steps", t.Len())
			fmt.Print(sch.String())
			return nil
		},
	}
}
