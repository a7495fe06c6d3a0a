package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/JakkuSakura/openclaw/internal/cron"
	"github.com/JakkuSakura/openclaw/internal/rpc"
)

// cronCmd groups the job-management subcommands. `run` is the one and
// only caller of rpc.Facade.Run with mode="force" from outside a test;
// it is the argv crontab(5) execution lines actually invoke. The others
// (list/add/remove/runs/status/lint) exist for operator convenience and
// exercise the same facade the gateway and MCP server use, rather than
// talking to the crontab directly.
func cronCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Manage and run cron jobs",
	}
	cmd.AddCommand(cronRunCmd(), cronListCmd(), cronAddCmd(), cronRemoveCmd(), cronRunsCmd(), cronStatusCmd(), cronLintCmd())
	return cmd
}

func cronRunCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "run <jobId>",
		Short: "Dispatch a job now",
		Long: "Dispatch a job now. This is the command crontab(5) execution lines\n" +
			"actually invoke; --force (the default) bypasses the run gate so the\n" +
			"job fires unconditionally, matching what cron(8) expects of its own\n" +
			"scheduled invocation.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			app, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			mode := cron.RunModeDue
			if force {
				mode = cron.RunModeForce
			}

			result, rpcErr := app.facade.Run(cmd.Context(), rpc.RunParams{ID: args[0], Mode: mode})
			if rpcErr != nil {
				return rpcErr
			}
			return printJSON(result)
		},
	}
	cmd.Flags().BoolVar(&force, "force", true, "bypass the due-check and run unconditionally")
	return cmd
}

func cronListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cron jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			app, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			result, rpcErr := app.facade.List(cmd.Context(), rpc.ListParams{IncludeDisabled: true})
			if rpcErr != nil {
				return rpcErr
			}
			if asJSON {
				return printJSON(result)
			}
			return printJobTable(result.Jobs)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON result instead of a table")
	return cmd
}

func printJobTable(jobs []cron.Job) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSCHEDULE\tENABLED\tNEXT RUN")
	for _, j := range jobs {
		expr := j.Schedule.Expr
		if r := cron.Resolve(j.Schedule); r.OK {
			expr = r.Expr
		}
		next := "-"
		if j.State.NextRunAtMs != nil {
			next = time.UnixMilli(*j.State.NextRunAtMs).Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n", j.ID, j.Name, cron.Describe(expr), j.Enabled, next)
	}
	return w.Flush()
}

func cronLintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Report non-fatal problems in the crontab's managed lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			app, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			snap, err := app.facade.Store.Read(cmd.Context())
			if err != nil {
				return err
			}

			warnings := cron.Lint(strings.Join(snap.Lines, "\n"))
			warnings = append(warnings, snap.Errors...)
			if len(warnings) == 0 {
				fmt.Println("crontab is clean")
				return nil
			}
			for _, warning := range warnings {
				fmt.Println(warning)
			}
			return nil
		},
	}
	return cmd
}

func cronAddCmd() *cobra.Command {
	var jobJSON string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a job, from a JSON job specification or interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var p rpc.AddParams
			if jobJSON == "" {
				prompted, err := promptAddParams()
				if err != nil {
					return err
				}
				p = prompted
			} else if err := json.Unmarshal([]byte(jobJSON), &p); err != nil {
				return fmt.Errorf("openclaw: parsing --job: %w", err)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			app, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			job, rpcErr := app.facade.Add(cmd.Context(), p)
			if rpcErr != nil {
				return rpcErr
			}
			return printJSON(job)
		},
	}
	cmd.Flags().StringVar(&jobJSON, "job", "", "JSON job specification (omit to be prompted)")
	return cmd
}

// promptAddParams collects a job definition through an interactive form,
// for operators who don't want to hand-write the --job JSON document.
func promptAddParams() (rpc.AddParams, error) {
	var (
		name    string
		expr    string
		text    string
		target  = string(cron.SessionTargetMain)
		enabled = true
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Job name").
				Value(&name).
				Validate(huh.ValidateNotEmpty()),
			huh.NewInput().
				Title("Schedule (5-field cron expression)").
				Placeholder("*/5 * * * *").
				Value(&expr).
				Validate(func(s string) error {
					if r := cron.Resolve(cron.Schedule{Kind: cron.ScheduleKindCron, Expr: s}); !r.OK {
						return errors.New(r.Error)
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Session target").
				Options(huh.NewOptions(
					string(cron.SessionTargetMain),
					string(cron.SessionTargetIsolated),
				)...).
				Value(&target),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Payload (event text for main, agent message for isolated)").
				Value(&text).
				Validate(huh.ValidateNotEmpty()),
			huh.NewConfirm().
				Title("Enabled").
				Value(&enabled),
		),
	)
	if err := form.Run(); err != nil {
		return rpc.AddParams{}, fmt.Errorf("openclaw: collecting job: %w", err)
	}

	p := rpc.AddParams{
		Name:     name,
		Enabled:  &enabled,
		Schedule: cron.Schedule{Kind: cron.ScheduleKindCron, Expr: expr},
		WakeMode: cron.WakeModeNow,
	}
	if target == string(cron.SessionTargetIsolated) {
		p.SessionTarget = cron.SessionTargetIsolated
		p.Payload = cron.Payload{Kind: cron.PayloadKindAgentTurn, Message: text}
	} else {
		p.SessionTarget = cron.SessionTargetMain
		p.Payload = cron.Payload{Kind: cron.PayloadKindSystemEvent, Text: text}
	}
	return p, nil
}

func cronRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <jobId>",
		Short: "Delete a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			app, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			result, rpcErr := app.facade.Remove(cmd.Context(), args[0])
			if rpcErr != nil {
				return rpcErr
			}
			return printJSON(result)
		},
	}
	return cmd
}

func cronRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs <jobId>",
		Short: "Show a job's best-effort run history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			app, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			result, rpcErr := app.facade.Runs(cmd.Context(), rpc.RunsParams{ID: args[0]})
			if rpcErr != nil {
				return rpcErr
			}
			return printJSON(result)
		},
	}
	return cmd
}

func cronStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether any jobs are scheduled, and how many",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			app, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			result, rpcErr := app.facade.Status(cmd.Context())
			if rpcErr != nil {
				return rpcErr
			}
			return printJSON(result)
		},
	}
	return cmd
}

// schedulerCmd exposes the scheduler.status diagnostic: the raw output of
// the same crontab/systemctl probes an operator would run by hand.
func schedulerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Inspect the host's scheduling machinery",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Capture crontab -l and systemctl timer/unit listings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			app, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())

			return printJSON(app.facade.SchedulerStatus(cmd.Context()))
		},
	})
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
