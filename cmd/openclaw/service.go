package main

import (
	"context"
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/JakkuSakura/openclaw/internal/config"
)

// svcProgram adapts app's Run/Close to kardianos/service's Interface, so
// the gateway process (HTTP status/metrics + MCP stdio, when enabled)
// can run unattended under systemd/launchd/Windows services alongside
// cron(8).
type svcProgram struct {
	cfg    *config.Config
	app    *app
	cancel context.CancelFunc
}

func (p *svcProgram) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	logger := newLogger(p.cfg)
	a, err := newApp(ctx, p.cfg, logger)
	if err != nil {
		cancel()
		return fmt.Errorf("openclaw: building app: %w", err)
	}
	p.app = a

	go func() {
		if runErr := a.Run(ctx); runErr != nil {
			logger.Error("gateway exited", "error", runErr)
		}
	}()
	return nil
}

func (p *svcProgram) Stop(s service.Service) error {
	if p.app != nil {
		p.app.Close(context.Background())
	}
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage openclaw as an OS service",
	}

	run := func(action string) func(cmd *cobra.Command, _ []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")

			svcCfg := &service.Config{
				Name:        "openclaw",
				DisplayName: "openclaw cron gateway",
				Description: "Crontab-backed job scheduler gateway (HTTP status/metrics, MCP stdio)",
			}
			if cfgPath != "" {
				svcCfg.Arguments = []string{"start", "--config", cfgPath}
			} else {
				svcCfg.Arguments = []string{"start"}
			}

			var cfg *config.Config
			if action == "start" || action == "run" {
				loaded, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			prg := &svcProgram{cfg: cfg}
			svc, err := service.New(prg, svcCfg)
			if err != nil {
				return fmt.Errorf("openclaw: constructing service: %w", err)
			}

			switch action {
			case "install":
				return svc.Install()
			case "uninstall":
				return svc.Uninstall()
			case "start":
				return svc.Start()
			case "stop":
				return svc.Stop()
			case "status":
				st, err := svc.Status()
				if err != nil {
					return err
				}
				fmt.Println(serviceStatusString(st))
				return nil
			case "run":
				return svc.Run()
			}
			return fmt.Errorf("openclaw: unknown service action %q", action)
		}
	}

	for _, action := range []string{"install", "uninstall", "start", "stop", "status"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the openclaw service", action),
			RunE:  run(action),
		})
	}
	// "run" is invoked by the OS service manager itself (not typically by
	// an operator); it blocks in the foreground as the service manager
	// expects, handing lifecycle control to svcProgram.Start/Stop.
	cmd.AddCommand(&cobra.Command{
		Use:    "run",
		Short:  "Run in the foreground under the service manager",
		Hidden: true,
		RunE:   run("run"),
	})

	return cmd
}

func serviceStatusString(st service.Status) string {
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
