package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/healthpool/riskpool/cmd/riskpool/cli"
	"github.com/healthpool/riskpool/internal/app"
	"github.com/healthpool/riskpool/internal/auth"
	"github.com/healthpool/riskpool/internal/claims"
	"github.com/healthpool/riskpool/internal/platform/db"
	"github.com/healthpool/riskpool/internal/shared"
	"github.com/healthpool/riskpool/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	rootCmd := &cobra.Command{
		Use:          "riskpool",
		Short:        "Health insurance risk pool ledger",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), jobsCmd(), tokenCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			pool, err := db.New(cmd.Context(), cfg.PGDSN)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := db.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
	}
	trigger := &cobra.Command{
		Use:   "trigger <name>",
		Short: "Enqueue a job once (pool:integrity, membership:lapse_scan, claims:sweep)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jc, err := jobsCLI()
			if err != nil {
				return err
			}
			defer jc.Close()
			info, err := jc.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s\n", info.Type, info.ID)
			return nil
		},
	}
	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Show the default queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			size, _ := cmd.Flags().GetInt("size")
			jc, err := jobsCLI()
			if err != nil {
				return err
			}
			defer jc.Close()
			return jc.PrintInspection(cmd.Context(), cmd.OutOrStdout(), size)
		},
	}
	inspect.Flags().Int("size", 10, "Tasks listed per section")
	cmd.AddCommand(trigger, inspect)
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <address>",
		Short: "Issue a bearer token for a principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, _ := cmd.Flags().GetDuration("ttl")
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			principal, err := shared.ParsePrincipal(args[0])
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.JWTTTL
			}
			svc, err := auth.NewService(cfg.JWTSecret, cfg.JWTIssuer)
			if err != nil {
				return err
			}
			token, err := svc.Issue(principal, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to JWT_TTL)")
	return cmd
}

func jobsCLI() (*cli.JobsCLI, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	return cli.NewJobsCLI(cfg.RedisAddr), nil
}

func runServer(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return err
	}
	logger := app.NewLogger(cfg)

	var opts []app.Option
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	if claims.PayoutMode(cfg.PayoutMode) == claims.PayoutDeferred {
		client := jobs.NewClient(redisOpts)
		defer client.Close()
		opts = append(opts, app.WithScheduler(client))
	}

	a, err := app.Build(ctx, cfg, logger, opts...)
	if err != nil {
		logger.Error("build application", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close application", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      a.Handler(jobs.NewHandler(inspector, logger)),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("backend", cfg.StoreBackend),
			slog.String("payout_mode", cfg.PayoutMode),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		return err
	}
	return nil
}
