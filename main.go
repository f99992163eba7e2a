package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/internal/logging"
	"github.com/sadewadee/marketing-engine/internal/migration"
	"github.com/sadewadee/marketing-engine/runner"
	"github.com/sadewadee/marketing-engine/runner/computerunner"
	"github.com/sadewadee/marketing-engine/runner/managerrunner"
	"github.com/sadewadee/marketing-engine/runner/planrunner"
	"github.com/sadewadee/marketing-engine/runner/workerrunner"
)

const dateLayout = "2006-01-02"

var (
	configPath string
	cfg        *runner.Config
	logger     *zap.Logger

	rootCmd = &cobra.Command{
		Use:   "marketing-engine",
		Short: "Campaign plans and search visibility metrics",
		Long: `marketing-engine generates rule-based paid campaign plans and computes
search visibility metrics (organic presence, map pack, share of voice and
SERP features) for every tracked business.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	managerCmd = &cobra.Command{
		Use:   "manager",
		Short: "Serve the HTTP API and schedule metric runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := managerrunner.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), r)
		},
	}

	workerCmd = &cobra.Command{
		Use:   "worker",
		Short: "Consume metric jobs from RabbitMQ or Redis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := workerrunner.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), r)
		},
	}

	planInput planrunner.Config
	planCmd   = &cobra.Command{
		Use:   "plan",
		Short: "Generate a campaign plan and print it as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			planInput.GeminiAPIKey = cfg.GeminiAPIKey
			planInput.GeminiModel = cfg.GeminiModel
			planInput.Output = cmd.OutOrStdout()
			planInput.Stdin = cmd.InOrStdin()

			r, err := planrunner.New(cmd.Context(), &planInput, logger)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), r)
		},
	}

	computeStart string
	computeEnd   string
	computeCmd   = &cobra.Command{
		Use:   "compute",
		Short: "Compute visibility metrics for every active business once",
		Long: `compute runs one batch for the previous complete period, or for
--start..--end when both are given. --end is inclusive.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := parseRange(computeStart, computeEnd)
			if err != nil {
				return err
			}

			r, err := computerunner.New(cmd.Context(), cfg, &computerunner.Config{
				PeriodType: cfg.PeriodType,
				Start:      start,
				End:        end,
				Output:     cmd.OutOrStdout(),
			}, logger)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), r)
		},
	}

	migrateStatus bool
	migrateCmd    = &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE:  migrate,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to a YAML config file")
	pf.String("dsn", "", "PostgreSQL URL or SQLite file path (env DATABASE_URL)")
	pf.String("log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	pf.Bool("log-json", false, "log as JSON")
	pf.String("period", "", "period type: daily, weekly, monthly")

	managerCmd.Flags().String("addr", "", "address to listen on (env ADDR)")
	managerCmd.Flags().Duration("schedule-interval", 0, "interval between scheduled runs, 0 disables the scheduler")
	managerCmd.Flags().Int("batch-concurrency", 0, "businesses computed at once")

	workerCmd.Flags().Int("concurrency", 0, "jobs processed at once")

	planCmd.Flags().StringVar(&planInput.InputFile, "input", "", `JSON campaign input file, "-" for stdin`)
	planCmd.Flags().StringVar((*string)(&planInput.Input.Vertical), "vertical", "", "business vertical")
	planCmd.Flags().StringVar((*string)(&planInput.Input.Objective), "objective", "", "campaign objective")
	planCmd.Flags().Float64Var(&planInput.Input.Budget, "budget", 0, "monthly budget")
	planCmd.Flags().StringVar(&planInput.Input.Currency, "currency", "", "ISO 4217 currency code")
	planCmd.Flags().StringVar(&planInput.Input.BrandName, "brand", "", "brand name used to adapt campaign copy")

	computeCmd.Flags().StringVar(&computeStart, "start", "", "first day of the window (YYYY-MM-DD)")
	computeCmd.Flags().StringVar(&computeEnd, "end", "", "last day of the window (YYYY-MM-DD)")
	computeCmd.Flags().Int("batch-concurrency", 0, "businesses computed at once")

	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "print the migration state and exit")

	rootCmd.AddCommand(managerCmd, workerCmd, planCmd, computeCmd, migrateCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	cancel()
	runner.Telemetry().Close()

	if err != nil {
		os.Exit(1)
	}
}

// setup loads the config file, applies env then flag overrides and builds the logger
func setup(cmd *cobra.Command, _ []string) error {
	var err error

	cfg, err = runner.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return err
	}

	if cfg.DisableTelemetry {
		runner.DisableTelemetry()
	}

	if cmd != planCmd {
		runner.Banner()
	}

	return nil
}

// applyFlags copies explicitly set flags over the loaded config
func applyFlags(cmd *cobra.Command, c *runner.Config) error {
	flags := cmd.Flags()

	var errs []error
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			v, err := flags.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}

	str("dsn", &c.DatabaseURL)
	str("log-level", &c.LogLevel)
	str("addr", &c.Addr)

	if flags.Changed("period") {
		v, err := flags.GetString("period")
		errs = append(errs, err)
		c.PeriodType = domain.PeriodType(v)
	}

	if flags.Changed("log-json") {
		v, err := flags.GetBool("log-json")
		errs = append(errs, err)
		c.LogJSON = v
	}

	if flags.Changed("schedule-interval") {
		v, err := flags.GetDuration("schedule-interval")
		errs = append(errs, err)
		c.ScheduleInterval = v
	}

	if flags.Changed("batch-concurrency") {
		v, err := flags.GetInt("batch-concurrency")
		errs = append(errs, err)
		c.BatchConcurrency = v
	}

	if flags.Changed("concurrency") {
		v, err := flags.GetInt("concurrency")
		errs = append(errs, err)
		c.WorkerConcurrency = v
	}

	return errors.Join(errs...)
}

// parseRange turns inclusive YYYY-MM-DD bounds into a half-open UTC window.
// Both empty means the caller falls back to the previous complete period.
func parseRange(start, end string) (time.Time, time.Time, error) {
	if start == "" && end == "" {
		return time.Time{}, time.Time{}, nil
	}
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, errors.New("--start and --end must be given together")
	}

	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
	}

	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
	}

	e = e.AddDate(0, 0, 1)
	if !e.After(s) {
		return time.Time{}, time.Time{}, errors.New("--end must not be before --start")
	}

	return s, e, nil
}

func execute(ctx context.Context, r runner.Runner) error {
	err := r.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	return errors.Join(err, r.Close(context.Background()))
}

func migrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	db, dialect, err := runner.OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrateStatus {
		state, err := migration.DetectState(ctx, db, dialect)
		if err != nil {
			return err
		}

		version, err := migration.Version(ctx, db, dialect)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "dialect: %s\nstate: %s\nversion: %d\n", dialect, state, version)

		return nil
	}

	return migration.AutoMigrate(ctx, db, dialect, logger)
}
