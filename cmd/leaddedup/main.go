// Command leaddedup scans a lead store for duplicates and merges them from the shell.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"crm_backend/internal/events"
	"crm_backend/internal/leads"
	"crm_backend/internal/leads/store"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"
	"crm_backend/platform/phone"
	"crm_backend/platform/validator"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	driver      string
	databaseURL string
	sqlitePath  string
	policyPath  string
	region      string
	timeout     time.Duration
	verbose     bool
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "leaddedup",
		Short:         "Find and merge duplicate leads",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.driver, "driver", envOr("STORE_DRIVER", config.StoreDriverSQLite), "store driver: postgres or sqlite")
	pf.StringVar(&flags.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	pf.StringVar(&flags.sqlitePath, "sqlite", envOr("SQLITE_PATH", "leads.db"), "sqlite database file")
	pf.StringVar(&flags.policyPath, "policy", os.Getenv("MERGE_POLICY_PATH"), "merge policy YAML (embedded default when empty)")
	pf.StringVar(&flags.region, "region", strings.ToUpper(envOr("PHONE_REGION", phone.DefaultRegion)), "region for numbers without a country prefix")
	pf.DurationVar(&flags.timeout, "timeout", 2*time.Minute, "overall command timeout")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newScanCmd(flags),
		newMergeCmd(flags),
		newMigrateCmd(flags),
		newImportCmd(flags),
		newStatsCmd(flags),
	)
	return root
}

// config builds the application config from flags. Thresholds and concurrency
// fall back to the same environment variables the API reads.
func (f *globalFlags) config() *config.Config {
	return &config.Config{
		Env:              "cli",
		StoreDriver:      f.driver,
		DatabaseURL:      f.databaseURL,
		SQLitePath:       f.sqlitePath,
		MergePolicyPath:  f.policyPath,
		DedupThreshold:   envFloat("DEDUP_THRESHOLD", 0.85),
		MergeConcurrency: envInt("MERGE_CONCURRENCY", 4),
	}
}

func (f *globalFlags) logger() *logger.Logger {
	if f.verbose {
		return logger.NewWithWriter("development", os.Stderr)
	}
	return logger.Discard()
}

// session is an open store with the leads module on top of it.
type session struct {
	handle *store.Handle
	svc    leads.Service
	bus    *events.InMemoryBus
	log    *logger.Logger
}

func (f *globalFlags) open(ctx context.Context, migrate bool) (*session, error) {
	cfg := f.config()
	log := f.logger()

	handle, err := store.Open(ctx, cfg, store.Options{Migrate: migrate}, log)
	if err != nil {
		return nil, err
	}

	bus := events.NewInMemoryBus(log)
	module, err := leads.NewModule(handle.Repo, bus, validator.New(), cfg, log)
	if err != nil {
		handle.Close()
		return nil, err
	}

	return &session{handle: handle, svc: module, bus: bus, log: log}, nil
}

// Close waits for event handlers (the merge audit log) before closing the store.
func (s *session) Close() {
	s.bus.Wait()
	s.handle.Close()
}

func (f *globalFlags) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, f.timeout)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
