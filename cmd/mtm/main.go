// Command mtm is the operator and player tool of the Moral Torture Machine.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moral-torture-machine/internal/config"
	"moral-torture-machine/internal/database"
	"moral-torture-machine/internal/logger"
	"moral-torture-machine/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is shared by every subcommand. It is filled in by the root PersistentPreRunE.
type app struct {
	configPath string
	language   string
	apiURL     string
	dsn        string

	cfg *config.CLIConfig
	out zerolog.Logger
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "mtm",
		Short:         "Moral Torture Machine CLI",
		Long:          `Play the Moral Torture Machine in the terminal and manage its database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultCLIConfigPath()+")")
	root.PersistentFlags().StringVarP(&a.language, "language", "l", "", "language code (en, it, ...)")
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "API server URL")
	root.PersistentFlags().StringVar(&a.dsn, "dsn", "", "PostgreSQL connection string")

	root.AddCommand(
		a.migrateCmd(),
		a.seedCmd(),
		a.clearCmd(),
		a.copyCmd(),
		a.playCmd(),
		a.storyCmd(),
		a.infiniteCmd(),
		a.passCmd(),
		a.profileCmd(),
		a.tokenCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadCLI(a.configPath)
	if err != nil {
		return err
	}
	if a.language != "" {
		cfg.Language = a.language
	}
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
	}
	if a.dsn != "" {
		cfg.DSN = a.dsn
	}
	a.cfg = cfg

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	// Command results are reported at info level even when internals log at warn.
	a.out = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(min(level, zerolog.InfoLevel)).
		With().Timestamp().Logger()

	a.log, err = logger.New(logger.Config{Level: cfg.LogLevel, Format: logger.FormatConsole, Output: "stderr"})
	return err
}

// lang returns the validated language of the command.
func (a *app) lang() (string, error) {
	lang := a.cfg.Language
	if lang == "" {
		lang = service.DefaultLanguage
	}
	if err := service.ValidateLanguage(lang); err != nil {
		return "", err
	}
	return lang, nil
}

// requireDSN returns the database connection string or an error naming how to set it.
func (a *app) requireDSN() (string, error) {
	if a.cfg.DSN == "" {
		return "", errors.New("no database configured: pass --dsn or set MTM_DATABASE_URL")
	}
	return a.cfg.DSN, nil
}

func (a *app) connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return database.Connect(ctx, database.PoolConfig{DSN: dsn, MaxConns: 4}, a.log)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
