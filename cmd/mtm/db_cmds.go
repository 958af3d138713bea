package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"moral-torture-machine/internal/database"
	"moral-torture-machine/internal/repository"
	"moral-torture-machine/internal/seed"
	"moral-torture-machine/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}
	run := func(action func(*database.Migrator) error) func(*cobra.Command, []string) error {
		return func(*cobra.Command, []string) error {
			dsn, err := a.requireDSN()
			if err != nil {
				return err
			}
			return action(database.NewMigrator(dsn, a.log))
		}
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: run(func(m *database.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				a.out.Info().Msg("Schema is up to date")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE: run(func(m *database.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				a.out.Info().Msg("Schema rolled back")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: run(func(m *database.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				a.out.Info().Uint("version", version).Bool("dirty", dirty).Msg("Schema version")
				return nil
			}),
		},
	)
	return cmd
}

// withAdmin connects to the configured database and runs fn with an admin service over it.
func (a *app) withAdmin(ctx context.Context, fn func(service.AdminService) error) error {
	dsn, err := a.requireDSN()
	if err != nil {
		return err
	}
	if err := database.NewMigrator(dsn, a.log).Up(); err != nil {
		return err
	}
	pool, err := a.connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()
	dilemmas, flows := pgRepositories(pool, a)
	return fn(service.NewAdminService(dilemmas, flows, a.log))
}

func pgRepositories(pool *pgxpool.Pool, a *app) (repository.DilemmaRepository, repository.StoryFlowRepository) {
	return repository.NewPgDilemmaRepository(pool, a.log), repository.NewPgStoryFlowRepository(pool, a.log)
}

func (a *app) seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load dilemmas or story flows from JSON files",
		Long: `Load dilemmas or story flows from JSON files.

Ids are suffixed with the language ("trolley" becomes "trolley-it"), the
original id is kept as baseId and vote counts start at zero.`,
	}

	seedFile := func(kind seed.Kind) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			lang, err := a.lang()
			if err != nil {
				return err
			}
			return a.withAdmin(cmd.Context(), func(admin service.AdminService) error {
				res, err := seed.NewLoader(admin, a.log).LoadFile(cmd.Context(), seed.File{Path: args[0], Kind: kind, Language: lang})
				if err != nil {
					return err
				}
				a.out.Info().Str("file", args[0]).Str("kind", string(kind)).Str("language", lang).Int("imported", res.Imported).Msg("Seeded")
				return nil
			})
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "dilemmas <file>",
			Short: "Load a JSON array of dilemmas",
			Args:  cobra.ExactArgs(1),
			RunE:  seedFile(seed.KindDilemmas),
		},
		&cobra.Command{
			Use:   "stories <file>",
			Short: "Load a JSON array of story flows",
			Args:  cobra.ExactArgs(1),
			RunE:  seedFile(seed.KindStoryFlows),
		},
		&cobra.Command{
			Use:   "dir <directory>",
			Short: "Load every dilemmas_<lang>.json and story_flows_<lang>.json in a directory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withAdmin(cmd.Context(), func(admin service.AdminService) error {
					results, err := seed.NewLoader(admin, a.log).LoadDir(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					for _, r := range results {
						a.out.Info().Str("file", r.File.Path).Str("language", r.File.Language).Int("imported", r.Imported).Msg("Seeded")
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:       "clear dilemmas|stories",
		Short:     "Delete dilemmas or story flows",
		Long:      `Delete dilemmas or story flows of one language, or of every language when --language is not given.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"dilemmas", "stories"},
		RunE: func(cmd *cobra.Command, args []string) error {
			lang := ""
			scope := "every language"
			if cmd.Flags().Changed("language") {
				var err error
				if lang, err = a.lang(); err != nil {
					return err
				}
				scope = "language " + lang
			}
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete all %s of %s?", args[0], scope)) {
				a.out.Warn().Msg("Aborted")
				return nil
			}
			return a.withAdmin(cmd.Context(), func(admin service.AdminService) error {
				var (
					deleted int64
					err     error
				)
				if args[0] == "dilemmas" {
					deleted, err = admin.DeleteDilemmas(cmd.Context(), lang)
				} else {
					deleted, err = admin.DeleteStoryFlows(cmd.Context(), lang)
				}
				if err != nil {
					return err
				}
				a.out.Info().Str("table", args[0]).Str("scope", scope).Int64("deleted", deleted).Msg("Cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question and accepts only y or yes.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (a *app) copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <source-dsn> <target-dsn>",
		Short: "Copy every dilemma and story flow between two databases",
		Long:  `Copy every dilemma and story flow, vote counts included, from one database to another. The target schema is migrated first.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := database.NewMigrator(args[1], a.log).Up(); err != nil {
				return err
			}
			src, err := a.connect(ctx, args[0])
			if err != nil {
				return fmt.Errorf("source: %w", err)
			}
			defer src.Close()
			dst, err := a.connect(ctx, args[1])
			if err != nil {
				return fmt.Errorf("target: %w", err)
			}
			defer dst.Close()

			srcDilemmas, srcFlows := pgRepositories(src, a)
			dstDilemmas, dstFlows := pgRepositories(dst, a)
			res, err := copyContent(ctx, srcDilemmas, srcFlows, dstDilemmas, dstFlows)
			if err != nil {
				return err
			}
			a.out.Info().Int("dilemmas", res.Dilemmas).Int("storyFlows", res.StoryFlows).Msg("Copied")
			return nil
		},
	}
}

type copyResult struct {
	Dilemmas   int
	StoryFlows int
}

func copyContent(ctx context.Context,
	srcDilemmas repository.DilemmaRepository, srcFlows repository.StoryFlowRepository,
	dstDilemmas repository.DilemmaRepository, dstFlows repository.StoryFlowRepository,
) (copyResult, error) {
	var res copyResult
	dilemmas, err := srcDilemmas.List(ctx, "")
	if err != nil {
		return res, fmt.Errorf("failed to read source dilemmas: %w", err)
	}
	if len(dilemmas) > 0 {
		if res.Dilemmas, err = dstDilemmas.Upsert(ctx, dilemmas); err != nil {
			return res, fmt.Errorf("failed to write dilemmas: %w", err)
		}
	}
	flows, err := srcFlows.List(ctx, "")
	if err != nil {
		return res, fmt.Errorf("failed to read source story flows: %w", err)
	}
	if len(flows) > 0 {
		if res.StoryFlows, err = dstFlows.Upsert(ctx, flows); err != nil {
			return res, fmt.Errorf("failed to write story flows: %w", err)
		}
	}
	return res, nil
}
