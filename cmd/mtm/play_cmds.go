package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"moral-torture-machine/internal/authutils"
	"moral-torture-machine/internal/config"
	"moral-torture-machine/internal/models"
	"moral-torture-machine/internal/tui"
	"moral-torture-machine/pkg/client"
	"moral-torture-machine/pkg/profile"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// apiClient builds the HTTP client. Logs are discarded because they would
// tear the full screen UI.
func (a *app) apiClient(lang string) *client.Client {
	return client.New(a.cfg.APIURL, client.WithLanguage(lang), client.WithLogger(zap.NewNop()))
}

func (a *app) playCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Face five dilemmas and receive your moral profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lang, err := a.lang()
			if err != nil {
				return err
			}
			seen, err := client.OpenSeenStore(a.cfg.SeenFile)
			if err != nil {
				return err
			}
			if reset {
				if err := seen.Clear(lang); err != nil {
					return err
				}
			}
			session := client.NewSession(a.apiClient(lang), seen, lang, zap.NewNop())
			_, err = tea.NewProgram(tui.NewPlayModel(cmd.Context(), session), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "forget the dilemmas already seen in this language")
	return cmd
}

func (a *app) storyCmd() *cobra.Command {
	var flowID string
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Walk a branching story",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lang, err := a.lang()
			if err != nil {
				return err
			}
			m := tui.NewStoryModel(cmd.Context(), a.apiClient(lang), lang, flowID)
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&flowID, "flow", "", "story flow id (random when empty)")
	return cmd
}

func (a *app) infiniteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "infinite",
		Short: "Answer freshly generated AI dilemmas, forever",
		Long:  `Answer freshly generated AI dilemmas, forever. Nothing is voted or scored; each answer earns a tease.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lang, err := a.lang()
			if err != nil {
				return err
			}
			m := tui.NewInfiniteModel(cmd.Context(), a.apiClient(lang), lang)
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

func (a *app) passCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pass",
		Short: "Pass the phone: read dilemmas aloud to a group",
		Long:  `Pass the phone: stored dilemmas for a group, one reader at a time. Answers are teased, never voted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lang, err := a.lang()
			if err != nil {
				return err
			}
			m := tui.NewPassModel(cmd.Context(), a.apiClient(lang), lang)
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

type profileReport struct {
	Averages  profile.Profile      `json:"averages"`
	ChartData []profile.ChartPoint `json:"chartData"`
	Dominant  string               `json:"dominant,omitempty"`
}

func (a *app) profileCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "profile <file>",
		Short: "Compute the moral profile of a JSON array of answers",
		Long: `Compute the moral profile of a JSON array of answers.

Each answer is an object of trait scores, e.g. {"Empathy": 7, "Justice": 3}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			report, err := buildProfile(f)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.DefaultStyles().Profile(report.Averages))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print averages and chart data as JSON")
	return cmd
}

func buildProfile(r io.Reader) (*profileReport, error) {
	var answers []map[string]float64
	if err := json.NewDecoder(r).Decode(&answers); err != nil {
		return nil, fmt.Errorf("%w: answers must be a JSON array of trait objects: %v", models.ErrInvalidInput, err)
	}
	avg, err := profile.AverageMap(answers)
	if err != nil {
		return nil, err
	}
	avg = avg.Rounded()
	dominant, _ := profile.Dominant(avg)
	return &profileReport{Averages: avg, ChartData: profile.ChartData(avg), Dominant: dominant}, nil
}

func (a *app) tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin token for the /admin routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.AdminSecret == "" {
				return fmt.Errorf("no signing secret: set MTM_ADMIN_JWT_SECRET or admin_jwt_secret in %s", config.DefaultCLIConfigPath())
			}
			verifier, err := authutils.NewJWTVerifier(a.cfg.AdminSecret, a.log)
			if err != nil {
				return err
			}
			token, err := verifier.IssueToken(subject, []string{models.RoleAdmin}, ttl)
			if err != nil {
				return err
			}
			a.out.Info().Str("subject", subject).Dur("ttl", ttl).Msg("Admin token issued")
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
