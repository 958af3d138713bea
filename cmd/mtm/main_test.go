package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"moral-torture-machine/internal/authutils"
	"moral-torture-machine/internal/mocks"
	"moral-torture-machine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// execute runs the root command with an isolated config and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MTM_DATABASE_URL", "")
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yml")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildProfile(t *testing.T) {
	report, err := buildProfile(strings.NewReader(`[{"Empathy": 8, "Justice": 2}, {"Empathy": 5, "Justice": 3}, {"Empathy": 3, "Justice": 6}]`))
	require.NoError(t, err)
	assert.InDelta(t, 5.33, report.Averages["Empathy"], 1e-9)
	assert.InDelta(t, 3.67, report.Averages["Justice"], 1e-9)
	assert.Equal(t, "Empathy", report.Dominant)
	require.Len(t, report.ChartData, 2)
	assert.InDelta(t, 6.4, report.ChartData[0].FullMark, 1e-9)

	_, err = buildProfile(strings.NewReader(`[]`))
	assert.ErrorIs(t, err, models.ErrNoAnswers)

	_, err = buildProfile(strings.NewReader(`{"Empathy": 1}`))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestProfileCommand_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"Honesty": 4}, {"Honesty": 6}]`), 0o600))

	out, err := execute(t, "", "profile", "--json", path)
	require.NoError(t, err)

	var report profileReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.InDelta(t, 5.0, report.Averages["Honesty"], 1e-9)
	assert.Equal(t, "Honesty", report.Dominant)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes ", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		assert.Equal(t, tt.want, confirm(strings.NewReader(tt.input), &out, "Delete?"), "input %q", tt.input)
		assert.Equal(t, "Delete? [y/N]: ", out.String())
	}
}

func TestClearCommand(t *testing.T) {
	t.Run("Declined prompt touches nothing", func(t *testing.T) {
		out, err := execute(t, "n\n", "clear", "dilemmas")
		require.NoError(t, err)
		assert.Contains(t, out, "Delete all dilemmas of every language?")
	})

	t.Run("Confirmed without database", func(t *testing.T) {
		_, err := execute(t, "", "clear", "stories", "--yes", "--language", "it")
		assert.ErrorContains(t, err, "no database configured")
	})

	t.Run("Unknown table", func(t *testing.T) {
		_, err := execute(t, "", "clear", "users", "--yes")
		assert.Error(t, err)
	})

	t.Run("Invalid language", func(t *testing.T) {
		_, err := execute(t, "", "clear", "dilemmas", "--yes", "--language", "e1")
		assert.ErrorIs(t, err, models.ErrInvalidLanguage)
	})
}

func TestPlayModesRejectBadLanguage(t *testing.T) {
	for _, mode := range []string{"play", "story", "infinite", "pass"} {
		_, err := execute(t, "", mode, "--language", "e1")
		assert.ErrorIs(t, err, models.ErrInvalidLanguage, mode)
	}
}

func TestRootCommandListsModes(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, mode := range []string{"play", "story", "infinite", "pass"} {
		assert.True(t, names[mode], mode)
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("MTM_ADMIN_JWT_SECRET", "cli-test-secret")
	out, err := execute(t, "", "token", "--subject", "alice")
	require.NoError(t, err)

	verifier, err := authutils.NewJWTVerifier("cli-test-secret", zap.NewNop())
	require.NoError(t, err)
	claims, err := verifier.VerifyToken(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.True(t, claims.HasRole(models.RoleAdmin))
}

func TestTokenCommand_NoSecret(t *testing.T) {
	t.Setenv("MTM_ADMIN_JWT_SECRET", "")
	_, err := execute(t, "", "token")
	assert.ErrorContains(t, err, "no signing secret")
}

func TestCopyContent(t *testing.T) {
	ctx := context.Background()
	dilemmas := []models.Dilemma{{ID: "bread-en", YesCount: 4}, {ID: "bread-it", NoCount: 1}}
	flows := []models.StoryFlow{{ID: "trolley-en"}}

	srcD, srcF := new(mocks.DilemmaRepository), new(mocks.StoryFlowRepository)
	dstD, dstF := new(mocks.DilemmaRepository), new(mocks.StoryFlowRepository)
	srcD.On("List", ctx, "").Return(dilemmas, nil)
	srcF.On("List", ctx, "").Return(flows, nil)
	dstD.On("Upsert", ctx, dilemmas).Return(2, nil)
	dstF.On("Upsert", ctx, flows).Return(1, nil)

	res, err := copyContent(ctx, srcD, srcF, dstD, dstF)
	require.NoError(t, err)
	assert.Equal(t, copyResult{Dilemmas: 2, StoryFlows: 1}, res)
	dstD.AssertExpectations(t)
	dstF.AssertExpectations(t)
}

func TestCopyContent_EmptySourceAndFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty source writes nothing", func(t *testing.T) {
		srcD, srcF := new(mocks.DilemmaRepository), new(mocks.StoryFlowRepository)
		dstD, dstF := new(mocks.DilemmaRepository), new(mocks.StoryFlowRepository)
		srcD.On("List", ctx, "").Return([]models.Dilemma{}, nil)
		srcF.On("List", ctx, "").Return([]models.StoryFlow{}, nil)

		res, err := copyContent(ctx, srcD, srcF, dstD, dstF)
		require.NoError(t, err)
		assert.Zero(t, res)
		dstD.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		dstF.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("Source read failure", func(t *testing.T) {
		srcD := new(mocks.DilemmaRepository)
		srcD.On("List", ctx, "").Return(nil, errors.New("connection reset"))

		_, err := copyContent(ctx, srcD, new(mocks.StoryFlowRepository), new(mocks.DilemmaRepository), new(mocks.StoryFlowRepository))
		assert.ErrorContains(t, err, "source dilemmas")
	})
}
