package seed_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"moral-torture-machine/internal/models"
	"moral-torture-machine/internal/seed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockImporter struct {
	mock.Mock
}

func (m *mockImporter) ImportDilemmas(ctx context.Context, language string, dilemmas []models.Dilemma) (int, error) {
	args := m.Called(ctx, language, dilemmas)
	return args.Int(0), args.Error(1)
}

func (m *mockImporter) ImportStoryFlows(ctx context.Context, language string, flows []models.StoryFlow) (int, error) {
	args := m.Called(ctx, language, flows)
	return args.Int(0), args.Error(1)
}

const dilemmasJSON = `[
  {"_id": "bread", "dilemma": "Steal bread?", "firstAnswer": "Yes", "secondAnswer": "No", "firstAnswerEmpathy": 7.5},
  {"_id": "lie", "dilemma": "Lie to a friend?", "firstAnswer": "Yes", "secondAnswer": "No"}
]`

const flowsJSON = `[{"_id": "trolley", "title": "The Trolley", "nodes": {"1": {"dilemma": "Pull?", "firstAnswer": "Pull", "secondAnswer": "Wait", "isLeaf": true}}}]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestReadDilemmas(t *testing.T) {
	ds, err := seed.ReadDilemmas(strings.NewReader(dilemmasJSON))
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "bread", ds[0].ID)
	assert.InDelta(t, 7.5, ds[0].FirstAnswerEmpathy, 1e-9)
	assert.Zero(t, ds[1].YesCount)

	_, err = seed.ReadDilemmas(strings.NewReader(`{"_id": "not-a-list"}`))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dilemmas_en.json", dilemmasJSON)
	writeFile(t, dir, "story_flows_it.json", flowsJSON)
	writeFile(t, dir, "README.md", "ignored")
	writeFile(t, dir, "dilemmas_en-US.json", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dilemmas_de.json"), 0o700))

	files, err := seed.Discover(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, seed.File{Path: filepath.Join(dir, "dilemmas_en.json"), Kind: seed.KindDilemmas, Language: "en"}, files[0])
	assert.Equal(t, seed.File{Path: filepath.Join(dir, "story_flows_it.json"), Kind: seed.KindStoryFlows, Language: "it"}, files[1])
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dilemmas_en.json", dilemmasJSON)
	writeFile(t, dir, "dilemmas_it.json", dilemmasJSON)
	writeFile(t, dir, "story_flows_en.json", flowsJSON)

	importer := new(mockImporter)
	importer.On("ImportDilemmas", mock.Anything, "en", mock.MatchedBy(func(ds []models.Dilemma) bool { return len(ds) == 2 })).Return(2, nil)
	importer.On("ImportDilemmas", mock.Anything, "it", mock.Anything).Return(2, nil)
	importer.On("ImportStoryFlows", mock.Anything, "en", mock.MatchedBy(func(fs []models.StoryFlow) bool {
		return len(fs) == 1 && fs[0].Title == "The Trolley"
	})).Return(1, nil)

	results, err := seed.NewLoader(importer, zap.NewNop()).LoadDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, results, 3)

	total := 0
	for _, r := range results {
		total += r.Imported
	}
	assert.Equal(t, 5, total)
	importer.AssertExpectations(t)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	loader := func(imp seed.Importer) *seed.Loader { return seed.NewLoader(imp, zap.NewNop()) }

	t.Run("Missing file", func(t *testing.T) {
		_, err := loader(new(mockImporter)).LoadFile(context.Background(), seed.File{Path: filepath.Join(dir, "nope.json"), Kind: seed.KindDilemmas, Language: "en"})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		p := writeFile(t, dir, "bad.json", `[{"_id":`)
		imp := new(mockImporter)
		_, err := loader(imp).LoadFile(context.Background(), seed.File{Path: p, Kind: seed.KindDilemmas, Language: "en"})
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		imp.AssertNotCalled(t, "ImportDilemmas", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Import failure", func(t *testing.T) {
		p := writeFile(t, dir, "flows.json", flowsJSON)
		imp := new(mockImporter)
		imp.On("ImportStoryFlows", mock.Anything, "en", mock.Anything).Return(0, models.ErrInvalidStory)

		_, err := loader(imp).LoadFile(context.Background(), seed.File{Path: p, Kind: seed.KindStoryFlows, Language: "en"})
		assert.ErrorIs(t, err, models.ErrInvalidStory)
		assert.Contains(t, err.Error(), "flows.json")
	})

	t.Run("First failure is returned from a batch", func(t *testing.T) {
		good := writeFile(t, dir, "good.json", dilemmasJSON)
		imp := new(mockImporter)
		imp.On("ImportDilemmas", mock.Anything, "en", mock.Anything).Return(2, nil).Maybe()
		imp.On("ImportDilemmas", mock.Anything, "it", mock.Anything).Return(0, errors.New("db down"))

		_, err := loader(imp).LoadFiles(context.Background(), []seed.File{
			{Path: good, Kind: seed.KindDilemmas, Language: "en"},
			{Path: good, Kind: seed.KindDilemmas, Language: "it"},
		})
		assert.ErrorContains(t, err, "db down")
	})
}
