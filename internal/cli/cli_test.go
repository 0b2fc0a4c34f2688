package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-image-identifier/internal/classifier"
	"go-image-identifier/internal/container"
	"go-image-identifier/pkg/models"
)

type stubModel struct{}

func (stubModel) Classify(ctx context.Context, img image.Image) ([]models.Prediction, error) {
	return []models.Prediction{
		{Label: "dog", Probability: 0.05},
		{Label: "cat", Probability: 0.91},
		{Label: "fox", Probability: 0.04},
	}, nil
}

func (stubModel) Close() error { return nil }

func testOptions(loadErr error) []container.Option {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	provider := classifier.ProviderFunc(func(ctx context.Context) (classifier.Model, error) {
		if loadErr != nil {
			return nil, loadErr
		}
		return stubModel{}, nil
	})
	return []container.Option{container.WithProvider(provider), container.WithLogger(quiet)}
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func run(t *testing.T, opts []container.Option, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(opts...)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCommand_Text(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png")
	b := writePNG(t, dir, "b.png")

	out, err := run(t, testOptions(nil), "classify", "--top-k", "2", a, b)
	require.NoError(t, err)

	assert.Contains(t, out, a)
	assert.Contains(t, out, b)
	assert.Contains(t, out, "Confidence level: 91.00%  Best Guess")
	assert.NotContains(t, out, "fox")
}

func TestClassifyCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png")
	missing := filepath.Join(dir, "missing.png")

	out, err := run(t, testOptions(nil), "classify", "--json", "-w", "2", a, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 images")

	var responses []models.IdentifyResponse
	require.NoError(t, json.Unmarshal([]byte(out), &responses))
	require.Len(t, responses, 2)

	assert.Equal(t, a, responses[0].Reference)
	assert.Nil(t, responses[0].Error)
	assert.Equal(t, "cat", responses[0].Predictions[0].Label)
	assert.True(t, responses[0].Predictions[0].BestGuess)

	require.NotNil(t, responses[1].Error)
	assert.Equal(t, "image_decode", responses[1].Error.Type)
}

func TestClassifyCommand_ModelLoadFailure(t *testing.T) {
	_, err := run(t, testOptions(errors.New("missing model")), "classify", "x.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model_load")
}

func TestClassifyCommand_RequiresArgs(t *testing.T) {
	_, err := run(t, testOptions(nil), "classify")
	assert.Error(t, err)
}

func TestClassifyCommand_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_k: 0\nhistory_policy: lru\n"), 0o644))

	_, err := run(t, testOptions(nil), "--config", path, "classify", "x.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
