package console

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-image-identifier/internal/classifier"
	"go-image-identifier/internal/observer"
	"go-image-identifier/internal/repository"
	"go-image-identifier/internal/service"
	"go-image-identifier/internal/session"
	"go-image-identifier/internal/storage"
	"go-image-identifier/pkg/models"
)

type stubModel struct{}

func (stubModel) Classify(ctx context.Context, img image.Image) ([]models.Prediction, error) {
	return []models.Prediction{
		{Label: "dog", Probability: 0.05},
		{Label: "cat", Probability: 0.91},
	}, nil
}

func (stubModel) Close() error { return nil }

func newConsole(t *testing.T) (*Console, *session.Session, *bytes.Buffer) {
	t.Helper()

	uploads := storage.NewUploadStore()
	local := storage.NewLocalImageFetcher(1 << 20)
	repo := repository.NewImageRepository(repository.Backends{Uploads: uploads, Local: local}, nil)
	svc := service.NewIdentificationService(repo, 3, 0)
	provider := classifier.ProviderFunc(func(ctx context.Context) (classifier.Model, error) {
		return stubModel{}, nil
	})

	publisher := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	publisher.Subscribe(metrics)

	sess := session.New(provider, svc, uploads, nil, publisher, time.Second)
	var out bytes.Buffer
	return New(sess, local, metrics, &out), sess, &out
}

func writePNG(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 5, 4))))
	path := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestExecute_LoadingAcceptsOnlyQuit(t *testing.T) {
	c, sess, out := newConsole(t)
	ctx := context.Background()

	assert.False(t, c.Execute(ctx, "url http://x/img.png"))
	assert.Contains(t, out.String(), "Model Loading...")
	assert.True(t, sess.Snapshot().Image.IsEmpty())

	assert.True(t, c.Execute(ctx, "quit"))
}

func TestExecute_FileIdentifyHistory(t *testing.T) {
	c, sess, out := newConsole(t)
	ctx := context.Background()
	sess.LoadModel(ctx)

	c.Execute(ctx, "file "+writePNG(t))
	assert.True(t, sess.Snapshot().Image.IsTransient())

	out.Reset()
	c.Execute(ctx, "identify")
	assert.Contains(t, out.String(), "Confidence level: 91.00%  Best Guess")
	assert.Contains(t, out.String(), "Confidence level: 5.00%")

	c.Execute(ctx, "url http://x/img.png")
	assert.Empty(t, sess.Snapshot().Results)

	out.Reset()
	c.Execute(ctx, "pick 2")
	snap := sess.Snapshot()
	assert.True(t, snap.Image.IsTransient())
	assert.Len(t, snap.History, 3)

	out.Reset()
	c.Execute(ctx, "history")
	assert.Contains(t, out.String(), "Recent Images:")
	assert.Contains(t, out.String(), "http://x/img.png")

	out.Reset()
	c.Execute(ctx, "info")
	assert.Contains(t, out.String(), "size: 5x4")
	assert.Contains(t, out.String(), "type: image/png")

	out.Reset()
	c.Execute(ctx, "stats")
	assert.Contains(t, out.String(), "successful_identifies")
}

func TestExecute_Errors(t *testing.T) {
	c, sess, out := newConsole(t)
	ctx := context.Background()
	sess.LoadModel(ctx)

	cases := map[string]string{
		"identify":         "no_image",
		"pick 7":           "no history entry 7",
		"pick x":           "usage: pick <n>",
		"file":             "usage: file <path>",
		"file /nope/x.png": "Error:",
		"launch":           `unknown command "launch"`,
	}
	for line, want := range cases {
		out.Reset()
		assert.False(t, c.Execute(ctx, line))
		assert.Contains(t, out.String(), want, line)
	}

	out.Reset()
	c.Execute(ctx, "url not a url")
	c.Execute(ctx, "identify")
	assert.Contains(t, out.String(), "image_decode")

	c.Execute(ctx, "clear")
	assert.True(t, sess.Snapshot().Image.IsEmpty())
}
