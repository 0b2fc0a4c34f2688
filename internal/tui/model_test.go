package tui

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
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
		{Label: "tabby cat", Probability: 0.91},
		{Label: "dog", Probability: 0.05},
	}, nil
}

func (stubModel) Close() error { return nil }

type stubFetcher struct{}

func (stubFetcher) FetchImage(ctx context.Context, url string) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 8, 6)), nil
}

func newTestModel(t *testing.T, loadErr error) (*Model, *session.Session) {
	t.Helper()

	uploads := storage.NewUploadStore()
	local := storage.NewLocalImageFetcher(1 << 20)
	repo := repository.NewImageRepository(repository.Backends{
		Uploads: uploads,
		Remote:  stubFetcher{},
		Local:   local,
	}, nil)
	svc := service.NewIdentificationService(repo, 3, 0)
	provider := classifier.ProviderFunc(func(ctx context.Context) (classifier.Model, error) {
		if loadErr != nil {
			return nil, loadErr
		}
		return stubModel{}, nil
	})

	sess := session.New(provider, svc, uploads, nil, nil, time.Second)
	m := NewModel(context.Background(), sess, local)
	return m, sess
}

func key(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

// refresh applies the latest snapshot the way the program loop would
func refresh(m *Model, sess *session.Session) {
	m.Update(snapshotMsg(sess.Snapshot()))
}

func TestModel_LoadingBlocksInput(t *testing.T) {
	m, sess := newTestModel(t, nil)

	assert.Contains(t, m.View(), "Model Loading...")

	m.input.SetValue("http://x/img.png")
	m.Update(key(tea.KeyEnter))
	assert.True(t, sess.Snapshot().Image.IsEmpty(), "input must be ignored while loading")

	sess.LoadModel(context.Background())
	refresh(m, sess)
	assert.Contains(t, m.View(), "Identification System")
}

func TestModel_SelectURLAndIdentify(t *testing.T) {
	m, sess := newTestModel(t, nil)
	sess.LoadModel(context.Background())
	refresh(m, sess)

	m.input.SetValue("http://x/img.png")
	m.Update(key(tea.KeyEnter))
	assert.Equal(t, models.ImageReference("http://x/img.png"), sess.Snapshot().Image)

	_, cmd := m.Update(key(tea.KeyCtrlE))
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value(), "identify clears the URL box")

	msg := cmd()
	m.Update(msg)
	refresh(m, sess)

	view := m.View()
	assert.Contains(t, view, "tabby cat")
	assert.Contains(t, view, "Confidence level: 91.00%")
	assert.Contains(t, view, "Best Guess")
	assert.Contains(t, view, "Recent Images")
}

func TestModel_HistoryPick(t *testing.T) {
	m, sess := newTestModel(t, nil)
	sess.LoadModel(context.Background())

	sess.SelectURL("http://x/a.png")
	sess.SelectURL("http://x/b.png")
	refresh(m, sess)

	m.Update(key(tea.KeyTab))
	assert.False(t, m.input.Focused())

	m.Update(key(tea.KeyDown))
	m.Update(key(tea.KeyEnter))

	snap := sess.Snapshot()
	assert.Equal(t, models.ImageReference("http://x/a.png"), snap.Image)
	assert.Equal(t, []models.ImageReference{"http://x/a.png", "http://x/b.png", "http://x/a.png"}, snap.History)
}

func TestModel_UploadFile(t *testing.T) {
	m, sess := newTestModel(t, nil)
	sess.LoadModel(context.Background())
	refresh(m, sess)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3))))
	path := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	m.input.SetValue(path)
	_, cmd := m.Update(key(tea.KeyCtrlO))
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Nil(t, m.err)
	assert.True(t, sess.Snapshot().Image.IsTransient())
	assert.Empty(t, m.input.Value())

	m.input.SetValue(filepath.Join(t.TempDir(), "missing.png"))
	_, cmd = m.Update(key(tea.KeyCtrlO))
	m.Update(cmd())
	assert.Error(t, m.err)
}

func TestModel_ClearAndFailedLoad(t *testing.T) {
	m, sess := newTestModel(t, assert.AnError)
	sess.LoadModel(context.Background())
	refresh(m, sess)

	assert.Contains(t, m.View(), "Model failed to load")

	m.input.SetValue("http://x/img.png")
	m.Update(key(tea.KeyEnter))
	_, cmd := m.Update(key(tea.KeyCtrlE))
	m.Update(cmd())
	assert.Contains(t, m.View(), "model_not_ready")

	m.Update(key(tea.KeyCtrlX))
	assert.True(t, sess.Snapshot().Image.IsEmpty())
}

func TestModel_DiscardsStaleMetadata(t *testing.T) {
	m, sess := newTestModel(t, nil)
	sess.LoadModel(context.Background())
	sess.SelectURL("http://x/new.png")
	refresh(m, sess)

	m.Update(metadataMsg{ref: "http://x/old.png", meta: &models.ImageMetadata{Width: 1}})
	assert.Nil(t, m.meta)

	m.Update(metadataMsg{ref: "http://x/new.png", meta: &models.ImageMetadata{Width: 8, Height: 6}})
	assert.Contains(t, m.View(), "8x6")
}

func TestSnapshotObserver_KeepsLatest(t *testing.T) {
	obs := NewSnapshotObserver()
	for rev := uint64(1); rev <= 3; rev++ {
		obs.OnEvent(context.Background(), observer.SessionEvent{Snapshot: observer.Snapshot{Revision: rev}})
	}

	snap := <-obs.Updates()
	assert.Equal(t, uint64(3), snap.Revision)

	select {
	case extra := <-obs.Updates():
		t.Errorf("Expected a single pending snapshot, got %d", extra.Revision)
	default:
	}
}
