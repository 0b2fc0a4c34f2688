package tui

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	apperrors "go-image-identifier/internal/errors"
	"go-image-identifier/internal/observer"
	"go-image-identifier/internal/session"
	"go-image-identifier/internal/storage"
	"go-image-identifier/pkg/models"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	bestGuessStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type historyItem struct{ ref models.ImageReference }

func (i historyItem) Title() string       { return i.ref.String() }
func (i historyItem) Description() string { return "" }
func (i historyItem) FilterValue() string { return i.ref.String() }

// compactDelegate renders history entries on one line each
type compactDelegate struct{}

func (d compactDelegate) Height() int                               { return 1 }
func (d compactDelegate) Spacing() int                              { return 0 }
func (d compactDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d compactDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(historyItem)
	if !ok {
		return
	}
	str := i.ref.String()
	if index == m.Index() {
		str = selectedStyle.Render("> " + str)
	} else {
		str = "  " + str
	}
	fmt.Fprint(w, str)
}

type identifiedMsg struct{ err error }

type fileSelectedMsg struct {
	ref models.ImageReference
	err error
}

type metadataMsg struct {
	ref  models.ImageReference
	meta *models.ImageMetadata
	err  error
}

// Model is the interactive identification screen
type Model struct {
	ctx      context.Context
	sess     *session.Session
	files    *storage.LocalImageFetcher
	updates  <-chan observer.Snapshot
	input    textinput.Model
	history  list.Model
	spinner  spinner.Model
	snap     observer.Snapshot
	meta     *models.ImageMetadata
	metaRef  models.ImageReference
	err      error
	width    int
	height   int
	quitting bool
}

// NewModel creates the screen and subscribes it to sess
func NewModel(ctx context.Context, sess *session.Session, files *storage.LocalImageFetcher) *Model {
	input := textinput.New()
	input.Placeholder = "Paste image URL"
	input.Focus()

	l := list.New([]list.Item{}, &compactDelegate{}, 60, 8)
	l.Title = "Recent Images"
	l.SetShowPagination(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	obs := NewSnapshotObserver()
	sess.Subscribe(obs)

	m := &Model{
		ctx:     ctx,
		sess:    sess,
		files:   files,
		updates: obs.Updates(),
		input:   input,
		history: l,
		spinner: sp,
	}
	m.applySnapshot(sess.Snapshot())
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForSnapshot(m.updates))
}

func (m *Model) loading() bool {
	return m.snap.ModelStatus == models.ModelStatusAbsent || m.snap.ModelStatus == models.ModelStatusLoading
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.history.SetSize(msg.Width, max(msg.Height/3, 4))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		if cmd := m.applySnapshot(observer.Snapshot(msg)); cmd != nil {
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, waitForSnapshot(m.updates))
		return m, tea.Batch(cmds...)

	case identifiedMsg:
		if msg.err != nil && !apperrors.IsType(msg.err, apperrors.ErrorTypeStale) {
			m.err = msg.err
		}
		return m, nil

	case fileSelectedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.input.SetValue("")
		}
		return m, nil

	case metadataMsg:
		if msg.ref != m.snap.Image {
			// discard metadata of an image that is no longer shown
			return m, nil
		}
		m.meta = msg.meta
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.quitting = true
			return m, tea.Quit
		}
		if m.loading() {
			return m, nil
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	if m.input.Focused() {
		m.input, cmd = m.input.Update(msg)
	} else {
		m.history, cmd = m.history.Update(msg)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyTab:
		if m.input.Focused() {
			m.input.Blur()
		} else {
			m.input.Focus()
		}
		return nil, true

	case tea.KeyEnter:
		m.err = nil
		if m.input.Focused() {
			m.sess.SelectURL(strings.TrimSpace(m.input.Value()))
			return nil, true
		}
		if item, ok := m.history.SelectedItem().(historyItem); ok {
			m.err = m.sess.SelectFromHistory(item.ref)
		}
		return nil, true

	case tea.KeyCtrlO:
		m.err = nil
		return m.selectFileCmd(strings.TrimSpace(m.input.Value())), true

	case tea.KeyCtrlE:
		m.err = nil
		m.input.SetValue("")
		return m.identifyCmd(), true

	case tea.KeyCtrlX:
		m.err = nil
		m.input.SetValue("")
		m.sess.SelectFile(nil)
		return nil, true
	}
	return nil, false
}

func (m *Model) identifyCmd() tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		_, err := sess.Identify(ctx)
		return identifiedMsg{err: err}
	}
}

func (m *Model) selectFileCmd(path string) tea.Cmd {
	sess, files := m.sess, m.files
	return func() tea.Msg {
		if path == "" {
			return fileSelectedMsg{err: apperrors.NewValidationError("type a file path first", nil)}
		}
		file, err := files.OpenImageFile(path)
		if err != nil {
			return fileSelectedMsg{err: apperrors.NewValidationError("cannot open file", err)}
		}
		ref, err := sess.SelectFile(file)
		return fileSelectedMsg{ref: ref, err: err}
	}
}

func (m *Model) metadataCmd(ref models.ImageReference) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		meta, err := sess.ImageMetadata(ctx)
		return metadataMsg{ref: ref, meta: meta, err: err}
	}
}

// applySnapshot replaces the displayed state and returns a command fetching
// metadata when the image changed
func (m *Model) applySnapshot(snap observer.Snapshot) tea.Cmd {
	if snap.Revision < m.snap.Revision {
		return nil
	}
	prev := m.snap
	m.snap = snap

	if !slices.Equal(prev.History, snap.History) {
		items := make([]list.Item, len(snap.History))
		for i, ref := range snap.History {
			items[i] = historyItem{ref: ref}
		}
		m.history.SetItems(items)
	}

	if snap.Image == m.metaRef {
		return nil
	}
	m.metaRef = snap.Image
	m.meta = nil
	if snap.Image.IsEmpty() {
		return nil
	}
	return m.metadataCmd(snap.Image)
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.loading() {
		return fmt.Sprintf("\n  %s Model Loading...\n\n%s\n", m.spinner.View(), dimStyle.Render("  (esc to quit)"))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Identification System") + "\n\n")

	if m.snap.ModelStatus == models.ModelStatusFailed {
		b.WriteString(errorStyle.Render("Model failed to load: "+errText(m.snap.ModelError)) + "\n\n")
	}

	b.WriteString(m.input.View() + "\n\n")
	b.WriteString(m.imageView())
	b.WriteString(m.resultsView())

	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n\n")
	} else if m.snap.LastError != nil {
		b.WriteString(errorStyle.Render("Error: "+m.snap.LastError.Error()) + "\n\n")
	}

	b.WriteString(m.history.View() + "\n")
	b.WriteString(dimStyle.Render("enter: use URL/pick  ctrl+o: upload file  ctrl+e: identify  ctrl+x: clear  tab: history  esc: quit"))
	return b.String()
}

func (m *Model) imageView() string {
	if m.snap.Image.IsEmpty() {
		return dimStyle.Render("No image selected") + "\n\n"
	}
	line := "Image: " + m.snap.Image.String()
	if m.meta != nil {
		line += dimStyle.Render(fmt.Sprintf("  %dx%d %s", m.meta.Width, m.meta.Height, m.meta.ContentType))
	}
	return line + "\n\n"
}

func (m *Model) resultsView() string {
	if m.snap.Classifying {
		return m.spinner.View() + " Identifying...\n\n"
	}
	if len(m.snap.Results) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range m.snap.Results {
		line := fmt.Sprintf("%-30s Confidence level: %s", p.Label, p.Percent())
		if p.BestGuess {
			line += " " + bestGuessStyle.Render("Best Guess")
		}
		b.WriteString(line + "\n")
	}
	return b.String() + "\n"
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
