package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"go-image-identifier/internal/observer"
)

// SnapshotObserver forwards session snapshots to the UI. Only the latest
// undelivered snapshot is kept; older ones are dropped since each snapshot
// carries the full state.
type SnapshotObserver struct {
	ch chan observer.Snapshot
}

func NewSnapshotObserver() *SnapshotObserver {
	return &SnapshotObserver{ch: make(chan observer.Snapshot, 1)}
}

func (o *SnapshotObserver) OnEvent(ctx context.Context, event observer.SessionEvent) {
	for {
		select {
		case o.ch <- event.Snapshot:
			return
		default:
		}
		select {
		case <-o.ch:
		default:
		}
	}
}

func (o *SnapshotObserver) GetObserverName() string {
	return "tui_snapshot_observer"
}

// Updates returns the channel snapshots are delivered on
func (o *SnapshotObserver) Updates() <-chan observer.Snapshot {
	return o.ch
}

type snapshotMsg observer.Snapshot

func waitForSnapshot(ch <-chan observer.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}
