package strategy

import (
	"fmt"

	"go-image-identifier/pkg/models"
)

// HistoryPolicy decides how a newly viewed image is recorded in history
type HistoryPolicy interface {
	Record(history []models.ImageReference, ref models.ImageReference) []models.ImageReference
	GetPolicyName() string
}

// PrependPolicy adds every viewed image to the front, duplicates included.
// Re-opening an entry from history therefore adds it again.
type PrependPolicy struct{}

func NewPrependPolicy() HistoryPolicy {
	return &PrependPolicy{}
}

func (p *PrependPolicy) Record(history []models.ImageReference, ref models.ImageReference) []models.ImageReference {
	out := make([]models.ImageReference, 0, len(history)+1)
	out = append(out, ref)
	return append(out, history...)
}

func (p *PrependPolicy) GetPolicyName() string {
	return "prepend"
}

// MoveToFrontPolicy keeps one entry per image, ordered by most recent view
type MoveToFrontPolicy struct{}

func NewMoveToFrontPolicy() HistoryPolicy {
	return &MoveToFrontPolicy{}
}

func (p *MoveToFrontPolicy) Record(history []models.ImageReference, ref models.ImageReference) []models.ImageReference {
	out := make([]models.ImageReference, 0, len(history)+1)
	out = append(out, ref)
	for _, h := range history {
		if h != ref {
			out = append(out, h)
		}
	}
	return out
}

func (p *MoveToFrontPolicy) GetPolicyName() string {
	return "move_to_front"
}

// NewHistoryPolicy returns the policy registered under name
func NewHistoryPolicy(name string) (HistoryPolicy, error) {
	switch name {
	case "", "prepend":
		return NewPrependPolicy(), nil
	case "move_to_front":
		return NewMoveToFrontPolicy(), nil
	default:
		return nil, fmt.Errorf("unsupported history policy: %s", name)
	}
}
