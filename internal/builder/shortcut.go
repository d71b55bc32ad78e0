package builder

import (
	"context"
	"strings"
)

// KeyEvent is a key press reported by the canvas
type KeyEvent struct {
	Key   string `json:"key" validate:"required"`
	Ctrl  bool   `json:"ctrlKey"`
	Meta  bool   `json:"metaKey"`
	Shift bool   `json:"shiftKey"`
	Alt   bool   `json:"altKey"`
}

type KeyAction string

const (
	KeyActionNone       KeyAction = "none"
	KeyActionDeleteNode KeyAction = "delete_node"
	KeyActionSave       KeyAction = "save_and_enable"
)

type KeyResult struct {
	Action KeyAction   `json:"action"`
	NodeID string      `json:"node_id,omitempty"`
	Save   *SaveResult `json:"save,omitempty"`
}

// Shortcut maps a key press to the builder action it triggers.
func Shortcut(event KeyEvent) KeyAction {
	switch {
	case event.Key == "Delete" || event.Key == "Backspace":
		return KeyActionDeleteNode
	case (event.Ctrl || event.Meta) && strings.EqualFold(event.Key, "s"):
		return KeyActionSave
	}
	return KeyActionNone
}

// HandleKey runs the keyboard shortcut for event. Delete or Backspace with
// nothing selected, and any unmapped key, are ignored.
func (c *Controller) HandleKey(ctx context.Context, event KeyEvent) (KeyResult, error) {
	switch Shortcut(event) {
	case KeyActionDeleteNode:
		c.mu.Lock()
		selected := c.selected
		c.mu.Unlock()

		if selected == "" {
			return KeyResult{Action: KeyActionNone}, nil
		}
		if err := c.RemoveNode(selected); err != nil {
			return KeyResult{Action: KeyActionDeleteNode, NodeID: selected}, err
		}
		return KeyResult{Action: KeyActionDeleteNode, NodeID: selected}, nil

	case KeyActionSave:
		result, err := c.SaveAndEnable(ctx)
		return KeyResult{Action: KeyActionSave, Save: &result}, err
	}

	return KeyResult{Action: KeyActionNone}, nil
}
