package ws

import (
	"encoding/json"
	"time"
)

type ToastVariant string

const (
	ToastDefault     ToastVariant = "default"
	ToastDestructive ToastVariant = "destructive"
)

// Toast is a transient notification shown in the corner of the page.
type Toast struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Variant     ToastVariant `json:"variant"`
}

type ToastEvent struct {
	Type      string `json:"type"`
	Toast     Toast  `json:"toast"`
	Timestamp string `json:"timestamp"`
}

// NotifyUser pushes toast to every open page of userID.
func (h *Hub) NotifyUser(userID string, toast Toast) {
	if h == nil || userID == "" {
		return
	}
	if toast.Variant == "" {
		toast.Variant = ToastDefault
	}
	b, err := json.Marshal(ToastEvent{
		Type:      "toast",
		Toast:     toast,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	h.SendTo(userID, b)
}
