package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/Shivanand-hulikatti/trainbot/internal/model"
)

// Dispatcher runs a chat command and returns the reply text.
type Dispatcher interface {
	Dispatch(ctx context.Context, user, text string) string
}

// SlashHandler serves the "/train" slash command.
type SlashHandler struct {
	dispatcher Dispatcher
}

func NewSlashHandler(dispatcher Dispatcher) *SlashHandler {
	return &SlashHandler{dispatcher: dispatcher}
}

// Train handles POST /slack/train
// Slack posts the command form-encoded; the reply is shown to the channel.
func (h *SlashHandler) Train(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	user := strings.TrimSpace(r.PostForm.Get("user_name"))
	if user == "" {
		writeError(w, http.StatusBadRequest, "user_name is required")
		return
	}

	reply := h.dispatcher.Dispatch(r.Context(), user, r.PostForm.Get("text"))
	writeJSON(w, http.StatusOK, model.SlashResponse{ResponseType: "in_channel", Text: reply})
}
