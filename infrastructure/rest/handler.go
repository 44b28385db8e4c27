package rest

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"skillxchange/domain"
	"skillxchange/errors"
	"skillxchange/services"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	log          *slog.Logger
	chatService  services.IChatService
	historyLimit int
}

func NewHandler(log *slog.Logger, chatService services.IChatService, historyLimit int) *Handler {
	return &Handler{log: log, chatService: chatService, historyLimit: historyLimit}
}

type conversationsResponse struct {
	Conversations []domain.ConversationSummary `json:"conversations"`
}

type historyResponse struct {
	Messages   []domain.Message `json:"messages"`
	NextCursor *string          `json:"nextCursor,omitempty"`
}

type markReadResponse struct {
	Read int `json:"read"`
}

type searchResponse struct {
	Messages []domain.Message `json:"messages"`
}

type presenceResponse struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Conversations lists the conversations of the caller, most recent first.
func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := UserIDFromContext(r.Context())
	summaries, err := h.chatService.Conversations(r.Context(), viewerID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, conversationsResponse{Conversations: nonNil(summaries)})
}

// History returns one page of a conversation in chronological order.
// nextCursor, when present, fetches the older page.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	viewerID, counterpartID, err := h.participants(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	limit, err := h.limit(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, next, err := h.chatService.History(r.Context(), domain.GetHistoryCommand{
		ViewerID:      viewerID,
		CounterpartID: counterpartID,
		Cursor:        cursor,
		Limit:         limit,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Messages: nonNil(messages), NextCursor: next})
}

// MarkRead is the HTTP twin of the markAsRead event.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	viewerID, counterpartID, err := h.participants(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	transitioned, err := h.chatService.MarkRead(r.Context(), domain.MarkReadCommand{
		ViewerID:      viewerID,
		CounterpartID: counterpartID,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, markReadResponse{Read: len(transitioned)})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	viewerID, counterpartID, err := h.participants(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	terms := r.URL.Query().Get("q")
	if terms == "" {
		writeError(w, h.log, fmt.Errorf("%w: q is required", errors.ErrInvalidPayload))
		return
	}
	limit, err := h.limit(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	messages, err := h.chatService.Search(r.Context(), domain.SearchCommand{
		ViewerID:      viewerID,
		CounterpartID: counterpartID,
		Terms:         terms,
		Limit:         limit,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Messages: nonNil(messages)})
}

func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	writeJSON(w, http.StatusOK, presenceResponse{UserID: userID, Online: h.chatService.IsOnline(userID)})
}

func (h *Handler) participants(r *http.Request) (string, string, error) {
	viewerID, _ := UserIDFromContext(r.Context())
	counterpartID := chi.URLParam(r, "counterpartId")
	if counterpartID == "" || counterpartID == viewerID {
		return "", "", fmt.Errorf("%w: invalid counterpart", errors.ErrInvalidPayload)
	}
	return viewerID, counterpartID, nil
}

func (h *Handler) limit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.historyLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", errors.ErrInvalidPayload)
	}
	if h.historyLimit > 0 && limit > h.historyLimit {
		limit = h.historyLimit
	}
	return limit, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
