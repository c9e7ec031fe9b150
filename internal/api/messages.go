package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/lendhub/lendhub/internal/model"
	"github.com/lendhub/lendhub/internal/store"
)

// MessagesHandler handles item conversation endpoints.
type MessagesHandler struct {
	DB *sql.DB
}

type sendMessageRequest struct {
	RecipientID int64  `json:"recipient_id"`
	Body        string `json:"body"`
}

// Send handles POST /api/items/{id}/messages.
func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := store.CreateMessage(r.Context(), h.DB, itemID, claims.UserID, req.RecipientID, req.Body)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, msg)
}

// Conversation handles GET /api/items/{id}/messages?with={userID}. It
// returns the thread between the caller and the other user and marks the
// caller's side as read.
func (h *MessagesHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	otherID, err := strconv.ParseInt(r.URL.Query().Get("with"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "with parameter required")
		return
	}

	messages, err := store.ListConversation(r.Context(), h.DB, itemID, claims.UserID, otherID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list conversation")
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}
	jsonResponse(w, http.StatusOK, messages)
}

// UnreadCount handles GET /api/messages/unread.
func (h *MessagesHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	count, err := store.UnreadMessageCount(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to count unread messages")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]int{"unread": count})
}
