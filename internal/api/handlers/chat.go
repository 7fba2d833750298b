package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/mentor/internal/api"
	"github.com/cloo-solutions/mentor/internal/domain"
	"github.com/cloo-solutions/mentor/internal/service"
	"github.com/go-chi/chi/v5"
)

// ChatDeletedMessage is returned after a thread is removed.
const ChatDeletedMessage = "Chat deleted successfully"

type ChatService interface {
	Create(ctx context.Context, userID string) (*domain.Chat, error)
	List(ctx context.Context, userID string) ([]*domain.Chat, error)
	Get(ctx context.Context, userID, chatID string) (*domain.Chat, error)
	Delete(ctx context.Context, userID, chatID string) error
	SendMessage(ctx context.Context, input service.SendMessageInput) (*service.SendMessageOutput, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type SendMessageRequest struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	chat, err := h.svc.Create(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, chat)
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	chats, err := h.svc.List(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	if chats == nil {
		chats = []*domain.Chat{}
	}

	api.Success(w, http.StatusOK, chats)
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	chat, err := h.svc.Get(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "chatId"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, chat)
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "chatId")); err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, api.MessageResponse{Message: ChatDeletedMessage})
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.HandleError(w, r, domain.ErrMissingContent)
		return
	}

	out, err := h.svc.SendMessage(r.Context(), service.SendMessageInput{
		UserID:  chi.URLParam(r, "userId"),
		ChatID:  chi.URLParam(r, "chatId"),
		Role:    req.Role,
		Content: req.Content,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, out)
}
