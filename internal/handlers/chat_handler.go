package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sociogram/chat-service/internal/apperr"
	"github.com/sociogram/chat-service/internal/middleware"
	"github.com/sociogram/chat-service/internal/models"
)

const requestTimeout = 5 * time.Second

// ChatService is the slice of the domain the HTTP layer needs.
type ChatService interface {
	CreateChat(ctx context.Context, creatorID string, participantIDs []string) (*models.Chat, error)
	GetChat(ctx context.Context, userID, chatID string) (*models.Chat, error)
	DeleteChat(ctx context.Context, userID, chatID string) (*models.Chat, error)
	CreateMessage(ctx context.Context, senderID, chatID, content string) (*models.Message, error)
	FindMessagesByChat(ctx context.Context, userID, chatID string, page, limit int64) ([]*models.Message, error)
	FindInboxMessages(ctx context.Context, userID string, page, limit int64) ([]*models.Message, error)
	MarkMessageRead(ctx context.Context, userID, messageID string) (*models.Message, error)
	DeleteMessage(ctx context.Context, userID, messageID string) (*models.Message, error)
	UnreadChatCount(ctx context.Context, userID string) (int64, error)
	UnreadChatIDs(ctx context.Context, userID string) ([]string, error)
}

type ChatHandler struct {
	svc ChatService
	log *zap.Logger
}

func NewChatHandler(svc ChatService, log *zap.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log}
}

type createChatReq struct {
	ParticipantIDs []string `json:"participant_ids"`
}

type createMessageReq struct {
	Content string `json:"content"`
}

func (h *ChatHandler) CreateChat(c *fiber.Ctx) error {
	var req createChatReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	chat, err := h.svc.CreateChat(ctx, middleware.UserID(c), req.ParticipantIDs)
	if err != nil {
		return h.fail(c, err, "create chat")
	}
	return c.Status(fiber.StatusCreated).JSON(chat)
}

func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	chat, err := h.svc.GetChat(ctx, middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "get chat")
	}
	return c.JSON(chat)
}

func (h *ChatHandler) DeleteChat(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	chat, err := h.svc.DeleteChat(ctx, middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "delete chat")
	}
	return c.JSON(chat)
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req createMessageReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	msg, err := h.svc.CreateMessage(ctx, middleware.UserID(c), c.Params("id"), req.Content)
	if err != nil {
		return h.fail(c, err, "send message")
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	msgs, err := h.svc.FindMessagesByChat(ctx, middleware.UserID(c), c.Params("id"),
		int64(c.QueryInt("page", 1)), int64(c.QueryInt("limit", 50)))
	if err != nil {
		return h.fail(c, err, "list messages")
	}
	return c.JSON(msgs)
}

func (h *ChatHandler) Inbox(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	msgs, err := h.svc.FindInboxMessages(ctx, middleware.UserID(c),
		int64(c.QueryInt("page", 1)), int64(c.QueryInt("limit", 50)))
	if err != nil {
		return h.fail(c, err, "inbox")
	}
	return c.JSON(msgs)
}

func (h *ChatHandler) MarkMessageRead(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	msg, err := h.svc.MarkMessageRead(ctx, middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "mark message read")
	}
	return c.JSON(msg)
}

func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	msg, err := h.svc.DeleteMessage(ctx, middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "delete message")
	}
	return c.JSON(msg)
}

func (h *ChatHandler) UnreadCount(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.svc.UnreadChatCount(ctx, middleware.UserID(c))
	if err != nil {
		return h.fail(c, err, "unread count")
	}
	return c.JSON(fiber.Map{"count": n})
}

func (h *ChatHandler) UnreadChats(c *fiber.Ctx) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ids, err := h.svc.UnreadChatIDs(ctx, middleware.UserID(c))
	if err != nil {
		return h.fail(c, err, "unread chats")
	}
	return c.JSON(fiber.Map{"chat_ids": ids})
}

func (h *ChatHandler) fail(c *fiber.Ctx, err error, op string) error {
	switch {
	case errors.Is(err, apperr.ErrBadRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad request"})
	case errors.Is(err, apperr.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, apperr.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	case errors.Is(err, apperr.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict"})
	case errors.Is(err, apperr.ErrUnavailable):
		h.log.Error(op, zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service unavailable"})
	default:
		h.log.Error(op, zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func reqCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), requestTimeout)
}
