package routes

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"

	"github.com/sociogram/chat-service/internal/handlers"
	"github.com/sociogram/chat-service/internal/metrics"
	"github.com/sociogram/chat-service/internal/middleware"
	"github.com/sociogram/chat-service/internal/ws"
)

type Deps struct {
	Handler   *handlers.ChatHandler
	WS        *ws.Server
	Auth      fiber.Handler
	RateLimit *middleware.RateLimiter
}

func Register(app *fiber.App, d Deps) {
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// ws clients authenticate with a query token, not a header
	app.Use("/api/v1/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/api/v1/ws", websocket.New(d.WS.Handler()))

	api := app.Group("/api/v1", d.Auth)

	writes := func(c *fiber.Ctx) error { return c.Next() }
	if d.RateLimit != nil {
		writes = d.RateLimit.MiddlewareByKey(middleware.UserID)
	}

	api.Post("/chats", writes, d.Handler.CreateChat)
	api.Get("/chats/:id", d.Handler.GetChat)
	api.Delete("/chats/:id", d.Handler.DeleteChat)
	api.Get("/chats/:id/messages", d.Handler.ListMessages)
	api.Post("/chats/:id/messages", writes, d.Handler.SendMessage)
	api.Put("/messages/:id", d.Handler.MarkMessageRead)
	api.Delete("/messages/:id", d.Handler.DeleteMessage)
	api.Get("/inbox", d.Handler.Inbox)
	api.Get("/unread/count", d.Handler.UnreadCount)
	api.Get("/unread", d.Handler.UnreadChats)
}
