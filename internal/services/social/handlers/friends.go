package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/saxenasajal03/ConnectX/internal/middleware"
	"github.com/saxenasajal03/ConnectX/internal/services/social"
	"github.com/saxenasajal03/ConnectX/internal/store"
	"go.uber.org/zap"
)

// retryAfterSeconds is advertised when the store is unreachable.
const retryAfterSeconds = "1"

type FriendHandlers struct {
	service social.Service
	logger  *zap.Logger
}

func NewFriendHandlers(service social.Service, logger *zap.Logger) *FriendHandlers {
	return &FriendHandlers{
		service: service,
		logger:  logger,
	}
}

// Register mounts the relationship routes on r.
func (h *FriendHandlers) Register(r fiber.Router) {
	r.Get("/", h.Recommend)
	r.Get("/friends", h.ListFriends)
	r.Post("/friend-request/:id", h.SendFriendRequest)
	r.Put("/friend-request/:id/accept", h.AcceptFriendRequest)
	r.Get("/friend-requests", h.Notifications)
	r.Get("/outgoing-friend-requests", h.ListOutgoing)
	r.Get("/incoming-friend-requests", h.ListIncoming)
}

func (h *FriendHandlers) unauthorized(c *fiber.Ctx) error {
	h.logger.Error("user ID not found in context")
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}

// fail maps service errors to responses. Anything outside the caller-error
// taxonomy is logged and reported as fallback.
func (h *FriendHandlers) fail(c *fiber.Ctx, err error, fallback string) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, social.ErrSelfRequest):
		status = fiber.StatusBadRequest
	case errors.Is(err, social.ErrUserNotFound), errors.Is(err, social.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, social.ErrAlreadyFriends):
		status = fiber.StatusConflict
	case errors.Is(err, social.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, store.ErrUnavailable):
		h.logger.Warn("Store unavailable", zap.Error(err))
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Service temporarily unavailable, please retry",
		})
	}
	if status == fiber.StatusInternalServerError {
		h.logger.Error(fallback, zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"error": fallback,
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// Recommend handles GET /api/users
func (h *FriendHandlers) Recommend(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return h.unauthorized(c)
	}

	users, err := h.service.Recommend(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err, "Failed to load recommended users")
	}
	return c.Status(fiber.StatusOK).JSON(users)
}

// ListFriends handles GET /api/users/friends
func (h *FriendHandlers) ListFriends(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return h.unauthorized(c)
	}

	friends, err := h.service.ListFriends(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err, "Failed to retrieve friends")
	}
	return c.Status(fiber.StatusOK).JSON(friends)
}

// SendFriendRequest handles POST /api/users/friend-request/:id
func (h *FriendHandlers) SendFriendRequest(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return h.unauthorized(c)
	}

	recipientID := strings.TrimSpace(c.Params("id"))
	if recipientID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	req, created, err := h.service.SendRequest(c.UserContext(), userID, recipientID)
	if err != nil {
		return h.fail(c, err, "Failed to send friend request")
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(req)
}

// AcceptFriendRequest handles PUT /api/users/friend-request/:id/accept
func (h *FriendHandlers) AcceptFriendRequest(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return h.unauthorized(c)
	}

	requestID := strings.TrimSpace(c.Params("id"))
	if requestID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request ID",
		})
	}

	req, err := h.service.AcceptRequest(c.UserContext(), requestID, userID)
	if err != nil {
		return h.fail(c, err, "Failed to accept friend request")
	}
	return c.Status(fiber.StatusOK).JSON(req)
}

// Notifications handles GET /api/users/friend-requests
func (h *FriendHandlers) Notifications(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return h.unauthorized(c)
	}

	n, err := h.service.Notifications(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err, "Failed to load friend requests")
	}
	return c.Status(fiber.StatusOK).JSON(n)
}

// ListOutgoing handles GET /api/users/outgoing-friend-requests
func (h *FriendHandlers) ListOutgoing(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return h.unauthorized(c)
	}

	reqs, err := h.service.ListOutgoing(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err, "Failed to load outgoing friend requests")
	}
	return c.Status(fiber.StatusOK).JSON(reqs)
}

// ListIncoming handles GET /api/users/incoming-friend-requests
func (h *FriendHandlers) ListIncoming(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return h.unauthorized(c)
	}

	reqs, err := h.service.ListIncoming(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err, "Failed to load incoming friend requests")
	}
	return c.Status(fiber.StatusOK).JSON(reqs)
}
