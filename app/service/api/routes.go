package api

import (
	"log/slog"
	"time"

	"calbot/app/model"
	"calbot/app/service/calendar"
	"calbot/app/util/timetext"

	"github.com/gofiber/fiber/v2"
)

type messageRequest struct {
	Message string `json:"message" validate:"required"`
}

type messageResponse struct {
	Reply string `json:"reply"`
}

type historyResponse struct {
	Messages []model.Message `json:"messages"`
}

type eventsResponse struct {
	Events []calendar.Event `json:"events"`
}

func (s *Service) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Service) handleMessage(c *fiber.Ctx) error {
	var req messageRequest

	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}

	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	conversationID := c.Params("id")

	reply, err := s.convSvc.ProcessMessage(c.UserContext(), conversationID, req.Message)
	if err != nil {
		slog.Error("Failed to process message",
			"conversation", conversationID,
			"error", err,
		)

		return fiber.NewError(fiber.StatusInternalServerError, "failed to process message")
	}

	return c.JSON(messageResponse{Reply: reply})
}

func (s *Service) handleHistory(c *fiber.Ctx) error {
	messages := s.convSvc.History(c.Params("id"))

	return c.JSON(historyResponse{Messages: messages})
}

func (s *Service) handleReset(c *fiber.Ctx) error {
	s.convSvc.Reset(c.Params("id"))

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Service) handleEvents(c *fiber.Ctx) error {
	var from, to time.Time

	if raw := c.Query("from"); raw != "" {
		parsed, err := timetext.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid from time")
		}
		from = parsed
	}

	if raw := c.Query("to"); raw != "" {
		parsed, err := timetext.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid to time")
		}
		to = parsed
	}

	events, err := s.eventSvc.ListEvents(c.UserContext(), from, to)
	if err != nil {
		slog.Error("Failed to list events", "error", err)

		return fiber.NewError(fiber.StatusInternalServerError, "failed to list events")
	}

	return c.JSON(eventsResponse{Events: events})
}
