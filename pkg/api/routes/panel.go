package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/tripflow/tripflow/pkg/dispatcher"
	"github.com/tripflow/tripflow/pkg/stoptracker"
)

var (
	panelStateMachine *stoptracker.StopActionStateMachine
	panelScheduler    *stoptracker.TripPanelScheduler
	panelPublisher    *dispatcher.QueuePublisher
)

// SetupPanel injects the panel route dependencies.
func SetupPanel(stateMachine *stoptracker.StopActionStateMachine, scheduler *stoptracker.TripPanelScheduler, publisher *dispatcher.QueuePublisher) {
	panelStateMachine = stateMachine
	panelScheduler = scheduler
	panelPublisher = publisher
}

func PanelRouter(router fiber.Router) {
	router.Get("/next", nextAdvisoryMessage)
	router.Post("/response", negativeActionResponse)
}

func nextAdvisoryMessage(c *fiber.Ctx) error {
	err := stoptracker.BuildAdvisories(c.Context(), panelStateMachine.TripData, panelStateMachine.Arrivals, panelScheduler)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build advisory messages")
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	message, ok := panelScheduler.NextToEmit()
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}

	if err := panelPublisher.PublishAdvisory(c.Context(), message); err != nil {
		log.Error().Err(err).Int("message", message.MessageID).Msg("Failed to publish advisory message")
	}

	return c.JSON(message)
}

type negativeActionRequest struct {
	MessageID int    `json:"message_id"`
	Reason    string `json:"reason"` // "timeout" or "manual"
}

func negativeActionResponse(c *fiber.Ctx) error {
	var request negativeActionRequest
	if err := c.BodyParser(&request); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if request.Reason != "timeout" && request.Reason != "manual" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Reason must be timeout or manual",
		})
	}

	stopID, ok := resolvePromptStop(c, request.MessageID)
	if !ok {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "No outstanding prompt for that message",
		})
	}

	err := panelStateMachine.ProcessNegativeResponse(c.Context(), stopID, request.Reason == "timeout")
	if err != nil {
		log.Error().Err(err).Int("stop", stopID).Msg("Failed to process negative response")
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.SendStatus(fiber.StatusOK)
}

// resolvePromptStop finds the stop the declined prompt referred to: the
// last emitted message when it matches, otherwise the oldest pending
// arrival. The prompt's stop is not necessarily the stop that fired the
// geofence.
func resolvePromptStop(c *fiber.Ctx, messageID int) (int, bool) {
	if lastSent := panelScheduler.LastSent(); lastSent != nil && lastSent.MessageID == messageID {
		return lastSent.StopID, true
	}

	pending, err := panelStateMachine.Arrivals.List(c.Context())
	if err != nil || len(pending) == 0 {
		return 0, false
	}

	return pending[0].StopID, true
}
