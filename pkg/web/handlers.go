// Package web provides the HTTP handlers of the ingress and administration API.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/shopflow/pkg/dedup"
	"github.com/dukex/shopflow/pkg/eventbus"
	"github.com/dukex/shopflow/pkg/events"
	"github.com/dukex/shopflow/pkg/metrics"
	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/services"
)

type APIHandlers struct {
	logger          *slog.Logger
	workflowService *services.Workflow
	publisher       eventbus.EventPublisher
	deduplicator    dedup.Deduplicator
	metrics         *metrics.Metrics
	validator       *validator.Validate
}

func NewAPIHandlers(
	logger *slog.Logger,
	workflowService *services.Workflow,
	publisher eventbus.EventPublisher,
	deduplicator dedup.Deduplicator,
	m *metrics.Metrics,
) *APIHandlers {
	return &APIHandlers{
		logger:          logger.With("module", "web"),
		workflowService: workflowService,
		publisher:       publisher,
		deduplicator:    deduplicator,
		metrics:         m,
		validator:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ReceiveEvent accepts one commerce event and publishes it for the workers.
// Events already seen for the same shop and event id are acknowledged without publishing.
func (h *APIHandlers) ReceiveEvent(c fiber.Ctx) error {
	ctx := c.Context()

	req := ReceiveEventRequest{
		ShopDomain: strings.TrimSpace(c.Get(HeaderShopDomain)),
		Topic:      strings.TrimSpace(c.Get(HeaderTopic)),
		EventID:    strings.TrimSpace(c.Get(HeaderEventID)),
	}

	if err := json.Unmarshal(c.Body(), &req.Payload); err != nil {
		h.metrics.RecordEvent(req.Topic, metrics.StatusFailed)

		return badRequest(c, "Invalid JSON payload")
	}

	if err := h.validator.Struct(req); err != nil {
		h.metrics.RecordEvent(req.Topic, metrics.StatusFailed)

		return badRequest(c, err.Error())
	}

	logger := h.logger.With("shop_domain", req.ShopDomain, "topic", req.Topic, "event_id", req.EventID)

	if req.EventID != "" && h.deduplicator != nil {
		duplicate, err := h.deduplicator.MarkSeen(ctx, req.ShopDomain, req.EventID)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to check event id", "error", err)
			h.metrics.RecordEvent(req.Topic, metrics.StatusFailed)

			return internalError(c, err)
		}

		if duplicate {
			logger.InfoContext(ctx, "Duplicate event ignored")
			h.metrics.RecordEvent(req.Topic, metrics.StatusDuplicate)

			return c.Status(fiber.StatusOK).JSON(ReceiveEventResponse{Status: EventStatusDuplicate})
		}
	}

	received := events.NewCommerceEventReceived(models.Event{
		Topic:           req.Topic,
		ShopDomain:      req.ShopDomain,
		ExternalEventID: req.EventID,
		Payload:         req.Payload,
		ReceivedAt:      time.Now().UTC(),
	})

	if err := h.publisher.Publish(ctx, req.ShopDomain, received); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err)

		if req.EventID != "" && h.deduplicator != nil {
			if releaseErr := h.deduplicator.Release(ctx, req.ShopDomain, req.EventID); releaseErr != nil {
				logger.ErrorContext(ctx, "Failed to release event id", "error", releaseErr)
			}
		}

		h.metrics.RecordEvent(req.Topic, metrics.StatusFailed)

		return internalError(c, err)
	}

	logger.InfoContext(ctx, "Event accepted", "message_id", received.ID)
	h.metrics.RecordEvent(req.Topic, metrics.StatusSuccess)

	return c.Status(fiber.StatusAccepted).JSON(ReceiveEventResponse{ID: received.ID, Status: EventStatusAccepted})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	if shop := c.Query("shop_domain"); shop != "" {
		filtered := make([]*models.Workflow, 0, len(workflows))

		for _, wf := range workflows {
			if strings.EqualFold(wf.ShopDomain, shop) {
				filtered = append(filtered, wf)
			}
		}

		workflows = filtered
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

// CreateWorkflow stores a new workflow, or replaces the one with the same id.
func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Save(c.Context(), req.toWorkflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	h.logger.InfoContext(c.Context(), "Workflow saved", "workflow_id", created.ID, "shop_domain", created.ShopDomain)

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	err := h.workflowService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	executions, err := h.workflowService.Executions(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  executions,
		"total_count": len(executions),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.workflowService.Execution(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetExecutionLogs(c fiber.Ctx) error {
	logs, err := h.workflowService.ExecutionLogs(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	if level := c.Query("level"); level != "" {
		filtered := make([]*models.ExecutionLog, 0, len(logs))

		for _, entry := range logs {
			if strings.EqualFold(string(entry.Level), level) {
				filtered = append(filtered, entry)
			}
		}

		logs = filtered
	}

	return c.JSON(fiber.Map{
		"logs":        logs,
		"total_count": len(logs),
	})
}

// Ready reports whether the persistence layer answers.
func (h *APIHandlers) Ready(c fiber.Ctx) bool {
	_, ok := h.workflowService.HealthCheck(c.Context())

	return ok
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Shopflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Shopflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
