package v1

import (
	"time"

	"github.com/NDERI007/simflow/internal/constants"
	"github.com/NDERI007/simflow/internal/model"
	"github.com/NDERI007/simflow/internal/service"
	"github.com/NDERI007/simflow/internal/sms"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	logger   *zap.Logger
	workflow service.MessageWorkflowService
	quota    service.QuotaService
}

func NewHandler(logger *zap.Logger, workflow service.MessageWorkflowService,
	quota service.QuotaService) *Handler {
	return &Handler{logger: logger, workflow: workflow, quota: quota}
}

func (h *Handler) Pong(c *fiber.Ctx) error {
	return c.SendString("pong")
}

func (h *Handler) CreateMessage(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var request SendMessageRequest
	if err := c.BodyParser(&request); err != nil {
		h.logger.Warn("Failed to parse body",
			zap.Error(err),
			zap.String("body", string(c.Body())))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    constants.ErrCodeInvalidRequestBody,
			"message": constants.GetErrorMessage(constants.ErrCodeInvalidRequestBody),
		})
	}

	var scheduledAt *time.Time
	if request.ScheduledAt != nil {
		parsed, err := time.Parse(time.RFC3339, *request.ScheduledAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"code":    constants.ErrCodeInvalidRequestBody,
				"message": "scheduled_at must be RFC3339",
			})
		}
		scheduledAt = &parsed
	}

	group := make([]sms.GroupContact, 0, len(request.GroupContacts))
	for _, contact := range request.GroupContacts {
		group = append(group, sms.GroupContact{ContactID: contact.ContactID, Phone: contact.Phone})
	}

	cmd := service.CreateMessageCommand{
		UserID:        request.UserID,
		Body:          request.Body,
		ManualNumbers: request.ManualNumbers,
		GroupContacts: group,
		ScheduledAt:   scheduledAt,
	}

	resp, err := h.workflow.CreateMessage(ctx, cmd)
	if err != nil {
		h.logger.Error("Failed to create message",
			zap.Error(err),
			zap.String("userID", request.UserID))
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(SendMessageResponse{
		MessageID:          resp.MessageID,
		Status:             resp.Status,
		TotalRecipients:    resp.TotalRecipients,
		SegmentsPerMessage: resp.SegmentsPerMessage,
		TotalSegments:      resp.TotalSegments,
	})
}

func (h *Handler) GetMessage(c *fiber.Ctx) error {
	ctx := c.UserContext()

	messageID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    constants.ErrCodeInvalidRequestBody,
			"message": "message id must be numeric",
		})
	}

	message, err := h.workflow.GetMessage(ctx, int64(messageID))
	if err != nil {
		return err
	}

	return c.JSON(message)
}

func (h *Handler) ListMessages(c *fiber.Ctx) error {
	ctx := c.UserContext()

	userID := c.Query("user_id")
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	messages, err := h.workflow.ListMessages(ctx, userID, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(messages)
}

func (h *Handler) GetQuota(c *fiber.Ctx) error {
	ctx := c.UserContext()

	userID := c.Query("user_id")
	check, err := h.quota.Check(ctx, userID, 0)
	if err != nil {
		return err
	}

	return c.JSON(QuotaResponse{UserID: userID, Balance: check.Available})
}

func (h *Handler) Purchase(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var request PurchaseRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    constants.ErrCodeInvalidRequestBody,
			"message": constants.GetErrorMessage(constants.ErrCodeInvalidRequestBody),
		})
	}

	if request.IdempotencyKey == "" {
		request.IdempotencyKey = uuid.NewString()
	}

	cmd := service.QuotaMutationCommand{
		UserID:    request.UserID,
		Amount:    request.Amount,
		Reason:    model.QuotaReasonPurchase,
		RelatedID: request.IdempotencyKey,
	}

	if err := h.quota.Credit(ctx, cmd); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(PurchaseResponse{
		UserID:         request.UserID,
		Amount:         request.Amount,
		IdempotencyKey: request.IdempotencyKey,
	})
}

// ReversePurchase invalidates an applied purchase, debiting back the exact
// amount the original credit granted.
func (h *Handler) ReversePurchase(c *fiber.Ctx) error {
	ctx := c.UserContext()

	relatedID := c.Params("relatedId")
	if err := h.quota.ReverseByRelated(ctx, relatedID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
