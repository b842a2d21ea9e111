package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/NDERI007/simflow/internal/constants"
	"github.com/NDERI007/simflow/internal/model"
	"github.com/NDERI007/simflow/internal/repository"
	"github.com/NDERI007/simflow/internal/sms"
	"go.uber.org/zap"
)

// MessageWorkflowService is the synchronous submission path: validate,
// price, quota-check, persist, and (for immediate sends) enqueue. Validation
// errors never reach the queue.
type MessageWorkflowService interface {
	CreateMessage(ctx context.Context, cmd CreateMessageCommand) (CreateMessageResponse, error)
	GetMessage(ctx context.Context, messageID int64) (*model.Message, error)
	ListMessages(ctx context.Context, userID string, limit, offset int) ([]model.Message, error)
}

type messageWorkflow struct {
	messageRepo repository.MessageRepository
	contactRepo repository.MessageContactRepository
	txManager   repository.TxManager
	preparer    *sms.RecipientPreparer
	quota       QuotaService
	enqueuer    EnqueueService
	policy      RetryPolicy
	logger      *zap.Logger
}

func NewMessageWorkflowService(messageRepo repository.MessageRepository,
	contactRepo repository.MessageContactRepository, txManager repository.TxManager,
	preparer *sms.RecipientPreparer, quota QuotaService, enqueuer EnqueueService,
	policy RetryPolicy, logger *zap.Logger) MessageWorkflowService {
	return &messageWorkflow{
		messageRepo: messageRepo,
		contactRepo: contactRepo,
		txManager:   txManager,
		preparer:    preparer,
		quota:       quota,
		enqueuer:    enqueuer,
		policy:      policy,
		logger:      logger,
	}
}

func (m *messageWorkflow) CreateMessage(ctx context.Context, cmd CreateMessageCommand) (CreateMessageResponse, error) {
	if strings.TrimSpace(cmd.Body) == "" {
		return CreateMessageResponse{}, NewServiceError(constants.ErrCodeEmptyBody,
			errors.New("message body is empty"))
	}

	recipients, err := m.preparer.Prepare(cmd.ManualNumbers, cmd.GroupContacts, cmd.Body)
	if err != nil {
		var invalid *sms.InvalidPhonesError
		if errors.As(err, &invalid) {
			m.logger.Warn("Message rejected: invalid phone numbers",
				zap.String("userID", cmd.UserID),
				zap.Strings("invalid", invalid.Invalid))
			return CreateMessageResponse{}, NewServiceError(constants.ErrCodeInvalidPhones, err)
		}

		return CreateMessageResponse{}, err
	}

	if recipients.TotalRecipients == 0 {
		m.logger.Warn("Message rejected: no recipients after filtering",
			zap.String("userID", cmd.UserID))
		return CreateMessageResponse{}, NewServiceError(constants.ErrCodeEmptyRecipients,
			errors.New("no recipients after normalization"))
	}

	check, err := m.quota.Check(ctx, cmd.UserID, recipients.TotalSegments)
	if err != nil {
		return CreateMessageResponse{}, NewServiceError(ErrCodeDatabase, err)
	}

	if !check.HasQuota {
		m.logger.Warn("Message rejected: insufficient quota",
			zap.String("userID", cmd.UserID),
			zap.Int64("available", check.Available),
			zap.Int64("required", check.Required))
		return CreateMessageResponse{}, NewServiceError(constants.ErrCodeInsufficientQuota, ErrInsufficientQuota)
	}

	status := model.MessageStatusQueued
	if cmd.ScheduledAt != nil && cmd.ScheduledAt.After(time.Now()) {
		status = model.MessageStatusScheduled
	}

	message := model.Message{
		UserID:             cmd.UserID,
		Body:               cmd.Body,
		Status:             status,
		Recipients:         recipients.TotalRecipients,
		SegmentsPerMessage: recipients.SegmentsPerMessage,
		ScheduledAt:        cmd.ScheduledAt,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}

	// The message row and its recipient rows commit together. Pending rows
	// give every recipient an audit record up front and let the scheduler
	// rebuild the recipient set for deferred sends.
	err = m.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := m.messageRepo.Create(txCtx, &message); err != nil {
			return err
		}

		pending := make([]model.MessageContact, 0, recipients.TotalRecipients)
		for _, phone := range recipients.Phones {
			pending = append(pending, model.MessageContact{
				MessageID: message.ID,
				Phone:     phone,
				ContactID: recipients.ContactMap[phone],
				Status:    model.ContactStatusPending,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			})
		}

		return m.contactRepo.UpsertBatch(txCtx, pending)
	})
	if err != nil {
		m.logger.Error("Failed to persist message",
			zap.String("userID", cmd.UserID),
			zap.Error(err))
		return CreateMessageResponse{}, NewServiceError(ErrCodeDatabase, err)
	}

	if status == model.MessageStatusQueued {
		enqueueCmd := EnqueueMessageCommand{
			MessageID:  message.ID,
			UserID:     cmd.UserID,
			Body:       cmd.Body,
			Recipients: recipients,
			Source:     SourceAPI,
			Policy:     m.policy,
		}

		if err := m.enqueuer.Enqueue(ctx, enqueueCmd); err != nil {
			if errors.Is(err, ErrInsufficientQuota) {
				// Balance moved between check and debit; surface it the
				// same way the check would have.
				return CreateMessageResponse{}, NewServiceError(constants.ErrCodeInsufficientQuota, err)
			}

			return CreateMessageResponse{}, NewServiceError(ErrCodeDatabase, err)
		}
	}

	m.logger.Info("Message accepted",
		zap.Int64("messageID", message.ID),
		zap.String("userID", cmd.UserID),
		zap.String("status", string(status)),
		zap.Int("recipients", recipients.TotalRecipients),
		zap.Int64("totalSegments", recipients.TotalSegments))

	return CreateMessageResponse{
		MessageID:          message.ID,
		TotalRecipients:    recipients.TotalRecipients,
		SegmentsPerMessage: recipients.SegmentsPerMessage,
		TotalSegments:      recipients.TotalSegments,
		Status:             string(status),
	}, nil
}

func (m *messageWorkflow) GetMessage(ctx context.Context, messageID int64) (*model.Message, error) {
	msg, err := m.messageRepo.GetByID(messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, NewServiceError(constants.ErrCodeMessageNotFound, err)
		}

		return nil, NewServiceError(ErrCodeDatabase, err)
	}

	return msg, nil
}

func (m *messageWorkflow) ListMessages(ctx context.Context, userID string, limit, offset int) ([]model.Message, error) {
	messages, err := m.messageRepo.GetByUserID(userID, limit, offset)
	if err != nil {
		return nil, NewServiceError(ErrCodeDatabase, err)
	}

	return messages, nil
}
