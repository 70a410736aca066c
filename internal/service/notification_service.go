package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bognix/dymek-api/internal/events"
	"github.com/bognix/dymek-api/internal/notify"
	"github.com/bognix/dymek-api/internal/repository"
)

const deliveryTimeout = 10 * time.Second

// NotificationService turns status-changed events into push notifications to
// the reporting user. Delivery runs detached from the request that caused
// the transition: cancelling that request does not retract the notification,
// and a delivery failure is logged, never surfaced.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserDirectory
	sender     notify.Sender
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, users repository.UserDirectory, sender notify.Sender, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		users:      users,
		sender:     sender,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to status change events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventMarkerStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventReportStatusChanged, n.handleStatusChanged)
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.StatusChangedPayload)
	if !ok {
		n.logger.Warn("unexpected status change payload", zap.String("event_id", event.ID))
		return nil
	}

	// Detach from the caller: the persisted status is already durable and the
	// caller's response must not block on (or fail with) delivery.
	detached := context.WithoutCancel(ctx)
	go n.deliver(detached, event, payload)
	return nil
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, payload events.StatusChangedPayload) {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	user, err := n.users.GetUser(ctx, event.UserID)
	if err != nil {
		n.logger.Warn("could not resolve notification recipient",
			zap.String("user_id", event.UserID),
			zap.String("target_id", event.TargetID),
			zap.Error(err))
		return
	}

	message := notify.Message{
		Title: "Zmiana statusu zgłoszenia",
		Body:  fmt.Sprintf("Twoje zgłoszenie zmieniło status z %s na %s", payload.OldStatus, payload.NewStatus),
		Meta:  payload.Meta,
	}
	if err := n.sender.Send(ctx, user.RegistrationToken, message); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("user_id", event.UserID),
			zap.String("target_id", event.TargetID),
			zap.Error(err))
		return
	}

	n.logger.Info("notification dispatched",
		zap.String("user_id", event.UserID),
		zap.String("target_id", event.TargetID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)))
}
