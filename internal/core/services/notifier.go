package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
	"github.com/vopenia-io/meet/pkg/tracing"
)

type notifier struct {
	client  ports.RoomSessionClient
	timeout time.Duration
	metrics ports.MetricsRecorder
	logger  *zap.SugaredLogger
}

// NewNotifier pushes payloads to live sessions through the media server data
// channel. Every call is bounded by timeout.
func NewNotifier(client ports.RoomSessionClient, timeout time.Duration, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) ports.Notifier {
	return &notifier{
		client:  client,
		timeout: timeout,
		metrics: metricsOrNop(metrics),
		logger:  logger,
	}
}

func (n *notifier) Notify(ctx context.Context, roomName string, payload any, mode domain.NotifyMode) error {
	ctx, span := tracing.StartSpan(ctx, "notifier.notify")
	defer span.End()
	tracing.AddSpanAttributes(ctx, tracing.RoomIDKey.String(roomName), tracing.ModeKey.String(mode.String()))

	err := n.deliver(ctx, roomName, payload)
	n.metrics.Notification(mode, err)
	if err == nil {
		return nil
	}
	tracing.RecordError(ctx, err)

	switch mode {
	case domain.NotifyBestEffort:
		n.logger.Warnw("failed to notify room participants",
			"room", roomName,
			"error", err,
		)
		return nil
	default:
		n.logger.Errorw("failed to notify room participants",
			"room", roomName,
			"error", err,
		)
		return err
	}
}

func (n *notifier) deliver(ctx context.Context, roomName string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return &domain.NotificationError{Room: roomName, Cause: fmt.Errorf("encode payload: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	exists, err := n.client.RoomExists(ctx, roomName)
	if err != nil {
		return &domain.NotificationError{Room: roomName, Cause: err}
	}
	if !exists {
		// nobody connected, nothing to deliver
		n.logger.Debugw("skipping notification for inactive room", "room", roomName)
		return nil
	}

	if err := n.client.SendReliableData(ctx, roomName, data); err != nil {
		return &domain.NotificationError{Room: roomName, Cause: err}
	}
	return nil
}
