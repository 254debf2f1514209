package reliability

import (
	"context"

	"go.uber.org/zap"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
	"github.com/vopenia-io/meet/pkg/circuitbreaker"
)

// StateObserver is told about every breaker transition, e.g. to export it.
type StateObserver func(name string, from, to circuitbreaker.State)

func newBreaker(name string, cfg circuitbreaker.Config, logger *zap.SugaredLogger, observer StateObserver) *circuitbreaker.CircuitBreaker {
	return circuitbreaker.New(name, cfg, circuitbreaker.WithStateChangeHook(func(name string, from, to circuitbreaker.State) {
		logger.Infow("circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
		if observer != nil {
			observer(name, from, to)
		}
	}))
}

// RoomSessionClientWrapper fails fast while the media server room API is
// unhealthy. Calls are never retried.
type RoomSessionClientWrapper struct {
	client  ports.RoomSessionClient
	breaker *circuitbreaker.CircuitBreaker
}

func NewRoomSessionClientWrapper(
	client ports.RoomSessionClient,
	cfg circuitbreaker.Config,
	logger *zap.SugaredLogger,
	observer StateObserver,
) *RoomSessionClientWrapper {
	return &RoomSessionClientWrapper{
		client:  client,
		breaker: newBreaker("livekit_room", cfg, logger, observer),
	}
}

func (w *RoomSessionClientWrapper) RoomExists(ctx context.Context, roomName string) (bool, error) {
	return circuitbreaker.Call(ctx, w.breaker, func(ctx context.Context) (bool, error) {
		return w.client.RoomExists(ctx, roomName)
	})
}

func (w *RoomSessionClientWrapper) SendReliableData(ctx context.Context, roomName string, payload []byte) error {
	return w.breaker.Execute(ctx, func(ctx context.Context) error {
		return w.client.SendReliableData(ctx, roomName, payload)
	})
}

func (w *RoomSessionClientWrapper) Stats() circuitbreaker.Stats {
	return w.breaker.GetStats()
}

// SIPClientWrapper guards the SIP dispatch rule API.
type SIPClientWrapper struct {
	client  ports.SIPClient
	breaker *circuitbreaker.CircuitBreaker
}

func NewSIPClientWrapper(
	client ports.SIPClient,
	cfg circuitbreaker.Config,
	logger *zap.SugaredLogger,
	observer StateObserver,
) *SIPClientWrapper {
	return &SIPClientWrapper{
		client:  client,
		breaker: newBreaker("livekit_sip", cfg, logger, observer),
	}
}

func (w *SIPClientWrapper) CreateDispatchRule(ctx context.Context, name, roomName, pin string) error {
	return w.breaker.Execute(ctx, func(ctx context.Context) error {
		return w.client.CreateDispatchRule(ctx, name, roomName, pin)
	})
}

func (w *SIPClientWrapper) ListDispatchRules(ctx context.Context) ([]domain.DispatchRule, error) {
	return circuitbreaker.Call(ctx, w.breaker, func(ctx context.Context) ([]domain.DispatchRule, error) {
		return w.client.ListDispatchRules(ctx)
	})
}

func (w *SIPClientWrapper) DeleteDispatchRule(ctx context.Context, ruleID string) error {
	return w.breaker.Execute(ctx, func(ctx context.Context) error {
		return w.client.DeleteDispatchRule(ctx, ruleID)
	})
}

func (w *SIPClientWrapper) Stats() circuitbreaker.Stats {
	return w.breaker.GetStats()
}

// EgressClientWrapper guards the recording API.
type EgressClientWrapper struct {
	client  ports.EgressClient
	breaker *circuitbreaker.CircuitBreaker
}

func NewEgressClientWrapper(
	client ports.EgressClient,
	cfg circuitbreaker.Config,
	logger *zap.SugaredLogger,
	observer StateObserver,
) *EgressClientWrapper {
	return &EgressClientWrapper{
		client:  client,
		breaker: newBreaker("livekit_egress", cfg, logger, observer),
	}
}

func (w *EgressClientWrapper) StartRoomComposite(ctx context.Context, roomName, fileName string, audioOnly bool) (string, error) {
	return circuitbreaker.Call(ctx, w.breaker, func(ctx context.Context) (string, error) {
		return w.client.StartRoomComposite(ctx, roomName, fileName, audioOnly)
	})
}

func (w *EgressClientWrapper) StopEgress(ctx context.Context, egressID string) (domain.RecordingStatus, error) {
	return circuitbreaker.Call(ctx, w.breaker, func(ctx context.Context) (domain.RecordingStatus, error) {
		return w.client.StopEgress(ctx, egressID)
	})
}

func (w *EgressClientWrapper) Stats() circuitbreaker.Stats {
	return w.breaker.GetStats()
}
