package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
)

type telephonyService struct {
	sip    ports.SIPClient
	logger *zap.SugaredLogger
}

// NewTelephonyService manages the SIP dispatch rules that route dial-in
// callers to a room.
func NewTelephonyService(sip ports.SIPClient, logger *zap.SugaredLogger) ports.TelephonyService {
	return &telephonyService{sip: sip, logger: logger}
}

func DispatchRuleName(roomID uuid.UUID) string {
	return "SIP_" + roomID.String()
}

func (s *telephonyService) CreateDispatchRule(ctx context.Context, room *domain.Room) error {
	err := s.sip.CreateDispatchRule(ctx, DispatchRuleName(room.ID), room.ID.String(), room.PinCode)
	if err != nil {
		s.logger.Errorw("failed to create dispatch rule",
			"room_id", room.ID,
			"error", err,
		)
		return fmt.Errorf("%w: could not create dispatch rule: %w", domain.ErrTelephony, err)
	}
	return nil
}

// DeleteDispatchRule removes every rule named after the room. The provider
// cannot filter server-side, so all rules are listed and matched by name.
func (s *telephonyService) DeleteDispatchRule(ctx context.Context, roomID uuid.UUID) (bool, error) {
	rules, err := s.sip.ListDispatchRules(ctx)
	if err != nil {
		s.logger.Errorw("failed to list dispatch rules",
			"room_id", roomID,
			"error", err,
		)
		return false, fmt.Errorf("%w: could not list dispatch rules: %w", domain.ErrTelephony, err)
	}

	name := DispatchRuleName(roomID)
	var ruleIDs []string
	for _, rule := range rules {
		if rule.Name == name {
			ruleIDs = append(ruleIDs, rule.ID)
		}
	}

	if len(ruleIDs) == 0 {
		s.logger.Infow("no dispatch rules found", "room_id", roomID)
		return false, nil
	}
	if len(ruleIDs) > 1 {
		s.logger.Errorw("multiple dispatch rules found",
			"room_id", roomID,
			"count", len(ruleIDs),
		)
	}

	for _, id := range ruleIDs {
		if err := s.sip.DeleteDispatchRule(ctx, id); err != nil {
			s.logger.Errorw("failed to delete dispatch rule",
				"room_id", roomID,
				"rule_id", id,
				"error", err,
			)
			return false, fmt.Errorf("%w: could not delete dispatch rules: %w", domain.ErrTelephony, err)
		}
	}
	return true, nil
}
