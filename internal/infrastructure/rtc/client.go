package rtc

import (
	"context"
	"fmt"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
	"github.com/vopenia-io/meet/pkg/tracing"
)

// roomAPI is the subset of the room service client in use.
type roomAPI interface {
	ListRooms(ctx context.Context, req *livekit.ListRoomsRequest) (*livekit.ListRoomsResponse, error)
	SendData(ctx context.Context, req *livekit.SendDataRequest) (*livekit.SendDataResponse, error)
}

type sipAPI interface {
	CreateSIPDispatchRule(ctx context.Context, req *livekit.CreateSIPDispatchRuleRequest) (*livekit.SIPDispatchRuleInfo, error)
	ListSIPDispatchRule(ctx context.Context, req *livekit.ListSIPDispatchRuleRequest) (*livekit.ListSIPDispatchRuleResponse, error)
	DeleteSIPDispatchRule(ctx context.Context, req *livekit.DeleteSIPDispatchRuleRequest) (*livekit.SIPDispatchRuleInfo, error)
}

type Config struct {
	URL       string
	APIKey    string
	APISecret string
}

type roomSessionClient struct {
	api roomAPI
}

// NewRoomSessionClient talks to the media server room service over twirp.
func NewRoomSessionClient(cfg Config) ports.RoomSessionClient {
	return &roomSessionClient{api: lksdk.NewRoomServiceClient(cfg.URL, cfg.APIKey, cfg.APISecret)}
}

func (c *roomSessionClient) RoomExists(ctx context.Context, roomName string) (bool, error) {
	ctx, span := tracing.TraceRTCCall(ctx, "list_rooms")
	defer span.End()

	resp, err := c.api.ListRooms(ctx, &livekit.ListRoomsRequest{Names: []string{roomName}})
	if err != nil {
		tracing.RecordError(ctx, err)
		return false, fmt.Errorf("list rooms: %w", err)
	}
	for _, room := range resp.GetRooms() {
		if room.GetName() == roomName {
			return true, nil
		}
	}
	return false, nil
}

func (c *roomSessionClient) SendReliableData(ctx context.Context, roomName string, payload []byte) error {
	ctx, span := tracing.TraceRTCCall(ctx, "send_data")
	defer span.End()

	_, err := c.api.SendData(ctx, &livekit.SendDataRequest{
		Room: roomName,
		Data: payload,
		Kind: livekit.DataPacket_RELIABLE,
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("send data: %w", err)
	}
	return nil
}

type sipClient struct {
	api sipAPI
}

func NewSIPClient(cfg Config) ports.SIPClient {
	return &sipClient{api: lksdk.NewSIPClient(cfg.URL, cfg.APIKey, cfg.APISecret)}
}

// CreateDispatchRule routes callers presenting pin straight into roomName.
func (c *sipClient) CreateDispatchRule(ctx context.Context, name, roomName, pin string) error {
	ctx, span := tracing.TraceRTCCall(ctx, "create_sip_dispatch_rule")
	defer span.End()

	_, err := c.api.CreateSIPDispatchRule(ctx, &livekit.CreateSIPDispatchRuleRequest{
		Name: name,
		Rule: &livekit.SIPDispatchRule{
			Rule: &livekit.SIPDispatchRule_DispatchRuleDirect{
				DispatchRuleDirect: &livekit.SIPDispatchRuleDirect{
					RoomName: roomName,
					Pin:      pin,
				},
			},
		},
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("create sip dispatch rule: %w", err)
	}
	return nil
}

func (c *sipClient) ListDispatchRules(ctx context.Context) ([]domain.DispatchRule, error) {
	ctx, span := tracing.TraceRTCCall(ctx, "list_sip_dispatch_rules")
	defer span.End()

	resp, err := c.api.ListSIPDispatchRule(ctx, &livekit.ListSIPDispatchRuleRequest{})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("list sip dispatch rules: %w", err)
	}

	rules := make([]domain.DispatchRule, 0, len(resp.GetItems()))
	for _, item := range resp.GetItems() {
		rules = append(rules, domain.DispatchRule{ID: item.GetSipDispatchRuleId(), Name: item.GetName()})
	}
	return rules, nil
}

func (c *sipClient) DeleteDispatchRule(ctx context.Context, ruleID string) error {
	ctx, span := tracing.TraceRTCCall(ctx, "delete_sip_dispatch_rule")
	defer span.End()

	_, err := c.api.DeleteSIPDispatchRule(ctx, &livekit.DeleteSIPDispatchRuleRequest{SipDispatchRuleId: ruleID})
	if err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("delete sip dispatch rule: %w", err)
	}
	return nil
}
