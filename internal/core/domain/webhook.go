package domain

// WebhookEventType enumerates the events the RTC provider may deliver.
type WebhookEventType string

const (
	EventRoomStarted       WebhookEventType = "room_started"
	EventRoomFinished      WebhookEventType = "room_finished"
	EventParticipantJoined WebhookEventType = "participant_joined"
	EventParticipantLeft   WebhookEventType = "participant_left"
	EventTrackPublished    WebhookEventType = "track_published"
	EventTrackUnpublished  WebhookEventType = "track_unpublished"
	EventEgressStarted     WebhookEventType = "egress_started"
	EventEgressUpdated     WebhookEventType = "egress_updated"
	EventEgressEnded       WebhookEventType = "egress_ended"
	EventIngressStarted    WebhookEventType = "ingress_started"
	EventIngressEnded      WebhookEventType = "ingress_ended"
)

var knownEventTypes = map[WebhookEventType]struct{}{
	EventRoomStarted:       {},
	EventRoomFinished:      {},
	EventParticipantJoined: {},
	EventParticipantLeft:   {},
	EventTrackPublished:    {},
	EventTrackUnpublished:  {},
	EventEgressStarted:     {},
	EventEgressUpdated:     {},
	EventEgressEnded:       {},
	EventIngressStarted:    {},
	EventIngressEnded:      {},
}

// ParseWebhookEventType maps a raw event name onto the enumeration.
func ParseWebhookEventType(raw string) (WebhookEventType, bool) {
	t := WebhookEventType(raw)
	_, ok := knownEventTypes[t]
	return t, ok
}
