package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
	"github.com/vopenia-io/meet/internal/infrastructure/repositories/memory"
	"github.com/vopenia-io/meet/pkg/utils"
)

var testLobbyConfig = LobbyConfig{
	KeyPrefix:        "room_lobby",
	WaitingTimeout:   3 * time.Second,
	AcceptedTimeout:  6 * time.Hour,
	DeniedTimeout:    5 * time.Second,
	NotificationType: "participantWaiting",
}

type lobbyFixture struct {
	svc      ports.LobbyService
	store    *memory.MemoryKeyStore
	clock    *testClock
	notifier *MockNotifier
	metrics  *recordingMetrics
}

func newLobbyFixture(t *testing.T) *lobbyFixture {
	t.Helper()
	clock := newTestClock()
	store := newTestStore(t, clock)

	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, domain.NotifyBestEffort).Return(nil).Maybe()

	sessions, err := NewSessionConfigGenerator(SessionConfig{
		URL:       "wss://livekit.test",
		APIKey:    "test-key",
		APISecret: "test-secret-test-secret-test-secret",
		TokenTTL:  6 * time.Hour,
	})
	require.NoError(t, err)

	metrics := &recordingMetrics{}
	svc := NewLobbyService(store, sessions, notifier, testLobbyConfig, metrics, testLogger(t))

	return &lobbyFixture{svc: svc, store: store, clock: clock, notifier: notifier, metrics: metrics}
}

func (f *lobbyFixture) key(roomID uuid.UUID, participantID string) string {
	return "room_lobby_" + roomID.String() + "_" + participantID
}

func (f *lobbyFixture) put(t *testing.T, roomID uuid.UUID, p *domain.Participant, ttl time.Duration) {
	t.Helper()
	data, err := domain.EncodeParticipant(p)
	require.NoError(t, err)
	require.NoError(t, f.store.Set(context.Background(), f.key(roomID, p.ID), data, ttl))
}

func (f *lobbyFixture) stored(t *testing.T, roomID uuid.UUID, participantID string) *domain.Participant {
	t.Helper()
	data, err := f.store.Get(context.Background(), f.key(roomID, participantID))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil
	}
	require.NoError(t, err)
	p, err := domain.DecodeParticipant(data)
	require.NoError(t, err)
	return p
}

func newRoom(level domain.RoomAccessLevel) *domain.Room {
	return &domain.Room{ID: uuid.New(), Name: "room", AccessLevel: level, OwnerID: "owner"}
}

var (
	anonymous     = domain.Principal{}
	authenticated = domain.Principal{ID: "user-1", Username: "alice"}
)

func TestRequestEntry_PublicRoomBypassesWithoutWriting(t *testing.T) {
	f := newLobbyFixture(t)
	room := newRoom(domain.AccessPublic)

	for _, principal := range []domain.Principal{anonymous, authenticated} {
		participant, session, err := f.svc.RequestEntry(context.Background(), room, principal, "p1", "Alice")
		require.NoError(t, err)

		assert.Equal(t, domain.StatusAccepted, participant.Status)
		require.NotNil(t, session)
		assert.Equal(t, room.ID.String(), session.Room)
		assert.NotEmpty(t, session.Token)
	}

	assert.Equal(t, 0, f.store.Size())
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestEntry_TrustedRoom(t *testing.T) {
	f := newLobbyFixture(t)
	room := newRoom(domain.AccessTrusted)
	ctx := context.Background()

	participant, session, err := f.svc.RequestEntry(ctx, room, authenticated, "p-auth", "Alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, participant.Status)
	assert.NotNil(t, session)
	assert.Nil(t, f.stored(t, room.ID, "p-auth"))

	participant, session, err = f.svc.RequestEntry(ctx, room, anonymous, "p-anon", "Bob")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, participant.Status)
	assert.Nil(t, session)
	assert.NotNil(t, f.stored(t, room.ID, "p-anon"))
}

func TestRequestEntry_WaitingIsIdempotentAndExtendsTTL(t *testing.T) {
	f := newLobbyFixture(t)
	room := newRoom(domain.AccessRestricted)
	ctx := context.Background()

	first, session, err := f.svc.RequestEntry(ctx, room, anonymous, "p1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, first.Status)
	assert.Nil(t, session)

	f.clock.Advance(2 * time.Second)

	second, session, err := f.svc.RequestEntry(ctx, room, anonymous, "p1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, second.Status)
	assert.Nil(t, session)
	assert.Equal(t, first.Color, second.Color)

	ttl, ok := f.store.TTL(f.key(room.ID, "p1"))
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, ttl)

	// past the first deadline, still queued
	f.clock.Advance(2 * time.Second)
	assert.NotNil(t, f.stored(t, room.ID, "p1"))

	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
	assert.Equal(t, []string{OutcomeWaiting, OutcomeWaiting}, f.metrics.entries)
}

func TestRequestEntry_AfterDecision(t *testing.T) {
	f := newLobbyFixture(t)
	room := newRoom(domain.AccessRestricted)
	ctx := context.Background()

	_, _, err := f.svc.RequestEntry(ctx, room, anonymous, "accepted", "Alice")
	require.NoError(t, err)
	_, _, err = f.svc.RequestEntry(ctx, room, anonymous, "denied", "Bob")
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleParticipantEntry(ctx, room.ID, "accepted", true))
	require.NoError(t, f.svc.HandleParticipantEntry(ctx, room.ID, "denied", false))

	participant, session, err := f.svc.RequestEntry(ctx, room, anonymous, "accepted", "Alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, participant.Status)
	require.NotNil(t, session)
	assert.Equal(t, "wss://livekit.test", session.URL)

	participant, session, err = f.svc.RequestEntry(ctx, room, anonymous, "denied", "Bob")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDenied, participant.Status)
	assert.Nil(t, session)

	acceptedTTL, _ := f.store.TTL(f.key(room.ID, "accepted"))
	deniedTTL, _ := f.store.TTL(f.key(room.ID, "denied"))
	assert.Equal(t, 6*time.Hour, acceptedTTL)
	assert.Equal(t, 5*time.Second, deniedTTL)
	assert.Equal(t, []bool{true, false}, f.metrics.decisions)
}

func TestRequestEntry_DeniedIsNeverPromotedUntilExpiry(t *testing.T) {
	f := newLobbyFixture(t)
	room := newRoom(domain.AccessRestricted)
	ctx := context.Background()

	_, _, err := f.svc.RequestEntry(ctx, room, anonymous, "p1", "Alice")
	require.NoError(t, err)
	require.NoError(t, f.svc.HandleParticipantEntry(ctx, room.ID, "p1", false))

	for i := 0; i < 3; i++ {
		participant, _, err := f.svc.RequestEntry(ctx, room, anonymous, "p1", "Alice")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDenied, participant.Status)
		f.clock.Advance(time.Second)
	}

	// denied TTL elapsed: the participant may queue again
	f.clock.Advance(3 * time.Second)
	participant, _, err := f.svc.RequestEntry(ctx, room, anonymous, "p1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, participant.Status)
}

func TestRequestEntry_BypassDoesNotPersistExistingEntry(t *testing.T) {
	f := newLobbyFixture(t)
	room := newRoom(domain.AccessRestricted)
	ctx := context.Background()

	_, _, err := f.svc.RequestEntry(ctx, room, anonymous, "p1", "Alice")
	require.NoError(t, err)

	room.AccessLevel = domain.AccessPublic
	participant, session, err := f.svc.RequestEntry(ctx, room, anonymous, "p1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, participant.Status)
	assert.NotNil(t, session)

	assert.Equal(t, domain.StatusWaiting, f.stored(t, room.ID, "p1").Status)
}

func TestRequestEntry_MintsParticipantID(t *testing.T) {
	f := newLobbyFixture(t)
	room := newRoom(domain.AccessRestricted)

	participant, _, err := f.svc.RequestEntry(context.Background(), room, anonymous, "", "Alice")
	require.NoError(t, err)

	assert.Regexp(t, `^[0-9a-f]{32}$`, participant.ID)
	assert.Equal(t, utils.GenerateColor(participant.ID), participant.Color)
	assert.NotNil(t, f.stored(t, room.ID, participant.ID))
}

func TestRequestEntry_CorruptedEntryIsReplaced(t *testing.T) {
	f := newLobbyFixture(t)
	room := newRoom(domain.AccessRestricted)
	ctx := context.Background()

	require.NoError(t, f.store.Set(ctx, f.key(room.ID, "p1"), []byte(`{"id":"p1","status":"bogus"}`), time.Minute))

	participant, _, err := f.svc.RequestEntry(ctx, room, anonymous, "p1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, participant.Status)
	assert.Equal(t, domain.StatusWaiting, f.stored(t, room.ID, "p1").Status)
	assert.Equal(t, 1, f.metrics.purged)
}

func TestEnter_NotificationFailureIsSwallowed(t *testing.T) {
	clock := newTestClock()
	store := newTestStore(t, clock)
	notifier := new(MockNotifier)
	roomID := uuid.New()
	notifier.On("Notify", mock.Anything, roomID.String(), map[string]string{"type": "participantWaiting"}, domain.NotifyBestEffort).
		Return(&domain.NotificationError{Room: roomID.String(), Cause: errors.New("twirp unavailable")})

	svc := NewLobbyService(store, nil, notifier, testLobbyConfig, nil, testLogger(t))

	participant, err := svc.Enter(context.Background(), roomID, "p1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, participant.Status)

	ttl, ok := store.TTL("room_lobby_" + roomID.String() + "_p1")
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, ttl)
	notifier.AssertExpectations(t)
}

func TestRefreshWaitingStatus_NeverRecreates(t *testing.T) {
	f := newLobbyFixture(t)
	roomID := uuid.New()

	require.NoError(t, f.svc.RefreshWaitingStatus(context.Background(), roomID, "ghost"))
	assert.Nil(t, f.stored(t, roomID, "ghost"))
}

func TestListWaitingParticipants_FiltersAndPurges(t *testing.T) {
	f := newLobbyFixture(t)
	ctx := context.Background()
	roomID := uuid.New()
	otherRoom := uuid.New()

	f.put(t, roomID, &domain.Participant{ID: "w1", Username: "A", Status: domain.StatusWaiting, Color: "hsl(1, 50%, 30%)"}, time.Minute)
	f.put(t, roomID, &domain.Participant{ID: "w2", Username: "B", Status: domain.StatusWaiting, Color: "hsl(2, 50%, 30%)"}, time.Minute)
	f.put(t, roomID, &domain.Participant{ID: "a1", Username: "C", Status: domain.StatusAccepted, Color: "hsl(3, 50%, 30%)"}, time.Minute)
	f.put(t, roomID, &domain.Participant{ID: "d1", Username: "D", Status: domain.StatusDenied, Color: "hsl(4, 50%, 30%)"}, time.Minute)
	f.put(t, otherRoom, &domain.Participant{ID: "w3", Username: "E", Status: domain.StatusWaiting, Color: "hsl(5, 50%, 30%)"}, time.Minute)
	require.NoError(t, f.store.Set(ctx, f.key(roomID, "bad"), []byte("not json"), time.Minute))
	require.NoError(t, f.store.Set(ctx, f.key(roomID, "nostatus"), []byte(`{"id":"nostatus","username":"F","color":"hsl(6, 50%, 30%)"}`), time.Minute))

	waiting, err := f.svc.ListWaitingParticipants(ctx, roomID)
	require.NoError(t, err)

	ids := make([]string, 0, len(waiting))
	for _, p := range waiting {
		ids = append(ids, p.ID)
		assert.Equal(t, domain.StatusWaiting, p.Status)
	}
	assert.ElementsMatch(t, []string{"w1", "w2"}, ids)

	_, err = f.store.Get(ctx, f.key(roomID, "bad"))
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	assert.NotNil(t, f.stored(t, roomID, "nostatus"))
	assert.Equal(t, 1, f.metrics.purged)
}

func TestListWaitingParticipants_EmptyRoom(t *testing.T) {
	f := newLobbyFixture(t)

	waiting, err := f.svc.ListWaitingParticipants(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, waiting)
	assert.Empty(t, waiting)
}

func TestHandleParticipantEntry_Errors(t *testing.T) {
	f := newLobbyFixture(t)
	ctx := context.Background()
	roomID := uuid.New()

	err := f.svc.HandleParticipantEntry(ctx, roomID, "ghost", true)
	assert.ErrorIs(t, err, domain.ErrParticipantNotFound)

	require.NoError(t, f.store.Set(ctx, f.key(roomID, "bad"), []byte(`{"id":"bad"}`), time.Minute))
	err = f.svc.HandleParticipantEntry(ctx, roomID, "bad", true)
	assert.ErrorIs(t, err, domain.ErrParticipantParsing)

	var parsingErr *domain.ParsingError
	require.ErrorAs(t, err, &parsingErr)
	assert.Equal(t, f.key(roomID, "bad"), parsingErr.Key)

	_, err = f.store.Get(ctx, f.key(roomID, "bad"))
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestClearRoomCache(t *testing.T) {
	f := newLobbyFixture(t)
	ctx := context.Background()
	roomID := uuid.New()
	otherRoom := uuid.New()

	f.put(t, roomID, &domain.Participant{ID: "w1", Username: "A", Status: domain.StatusWaiting, Color: "c"}, time.Minute)
	f.put(t, roomID, &domain.Participant{ID: "a1", Username: "B", Status: domain.StatusAccepted, Color: "c"}, time.Minute)
	f.put(t, otherRoom, &domain.Participant{ID: "w2", Username: "C", Status: domain.StatusWaiting, Color: "c"}, time.Minute)

	require.NoError(t, f.svc.ClearRoomCache(ctx, roomID))
	waiting, err := f.svc.ListWaitingParticipants(ctx, roomID)
	require.NoError(t, err)
	assert.Empty(t, waiting)
	assert.Nil(t, f.stored(t, roomID, "a1"))

	// already empty
	require.NoError(t, f.svc.ClearRoomCache(ctx, roomID))
	waiting, err = f.svc.ListWaitingParticipants(ctx, roomID)
	require.NoError(t, err)
	assert.Empty(t, waiting)

	assert.NotNil(t, f.stored(t, otherRoom, "w2"))
}

func TestClearRoomCache_StoreFailure(t *testing.T) {
	clock := newTestClock()
	store := brokenScanStore{newTestStore(t, clock)}
	svc := NewLobbyService(store, nil, new(MockNotifier), testLobbyConfig, nil, testLogger(t))

	err := svc.ClearRoomCache(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errStoreDown)
}

// Concurrent writers are not serialized: the last write wins and the entry
// always decodes to one of the written states.
func TestConcurrentRequests_LastWriteWins(t *testing.T) {
	f := newLobbyFixture(t)
	room := newRoom(domain.AccessRestricted)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*domain.Participant, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = f.svc.RequestEntry(ctx, room, anonymous, "p1", "Alice")
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, domain.StatusWaiting, results[i].Status)
	}
	keys, err := f.store.ScanPrefix(ctx, "room_lobby_"+room.ID.String()+"_")
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	for _, allow := range []bool{true, false} {
		wg.Add(1)
		go func(allow bool) {
			defer wg.Done()
			_ = f.svc.HandleParticipantEntry(ctx, room.ID, "p1", allow)
		}(allow)
	}
	wg.Wait()

	final := f.stored(t, room.ID, "p1")
	require.NotNil(t, final)
	assert.Contains(t, []domain.ParticipantStatus{domain.StatusAccepted, domain.StatusDenied}, final.Status)
}

func TestNotifyParticipants_UsesConfiguredType(t *testing.T) {
	clock := newTestClock()
	store := newTestStore(t, clock)
	notifier := new(MockNotifier)
	roomID := uuid.New()
	notifier.On("Notify", mock.Anything, roomID.String(), map[string]string{"type": "participantWaiting"}, domain.NotifyStrict).
		Return(domain.ErrNotification)

	svc := NewLobbyService(store, nil, notifier, testLobbyConfig, nil, testLogger(t))

	err := svc.NotifyParticipants(context.Background(), roomID, domain.NotifyStrict)
	assert.ErrorIs(t, err, domain.ErrNotification)
}
