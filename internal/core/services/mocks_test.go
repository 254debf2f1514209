package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/infrastructure/repositories/memory"
)

type MockRoomSessionClient struct {
	mock.Mock
}

func (m *MockRoomSessionClient) RoomExists(ctx context.Context, roomName string) (bool, error) {
	args := m.Called(ctx, roomName)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoomSessionClient) SendReliableData(ctx context.Context, roomName string, payload []byte) error {
	args := m.Called(ctx, roomName, payload)
	return args.Error(0)
}

type MockSIPClient struct {
	mock.Mock
}

func (m *MockSIPClient) CreateDispatchRule(ctx context.Context, name, roomName, pin string) error {
	args := m.Called(ctx, name, roomName, pin)
	return args.Error(0)
}

func (m *MockSIPClient) ListDispatchRules(ctx context.Context) ([]domain.DispatchRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DispatchRule), args.Error(1)
}

func (m *MockSIPClient) DeleteDispatchRule(ctx context.Context, ruleID string) error {
	args := m.Called(ctx, ruleID)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, roomName string, payload any, mode domain.NotifyMode) error {
	args := m.Called(ctx, roomName, payload, mode)
	return args.Error(0)
}

type MockTelephonyService struct {
	mock.Mock
}

func (m *MockTelephonyService) CreateDispatchRule(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockTelephonyService) DeleteDispatchRule(ctx context.Context, roomID uuid.UUID) (bool, error) {
	args := m.Called(ctx, roomID)
	return args.Bool(0), args.Error(1)
}

type MockRecordingEventsService struct {
	mock.Mock
}

func (m *MockRecordingEventsService) HandleLimitReached(ctx context.Context, recording *domain.Recording) error {
	args := m.Called(ctx, recording)
	return args.Error(0)
}

type MockRecordingRepository struct {
	mock.Mock
}

func (m *MockRecordingRepository) Create(ctx context.Context, recording *domain.Recording) error {
	args := m.Called(ctx, recording)
	return args.Error(0)
}

func (m *MockRecordingRepository) GetByWorkerID(ctx context.Context, workerID string) (*domain.Recording, error) {
	args := m.Called(ctx, workerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recording), args.Error(1)
}

func (m *MockRecordingRepository) ListByRoomID(ctx context.Context, roomID uuid.UUID) ([]*domain.Recording, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Recording), args.Error(1)
}

func (m *MockRecordingRepository) Update(ctx context.Context, recording *domain.Recording) error {
	args := m.Called(ctx, recording)
	return args.Error(0)
}

type MockEgressClient struct {
	mock.Mock
}

func (m *MockEgressClient) StartRoomComposite(ctx context.Context, roomName, fileName string, audioOnly bool) (string, error) {
	args := m.Called(ctx, roomName, fileName, audioOnly)
	return args.String(0), args.Error(1)
}

func (m *MockEgressClient) StopEgress(ctx context.Context, egressID string) (domain.RecordingStatus, error) {
	args := m.Called(ctx, egressID)
	return args.Get(0).(domain.RecordingStatus), args.Error(1)
}

// recordingMetrics captures what services report.
type recordingMetrics struct {
	mu            sync.Mutex
	entries       []string
	decisions     []bool
	notifications []string
	webhooks      []string
	purged        int
}

func (r *recordingMetrics) LobbyEntry(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, outcome)
}

func (r *recordingMetrics) EntryDecision(allowed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, allowed)
}

func (r *recordingMetrics) Notification(mode domain.NotifyMode, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.notifications = append(r.notifications, mode.String()+":"+result)
}

func (r *recordingMetrics) WebhookEvent(event string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.webhooks = append(r.webhooks, event)
}

func (r *recordingMetrics) CorruptedEntryPurged() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purged++
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(t *testing.T, clock *testClock) *memory.MemoryKeyStore {
	t.Helper()
	store := memory.NewMemoryKeyStore(memory.WithClock(clock.Now), memory.WithCleanupInterval(0))
	t.Cleanup(store.Stop)
	return store
}

var errStoreDown = errors.New("store unavailable")

// brokenScanStore fails prefix scans and delegates everything else.
type brokenScanStore struct {
	*memory.MemoryKeyStore
}

func (s brokenScanStore) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	return nil, errStoreDown
}

func testLogger(t *testing.T) *zap.SugaredLogger {
	return zaptest.NewLogger(t).Sugar()
}
