package rtc

import (
	"context"
	"errors"
	"testing"

	"github.com/livekit/protocol/livekit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vopenia-io/meet/internal/core/domain"
)

type mockEgressAPI struct {
	mock.Mock
}

func (m *mockEgressAPI) StartRoomCompositeEgress(ctx context.Context, req *livekit.RoomCompositeEgressRequest) (*livekit.EgressInfo, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*livekit.EgressInfo), args.Error(1)
}

func (m *mockEgressAPI) StopEgress(ctx context.Context, req *livekit.StopEgressRequest) (*livekit.EgressInfo, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*livekit.EgressInfo), args.Error(1)
}

var testOutput = EgressOutput{
	Folder:    "recordings/",
	Bucket:    "meet-media",
	Region:    "eu-west-1",
	Endpoint:  "https://s3.example.test",
	AccessKey: "access",
	Secret:    "secret",
}

func TestStartRoomComposite_Video(t *testing.T) {
	api := new(mockEgressAPI)
	api.On("StartRoomCompositeEgress", mock.Anything, mock.MatchedBy(func(req *livekit.RoomCompositeEgressRequest) bool {
		if req.RoomName != "room-1" || req.Layout != compositeLayout || req.AudioOnly || len(req.FileOutputs) != 1 {
			return false
		}
		out := req.FileOutputs[0]
		return out.FileType == livekit.EncodedFileType_MP4 &&
			out.Filepath == "recordings/rec-1.mp4" &&
			out.GetS3().GetBucket() == "meet-media"
	})).Return(&livekit.EgressInfo{EgressId: "EG_video"}, nil)

	client := &egressClient{api: api, output: testOutput}

	id, err := client.StartRoomComposite(context.Background(), "room-1", "rec-1", false)
	require.NoError(t, err)
	assert.Equal(t, "EG_video", id)
	api.AssertExpectations(t)
}

func TestStartRoomComposite_AudioWithoutBucket(t *testing.T) {
	api := new(mockEgressAPI)
	api.On("StartRoomCompositeEgress", mock.Anything, mock.MatchedBy(func(req *livekit.RoomCompositeEgressRequest) bool {
		if !req.AudioOnly || req.Layout != "" || len(req.FileOutputs) != 1 {
			return false
		}
		out := req.FileOutputs[0]
		return out.FileType == livekit.EncodedFileType_OGG &&
			out.Filepath == "rec-2.ogg" &&
			out.GetS3() == nil
	})).Return(&livekit.EgressInfo{EgressId: "EG_audio"}, nil)

	client := &egressClient{api: api}

	id, err := client.StartRoomComposite(context.Background(), "room-1", "rec-2", true)
	require.NoError(t, err)
	assert.Equal(t, "EG_audio", id)
}

func TestStartRoomComposite_Errors(t *testing.T) {
	cause := errors.New("twirp error resource_exhausted")
	api := new(mockEgressAPI)
	api.On("StartRoomCompositeEgress", mock.Anything, mock.MatchedBy(func(req *livekit.RoomCompositeEgressRequest) bool {
		return req.RoomName == "busy"
	})).Return(nil, cause)
	api.On("StartRoomCompositeEgress", mock.Anything, mock.Anything).Return(&livekit.EgressInfo{}, nil)

	client := &egressClient{api: api, output: testOutput}

	_, err := client.StartRoomComposite(context.Background(), "busy", "rec", false)
	assert.ErrorIs(t, err, cause)

	_, err = client.StartRoomComposite(context.Background(), "room", "rec", false)
	assert.ErrorIs(t, err, errMissingEgressID)
}

func TestStopEgress_MapsStatus(t *testing.T) {
	tests := []struct {
		name   string
		status livekit.EgressStatus
		want   domain.RecordingStatus
	}{
		{"ending", livekit.EgressStatus_EGRESS_ENDING, domain.RecordingStopped},
		{"aborted", livekit.EgressStatus_EGRESS_ABORTED, domain.RecordingAborted},
		{"still active", livekit.EgressStatus_EGRESS_ACTIVE, domain.RecordingFailedToStop},
		{"failed", livekit.EgressStatus_EGRESS_FAILED, domain.RecordingFailedToStop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(mockEgressAPI)
			api.On("StopEgress", mock.Anything, mock.MatchedBy(func(req *livekit.StopEgressRequest) bool {
				return req.EgressId == "EG_1"
			})).Return(&livekit.EgressInfo{EgressId: "EG_1", Status: tt.status}, nil)

			status, err := (&egressClient{api: api}).StopEgress(context.Background(), "EG_1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestStopEgress_Error(t *testing.T) {
	cause := errors.New("twirp error not_found")
	api := new(mockEgressAPI)
	api.On("StopEgress", mock.Anything, mock.Anything).Return(nil, cause)

	_, err := (&egressClient{api: api}).StopEgress(context.Background(), "EG_1")
	assert.ErrorIs(t, err, cause)
}
