package rtc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
	"github.com/vopenia-io/meet/pkg/tracing"
)

const compositeLayout = "speaker-light"

var errMissingEgressID = errors.New("egress id missing from response")

type egressAPI interface {
	StartRoomCompositeEgress(ctx context.Context, req *livekit.RoomCompositeEgressRequest) (*livekit.EgressInfo, error)
	StopEgress(ctx context.Context, req *livekit.StopEgressRequest) (*livekit.EgressInfo, error)
}

// EgressOutput says where recordings are written. Without a bucket files stay
// on the egress node.
type EgressOutput struct {
	Folder         string
	Bucket         string
	Region         string
	Endpoint       string
	AccessKey      string
	Secret         string
	ForcePathStyle bool
}

type egressClient struct {
	api    egressAPI
	output EgressOutput
}

func NewEgressClient(cfg Config, output EgressOutput) ports.EgressClient {
	return &egressClient{
		api:    lksdk.NewEgressClient(cfg.URL, cfg.APIKey, cfg.APISecret),
		output: output,
	}
}

func (c *egressClient) fileOutput(fileName string, fileType livekit.EncodedFileType, extension string) *livekit.EncodedFileOutput {
	filepath := fileName + "." + extension
	if folder := strings.TrimSuffix(c.output.Folder, "/"); folder != "" {
		filepath = folder + "/" + filepath
	}

	out := &livekit.EncodedFileOutput{
		FileType: fileType,
		Filepath: filepath,
	}
	if c.output.Bucket != "" {
		out.Output = &livekit.EncodedFileOutput_S3{
			S3: &livekit.S3Upload{
				AccessKey:      c.output.AccessKey,
				Secret:         c.output.Secret,
				Region:         c.output.Region,
				Endpoint:       c.output.Endpoint,
				Bucket:         c.output.Bucket,
				ForcePathStyle: c.output.ForcePathStyle,
			},
		}
	}
	return out
}

// StartRoomComposite records every track of the room into one file: an mp4
// laid out for the active speaker, or an ogg when audioOnly is set.
func (c *egressClient) StartRoomComposite(ctx context.Context, roomName, fileName string, audioOnly bool) (string, error) {
	ctx, span := tracing.TraceRTCCall(ctx, "start_room_composite_egress")
	defer span.End()

	req := &livekit.RoomCompositeEgressRequest{RoomName: roomName}
	if audioOnly {
		req.AudioOnly = true
		req.FileOutputs = []*livekit.EncodedFileOutput{c.fileOutput(fileName, livekit.EncodedFileType_OGG, "ogg")}
	} else {
		req.Layout = compositeLayout
		req.FileOutputs = []*livekit.EncodedFileOutput{c.fileOutput(fileName, livekit.EncodedFileType_MP4, "mp4")}
	}

	info, err := c.api.StartRoomCompositeEgress(ctx, req)
	if err != nil {
		tracing.RecordError(ctx, err)
		return "", fmt.Errorf("start room composite egress: %w", err)
	}
	if info.GetEgressId() == "" {
		tracing.RecordError(ctx, errMissingEgressID)
		return "", fmt.Errorf("start room composite egress: %w", errMissingEgressID)
	}
	return info.GetEgressId(), nil
}

func (c *egressClient) StopEgress(ctx context.Context, egressID string) (domain.RecordingStatus, error) {
	ctx, span := tracing.TraceRTCCall(ctx, "stop_egress")
	defer span.End()

	info, err := c.api.StopEgress(ctx, &livekit.StopEgressRequest{EgressId: egressID})
	if err != nil {
		tracing.RecordError(ctx, err)
		return "", fmt.Errorf("stop egress: %w", err)
	}

	switch info.GetStatus() {
	case livekit.EgressStatus_EGRESS_ABORTED:
		return domain.RecordingAborted, nil
	case livekit.EgressStatus_EGRESS_ENDING:
		return domain.RecordingStopped, nil
	default:
		return domain.RecordingFailedToStop, nil
	}
}
