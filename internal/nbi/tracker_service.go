package nbi

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/ambulance-tracker/internal/home"
	"github.com/signalsfoundry/ambulance-tracker/internal/logging"
	"github.com/signalsfoundry/ambulance-tracker/internal/surface"
	"github.com/signalsfoundry/ambulance-tracker/model"
)

// ErrNoFrame is returned by GetFrame before the map view was ever shown.
var ErrNoFrame = errors.New("no frame published yet")

// Controller is what the service drives; *app.App satisfies it.
type Controller interface {
	FindAmbulance(ctx context.Context) error
	CallAmbulance(ctx context.Context) (model.LocationPoint, error)
	CloseMap(ctx context.Context) error
	Back(ctx context.Context)
	Frame() (model.Frame, bool)
	Route() string
}

// EventSource is the hub subscription API.
type EventSource interface {
	Subscribe(buffer int) (<-chan surface.Event, func())
}

const watchBuffer = 64

// TrackerService implements TrackerServiceServer.
//
// Semantics:
//   - FindAmbulance and CallAmbulance run the home screen actions; a denied
//     or failed location check maps to FailedPrecondition or Unavailable.
//   - Close presses the map's close button and fails with
//     FailedPrecondition when the map is not open.
//   - GetFrame returns the last published frame, live or frozen.
//   - WatchFrames streams hub events until the client goes away.
type TrackerService struct {
	ctrl   Controller
	events EventSource
	log    logging.Logger
}

// NewTrackerService binds the service to ctrl and events.
func NewTrackerService(ctrl Controller, events EventSource, log logging.Logger) *TrackerService {
	if log == nil {
		log = logging.Noop()
	}
	return &TrackerService{ctrl: ctrl, events: events, log: log}
}

// FindAmbulance implements TrackerServiceServer.
func (s *TrackerService) FindAmbulance(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	ctx, span := StartChildSpan(ctx, "Tracker.FindAmbulance")
	defer span.End()

	if err := s.ctrl.FindAmbulance(ctx); err != nil {
		span.RecordError(err)
		logging.FromContext(ctx, s.log).Warn(ctx, "FindAmbulance failed", logging.Error(err))
		return nil, ToStatusError(err)
	}
	return structpb.NewStruct(map[string]any{"route": s.ctrl.Route()})
}

// CallAmbulance implements TrackerServiceServer.
func (s *TrackerService) CallAmbulance(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	ctx, span := StartChildSpan(ctx, "Tracker.CallAmbulance")
	defer span.End()

	loc, err := s.ctrl.CallAmbulance(ctx)
	if err != nil {
		span.RecordError(err)
		logging.FromContext(ctx, s.log).Warn(ctx, "CallAmbulance failed", logging.Error(err))
		return nil, ToStatusError(err)
	}
	return structpb.NewStruct(map[string]any{
		"notice": home.NoticeHelpOnTheWay,
		"location": map[string]any{
			"latitude":  loc.Latitude,
			"longitude": loc.Longitude,
		},
	})
}

// Close implements TrackerServiceServer.
func (s *TrackerService) Close(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.ctrl.CloseMap(ctx); err != nil {
		return nil, ToStatusError(err)
	}
	return &emptypb.Empty{}, nil
}

// Back implements TrackerServiceServer.
func (s *TrackerService) Back(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.ctrl.Back(ctx)
	return structpb.NewStruct(map[string]any{"route": s.ctrl.Route()})
}

// GetFrame implements TrackerServiceServer.
func (s *TrackerService) GetFrame(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	frame, ok := s.ctrl.Frame()
	if !ok {
		return nil, ToStatusError(ErrNoFrame)
	}
	out, err := surface.FrameStruct(frame)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

// WatchFrames implements TrackerServiceServer.
func (s *TrackerService) WatchFrames(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()
	log := logging.FromContext(ctx, s.log)

	events, cancel := s.events.Subscribe(watchBuffer)
	defer cancel()
	log.Info(ctx, "watch started")

	for {
		select {
		case <-ctx.Done():
			log.Info(ctx, "watch ended")
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			msg, err := surface.EventStruct(e)
			if err != nil {
				log.Warn(ctx, "dropping unencodable event", logging.String("kind", e.Kind), logging.Error(err))
				continue
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}
