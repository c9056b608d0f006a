package nbi

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/ambulance-tracker/core"
	"github.com/signalsfoundry/ambulance-tracker/internal/app"
	"github.com/signalsfoundry/ambulance-tracker/internal/config"
	"github.com/signalsfoundry/ambulance-tracker/internal/geo"
	"github.com/signalsfoundry/ambulance-tracker/internal/navigation"
	"github.com/signalsfoundry/ambulance-tracker/internal/tracker"
)

// ToStatusError maps tracker errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrNoFrame),
		errors.Is(err, navigation.ErrUnknownRoute):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, geo.ErrPermissionDenied),
		errors.Is(err, app.ErrMapNotOpen),
		errors.Is(err, tracker.ErrAlreadyMounted),
		errors.Is(err, navigation.ErrAlreadyShown):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, geo.ErrLocationUnavailable):
		return status.Error(codes.Unavailable, err.Error())

	case errors.Is(err, config.ErrInvalid),
		errors.Is(err, core.ErrDuplicateEntityID),
		errors.Is(err, core.ErrNoEntities):
		return status.Error(codes.InvalidArgument, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
