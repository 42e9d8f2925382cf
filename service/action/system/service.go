package system

import (
	"context"
	"strings"
	"time"

	"github.com/viant/batcher/model/types"
)

// Name service name
const Name = "system"

// Service provides utility functions, mostly useful to exercise the pool
type Service struct{}

// New creates a system service
func New() *Service {
	return &Service{}
}

// Name returns the service name
func (s *Service) Name() string {
	return Name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name: "sleep",
			Description: `Sleeps for the given duration and returns the optional value.
Arguments: duration (milliseconds or Go duration string), value (optional).`,
		},
		{
			Name:        "echo",
			Description: "Returns its single positional argument, or all positional arguments as a slice.",
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Func, error) {
	switch strings.ToLower(name) {
	case "sleep":
		return s.sleep, nil
	case "echo":
		return s.echo, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) sleep(ctx context.Context, args *types.Args) (interface{}, error) {
	duration, err := durationArg(args, 0)
	if err != nil {
		return nil, err
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if args.Len() > 1 {
		return args.At(1), nil
	}
	return duration.String(), nil
}

func (s *Service) echo(ctx context.Context, args *types.Args) (interface{}, error) {
	switch args.Len() {
	case 0:
		return nil, nil
	case 1:
		return args.At(0), nil
	}
	return args.Positional, nil
}

func durationArg(args *types.Args, position int) (time.Duration, error) {
	value := args.At(position)
	if text, ok := value.(string); ok {
		duration, err := time.ParseDuration(text)
		if err != nil {
			return 0, types.NewInvalidArgumentError(position, value, "duration")
		}
		return duration, nil
	}
	if duration, ok := value.(time.Duration); ok {
		return duration, nil
	}
	millis, err := args.Int(position)
	if err != nil {
		return 0, err
	}
	return time.Duration(millis) * time.Millisecond, nil
}
