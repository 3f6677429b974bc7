package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/mcdev12/nightskip/go/internal/sleep"
	"github.com/mcdev12/nightskip/go/internal/world"
	"github.com/rs/zerolog/log"
)

// CoordinatorServiceName is the fully-qualified name of the coordinator query service.
const CoordinatorServiceName = "nightskip.coordinator.v1.CoordinatorService"

const (
	CoordinatorServiceGetStatusProcedure  = "/" + CoordinatorServiceName + "/GetStatus"
	CoordinatorServiceListSkipsProcedure  = "/" + CoordinatorServiceName + "/ListSkips"
	CoordinatorServiceListWorldsProcedure = "/" + CoordinatorServiceName + "/ListWorlds"
)

const (
	defaultSkipLimit = 20
	maxSkipLimit     = 200
)

var (
	errHistoryDisabled = errors.New("skip history is disabled")
	errWorldsDisabled  = errors.New("world listing is disabled")
	errInvalidLimit    = errors.New("limit must be a positive integer")
)

type GetStatusRequest struct{}

type GetStatusResponse struct {
	Status sleep.Status `json:"status"`
}

// ListSkipsRequest asks for the most recent skips. A zero limit means the default.
type ListSkipsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListSkipsResponse struct {
	Skips []sleep.SkipResult `json:"skips"`
}

type ListWorldsRequest struct{}

type ListWorldsResponse struct {
	Worlds []world.State `json:"worlds"`
}

// WorldLister reports the state of every simulated world.
type WorldLister interface {
	States() []world.State
}

// Service answers coordinator queries. Only the status provider is required.
type Service struct {
	status  StatusProvider
	history HistoryLister
	worlds  WorldLister
}

func NewService(status StatusProvider) *Service {
	return &Service{status: status}
}

func (s *Service) GetStatus(ctx context.Context, req *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error) {
	return connect.NewResponse(&GetStatusResponse{Status: s.status.Status()}), nil
}

func (s *Service) ListSkips(ctx context.Context, req *connect.Request[ListSkipsRequest]) (*connect.Response[ListSkipsResponse], error) {
	if s.history == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, errHistoryDisabled)
	}
	limit, err := skipLimit(req.Msg.Limit)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	skips, err := s.recentSkips(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list night skips")
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&ListSkipsResponse{Skips: skips}), nil
}

func (s *Service) ListWorlds(ctx context.Context, req *connect.Request[ListWorldsRequest]) (*connect.Response[ListWorldsResponse], error) {
	if s.worlds == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, errWorldsDisabled)
	}
	return connect.NewResponse(&ListWorldsResponse{Worlds: s.worlds.States()}), nil
}

func (s *Service) recentSkips(ctx context.Context, limit int) ([]sleep.SkipResult, error) {
	skips, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if skips == nil {
		skips = []sleep.SkipResult{}
	}
	return skips, nil
}

// skipLimit applies the default to zero and caps n at maxSkipLimit.
func skipLimit(n int) (int, error) {
	switch {
	case n < 0:
		return 0, errInvalidLimit
	case n == 0:
		return defaultSkipLimit, nil
	default:
		return min(n, maxSkipLimit), nil
	}
}

// NewCoordinatorServiceHandler builds an HTTP handler for every procedure of
// svc and returns the path to mount it on. Requests and responses are plain
// JSON, and every procedure is side-effect free, so Connect GET is allowed.
func NewCoordinatorServiceHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithIdempotency(connect.IdempotencyNoSideEffects),
	}, opts...)

	getStatus := connect.NewUnaryHandler(CoordinatorServiceGetStatusProcedure, svc.GetStatus, opts...)
	listSkips := connect.NewUnaryHandler(CoordinatorServiceListSkipsProcedure, svc.ListSkips, opts...)
	listWorlds := connect.NewUnaryHandler(CoordinatorServiceListWorldsProcedure, svc.ListWorlds, opts...)

	return "/" + CoordinatorServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case CoordinatorServiceGetStatusProcedure:
			getStatus.ServeHTTP(w, r)
		case CoordinatorServiceListSkipsProcedure:
			listSkips.ServeHTTP(w, r)
		case CoordinatorServiceListWorldsProcedure:
			listWorlds.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// jsonCodec replaces connect's protojson codec under the "json" name so the
// service can use plain structs.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
