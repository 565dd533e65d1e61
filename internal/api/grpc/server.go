// Package grpc - gRPC транспорт жизненного цикла задач.
// Сообщения - google.protobuf.Struct, сервис описан вручную без protoc.
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/infrastructure/auth"
	"github.com/St1cky1/entraide-service/internal/usecase"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "entraide.v1.LifecycleService"

// Authenticator проверяет access token из metadata
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (entity.Actor, error)
}

// LifecycleServer - методы сервиса, HandlerType для ServiceDesc
type LifecycleServer interface {
	Propose(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Confirm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Decline(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Complete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListForUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type GRPCServer struct {
	taskService *usecase.TaskService
	userService *usecase.UserService
	auth        Authenticator
	server      *grpc.Server
}

func NewGRPCServer(taskService *usecase.TaskService, userService *usecase.UserService, authenticator Authenticator) *GRPCServer {
	s := &GRPCServer{
		taskService: taskService,
		userService: userService,
		auth:        authenticator,
	}
	s.server = grpc.NewServer(
		grpc.UnaryInterceptor(s.unaryInterceptor),
	)
	s.server.RegisterService(&LifecycleServiceDesc, s)
	reflection.Register(s.server)
	return s
}

// Serve блокируется до Stop
func (s *GRPCServer) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("gRPC server listening")
	return s.server.Serve(lis)
}

func (s *GRPCServer) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

func (s *GRPCServer) Stop() {
	s.server.GracefulStop()
}

type actorKey struct{}

// unaryInterceptor: логирование и аутентификация по bearer токену
func (s *GRPCServer) unaryInterceptor(ctx context.Context, req interface{},
	info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get("authorization"); len(values) > 0 {
			token = auth.BearerToken(values[0])
		}
	}
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing bearer token")
	}

	actor, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	resp, err := handler(context.WithValue(ctx, actorKey{}, actor), req)
	log.Debug().
		Str("method", info.FullMethod).
		Str("code", status.Code(err).String()).
		Dur("duration", time.Since(start)).
		Msg("gRPC call")
	return resp, err
}

func actorFrom(ctx context.Context) entity.Actor {
	actor, _ := ctx.Value(actorKey{}).(entity.Actor)
	return actor
}

func (s *GRPCServer) Propose(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.apply(ctx, req, s.taskService.Propose)
}

func (s *GRPCServer) Confirm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.apply(ctx, req, s.taskService.Confirm)
}

func (s *GRPCServer) Decline(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.apply(ctx, req, s.taskService.Decline)
}

func (s *GRPCServer) Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.apply(ctx, req, s.taskService.Cancel)
}

func (s *GRPCServer) Complete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.apply(ctx, req, s.taskService.Complete)
}

// ListForUser: {"type": "groceries", "near": true} -> {"tasks": [...]}
func (s *GRPCServer) ListForUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor := actorFrom(ctx)
	fields := req.GetFields()

	filter := usecase.ListFilter{
		Type: entity.TaskType(fields["type"].GetStringValue()),
	}
	if fields["near"].GetBoolValue() {
		coords, err := s.userService.Coordinates(ctx, actor.UserID)
		if err != nil {
			return nil, toStatus(err)
		}
		filter.Near = coords
	}

	tasks, err := s.taskService.ListForUser(ctx, actor, filter)
	if err != nil {
		return nil, toStatus(err)
	}
	if tasks == nil {
		tasks = []entity.Task{}
	}
	return toStruct(map[string]interface{}{"tasks": tasks})
}

type transitionFunc func(ctx context.Context, taskID uuid.UUID, actor entity.Actor) (*entity.Task, error)

// apply: {"task_id": "..."} -> задача после перехода
func (s *GRPCServer) apply(ctx context.Context, req *structpb.Struct, fn transitionFunc) (*structpb.Struct, error) {
	taskID, err := uuid.Parse(req.GetFields()["task_id"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "task_id must be a UUID")
	}

	task, err := fn(ctx, taskID, actorFrom(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(task)
}

// toStruct переводит значение в Struct через его JSON представление
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.Is(err, entity.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, entity.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, entity.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, entity.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	default:
		log.Error().Err(err).Msg("gRPC internal error")
		return status.Error(codes.Internal, "internal error")
	}
}

func unaryHandler(method string, call func(LifecycleServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LifecycleServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(LifecycleServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var LifecycleServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LifecycleServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Propose", LifecycleServer.Propose),
		unaryHandler("Confirm", LifecycleServer.Confirm),
		unaryHandler("Decline", LifecycleServer.Decline),
		unaryHandler("Cancel", LifecycleServer.Cancel),
		unaryHandler("Complete", LifecycleServer.Complete),
		unaryHandler("ListForUser", LifecycleServer.ListForUser),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "entraide/v1/lifecycle.proto",
}
