// Package grpc serves RelayService, the gRPC surface of the relay used by
// the command-line client.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophrelay/internal/logging"
	pb "github.com/dmitrijs2005/gophrelay/internal/proto"
	"github.com/dmitrijs2005/gophrelay/internal/server/auth"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/services"
	"google.golang.org/grpc"
)

// UserService is the identity side of RelayService.
type UserService interface {
	Register(ctx context.Context, name, email, mobile, password string) (models.PublicUser, error)
	Login(ctx context.Context, emailOrMobile, password string) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	VerifyToken(token string) (auth.Principal, error)
	UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (models.PublicUser, error)
	Search(ctx context.Context, term, requesterID string) ([]models.PublicUser, error)
}

// ChatService is the relay side of RelayService.
type ChatService interface {
	Send(ctx context.Context, senderID, recipientID, content string) (models.Message, error)
	Stats(ctx context.Context) (models.Stats, error)
}

type GRPCServer struct {
	pb.UnimplementedRelayServiceServer
	address string
	users   UserService
	chat    ChatService
	logger  logging.Logger
}

func NewgGRPCServer(a string, l logging.Logger, us UserService, cs ChatService) (*GRPCServer, error) {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		users:   us,
		chat:    cs,
	}, nil
}

// newServer builds the grpc.Server with the service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	pb.RegisterRelayServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
