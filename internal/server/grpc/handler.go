package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	pb "github.com/dmitrijs2005/gophrelay/internal/proto"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) RegisterUser(ctx context.Context, req *pb.RegisterUserRequest) (*pb.RegisterUserResponse, error) {

	s.logger.Info(ctx, "Registration request", "email", req.Email)

	user, err := s.users.Register(ctx, req.Name, req.Email, req.Mobile, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "user_id", user.ID)
	return &pb.RegisterUserResponse{User: toPBUser(user)}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.LoginResponse, error) {

	res, err := s.users.Login(ctx, req.EmailOrMobile, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.LoginResponse{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, User: toPBUser(res.User)}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *pb.RefreshTokenRequest) (*pb.RefreshTokenResponse, error) {

	pair, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.RefreshTokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) UpdateProfile(ctx context.Context, req *pb.UpdateProfileRequest) (*pb.UpdateProfileResponse, error) {
	userID, ok := userIDFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	user, err := s.users.UpdateProfile(ctx, userID, models.ProfileUpdate{Name: req.Name, Email: req.Email})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.UpdateProfileResponse{User: toPBUser(user)}, nil
}

func (s *GRPCServer) SearchUsers(ctx context.Context, req *pb.SearchUsersRequest) (*pb.SearchUsersResponse, error) {
	userID, ok := userIDFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	users, err := s.users.Search(ctx, req.Query, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := make([]pb.User, 0, len(users))
	for _, u := range users {
		out = append(out, toPBUser(u))
	}
	return &pb.SearchUsersResponse{Users: out}, nil
}

func (s *GRPCServer) SendMessage(ctx context.Context, req *pb.SendMessageRequest) (*pb.SendMessageResponse, error) {
	userID, ok := userIDFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	msg, err := s.chat.Send(ctx, userID, req.RecipientID, req.Content)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.SendMessageResponse{Message: pb.Message{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Content:     msg.Content,
		Timestamp:   msg.Timestamp,
		Delivered:   msg.Delivered,
	}}, nil
}

func (s *GRPCServer) Stats(ctx context.Context, req *pb.StatsRequest) (*pb.StatsResponse, error) {

	st, err := s.chat.Stats(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &pb.StatsResponse{Stats: pb.Stats{
		TotalUsers:        st.TotalUsers,
		OnlineUsers:       st.OnlineCount,
		ActiveConnections: st.BoundConnections,
		PendingMessages:   st.TotalQueuedMessages,
	}}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *pb.PingRequest) (*pb.PingResponse, error) {

	return &pb.PingResponse{Status: "OK"}, nil

}

func toPBUser(u models.PublicUser) pb.User {
	return pb.User{ID: u.ID, Name: u.Name, Email: u.Email, Mobile: u.Mobile, IsOnline: u.IsOnline}
}

// toStatus maps service errors onto gRPC codes. Internal details are logged,
// never returned.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": "))
	case errors.Is(err, common.ErrDuplicateIdentity):
		return status.Error(codes.AlreadyExists, "user with this email or mobile already exists")
	case errors.Is(err, common.ErrAuthFailed):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, "invalid or expired token")
	case errors.Is(err, common.ErrUnknownSender):
		return status.Error(codes.NotFound, "sender not found")
	case errors.Is(err, common.ErrUnknownRecipient):
		return status.Error(codes.NotFound, "recipient not found")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
