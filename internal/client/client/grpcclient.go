package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	pb "github.com/dmitrijs2005/gophrelay/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.RelayServiceClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	onRefresh    func(accessToken, refreshToken string)
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	accessToken, refreshToken := s.Tokens()
	if accessToken != "" {
		ctx = withAccessToken(ctx, accessToken)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refreshToken == "" {
		return err
	}

	resp, rerr := s.client.RefreshToken(ctx, &pb.RefreshTokenRequest{RefreshToken: refreshToken})
	if rerr != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = resp.AccessToken
	s.refreshToken = resp.RefreshToken
	onRefresh := s.onRefresh
	s.mu.Unlock()

	if onRefresh != nil {
		onRefresh(resp.AccessToken, resp.RefreshToken)
	}

	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

// NewRelayClient connects lazily to endpointURL. Extra options are appended
// after the defaults, which lets tests swap the dialer.
func NewRelayClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = pb.NewRelayServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) SetTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
}

func (s *GRPCClient) Tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) OnTokensRefreshed(fn func(accessToken, refreshToken string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRefresh = fn
}

func (s *GRPCClient) Register(ctx context.Context, name, email, mobile, password string) (pb.User, error) {
	resp, err := s.client.RegisterUser(ctx, &pb.RegisterUserRequest{Name: name, Email: email, Mobile: mobile, Password: password})
	if err != nil {
		return pb.User{}, s.mapError(err)
	}
	return resp.User, nil
}

// Login authenticates and keeps the issued tokens for later calls.
func (s *GRPCClient) Login(ctx context.Context, emailOrMobile, password string) (*pb.LoginResponse, error) {
	resp, err := s.client.Login(ctx, &pb.LoginRequest{EmailOrMobile: emailOrMobile, Password: password})
	if err != nil {
		return nil, s.mapError(err)
	}

	s.SetTokens(resp.AccessToken, resp.RefreshToken)
	return resp, nil
}

func (s *GRPCClient) UpdateProfile(ctx context.Context, name, email *string) (pb.User, error) {
	resp, err := s.client.UpdateProfile(ctx, &pb.UpdateProfileRequest{Name: name, Email: email})
	if err != nil {
		return pb.User{}, s.mapError(err)
	}
	return resp.User, nil
}

func (s *GRPCClient) SearchUsers(ctx context.Context, query string) ([]pb.User, error) {
	resp, err := s.client.SearchUsers(ctx, &pb.SearchUsersRequest{Query: query})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Users, nil
}

func (s *GRPCClient) SendMessage(ctx context.Context, recipientID, content string) (pb.Message, error) {
	resp, err := s.client.SendMessage(ctx, &pb.SendMessageRequest{RecipientID: recipientID, Content: content})
	if err != nil {
		return pb.Message{}, s.mapError(err)
	}
	return resp.Message, nil
}

func (s *GRPCClient) Stats(ctx context.Context) (pb.Stats, error) {
	resp, err := s.client.Stats(ctx, &pb.StatsRequest{})
	if err != nil {
		return pb.Stats{}, s.mapError(err)
	}
	return resp.Stats, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &pb.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.InvalidArgument, codes.AlreadyExists, codes.NotFound:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
