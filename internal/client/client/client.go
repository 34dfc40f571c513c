package client

import (
	"context"

	pb "github.com/dmitrijs2005/gophrelay/internal/proto"
)

// Client is the request/response side of the relay API.
type Client interface {
	Close() error
	Register(ctx context.Context, name, email, mobile, password string) (pb.User, error)
	Login(ctx context.Context, emailOrMobile, password string) (*pb.LoginResponse, error)
	UpdateProfile(ctx context.Context, name, email *string) (pb.User, error)
	SearchUsers(ctx context.Context, query string) ([]pb.User, error)
	SendMessage(ctx context.Context, recipientID, content string) (pb.Message, error)
	Stats(ctx context.Context) (pb.Stats, error)
	Ping(ctx context.Context) error

	// SetTokens replaces the credentials attached to protected calls.
	SetTokens(accessToken, refreshToken string)
	Tokens() (accessToken, refreshToken string)
	// OnTokensRefreshed registers fn to run after an expired access token
	// was rotated transparently.
	OnTokensRefreshed(fn func(accessToken, refreshToken string))
}
