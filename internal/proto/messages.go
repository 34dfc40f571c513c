package proto

import "time"

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	IsOnline bool   `json:"isOnline"`
}

type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	Delivered   bool      `json:"delivered"`
}

type Stats struct {
	TotalUsers        int `json:"totalUsers"`
	OnlineUsers       int `json:"onlineUsers"`
	ActiveConnections int `json:"activeConnections"`
	PendingMessages   int `json:"pendingMessages"`
}

type RegisterUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

type RegisterUserResponse struct {
	User User `json:"user"`
}

type LoginRequest struct {
	EmailOrMobile string `json:"emailOrMobile"`
	Password      string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UpdateProfileRequest leaves nil fields unchanged.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

type UpdateProfileResponse struct {
	User User `json:"user"`
}

type SearchUsersRequest struct {
	Query string `json:"query"`
}

type SearchUsersResponse struct {
	Users []User `json:"users"`
}

type SendMessageRequest struct {
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

type SendMessageResponse struct {
	Message Message `json:"message"`
}

type StatsRequest struct{}

type StatsResponse struct {
	Stats Stats `json:"stats"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
