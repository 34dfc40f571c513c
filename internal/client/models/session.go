package models

// Session is the signed-in identity persisted between CLI runs.
type Session struct {
	UserID       string
	UserName     string
	AccessToken  string
	RefreshToken string
}
