package models

// Stats is a point-in-time snapshot of relay state.
type Stats struct {
	TotalUsers          int `json:"totalUsers"`
	OnlineCount         int `json:"onlineUsers"`
	BoundConnections    int `json:"activeConnections"`
	TotalQueuedMessages int `json:"pendingMessages"`
}

// Binding describes one live connection binding for debugging endpoints.
type Binding struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
	ConnID    string `json:"socketId"`
	Connected bool   `json:"connected"`
}

// UserDebug is the per-user diagnostic view.
type UserDebug struct {
	User              *PublicUser `json:"user"`
	IsOnline          bool        `json:"isOnline"`
	HasConnection     bool        `json:"hasConnection"`
	PendingMessages   int         `json:"pendingMessages"`
	ConnectionDetails *Binding    `json:"connectionDetails"`
}

// DebugUsers lists every user with presence and totals.
type DebugUsers struct {
	Users  []PublicUser `json:"users"`
	Total  int          `json:"total"`
	Online int          `json:"online"`
	Stats  Stats        `json:"stats"`
}
