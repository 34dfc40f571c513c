package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophrelay/internal/server/models"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

type loginRequest struct {
	EmailOrMobile string `json:"emailOrMobile"`
	Email         string `json:"email"`
	Mobile        string `json:"mobile"`
	Password      string `json:"password"`
}

func (l loginRequest) key() string {
	switch {
	case l.EmailOrMobile != "":
		return l.EmailOrMobile
	case l.Email != "":
		return l.Email
	default:
		return l.Mobile
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type profileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	user, err := s.users.Register(r.Context(), req.Name, req.Email, req.Mobile, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, envelope{"data": user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.users.Login(r.Context(), req.key(), req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, envelope{
		"token":        res.AccessToken,
		"refreshToken": res.RefreshToken,
		"user":         res.User,
		"message":      "Login successful",
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	pair, err := s.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, envelope{"token": pair.AccessToken, "refreshToken": pair.RefreshToken})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req profileRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	user, err := s.users.UpdateProfile(r.Context(), p.UserID, models.ProfileUpdate{Name: req.Name, Email: req.Email})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, envelope{"user": user, "message": "Profile updated successfully"})
}

// handleSearch accepts an optional token query parameter; an invalid token
// only means the requester is not excluded from the results.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var requesterID string
	if token := q.Get("token"); token != "" {
		if p, err := s.users.VerifyToken(token); err == nil {
			requesterID = p.UserID
		} else {
			s.logger.Debug(r.Context(), "invalid token for search", "error", err)
		}
	}

	results, err := s.users.Search(r.Context(), q.Get("q"), requesterID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, envelope{"results": results})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.chat.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"status":  "OK",
		"message": "P2P Chat Server is running",
		"stats":   stats,
		"endpoints": map[string]string{
			"register": "POST /api/register",
			"login":    "POST /api/login",
			"refresh":  "POST /api/refresh",
			"profile":  "PUT /api/user/profile",
			"search":   "GET /api/search?q=query&token=token",
			"debug":    "GET /api/debug/users",
			"reset":    "POST /api/debug/reset",
			"ws":       "GET /ws",
		},
	})
}

func (s *Server) handleDebugUsers(w http.ResponseWriter, r *http.Request) {
	res, err := s.chat.DebugUsers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, envelope{"users": res.Users, "total": res.Total, "online": res.Online, "stats": res.Stats})
}

func (s *Server) handleDebugConnections(w http.ResponseWriter, r *http.Request) {
	conns := s.chat.DebugConnections(r.Context())
	writeOK(w, envelope{"connections": conns, "total": len(conns)})
}

func (s *Server) handleDebugUser(w http.ResponseWriter, r *http.Request) {
	res, err := s.chat.DebugUser(r.Context(), r.PathValue("userID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, envelope{
		"user":              res.User,
		"isOnline":          res.IsOnline,
		"hasConnection":     res.HasConnection,
		"pendingMessages":   res.PendingMessages,
		"connectionDetails": res.ConnectionDetails,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.Reset(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, envelope{"message": "Server reset to initial state"})
}
