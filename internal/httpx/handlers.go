// Package httpx is the JSON HTTP surface of the journal service.
package httpx

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"journal/internal/app"
	"journal/internal/auth"
	"journal/internal/journal"
	"journal/internal/models"
	"journal/internal/storage"
	"journal/internal/thread"
)

type Server struct {
	DB   *sql.DB
	Cfg  app.Config
	Svc  *journal.Service
	Pics *storage.Local
	Mux  *http.ServeMux
}

func NewServer(db *sql.DB, cfg app.Config, svc *journal.Service, pics *storage.Local) *Server {
	s := &Server{DB: db, Cfg: cfg, Svc: svc, Pics: pics, Mux: http.NewServeMux()}

	fs := http.FileServer(http.Dir(pics.Dir()))
	s.Mux.Handle("GET /userpics/", http.StripPrefix("/userpics/", fs))

	s.Mux.HandleFunc("GET /health", s.handleHealth)
	s.Mux.HandleFunc("GET /stats", s.handleStats)

	s.Mux.HandleFunc("POST /signup", s.handleSignup)
	s.Mux.HandleFunc("POST /login", s.handleLogin)
	s.Mux.HandleFunc("POST /logout", s.handleLogout)

	s.open("GET /users/{username}", s.handleProfile)
	s.open("GET /users/{username}/entries", s.handleUserEntries)
	s.open("GET /users/{username}/followers", s.handleFollowers)
	s.open("GET /users/{username}/following", s.handleFollowing)
	s.authed("POST /users/{username}/follow", s.handleFollow)
	s.authed("DELETE /users/{username}/follow", s.handleUnfollow)

	s.authed("PUT /profile", s.handleProfileUpdate)
	s.authed("POST /profile/userpic", s.handleUserpicUpload)
	s.authed("DELETE /profile/userpic", s.handleUserpicDelete)

	s.authed("GET /feed", s.handleFriendsFeed)
	s.open("GET /recent", s.handleRecentEntries)

	s.authed("POST /entries", s.handleEntryCreate)
	s.open("GET /entries/{id}", s.handleEntryGet)
	s.authed("PUT /entries/{id}", s.handleEntryUpdate)
	s.authed("DELETE /entries/{id}", s.handleEntryDelete)

	// Comment creation is open: anonymous posters are allowed on
	// public entries, subject to the rate limit.
	s.open("POST /entries/{id}/comments", s.handleCommentCreate)
	s.authed("POST /comments/{id}/screen", s.handleCommentScreen)
	s.authed("DELETE /comments/{id}", s.handleCommentDelete)

	s.open("GET /search/entries", s.handleSearchEntries)
	s.open("GET /search/users", s.handleSearchUsers)

	return s
}

func (s *Server) open(pattern string, h http.HandlerFunc) {
	s.Mux.Handle(pattern, s.withSession(h))
}

func (s *Server) authed(pattern string, h http.HandlerFunc) {
	s.Mux.Handle(pattern, s.withSession(s.requireAuth(h)))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.Mux.ServeHTTP(w, r) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Svc.Stats(r.Context())
	if err != nil {
		writeDomainError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ------------------------------------------------------------------
// auth
// ------------------------------------------------------------------

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := auth.Register(r.Context(), s.DB, in)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, auth.ErrUsernameTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeDomainError(w, err, false)
		}
		return
	}
	writeJSON(w, http.StatusCreated, userVM{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sid, uid, err := auth.Login(r.Context(), s.DB, in.Identifier, in.Password, s.Cfg.SessionLifetime)
	if err != nil {
		log.Printf("login FAIL identifier=%s err=%v", in.Identifier, err)
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(s.Cfg.SessionLifetime),
	})
	writeJSON(w, http.StatusOK, map[string]string{"user_id": uid})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		_ = auth.Logout(r.Context(), s.DB, c.Value)
		c.MaxAge = -1
		c.Path = "/"
		http.SetCookie(w, c)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ------------------------------------------------------------------
// users & friendships
// ------------------------------------------------------------------

type userVM struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio,omitempty"`
	UserpicURL  string `json:"userpic_url,omitempty"`
}

func viewUser(u models.User) userVM {
	return userVM{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName, Bio: u.Bio, UserpicURL: u.UserpicURL}
}

func viewUsers(users []models.User) []userVM {
	out := make([]userVM, len(users))
	for i, u := range users {
		out[i] = viewUser(u)
	}
	return out
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.Svc.Profile(r.Context(), r.PathValue("username"))
	if err != nil {
		writeDomainError(w, err, false)
		return
	}
	resp := map[string]any{"user": viewUser(u)}
	if uid, ok := auth.UserIDFrom(r.Context()); ok && uid != u.ID {
		following, err := s.Svc.IsFollowing(r.Context(), uid, u.ID)
		if err != nil {
			log.Printf("is-following check uid=%s target=%s: %v", uid, u.ID, err)
		} else {
			resp["following"] = following
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	var in struct {
		DisplayName string `json:"display_name"`
		Bio         string `json:"bio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.Svc.UpdateProfile(r.Context(), uid, in.DisplayName, in.Bio); err != nil {
		writeDomainError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resolveUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	u, err := s.Svc.Profile(r.Context(), r.PathValue("username"))
	if err != nil {
		writeDomainError(w, err, false)
		return models.User{}, false
	}
	return u, true
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	target, ok := s.resolveUser(w, r)
	if !ok {
		return
	}
	if err := s.Svc.Follow(r.Context(), uid, target.ID); err != nil {
		writeDomainError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	target, ok := s.resolveUser(w, r)
	if !ok {
		return
	}
	if err := s.Svc.Unfollow(r.Context(), uid, target.ID); err != nil {
		writeDomainError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	u, ok := s.resolveUser(w, r)
	if !ok {
		return
	}
	users, err := s.Svc.Followers(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": viewUsers(users)})
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	u, ok := s.resolveUser(w, r)
	if !ok {
		return
	}
	users, err := s.Svc.Following(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": viewUsers(users)})
}

// ------------------------------------------------------------------
// entries
// ------------------------------------------------------------------

type entryVM struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Subject     string `json:"subject,omitempty"`
	ContentHTML string `json:"content_html"`
	Visibility  string `json:"visibility"`
	Mood        string `json:"mood,omitempty"`
	Music       string `json:"music,omitempty"`
	Location    string `json:"location,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func viewEntry(e models.Entry) entryVM {
	return entryVM{
		ID:          e.ID,
		UserID:      e.UserID,
		Subject:     e.Subject,
		ContentHTML: e.ContentHTML,
		Visibility:  string(e.Visibility),
		Mood:        e.Mood,
		Music:       e.Music,
		Location:    e.Location,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}

func viewEntries(entries []models.Entry) []entryVM {
	out := make([]entryVM, len(entries))
	for i, e := range entries {
		out[i] = viewEntry(e)
	}
	return out
}

func (s *Server) handleEntryCreate(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	var in journal.EntryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e, err := s.Svc.CreateEntry(r.Context(), uid, in)
	if err != nil {
		writeDomainError(w, err, false)
		return
	}
	writeJSON(w, http.StatusCreated, viewEntry(e))
}

func (s *Server) handleEntryGet(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	view, err := s.Svc.GetEntry(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		// Hidden entries present as not-found to non-owners.
		writeDomainError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entry":         viewEntry(view.Entry),
		"comments":      viewThread(view.Comments),
		"comment_count": view.CommentCount,
	})
}

func (s *Server) handleEntryUpdate(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	var in journal.EntryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.Svc.UpdateEntry(r.Context(), uid, r.PathValue("id"), in); err != nil {
		writeDomainError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEntryDelete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	if err := s.Svc.DeleteEntry(r.Context(), uid, r.PathValue("id")); err != nil {
		writeDomainError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFriendsFeed(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.Svc.FriendsFeed(r.Context(), uid, limit)
	if err != nil {
		writeDomainError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": viewEntries(entries)})
}

func (s *Server) handleRecentEntries(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.Svc.RecentPublicEntries(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": viewEntries(entries)})
}

func (s *Server) handleUserEntries(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	entries, err := s.Svc.ListUserEntries(r.Context(), uid, r.PathValue("username"))
	if err != nil {
		writeDomainError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": viewEntries(entries)})
}

// ------------------------------------------------------------------
// comments
// ------------------------------------------------------------------

type commentVM struct {
	ID          string      `json:"id"`
	AuthorID    string      `json:"author_id,omitempty"`
	AuthorName  string      `json:"author_name,omitempty"`
	ContentHTML string      `json:"content_html"`
	Screened    bool        `json:"screened,omitempty"`
	CreatedAt   string      `json:"created_at"`
	Replies     []commentVM `json:"replies,omitempty"`
}

func viewThread(t thread.Tree) []commentVM {
	var convert func(idx int) commentVM
	convert = func(idx int) commentVM {
		n := t.Nodes[idx]
		vm := commentVM{
			ID:          n.Comment.ID,
			AuthorID:    n.Comment.Author.UserID(),
			AuthorName:  n.Comment.Author.Name(),
			ContentHTML: n.Comment.ContentHTML,
			Screened:    n.Screened,
			CreatedAt:   n.Comment.CreatedAt.Format(time.RFC3339),
		}
		for _, ci := range n.Children {
			vm.Replies = append(vm.Replies, convert(ci))
		}
		return vm
	}
	out := make([]commentVM, 0, len(t.Roots))
	for _, ri := range t.Roots {
		out = append(out, convert(ri))
	}
	return out
}

func (s *Server) handleCommentCreate(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	var in journal.CommentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.EntryID = r.PathValue("id")
	c, err := s.Svc.CreateComment(r.Context(), uid, in, clientIP(r))
	if err != nil {
		writeDomainError(w, err, true)
		return
	}
	writeJSON(w, http.StatusCreated, commentVM{
		ID:          c.ID,
		AuthorID:    c.Author.UserID(),
		AuthorName:  c.Author.Name(),
		ContentHTML: c.ContentHTML,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleCommentScreen(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	if err := s.Svc.ScreenComment(r.Context(), uid, r.PathValue("id")); err != nil {
		writeDomainError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCommentDelete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	if err := s.Svc.DeleteComment(r.Context(), uid, r.PathValue("id")); err != nil {
		writeDomainError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ------------------------------------------------------------------
// search & uploads
// ------------------------------------------------------------------

func (s *Server) handleSearchEntries(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.Svc.SearchEntries(r.Context(), uid, r.URL.Query().Get("q"), limit)
	if err != nil {
		writeDomainError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": viewEntries(entries)})
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	users, err := s.Svc.SearchUsers(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeDomainError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": viewUsers(users)})
}

func (s *Server) handleUserpicUpload(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUserpicSize)
	file, header, err := r.FormFile("userpic")
	if err != nil {
		writeError(w, http.StatusBadRequest, "userpic file is required")
		return
	}
	defer file.Close()

	if err := storage.ValidateImageName(header.Filename); err != nil {
		writeDomainError(w, err, false)
		return
	}

	url, err := s.Pics.Upload(storage.UserpicFileName(uid, header.Filename), file)
	if err != nil {
		log.Printf("userpic upload uid=%s err=%v", uid, err)
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	old, err := s.Svc.SetUserpic(r.Context(), uid, url)
	if err != nil {
		writeDomainError(w, err, false)
		return
	}
	// Best effort: losing the superseded file is not a failure.
	if old != "" && old != url {
		if err := s.Pics.Delete(old); err != nil {
			log.Printf("delete old userpic %s: %v", old, err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"userpic_url": url})
}

func (s *Server) handleUserpicDelete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	old, err := s.Svc.ClearUserpic(r.Context(), uid)
	if err != nil {
		writeDomainError(w, err, false)
		return
	}
	if old != "" {
		if err := s.Pics.Delete(old); err != nil {
			log.Printf("delete userpic %s: %v", old, err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
