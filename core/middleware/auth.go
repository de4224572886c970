package middleware

import (
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"

	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
)

// ErrInvalidCredentials is returned by Sessions.Login for an unknown user or
// a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// HashPassword returns an argon2id hash of password in PHC format, suitable
// for AuthConfig.Users.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}

type session struct {
	user     string
	lastSeen time.Time
}

// Sessions is a token table with sliding expiry. Every successful lookup
// extends the session's life. Abandoned sessions are swept out by Login at
// most once per session lifetime, and by Len.
type Sessions struct {
	live  time.Duration
	users map[string]string
	now   func() time.Time

	mu        sync.Mutex
	entries   map[string]*session
	lastSweep time.Time
}

// NewSessions creates a table whose sessions expire after live without use.
// users maps user names to argon2id password hashes.
func NewSessions(live time.Duration, users map[string]string) *Sessions {
	return &Sessions{
		live:    live,
		users:   users,
		now:     time.Now,
		entries: make(map[string]*session),
	}
}

// Login checks the password against the user's hash and opens a session.
func (s *Sessions) Login(user, password string) (string, error) {
	hash, ok := s.users[user]
	if !ok {
		return "", ErrInvalidCredentials
	}
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return "", err
	}
	if !match {
		return "", ErrInvalidCredentials
	}

	token := uuid.NewString()
	s.mu.Lock()
	now := s.now()
	if now.Sub(s.lastSweep) >= s.live {
		s.sweepLocked(now)
	}
	s.entries[token] = &session{user: user, lastSeen: now}
	s.mu.Unlock()
	return token, nil
}

// Touch returns the user of a live session and refreshes it. Expired
// sessions are dropped.
func (s *Sessions) Touch(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.entries[token]
	if !ok {
		return "", false
	}
	now := s.now()
	if now.Sub(sess.lastSeen) >= s.live {
		delete(s.entries, token)
		return "", false
	}
	sess.lastSeen = now
	return sess.user, true
}

// Logout ends a session.
func (s *Sessions) Logout(token string) {
	s.mu.Lock()
	delete(s.entries, token)
	s.mu.Unlock()
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	return len(s.entries)
}

func (s *Sessions) sweepLocked(now time.Time) {
	s.lastSweep = now
	for token, sess := range s.entries {
		if now.Sub(sess.lastSeen) >= s.live {
			delete(s.entries, token)
		}
	}
}

// AuthConfig configures the Auth filter.
type AuthConfig struct {
	// Protect selects the paths that need a session.
	Protect *regexp.Regexp
	// LoginPath, when set, accepts basic credentials and answers with a
	// session token.
	LoginPath string
	// FailJump, when set, redirects unauthenticated requests there instead
	// of answering 401.
	FailJump string
	Sessions *Sessions
}

// Auth guards the paths matched by cfg.Protect with session tokens sent in
// the authorization header. The session's user is stored under
// ExtraUserDetails.
func Auth(cfg AuthConfig) *filter.Filter {
	init := func(p filter.Props) {
		p["path"] = cfg.Protect
		p["login_path"] = cfg.LoginPath
		p["fail_jump"] = cfg.FailJump
		p["sessions"] = cfg.Sessions
	}
	return filter.NewWithInit(init, authFilter).Named("auth")
}

func authFilter(props filter.Props, ctx *http.Context, next filter.Next) error {
	sessions, ok := filter.Lookup[*Sessions](props, "sessions")
	if !ok || sessions == nil {
		return next()
	}
	req := ctx.Request

	if loginPath := filter.LookupOr(props, "login_path", ""); loginPath != "" && req.Path == loginPath {
		return login(ctx, sessions)
	}

	protect := filter.LookupOr[*regexp.Regexp](props, "path", nil)
	if protect == nil || !protect.MatchString(req.Path) {
		return next()
	}

	token := strings.TrimSpace(req.Header.Get("authorization"))
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if user, ok := sessions.Touch(token); ok && token != "" {
		ctx.Set(ExtraUserDetails, user)
		return next()
	}

	if jump := filter.LookupOr(props, "fail_jump", ""); jump != "" {
		ctx.Response.Status = http.StatusFound
		ctx.Response.Header.Set("location", jump)
		return nil
	}
	ctx.Response.Header.Set("www-authenticate", `Bearer realm="pulsation"`)
	return filter.Abort(http.StatusUnauthorized, "401 - Unauthorized.")
}

func login(ctx *http.Context, sessions *Sessions) error {
	if ctx.Request.Method != "POST" {
		ctx.Response.Header.Set("allow", "POST")
		return filter.Abort(http.StatusMethodNotAllowed, "405 - Method Not Allowed.")
	}

	user, password, ok := parseBasic(ctx.Request.Header.Get("authorization"))
	if !ok {
		ctx.Response.Header.Set("www-authenticate", `Basic realm="pulsation"`)
		return filter.Abort(http.StatusUnauthorized, "401 - Unauthorized.")
	}
	token, err := sessions.Login(user, password)
	if errors.Is(err, ErrInvalidCredentials) {
		return filter.Abort(http.StatusUnauthorized, "401 - Unauthorized.")
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, map[string]string{"token": token})
}

func parseBasic(header string) (user, password string, ok bool) {
	const prefix = "basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(raw), ":")
}
