package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
)

// Persisted session keys.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

var (
	persistedKeys = []string{KeyToken, KeyRefreshToken, KeyUser}

	// errors
	ErrProfileMismatch = errors.New("profile does not match the user role")
	ErrSuperseded      = errors.New("login superseded by a newer request")
	errNoSession       = errors.New("no persisted session")
)

type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type (
	// Storage is the durable key-value storage the session is persisted to.
	// The Store is its only writer.
	Storage interface {
		// Load returns the values of the requested keys; missing keys are absent from the map.
		Load(keys ...string) (map[string]string, error)
		// Save writes all values at once.
		Save(values map[string]string) error
		// Delete removes the keys; deleting missing keys is not an error.
		Delete(keys ...string) error
	}

	// Grant is what a successful authentication yields.
	Grant struct {
		Token        string
		RefreshToken string
		User         user.Identity
	}

	Authenticator interface {
		Authenticate(ctx context.Context, email, password string) (Grant, error)
	}

	// Refresher exchanges a refresh token for a new access token.
	Refresher interface {
		RefreshToken(ctx context.Context, refreshToken string) (string, error)
	}

	Session struct {
		User          user.Identity `json:"user"`
		Profile       Profile       `json:"profile"`
		Authenticated bool          `json:"authenticated"`
		Token         string        `json:"-"`
		RefreshToken  string        `json:"-"`
	}
)

// New builds an authenticated Session, rejecting a profile whose role differs from the user's.
func New(usr user.Identity, profile Profile, token, refreshToken string) (Session, error) {
	if profile == nil || profile.Role() != usr.Role {
		return Session{}, ErrProfileMismatch
	}
	return Session{
		User:          usr,
		Profile:       profile,
		Authenticated: true,
		Token:         token,
		RefreshToken:  refreshToken,
	}, nil
}

// Store is the single authority for who is logged in.
type Store struct {
	storage Storage
	auth    Authenticator
	logger  core.Logger

	fence   core.Fence
	mu      sync.RWMutex
	state   State
	current Session
}

func NewStore(storage Storage, auth Authenticator, logger core.Logger) *Store {
	return &Store{
		storage: storage,
		auth:    auth,
		logger:  logger,
	}
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns the current session; its Authenticated field is false when logged out.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the bearer token of the current session, "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

// Login authenticates the credentials and persists the resulting session.
// On failure nothing is persisted, the store ends up Unauthenticated and the error is returned.
// The previous session is dropped as soon as the login begins.
// If Logout or another Login is issued while the request is in flight, its outcome is
// discarded and ErrSuperseded is returned.
func (s *Store) Login(ctx context.Context, email, password string) (Session, error) {
	s.mu.Lock()
	ticket := s.fence.Begin()
	s.state = Authenticating
	s.current = Session{}
	s.mu.Unlock()

	grant, err := s.auth.Authenticate(ctx, core.CleanString(email, true /* lower */), password)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !ticket.Current() {
		return Session{}, ErrSuperseded
	}
	// a refresh still in flight belongs to the replaced session
	s.fence.Advance()

	if err == nil {
		var sess Session
		if sess, err = s.open(grant); err == nil {
			s.state = Authenticated
			s.current = sess
			s.logger.Info(fmt.Sprintf("logged in as %s (%s)", sess.User.Email, sess.User.Role), sess.User)
			return sess, nil
		}
	}

	s.state = Unauthenticated
	s.current = Session{}
	if dErr := s.storage.Delete(persistedKeys...); dErr != nil {
		s.logger.Warn("clearing persisted session after failed login", dErr)
	}
	return Session{}, err
}

// open validates a grant, builds its session and persists it.
func (s *Store) open(grant Grant) (Session, error) {
	if strings.TrimSpace(grant.Token) == "" || strings.TrimSpace(grant.RefreshToken) == "" || !grant.User.Valid() {
		return Session{}, errors.Wrap(core.ErrAuthentication, "login response is missing a token or a valid user")
	}
	sess, err := New(grant.User, PlaceholderProfile(grant.User.Role), grant.Token, grant.RefreshToken)
	if err != nil {
		return Session{}, errors.Wrap(err, "building session")
	}

	usrData, err := json.Marshal(grant.User)
	if err != nil {
		return Session{}, errors.Wrap(err, "encoding user")
	}
	err = s.storage.Save(map[string]string{
		KeyToken:        grant.Token,
		KeyRefreshToken: grant.RefreshToken,
		KeyUser:         string(usrData),
	})
	if err != nil {
		return Session{}, errors.Wrap(err, "persisting session")
	}
	return sess, nil
}

// Refresh replaces the access token of the current session with a fresh one and persists it.
// The session is left untouched when the exchange fails. A login or logout issued while
// the exchange is in flight wins and ErrSuperseded is returned.
func (s *Store) Refresh(ctx context.Context, r Refresher) (Session, error) {
	s.mu.RLock()
	ticket := s.fence.Peek()
	sess := s.current
	s.mu.RUnlock()

	if !sess.Authenticated {
		return Session{}, errors.Wrap(core.ErrAuthentication, "not logged in")
	}

	token, err := r.RefreshToken(ctx, sess.RefreshToken)
	if err != nil {
		return Session{}, errors.Wrap(err, "refreshing token")
	}
	if strings.TrimSpace(token) == "" {
		return Session{}, errors.Wrap(core.ErrAuthentication, "refresh response has no token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !ticket.Current() || s.current.User.ID != sess.User.ID || s.current.RefreshToken != sess.RefreshToken {
		return Session{}, ErrSuperseded
	}
	if err = s.storage.Save(map[string]string{KeyToken: token}); err != nil {
		return Session{}, errors.Wrap(err, "persisting token")
	}
	s.current.Token = token
	return s.current, nil
}

// Logout clears the persisted session and moves to Unauthenticated, whatever the current state.
// Calling it when already logged out is harmless. A storage failure is returned, but the
// in-memory state is logged out regardless.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fence.Advance()
	s.state = Unauthenticated
	s.current = Session{}
	if err := s.storage.Delete(persistedKeys...); err != nil {
		return errors.Wrap(err, "clearing persisted session")
	}
	return nil
}

// Rehydrate restores the persisted session without any network call.
// Missing, partial or unparseable data yields an unauthenticated session; corrupt data is cleared.
// Failures are only logged: there is no user gesture to report them to.
func (s *Store) Rehydrate() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.load()
	if err != nil {
		if errors.Is(err, core.ErrSessionCorrupt) {
			s.logger.Warn("discarding persisted session", err)
			if dErr := s.storage.Delete(persistedKeys...); dErr != nil {
				s.logger.Warn("clearing corrupt session", dErr)
			}
		} else if err != errNoSession {
			s.logger.Warn("loading persisted session", err)
		}
		s.state = Unauthenticated
		s.current = Session{}
		return Session{}
	}

	s.state = Authenticated
	s.current = sess
	return sess
}

func (s *Store) load() (Session, error) {
	values, err := s.storage.Load(persistedKeys...)
	if err != nil {
		return Session{}, errors.Wrap(err, "reading persisted session")
	}

	var present int
	for _, key := range persistedKeys {
		if strings.TrimSpace(values[key]) != "" {
			present++
		}
	}
	switch present {
	case 0:
		return Session{}, errNoSession
	case len(persistedKeys):
	default:
		return Session{}, errors.Wrap(core.ErrSessionCorrupt, "incomplete session keys")
	}

	var usr user.Identity
	if err = json.Unmarshal([]byte(values[KeyUser]), &usr); err != nil {
		return Session{}, errors.Wrapf(core.ErrSessionCorrupt, "decoding user: %v", err)
	}
	if !usr.Valid() {
		return Session{}, errors.Wrap(core.ErrSessionCorrupt, "persisted user has no id or an unknown role")
	}

	sess, err := New(usr, PlaceholderProfile(usr.Role), values[KeyToken], values[KeyRefreshToken])
	if err != nil {
		return Session{}, errors.Wrap(core.ErrSessionCorrupt, err.Error())
	}
	return sess, nil
}
