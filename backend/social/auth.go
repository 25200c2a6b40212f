package social

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
)

var ErrInvalidCode = errors.New("invalid verification code")

type AuthState int

const (
	Anonymous AuthState = iota
	AwaitingTwoFactor
	Authenticated
)

func (s AuthState) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case AwaitingTwoFactor:
		return "awaiting_2fa"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("AuthState(%d)", int(s))
	}
}

var twoFactorCode = regexp.MustCompile(`^[0-9]{6}$`)

func (b *Backend) State() AuthState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Username is the account of the current (or pending two-factor) session.
func (b *Backend) Username() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.username
}

func (b *Backend) setState(state AuthState, username string) {
	b.mu.Lock()
	old := b.state
	b.state, b.username = state, username
	b.mu.Unlock()
	if old != state {
		b.log.Debugf("auth state %v -> %v (%s)", old, state, username)
	}
}

// Login starts a session. ErrTwoFactorRequired leaves the Backend awaiting a code for LoginWithTwoFactor; the
// caller should persist a successful session with SaveSession.
func (b *Backend) Login(ctx context.Context, username string, password string) error {
	if username == "" || password == "" {
		return ErrBadCredentials
	}
	err := b.client.Login(ctx, username, password)
	switch {
	case err == nil:
		b.setState(Authenticated, username)
	case errors.Is(err, ErrTwoFactorRequired):
		b.setState(AwaitingTwoFactor, username)
		return ErrTwoFactorRequired
	default:
		b.setState(Anonymous, "")
		if errors.Is(err, ErrBadCredentials) || errors.Is(err, ErrCheckpointRequired) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// LoginWithTwoFactor completes a login with a 6-digit code. A rejected code keeps the Backend awaiting, so the
// caller can retry.
func (b *Backend) LoginWithTwoFactor(ctx context.Context, username string, password string, code string) error {
	if !twoFactorCode.MatchString(code) {
		return fmt.Errorf("%w: expected 6 digits", ErrInvalidCode)
	}
	if b.State() != AwaitingTwoFactor || b.Username() != username {
		if err := b.Login(ctx, username, password); err == nil {
			return nil
		} else if !errors.Is(err, ErrTwoFactorRequired) {
			return err
		}
	}
	err := b.client.TwoFactorLogin(ctx, code)
	switch {
	case err == nil:
		b.setState(Authenticated, username)
		return nil
	case errors.Is(err, ErrBadCredentials), errors.Is(err, ErrInvalidCode):
		return ErrInvalidCode
	default:
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
}

// SaveSession persists the authenticated session so LoadSession can restore it later.
func (b *Backend) SaveSession() error {
	b.mu.Lock()
	state, username := b.state, b.username
	b.mu.Unlock()
	if state != Authenticated {
		return ErrLoginRequired
	}
	data, err := b.client.ExportSession()
	if err != nil {
		return fmt.Errorf("failed to export session: %w", err)
	}
	return b.store.Save(username, data)
}

// LoadSession restores a previously saved session for username.
func (b *Backend) LoadSession(username string) error {
	data, err := b.store.Load(username)
	if err != nil {
		return err
	}
	if err := b.client.ImportSession(data); err != nil {
		return fmt.Errorf("failed to import session: %w", err)
	}
	b.setState(Authenticated, username)
	return nil
}

// Logout forgets the session and sweeps every session artifact it can find. Cleanup failures are logged, never
// returned.
func (b *Backend) Logout() {
	b.mu.Lock()
	username := b.username
	loc := SweepLocations{HomeDir: b.homeDir, DownloadDir: b.downloadDir, AppDir: b.appDir}
	loc.Keep = append(loc.Keep, b.keep...)
	b.mu.Unlock()
	if s, ok := b.store.(interface{ Path() string }); ok {
		loc.Keep = append(loc.Keep, s.Path())
	}
	loc.WorkDir, _ = os.Getwd()

	b.client.ClearSession()
	b.setState(Anonymous, "")
	if username == "" {
		return
	}
	if err := b.store.Delete(username); err != nil {
		b.log.Warnf("failed to delete stored session for %s: %v", username, err)
	}
	removed, err := Sweep(loc, username)
	for _, path := range removed {
		b.log.Debugf("removed session artifact %s", path)
	}
	if err != nil {
		b.log.Warnf("session cleanup incomplete: %v", err)
	}
}
