package social

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginDirect(t *testing.T) {
	assert := assert_.New(t)
	client := &fakeClient{}
	b, _ := newTestBackend(t, client)

	assert.Equal(Anonymous, b.State())
	assert.ErrorIs(b.SaveSession(), ErrLoginRequired)
	assert.NoError(b.Login(context.Background(), "user", "pass"))
	assert.Equal(Authenticated, b.State())
	assert.Equal("user", b.Username())
	assert.NoError(b.SaveSession())
	assert.Equal(client.session, b.store.(memoryStore)["user"])
}

func TestLoginFailures(t *testing.T) {
	assert := assert_.New(t)

	for _, err := range []error{ErrBadCredentials, ErrCheckpointRequired} {
		b, _ := newTestBackend(t, &fakeClient{loginErr: err})
		assert.ErrorIs(b.Login(context.Background(), "user", "pass"), err)
		assert.Equal(Anonymous, b.State())
	}

	b, _ := newTestBackend(t, &fakeClient{loginErr: errors.New("dial tcp: timeout")})
	err := b.Login(context.Background(), "user", "pass")
	assert.ErrorIs(err, ErrConnection)
	assert.Contains(err.Error(), "timeout")

	assert.ErrorIs(b.Login(context.Background(), "", ""), ErrBadCredentials)
}

func TestLoginTwoFactor(t *testing.T) {
	assert := assert_.New(t)
	client := &fakeClient{loginErr: ErrTwoFactorRequired, twoFactorErr: ErrBadCredentials}
	b, _ := newTestBackend(t, client)
	ctx := context.Background()

	assert.ErrorIs(b.Login(ctx, "user", "pass"), ErrTwoFactorRequired)
	assert.Equal(AwaitingTwoFactor, b.State())

	assert.ErrorIs(b.LoginWithTwoFactor(ctx, "user", "pass", "12345"), ErrInvalidCode)
	assert.ErrorIs(b.LoginWithTwoFactor(ctx, "user", "pass", "12a456"), ErrInvalidCode)
	assert.Equal(0, client.twoFactors, "malformed codes never reach the client")

	assert.ErrorIs(b.LoginWithTwoFactor(ctx, "user", "pass", "123456"), ErrInvalidCode)
	assert.Equal(AwaitingTwoFactor, b.State(), "retry stays awaiting")
	assert.Equal(1, client.logins)

	client.twoFactorErr = nil
	assert.NoError(b.LoginWithTwoFactor(ctx, "user", "pass", "654321"))
	assert.Equal(Authenticated, b.State())
	assert.Equal(1, client.logins, "no new login while awaiting the same user")
	assert.NoError(b.SaveSession())
}

func TestLoginTwoFactorRestartsLogin(t *testing.T) {
	assert := assert_.New(t)
	client := &fakeClient{loginErr: ErrTwoFactorRequired}
	b, _ := newTestBackend(t, client)

	assert.NoError(b.LoginWithTwoFactor(context.Background(), "user", "pass", "123456"))
	assert.Equal(1, client.logins)
	assert.Equal(1, client.twoFactors)
	assert.Equal(Authenticated, b.State())
}

func TestLoadSession(t *testing.T) {
	assert := assert_.New(t)
	client := &fakeClient{}
	b, _ := newTestBackend(t, client)

	assert.ErrorIs(b.LoadSession("user"), ErrNoSession)
	assert.Equal(Anonymous, b.State())

	require.NoError(t, b.store.Save("user", []byte("saved")))
	assert.NoError(b.LoadSession("user"))
	assert.Equal(Authenticated, b.State())
	assert.Equal([]byte("saved"), client.session)
}

func TestLogout(t *testing.T) {
	assert := assert_.New(t)
	client := &fakeClient{}
	home, app, downloads := t.TempDir(), t.TempDir(), t.TempDir()
	store := memoryStore{}
	b := New(downloads, WithClient(client), WithSessionStore(store), WithAppDir(app), WithHomeDir(home))

	artifacts := []string{
		filepath.Join(home, ".instaloader-session-Someone"),
		filepath.Join(home, "Someone_session"),
		filepath.Join(downloads, "someone.session"),
		filepath.Join(app, "cache-SOMEONE"),
	}
	for _, p := range artifacts {
		require.NoError(t, os.WriteFile(p, nil, 0600))
	}
	keep := []string{
		filepath.Join(downloads, "someone_story.mp4"),
		filepath.Join(downloads, "other.session"),
		filepath.Join(home, "notes.txt"),
	}
	for _, p := range keep {
		require.NoError(t, os.WriteFile(p, nil, 0600))
	}

	require.NoError(t, b.Login(context.Background(), "Someone", "pass"))
	require.NoError(t, b.SaveSession())
	assert.Contains(store, "Someone")

	b.Logout()
	assert.Equal(Anonymous, b.State())
	assert.Equal("", b.Username())
	assert.Equal(1, client.cleared)
	assert.NotContains(store, "Someone")
	for _, p := range artifacts {
		assert.NoFileExists(p)
	}
	for _, p := range keep {
		assert.FileExists(p)
	}

	// Logging out again is harmless.
	b.Logout()
	assert.Equal(Anonymous, b.State())
}

func TestLogoutKeepsAppFiles(t *testing.T) {
	assert := assert_.New(t)
	home, app, downloads := t.TempDir(), t.TempDir(), t.TempDir()
	settings, history := filepath.Join(app, "settings.json"), filepath.Join(app, "history.json")
	for _, p := range []string{settings, history} {
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0600))
	}
	store := NewBoltSessionStore(filepath.Join(app, "sessions.db"))
	require.NoError(t, store.Save("other", []byte("theirs")))

	b := New(downloads, WithClient(&fakeClient{}), WithAppDir(app), WithHomeDir(home), WithKeepFiles(settings, history))
	require.NoError(t, b.Login(context.Background(), "ion", "pass"))
	require.NoError(t, b.SaveSession())
	b.Logout()

	assert.FileExists(settings)
	assert.FileExists(history)
	assert.FileExists(store.Path())
	data, err := store.Load("other")
	assert.NoError(err)
	assert.Equal([]byte("theirs"), data)
	_, err = store.Load("ion")
	assert.ErrorIs(err, ErrNoSession)
}
