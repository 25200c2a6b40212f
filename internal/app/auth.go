package app

import (
	"context"
	"errors"

	"github.com/alanbriolat/media-downloader/backend/social"
)

// Login signs in to the session platform in the background and reports the outcome through View.AuthChanged. If
// the account needs a second factor the error is social.ErrTwoFactorRequired, and the login is completed with
// LoginWithTwoFactor.
func (c *Controller) Login(username string, password string) error {
	backend, err := c.sessionBackend(c.settings.DownloadPath)
	if err != nil {
		return err
	}
	c.spawn(func(ctx context.Context) {
		err := backend.Login(ctx, username, password)
		c.post(func() { c.finishLogin(backend, username, err) })
	})
	return nil
}

// LoginWithTwoFactor completes a login with a verification code. An invalid code leaves the login pending, so it can
// be retried.
func (c *Controller) LoginWithTwoFactor(username string, password string, code string) error {
	backend, err := c.sessionBackend(c.settings.DownloadPath)
	if err != nil {
		return err
	}
	c.spawn(func(ctx context.Context) {
		err := backend.LoginWithTwoFactor(ctx, username, password, code)
		c.post(func() { c.finishLogin(backend, username, err) })
	})
	return nil
}

func (c *Controller) finishLogin(backend SessionBackend, username string, err error) {
	if err == nil {
		if err := backend.SaveSession(); err != nil {
			c.log.Warnf("failed to save session for %s: %v", username, err)
		}
		if c.settings.InstagramUsername != username {
			settings := c.settings
			settings.InstagramUsername = username
			if err := c.SaveSettings(settings); err != nil {
				c.log.Warnf("failed to save settings: %v", err)
			}
		}
		c.log.Infof("logged in as %s", username)
	} else if errors.Is(err, social.ErrTwoFactorRequired) {
		c.log.Infof("verification code required for %s", username)
	} else {
		c.log.Warnf("login for %s failed: %v", username, err)
		c.view.ShowError("Login failed", err)
	}
	c.view.AuthChanged(backend.State(), backend.Username(), err)
}

// Logout ends the session, removes every trace of it from disk, and forgets the remembered username. Cleanup
// problems are logged, never reported.
func (c *Controller) Logout() {
	c.sessionMu.Lock()
	backend := c.session
	c.sessionMu.Unlock()
	if backend != nil {
		backend.Logout()
	}
	if c.settings.InstagramUsername != "" {
		settings := c.settings
		settings.InstagramUsername = ""
		if err := c.SaveSettings(settings); err != nil {
			c.log.Warnf("failed to save settings: %v", err)
		}
	}
	c.view.AuthChanged(social.Anonymous, "", nil)
}

// Account returns the session state and username, or social.Anonymous if no session backend exists yet.
func (c *Controller) Account() (social.AuthState, string) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	if c.session == nil {
		return social.Anonymous, ""
	}
	return c.session.State(), c.session.Username()
}
