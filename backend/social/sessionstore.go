package social

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

var ErrNoSession = errors.New("no saved session")

type SessionStore interface {
	Load(username string) ([]byte, error)
	Save(username string, data []byte) error
	Delete(username string) error
}

var sessionsBucket = []byte("sessions")

// BoltSessionStore keeps one session per username in a bbolt database. The database is only held open for the
// duration of each call, so several processes can share it.
type BoltSessionStore struct {
	path string
}

func NewBoltSessionStore(path string) *BoltSessionStore {
	return &BoltSessionStore{path: path}
}

func (s *BoltSessionStore) Path() string {
	return s.path
}

func (s *BoltSessionStore) open() (*bbolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func sessionKey(username string) []byte {
	return []byte(strings.ToLower(username))
}

func (s *BoltSessionStore) Load(username string) (data []byte, err error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	err = db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(sessionsBucket).Get(sessionKey(username)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	} else if data == nil {
		return nil, ErrNoSession
	}
	return data, nil
}

func (s *BoltSessionStore) Save(username string, data []byte) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put(sessionKey(username), data)
	})
}

func (s *BoltSessionStore) Delete(username string) error {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete(sessionKey(username))
	})
}

// Usernames lists the usernames with a saved session.
func (s *BoltSessionStore) Usernames() (names []string, err error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	err = db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}
