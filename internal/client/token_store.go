package client

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketSession = []byte("session")
	keyToken      = []byte("token")
)

// TokenStore persists the bearer token between client runs.
type TokenStore interface {
	LoadToken() (string, error)
	SaveToken(token string) error
	ClearToken() error
}

type BoltTokenStore struct {
	db *bbolt.DB
}

func OpenBoltTokenStore(path string) (*BoltTokenStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session file failed: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSession)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create session bucket failed: %w", err)
	}
	return &BoltTokenStore{db: db}, nil
}

func (s *BoltTokenStore) LoadToken() (string, error) {
	var token string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketSession).Get(keyToken); v != nil {
			token = string(v)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("load token failed: %w", err)
	}
	return token, nil
}

func (s *BoltTokenStore) SaveToken(token string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Put(keyToken, []byte(token))
	})
	if err != nil {
		return fmt.Errorf("save token failed: %w", err)
	}
	return nil
}

func (s *BoltTokenStore) ClearToken() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Delete(keyToken)
	})
	if err != nil {
		return fmt.Errorf("clear token failed: %w", err)
	}
	return nil
}

func (s *BoltTokenStore) Close() error {
	return s.db.Close()
}
