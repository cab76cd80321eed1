package twitter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var cookieBucket = []byte("cookies")

// cookieCache persists session cookies across process restarts so that a
// successful login handshake does not have to be repeated every run.
type cookieCache struct {
	path string
}

func newCookieCache(path string) *cookieCache {
	return &cookieCache{path: path}
}

func (c *cookieCache) load(username string) ([]*http.Cookie, error) {
	if _, err := os.Stat(c.path); err != nil {
		return nil, nil // no cache yet
	}
	db, err := bolt.Open(c.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie cache: %w", err)
	}
	defer db.Close()

	var cookies []*http.Cookie
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(cookieBucket)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(username))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &cookies)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie cache: %w", err)
	}
	return cookies, nil
}

func (c *cookieCache) save(username string, cookies []*http.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cookie cache dir: %w", err)
	}
	db, err := bolt.Open(c.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open cookie cache: %w", err)
	}
	defer db.Close()

	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(cookieBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(username), data)
	})
}
