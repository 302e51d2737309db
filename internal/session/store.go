package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.etcd.io/bbolt"

	"github.com/five82/repeater/internal/repeater"
)

var (
	bucketAuth = []byte("auth")
	tokensKey  = []byte("tokens")
	userKey    = []byte("user")
)

// Ensure Store satisfies the client's token persistence contract.
var _ repeater.TokenStore = (*Store)(nil)

// Store keeps the session cookies and the signed-in user in a bbolt file.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// Open opens or creates the session database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketAuth)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create auth bucket: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveTokens stores the current session cookies.
func (s *Store) SaveTokens(_ context.Context, tokens repeater.Tokens) error {
	return s.put(tokensKey, tokens)
}

// LoadTokens returns the stored session or repeater.ErrNoTokens.
func (s *Store) LoadTokens(_ context.Context) (repeater.Tokens, error) {
	var tokens repeater.Tokens
	found, err := s.get(tokensKey, &tokens)
	if err != nil {
		return repeater.Tokens{}, err
	}
	if !found || tokens.Empty() {
		return repeater.Tokens{}, repeater.ErrNoTokens
	}
	return tokens, nil
}

// ClearTokens removes the session and the cached user.
func (s *Store) ClearTokens(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}
		if err := bucket.Delete(tokensKey); err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}
		if err := bucket.Delete(userKey); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

// SaveUser caches the signed-in user for offline display.
func (s *Store) SaveUser(_ context.Context, user repeater.User) error {
	return s.put(userKey, user)
}

// User returns the cached user, if any.
func (s *Store) User(_ context.Context) (repeater.User, bool, error) {
	var user repeater.User
	found, err := s.get(userKey, &user)
	return user, found, err
}

// IsAuthenticated reports whether a refresh cookie exists or the access
// cookie has not yet expired. Signatures are not verified; the server does that.
func (s *Store) IsAuthenticated(ctx context.Context) (bool, error) {
	tokens, err := s.LoadTokens(ctx)
	if err != nil {
		if err == repeater.ErrNoTokens {
			return false, nil
		}
		return false, err
	}
	if tokens.RefreshToken != "" && !expired(tokens.RefreshToken, s.now()) {
		return true, nil
	}
	return tokens.AccessToken != "" && !expired(tokens.AccessToken, s.now()), nil
}

// expired reports whether the JWT's exp claim is in the past. Tokens that
// are not JWTs or carry no exp are treated as live.
func expired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}

func (s *Store) put(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}
		if err := bucket.Put(key, data); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	})
}

func (s *Store) get(key []byte, dest any) (bool, error) {
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}
		data := bucket.Get(key)
		if data == nil {
			return nil
		}
		found = true
		if err := json.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		return nil
	})
	return found, err
}
