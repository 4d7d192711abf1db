package security

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"fuelqueue-system/internal/status"
	"fuelqueue-system/utils"
)

// OperatorSession identifies the authenticated station an operator acts
// for. It is passed explicitly into every operator operation; the core
// never reads ambient login state.
type OperatorSession struct {
	Token       string `json:"-"`
	StationID   string `json:"station_id"`
	StationName string `json:"station_name"`
}

// SessionManager authenticates station operators against the bcrypt
// hash stored on their station row and keeps issued tokens in Redis
// with a TTL.
type SessionManager struct {
	app   core.App
	redis *redis.Client
	ttl   time.Duration
}

func NewSessionManager(app core.App, redisClient *redis.Client, ttl time.Duration) *SessionManager {
	return &SessionManager{app: app, redis: redisClient, ttl: ttl}
}

func sessionKey(token string) string {
	return "session:operator:" + token
}

// Login verifies the operator credentials and mints a session token.
// Unknown usernames and wrong passwords are indistinguishable to the
// caller.
func (m *SessionManager) Login(ctx context.Context, username, password string) (*OperatorSession, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, status.ErrInvalidCredentials
	}

	var station struct {
		ID           string `db:"id"`
		Name         string `db:"name"`
		PasswordHash string `db:"operator_password_hash"`
	}
	err := m.app.DB().
		NewQuery(`SELECT id, name, operator_password_hash FROM stations
			WHERE operator_username = {:username}`).
		Bind(dbx.Params{"username": username}).
		WithContext(ctx).
		One(&station)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("operator lookup: %w", err)
	}

	if station.PasswordHash == "" {
		return nil, status.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(station.PasswordHash), []byte(password)); err != nil {
		return nil, status.ErrInvalidCredentials
	}

	token, err := utils.GenerateCode(24)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	session := &OperatorSession{
		Token:       token,
		StationID:   station.ID,
		StationName: station.Name,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	if err := m.redis.Set(ctx, sessionKey(token), data, m.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return session, nil
}

// Resolve maps a bearer token back to the operator's station.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*OperatorSession, error) {
	if token == "" {
		return nil, status.ErrSessionExpired
	}

	data, err := m.redis.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, status.ErrSessionExpired
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session OperatorSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	session.Token = token

	return &session, nil
}

func (m *SessionManager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.redis.Del(ctx, sessionKey(token)).Err()
}
