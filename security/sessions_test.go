package security

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelqueue-system/internal/status"
)

func setupTestSessionManager() (*SessionManager, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return NewSessionManager(nil, db, 12*time.Hour), mock
}

func TestSessionManager_Login_EmptyCredentials(t *testing.T) {
	manager, _ := setupTestSessionManager()
	ctx := context.Background()

	_, err := manager.Login(ctx, "", "secret")
	assert.ErrorIs(t, err, status.ErrInvalidCredentials)

	_, err = manager.Login(ctx, "operator1", "")
	assert.ErrorIs(t, err, status.ErrInvalidCredentials)
}

func TestSessionManager_Resolve(t *testing.T) {
	manager, mock := setupTestSessionManager()
	defer mock.ClearExpect()

	stored := &OperatorSession{StationID: "station-1", StationName: "Station One"}
	data, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectGet("session:operator:abc123").SetVal(string(data))

	session, err := manager.Resolve(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", session.Token)
	assert.Equal(t, "station-1", session.StationID)
	assert.Equal(t, "Station One", session.StationName)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionManager_Resolve_Expired(t *testing.T) {
	manager, mock := setupTestSessionManager()
	defer mock.ClearExpect()

	mock.ExpectGet("session:operator:stale").RedisNil()

	_, err := manager.Resolve(context.Background(), "stale")
	assert.ErrorIs(t, err, status.ErrSessionExpired)
}

func TestSessionManager_Resolve_EmptyToken(t *testing.T) {
	manager, _ := setupTestSessionManager()

	_, err := manager.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, status.ErrSessionExpired)
}

func TestSessionManager_Logout(t *testing.T) {
	manager, mock := setupTestSessionManager()
	defer mock.ClearExpect()

	mock.ExpectDel("session:operator:abc123").SetVal(1)

	require.NoError(t, manager.Logout(context.Background(), "abc123"))
	assert.NoError(t, mock.ExpectationsWereMet())

	// Logging out without a token is a no-op, not an error.
	require.NoError(t, manager.Logout(context.Background(), ""))
}

func TestOperatorSession_TokenNotSerialized(t *testing.T) {
	session := &OperatorSession{
		Token:       "abc123",
		StationID:   "station-1",
		StationName: "Station One",
	}

	data, err := json.Marshal(session)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "abc123")
}
