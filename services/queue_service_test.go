package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelqueue-system/config"
	"fuelqueue-system/internal/status"
	"fuelqueue-system/models"
	"fuelqueue-system/security"
)

func setupTestQueueService() (*QueueService, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	cfg := &config.Config{
		PhysicalQueueCapacity: 10,
		CooldownWindow:        48 * time.Hour,
		PromotionLockTTL:      10 * time.Second,
		DefaultCountryPrefix:  "+223",
		SMSChannel:            "sms-outbound",
	}

	service := NewQueueService(nil, db, NewNotifyService(nil, cfg), nil, NewStockService(), nil, cfg)

	return service, mock
}

func TestPlanPromotion(t *testing.T) {
	tests := []struct {
		name        string
		capacity    int
		calledCount int
		requested   int
		wantActual  int
		wantReason  string
	}{
		{"Empty physical queue, small request", 10, 0, 3, 3, ""},
		{"Request larger than free slots", 10, 8, 5, 2, ""},
		{"Request exactly the free slots", 10, 7, 3, 3, ""},
		{"Request larger than capacity", 10, 0, 25, 10, ""},
		{"Physical queue full", 10, 10, 3, 0, models.ReasonQueueFull},
		{"Called count above capacity", 10, 12, 1, 0, models.ReasonQueueFull},
		{"Nothing requested with free slots", 10, 4, 0, 0, models.ReasonNothingRequested},
		{"Negative request", 10, 4, -2, 0, models.ReasonNothingRequested},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, reason := PlanPromotion(tt.capacity, tt.calledCount, tt.requested)
			assert.Equal(t, tt.wantActual, actual)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestNormalizeVehicleID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Lowercase plate", "ab-1234-ml", "AB-1234-ML"},
		{"Mixed case with spaces", "  ab1234Cd ", "AB1234CD"},
		{"Already normalized", "FRAME0099", "FRAME0099"},
		{"Empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeVehicleID(tt.input))
		})
	}
}

func TestQueueService_AcquirePromotionLock_Success(t *testing.T) {
	service, mock := setupTestQueueService()
	defer mock.ClearExpect()

	ctx := context.Background()

	mock.ExpectSetNX("lock:promotion:station-1", "1", 10*time.Second).SetVal(true)
	mock.ExpectDel("lock:promotion:station-1").SetVal(1)

	release, err := service.acquirePromotionLock(ctx, "station-1")
	require.NoError(t, err)
	require.NotNil(t, release)

	release()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueService_AcquirePromotionLock_Busy(t *testing.T) {
	service, mock := setupTestQueueService()
	defer mock.ClearExpect()

	ctx := context.Background()

	for i := 0; i < promotionLockAttempts; i++ {
		mock.ExpectSetNX("lock:promotion:station-1", "1", 10*time.Second).SetVal(false)
	}

	release, err := service.acquirePromotionLock(ctx, "station-1")

	assert.Nil(t, release)
	assert.ErrorIs(t, err, status.ErrPromotionBusy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueService_MarkServed_RejectsNonPositiveVolume(t *testing.T) {
	service, _ := setupTestQueueService()

	ctx := context.Background()
	session := &security.OperatorSession{StationID: "station-1", StationName: "Station One"}

	err := service.MarkServed(ctx, session, "entry-1", decimal.Zero)
	assert.ErrorIs(t, err, status.ErrInvalidVolume)

	err = service.MarkServed(ctx, session, "entry-1", decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, status.ErrInvalidVolume)
}
