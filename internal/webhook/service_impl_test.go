package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pixcheckout/internal/clock"
	"github.com/smallbiznis/pixcheckout/internal/config"
	orderdomain "github.com/smallbiznis/pixcheckout/internal/order/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeOrderService struct {
	applied []appliedStatus
	err     error
}

type appliedStatus struct {
	orderID int64
	status  string
}

func (f *fakeOrderService) Create(ctx context.Context, req orderdomain.CreateOrderRequest) (orderdomain.CreateOrderResponse, error) {
	return orderdomain.CreateOrderResponse{}, nil
}

func (f *fakeOrderService) ApplyWebhookStatus(ctx context.Context, orderID int64, rawStatus string) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, appliedStatus{orderID: orderID, status: rawStatus})
	return nil
}

func (f *fakeOrderService) PaymentStatus(ctx context.Context, orderID int64) (orderdomain.PaymentStatusResponse, error) {
	return orderdomain.PaymentStatusResponse{}, nil
}

func (f *fakeOrderService) SimulatePayment(ctx context.Context, orderID int64) (orderdomain.SimulatePaymentResponse, error) {
	return orderdomain.SimulatePaymentResponse{}, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:webhookdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&EventRecord{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, orderSvc orderdomain.Service, secret string) *Service {
	t.Helper()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	return NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Cfg:      config.Config{WebhookSecret: secret},
		Clock:    clock.NewFakeClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)),
		GenID:    node,
		OrderSvc: orderSvc,
	})
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestIngestAppliesStatusAndJournalsEvent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	orderSvc := &fakeOrderService{}
	svc := newTestService(t, db, orderSvc, "")

	payload := []byte(`{"external_id": 1, "status": "paid"}`)
	require.NoError(t, svc.Ingest(ctx, payload, ""))

	require.Len(t, orderSvc.applied, 1)
	require.Equal(t, int64(1), orderSvc.applied[0].orderID)
	require.Equal(t, "paid", orderSvc.applied[0].status)

	var record EventRecord
	require.NoError(t, db.First(&record).Error)
	require.Equal(t, int64(1), record.OrderID)
	require.Equal(t, "paid", record.Status)
	require.NotNil(t, record.ProcessedAt)
}

func TestIngestAcceptsStringExternalID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	orderSvc := &fakeOrderService{}
	svc := newTestService(t, db, orderSvc, "")

	payload := []byte(`{"external_id": "42", "status": "expired"}`)
	require.NoError(t, svc.Ingest(ctx, payload, ""))

	require.Len(t, orderSvc.applied, 1)
	require.Equal(t, int64(42), orderSvc.applied[0].orderID)
}

func TestIngestRejectsMissingFields(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	orderSvc := &fakeOrderService{}
	svc := newTestService(t, db, orderSvc, "")

	for _, payload := range []string{
		`{"status": "paid"}`,
		`{"external_id": 1}`,
		`{"external_id": "abc", "status": "paid"}`,
		`not json`,
	} {
		err := svc.Ingest(ctx, []byte(payload), "")
		require.ErrorIs(t, err, ErrInvalidPayload, payload)
	}

	require.Empty(t, orderSvc.applied)

	var count int64
	require.NoError(t, db.Model(&EventRecord{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestIngestVerifiesSignatureWhenConfigured(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	orderSvc := &fakeOrderService{}
	svc := newTestService(t, db, orderSvc, "whsec_test")

	payload := []byte(`{"external_id": 1, "status": "paid"}`)

	err := svc.Ingest(ctx, payload, "deadbeef")
	require.ErrorIs(t, err, ErrInvalidSignature)
	require.Empty(t, orderSvc.applied)

	require.NoError(t, svc.Ingest(ctx, payload, sign("whsec_test", payload)))
	require.Len(t, orderSvc.applied, 1)
}

func TestVerifierDisabledWithoutSecret(t *testing.T) {
	v := NewVerifier("")
	require.False(t, v.Enabled())
	require.True(t, v.Verify([]byte("anything"), ""))
}

func TestVerifierAcceptsPrefixedSignature(t *testing.T) {
	v := NewVerifier("secret")
	payload := []byte(`{"external_id": 1}`)

	require.True(t, v.Verify(payload, "sha256="+sign("secret", payload)))
	require.False(t, v.Verify(payload, "sha256=00"))
}
