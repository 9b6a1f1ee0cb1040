package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/smallbiznis/pixcheckout/internal/abacatepay"
	"github.com/smallbiznis/pixcheckout/internal/clock"
	"github.com/smallbiznis/pixcheckout/internal/config"
	"github.com/smallbiznis/pixcheckout/internal/order/domain"
	"github.com/smallbiznis/pixcheckout/internal/order/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeGateway struct {
	charge    abacatepay.Charge
	chargeErr error
	status    abacatepay.ChargeStatus
	statusErr error
	simulated abacatepay.ChargeStatus
	simErr    error

	createCalls   int
	checkCalls    int
	simulateCalls int
}

func (f *fakeGateway) CreateCharge(ctx context.Context, req abacatepay.CreateChargeRequest) (abacatepay.Charge, error) {
	f.createCalls++
	if f.chargeErr != nil {
		return abacatepay.Charge{}, f.chargeErr
	}
	return f.charge, nil
}

func (f *fakeGateway) CheckStatus(ctx context.Context, paymentID string) (abacatepay.ChargeStatus, error) {
	f.checkCalls++
	if f.statusErr != nil {
		return abacatepay.ChargeStatus{}, f.statusErr
	}
	return f.status, nil
}

func (f *fakeGateway) SimulatePayment(ctx context.Context, paymentID string) (abacatepay.ChargeStatus, error) {
	f.simulateCalls++
	if f.simErr != nil {
		return abacatepay.ChargeStatus{}, f.simErr
	}
	return f.simulated, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&domain.Order{}))
	return db
}

func newService(t *testing.T, db *gorm.DB, gateway abacatepay.Gateway, clk clock.Clock) domain.Service {
	t.Helper()

	return New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		Cfg:     config.Config{OrderAmount: 1990, OrderProduct: "BeautyStories"},
		Clock:   clk,
		Repo:    repository.Provide(),
		Gateway: gateway,
	})
}

func validCreateRequest() domain.CreateOrderRequest {
	return domain.CreateOrderRequest{
		Name:  "Ana",
		Phone: "+5511999990000",
		Email: "a@x.com",
		CPF:   "000",
	}
}

func TestCreateOrderAssignsUniqueIDs(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gateway := &fakeGateway{charge: abacatepay.Charge{PaymentID: "pay_1", BRCode: "00020126"}}
	svc := newService(t, db, gateway, clock.NewSystemClock())

	first, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	second, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	require.NotZero(t, first.OrderID)
	require.NotZero(t, second.OrderID)
	require.NotEqual(t, first.OrderID, second.OrderID)
}

func TestCreateOrderPersistsChargeDetails(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gateway := &fakeGateway{charge: abacatepay.Charge{
		PaymentID:    "pay_1",
		BRCode:       "00020126330014br.gov.bcb.pix",
		BRCodeBase64: "aW1hZ2U=",
		ExpiresAt:    "2025-01-01T00:00:00Z",
		Amount:       1990,
	}}
	svc := newService(t, db, gateway, clock.NewSystemClock())

	resp, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.OrderID)
	require.Equal(t, "pay_1", resp.PaymentID)
	require.Equal(t, "00020126330014br.gov.bcb.pix", resp.QRCode)
	require.Equal(t, int64(1990), resp.Amount)

	var stored domain.Order
	require.NoError(t, db.First(&stored, resp.OrderID).Error)
	require.Equal(t, domain.StatusPending, stored.Status)
	require.NotNil(t, stored.PaymentID)
	require.Equal(t, "pay_1", *stored.PaymentID)
	require.NotNil(t, stored.ExpiresAt)
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), stored.ExpiresAt.UTC())
}

func TestCreateOrderUnparseableExpiryIsNotFatal(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gateway := &fakeGateway{charge: abacatepay.Charge{PaymentID: "pay_1", ExpiresAt: "soon"}}
	svc := newService(t, db, gateway, clock.NewSystemClock())

	resp, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	require.Nil(t, resp.ExpiresAt)

	var stored domain.Order
	require.NoError(t, db.First(&stored, resp.OrderID).Error)
	require.Nil(t, stored.ExpiresAt)
}

func TestCreateOrderGatewayFailureKeepsPendingRow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gateway := &fakeGateway{chargeErr: abacatepay.ErrMissingCredentials}
	svc := newService(t, db, gateway, clock.NewSystemClock())

	_, err := svc.Create(ctx, validCreateRequest())
	require.ErrorIs(t, err, abacatepay.ErrMissingCredentials)

	var stored domain.Order
	require.NoError(t, db.First(&stored).Error)
	require.Equal(t, domain.StatusPending, stored.Status)
	require.Nil(t, stored.PaymentID)
}

func TestCreateOrderValidatesRequiredFields(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gateway := &fakeGateway{}
	svc := newService(t, db, gateway, clock.NewSystemClock())

	cases := []struct {
		mutate func(*domain.CreateOrderRequest)
		want   error
	}{
		{func(r *domain.CreateOrderRequest) { r.Name = " " }, domain.ErrInvalidName},
		{func(r *domain.CreateOrderRequest) { r.Phone = "" }, domain.ErrInvalidPhone},
		{func(r *domain.CreateOrderRequest) { r.Email = "" }, domain.ErrInvalidEmail},
		{func(r *domain.CreateOrderRequest) { r.CPF = "" }, domain.ErrInvalidTaxID},
	}

	for _, tc := range cases {
		req := validCreateRequest()
		tc.mutate(&req)
		_, err := svc.Create(ctx, req)
		require.ErrorIs(t, err, tc.want)
	}

	require.Zero(t, gateway.createCalls)

	var count int64
	require.NoError(t, db.Model(&domain.Order{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestPaymentStatusUpdatesFromProvider(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gateway := &fakeGateway{
		charge: abacatepay.Charge{PaymentID: "pay_1"},
		status: abacatepay.ChargeStatus{Status: "paid", ExpiresAt: "2025-01-01T00:00:00Z"},
	}
	svc := newService(t, db, gateway, clock.NewSystemClock())

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	resp, err := svc.PaymentStatus(ctx, created.OrderID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaid, resp.Status)
	require.Equal(t, created.OrderID, resp.OrderID)
	require.NotNil(t, resp.ExpiresAt)

	var stored domain.Order
	require.NoError(t, db.First(&stored, created.OrderID).Error)
	require.Equal(t, domain.StatusPaid, stored.Status)
}

func TestPaymentStatusNeverStoresUnknownProviderStatus(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gateway := &fakeGateway{charge: abacatepay.Charge{PaymentID: "pay_1"}}
	svc := newService(t, db, gateway, clock.NewSystemClock())

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	for _, unknown := range []string{"refunded", "PAID_OUT", "limbo", ""} {
		gateway.status = abacatepay.ChargeStatus{Status: unknown}

		resp, err := svc.PaymentStatus(ctx, created.OrderID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusPending, resp.Status)

		var stored domain.Order
		require.NoError(t, db.First(&stored, created.OrderID).Error)
		require.Equal(t, domain.StatusPending, stored.Status)
	}
}

func TestPaymentStatusGatewayFailureReturnsStoredStatus(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gateway := &fakeGateway{
		charge:    abacatepay.Charge{PaymentID: "pay_1"},
		statusErr: abacatepay.ErrUnavailable,
	}
	svc := newService(t, db, gateway, clock.NewSystemClock())

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	resp, err := svc.PaymentStatus(ctx, created.OrderID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, resp.Status)
}

func TestPaymentStatusWithoutPaymentIDSkipsProvider(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gateway := &fakeGateway{chargeErr: errors.New("provider down")}
	svc := newService(t, db, gateway, clock.NewSystemClock())

	_, err := svc.Create(ctx, validCreateRequest())
	require.Error(t, err)

	resp, err := svc.PaymentStatus(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, resp.Status)
	require.Zero(t, gateway.checkCalls)
}

func TestPaymentStatusNotFound(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, &fakeGateway{}, clock.NewSystemClock())

	_, err := svc.PaymentStatus(ctx, 42)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplyWebhookStatusIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gateway := &fakeGateway{charge: abacatepay.Charge{PaymentID: "pay_1"}}
	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	svc := newService(t, db, gateway, clk)

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.ApplyWebhookStatus(ctx, created.OrderID, "paid"))

	var afterFirst domain.Order
	require.NoError(t, db.First(&afterFirst, created.OrderID).Error)
	require.Equal(t, domain.StatusPaid, afterFirst.Status)

	clk.Advance(time.Hour)
	require.NoError(t, svc.ApplyWebhookStatus(ctx, created.OrderID, "paid"))

	var afterSecond domain.Order
	require.NoError(t, db.First(&afterSecond, created.OrderID).Error)
	require.Equal(t, domain.StatusPaid, afterSecond.Status)
	require.Equal(t, afterFirst.UpdatedAt.UTC(), afterSecond.UpdatedAt.UTC())
}

func TestApplyWebhookStatusUnknownOrderIsSilentNoop(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, &fakeGateway{}, clock.NewSystemClock())

	require.NoError(t, svc.ApplyWebhookStatus(ctx, 999, "paid"))

	var count int64
	require.NoError(t, db.Model(&domain.Order{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestApplyWebhookStatusRejectsUnknownVocabulary(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gateway := &fakeGateway{charge: abacatepay.Charge{PaymentID: "pay_1"}}
	svc := newService(t, db, gateway, clock.NewSystemClock())

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.ApplyWebhookStatus(ctx, created.OrderID, "charged_back"))

	var stored domain.Order
	require.NoError(t, db.First(&stored, created.OrderID).Error)
	require.Equal(t, domain.StatusPending, stored.Status)
}

func TestSimulatePaymentRequiresPaymentID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gateway := &fakeGateway{chargeErr: errors.New("provider down")}
	svc := newService(t, db, gateway, clock.NewSystemClock())

	_, err := svc.Create(ctx, validCreateRequest())
	require.Error(t, err)

	_, err = svc.SimulatePayment(ctx, 1)
	require.ErrorIs(t, err, domain.ErrNoPaymentID)
	require.Zero(t, gateway.simulateCalls)
}

func TestSimulatePaymentPendingResultDoesNotCommit(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gateway := &fakeGateway{
		charge:    abacatepay.Charge{PaymentID: "pay_1"},
		simulated: abacatepay.ChargeStatus{Status: "pending"},
	}
	svc := newService(t, db, gateway, clock.NewSystemClock())

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	_, err = svc.SimulatePayment(ctx, created.OrderID)
	require.ErrorIs(t, err, domain.ErrSimulateFailed)

	var stored domain.Order
	require.NoError(t, db.First(&stored, created.OrderID).Error)
	require.Equal(t, domain.StatusPending, stored.Status)
}

func TestSimulatePaymentPaidResultCommits(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	gateway := &fakeGateway{
		charge:    abacatepay.Charge{PaymentID: "pay_1"},
		simulated: abacatepay.ChargeStatus{Status: "paid"},
	}
	svc := newService(t, db, gateway, clock.NewSystemClock())

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	resp, err := svc.SimulatePayment(ctx, created.OrderID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaid, resp.Status)
	require.Equal(t, created.OrderID, resp.OrderID)

	var stored domain.Order
	require.NoError(t, db.First(&stored, created.OrderID).Error)
	require.Equal(t, domain.StatusPaid, stored.Status)
}

func TestSimulatePaymentNotFound(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, &fakeGateway{}, clock.NewSystemClock())

	_, err := svc.SimulatePayment(ctx, 7)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
