package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/pixcheckout/internal/abacatepay"
	"github.com/smallbiznis/pixcheckout/internal/clock"
	"github.com/smallbiznis/pixcheckout/internal/config"
	obsmetrics "github.com/smallbiznis/pixcheckout/internal/observability/metrics"
	"github.com/smallbiznis/pixcheckout/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// chargeExpirySeconds is the expiry window requested for every PIX charge.
const chargeExpirySeconds = 3600

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	Clock      clock.Clock
	Repo       domain.Repository
	Gateway    abacatepay.Gateway
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        config.Config
	clock      clock.Clock
	repo       domain.Repository
	gateway    abacatepay.Gateway
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("order.service"),
		cfg:        p.Cfg,
		clock:      p.Clock,
		repo:       p.Repo,
		gateway:    p.Gateway,
		obsMetrics: p.ObsMetrics,
	}
}

// Create persists a pending order first so an id exists to hand to the
// provider as correlation token, then requests the PIX charge. A gateway
// failure leaves the pending row in place and propagates.
func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.CreateOrderResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.CreateOrderResponse{}, domain.ErrInvalidName
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return domain.CreateOrderResponse{}, domain.ErrInvalidPhone
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return domain.CreateOrderResponse{}, domain.ErrInvalidEmail
	}
	taxID := strings.TrimSpace(req.CPF)
	if taxID == "" {
		return domain.CreateOrderResponse{}, domain.ErrInvalidTaxID
	}

	now := s.clock.Now()
	order := domain.Order{
		Name:      name,
		Phone:     phone,
		Email:     email,
		TaxID:     taxID,
		Status:    domain.StatusPending,
		Amount:    s.cfg.OrderAmount,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &order); err != nil {
		return domain.CreateOrderResponse{}, err
	}
	s.obsMetrics.RecordOrderCreated(ctx)

	charge, err := s.gateway.CreateCharge(ctx, abacatepay.CreateChargeRequest{
		OrderID:     order.ID,
		Amount:      order.Amount,
		ExpiresIn:   chargeExpirySeconds,
		Description: s.cfg.OrderProduct,
		Product:     s.cfg.OrderProduct,
		Customer: abacatepay.Customer{
			Name:      name,
			Cellphone: phone,
			Email:     email,
			TaxID:     taxID,
		},
	})
	if err != nil {
		s.obsMetrics.RecordChargeCreated(ctx, "error")
		s.log.Error("create charge failed",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
		return domain.CreateOrderResponse{}, err
	}
	s.obsMetrics.RecordChargeCreated(ctx, "ok")

	paymentID := charge.PaymentID
	order.PaymentID = &paymentID
	order.ExpiresAt = parseExpiry(charge.ExpiresAt)
	order.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, &order); err != nil {
		return domain.CreateOrderResponse{}, err
	}

	s.log.Info("pix charge created",
		zap.Int64("order_id", order.ID),
		zap.String("payment_id", paymentID),
		zap.Int64("amount", order.Amount),
	)

	return domain.CreateOrderResponse{
		OrderID:      order.ID,
		PaymentID:    paymentID,
		QRCode:       charge.BRCode,
		QRCodeBase64: charge.BRCodeBase64,
		ExpiresAt:    order.ExpiresAt,
		Amount:       order.Amount,
	}, nil
}

// ApplyWebhookStatus reconciles an order against a webhook-reported
// status. Unknown orders are acked silently since the provider retries
// deliveries. Unrecognized status values never overwrite the stored one.
func (s *Service) ApplyWebhookStatus(ctx context.Context, orderID int64, rawStatus string) error {
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		s.log.Info("webhook for unknown order ignored",
			zap.Int64("order_id", orderID),
			zap.String("status", rawStatus),
		)
		return nil
	}

	status, ok := domain.ParseStatus(rawStatus)
	if !ok {
		s.log.Warn("webhook carried unrecognized status",
			zap.Int64("order_id", orderID),
			zap.String("status", rawStatus),
		)
		return nil
	}

	if order.Status == status {
		return nil
	}

	order.Status = status
	order.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, order); err != nil {
		return err
	}
	s.obsMetrics.RecordStatusTransition(ctx, string(status), "webhook")

	s.log.Info("order status updated from webhook",
		zap.Int64("order_id", orderID),
		zap.String("status", string(status)),
	)
	return nil
}

// PaymentStatus reports the order status, reconciling against the
// provider when a charge exists. Gateway failures degrade to the last
// stored status and never surface to the caller.
func (s *Service) PaymentStatus(ctx context.Context, orderID int64) (domain.PaymentStatusResponse, error) {
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return domain.PaymentStatusResponse{}, err
	}
	if order == nil {
		return domain.PaymentStatusResponse{}, domain.ErrNotFound
	}

	resp := domain.PaymentStatusResponse{
		OrderID: order.ID,
		Status:  order.Status,
	}

	if order.PaymentID == nil {
		return resp, nil
	}

	checked, err := s.gateway.CheckStatus(ctx, *order.PaymentID)
	if err != nil {
		s.log.Warn("status check failed, returning stored status",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
		return resp, nil
	}

	resp.ExpiresAt = parseExpiry(checked.ExpiresAt)

	status, ok := domain.ParseStatus(checked.Status)
	if !ok {
		s.log.Warn("provider reported unrecognized status",
			zap.Int64("order_id", order.ID),
			zap.String("status", checked.Status),
		)
		return resp, nil
	}

	if status != order.Status {
		order.Status = status
		order.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, s.db, order); err != nil {
			return domain.PaymentStatusResponse{}, err
		}
		s.obsMetrics.RecordStatusTransition(ctx, string(status), "poll")

		s.log.Info("order status updated from poll",
			zap.Int64("order_id", order.ID),
			zap.String("status", string(status)),
		)
	}

	resp.Status = status
	return resp, nil
}

// SimulatePayment asks the provider to settle the charge in dev mode.
// Only a provider response of paid commits; anything else fails with the
// stored status untouched.
func (s *Service) SimulatePayment(ctx context.Context, orderID int64) (domain.SimulatePaymentResponse, error) {
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return domain.SimulatePaymentResponse{}, err
	}
	if order == nil {
		return domain.SimulatePaymentResponse{}, domain.ErrNotFound
	}
	if order.PaymentID == nil {
		return domain.SimulatePaymentResponse{}, domain.ErrNoPaymentID
	}

	simulated, err := s.gateway.SimulatePayment(ctx, *order.PaymentID)
	if err != nil {
		return domain.SimulatePaymentResponse{}, err
	}

	status, ok := domain.ParseStatus(simulated.Status)
	if !ok || status != domain.StatusPaid {
		s.log.Warn("simulate payment did not settle",
			zap.Int64("order_id", order.ID),
			zap.String("status", simulated.Status),
		)
		return domain.SimulatePaymentResponse{}, domain.ErrSimulateFailed
	}

	if order.Status != domain.StatusPaid {
		order.Status = domain.StatusPaid
		order.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, s.db, order); err != nil {
			return domain.SimulatePaymentResponse{}, err
		}
		s.obsMetrics.RecordStatusTransition(ctx, string(domain.StatusPaid), "simulate")
	}

	s.log.Info("payment simulated",
		zap.Int64("order_id", order.ID),
	)

	return domain.SimulatePaymentResponse{
		OrderID: order.ID,
		Status:  domain.StatusPaid,
	}, nil
}

// parseExpiry parses the provider's ISO-8601 expiry. A parse failure is
// not fatal; the order simply keeps no expiry.
func parseExpiry(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}
