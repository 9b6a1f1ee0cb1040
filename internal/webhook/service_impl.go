package webhook

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pixcheckout/internal/clock"
	"github.com/smallbiznis/pixcheckout/internal/config"
	obsmetrics "github.com/smallbiznis/pixcheckout/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/pixcheckout/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	Clock      clock.Clock
	GenID      *snowflake.Node
	OrderSvc   orderdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	genID      *snowflake.Node
	orderSvc   orderdomain.Service
	verifier   *Verifier
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	verifier := NewVerifier(p.Cfg.WebhookSecret)
	if !verifier.Enabled() {
		p.Log.Warn("webhook signature verification disabled: WEBHOOK_SECRET not configured")
	}

	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.webhook"),
		clock:      p.Clock,
		genID:      p.GenID,
		orderSvc:   p.OrderSvc,
		verifier:   verifier,
		obsMetrics: p.ObsMetrics,
	}
}

// externalID tolerates both numeric and string order references, since
// provider payloads are not consistent about it.
type externalID int64

func (e *externalID) UnmarshalJSON(raw []byte) error {
	value := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if value == "" || value == "null" {
		*e = 0
		return nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return ErrInvalidPayload
	}
	*e = externalID(parsed)
	return nil
}

type webhookBody struct {
	ExternalID externalID `json:"external_id"`
	Status     string     `json:"status"`
}

// Ingest verifies, journals and applies one webhook delivery. The status
// transition itself goes through the order lifecycle controller.
func (s *Service) Ingest(ctx context.Context, payload []byte, signature string) error {
	if s.verifier.Enabled() && !s.verifier.Verify(payload, signature) {
		s.obsMetrics.RecordWebhookEvent(ctx, "rejected_signature")
		return ErrInvalidSignature
	}

	if !json.Valid(payload) {
		s.obsMetrics.RecordWebhookEvent(ctx, "rejected_payload")
		return ErrInvalidPayload
	}

	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, "rejected_payload")
		return ErrInvalidPayload
	}

	status := strings.TrimSpace(body.Status)
	orderID := int64(body.ExternalID)
	if orderID <= 0 || status == "" {
		s.obsMetrics.RecordWebhookEvent(ctx, "rejected_payload")
		return ErrInvalidPayload
	}

	record := EventRecord{
		ID:         s.genID.Generate(),
		OrderID:    orderID,
		Status:     status,
		Payload:    datatypes.JSON(payload),
		ReceivedAt: s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}

	if err := s.orderSvc.ApplyWebhookStatus(ctx, orderID, status); err != nil {
		return err
	}

	processed := s.clock.Now()
	if err := s.db.WithContext(ctx).
		Model(&EventRecord{}).
		Where("id = ?", record.ID).
		Update("processed_at", processed).Error; err != nil {
		return err
	}

	s.obsMetrics.RecordWebhookEvent(ctx, "ok")
	return nil
}
