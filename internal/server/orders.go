package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/pixcheckout/internal/order/domain"
)

type createPaymentRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	CPF   string `json:"cpf"`
}

type createPaymentResponse struct {
	Success      bool   `json:"success"`
	OrderID      int64  `json:"order_id"`
	PaymentID    string `json:"payment_id"`
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	ExpiresAt    string `json:"expires_at,omitempty"`
	Amount       int64  `json:"amount"`
}

func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Create(c.Request.Context(), orderdomain.CreateOrderRequest{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
		CPF:   req.CPF,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := createPaymentResponse{
		Success:      true,
		OrderID:      resp.OrderID,
		PaymentID:    resp.PaymentID,
		QRCode:       resp.QRCode,
		QRCodeBase64: resp.QRCodeBase64,
		Amount:       resp.Amount,
	}
	if resp.ExpiresAt != nil {
		out.ExpiresAt = resp.ExpiresAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, out)
}

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")
	if err := s.webhookSvc.Ingest(c.Request.Context(), payload, signature); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) PaymentStatus(c *gin.Context) {
	orderID, err := parseOrderID(c.Param("orderId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.orderSvc.PaymentStatus(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := gin.H{
		"order_id": resp.OrderID,
		"status":   resp.Status,
	}
	if resp.ExpiresAt != nil {
		out["expires_at"] = resp.ExpiresAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, out)
}

func (s *Server) SimulatePayment(c *gin.Context) {
	orderID, err := parseOrderID(c.Param("orderId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.orderSvc.SimulatePayment(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"order_id": resp.OrderID,
		"status":   resp.Status,
	})
}

func parseOrderID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, newValidationError("orderId", "invalid_id", "invalid order id")
	}
	return id, nil
}
