package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	processordomain "github.com/smallbiznis/offsession/internal/processor/domain"
	"go.uber.org/zap"
)

const (
	signatureHeader     = "Stripe-Signature"
	maxWebhookBodyBytes = 1 << 20
)

// HandleWebhook acknowledges every reconciled delivery with an empty 200.
// Rejected deliveries get 400, anything else 500 so the processor retries.
func (s *Server) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	outcome, err := s.webhookSvc.Reconcile(c.Request.Context(), payload, c.GetHeader(signatureHeader))
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, processordomain.ErrSignatureInvalid) || errors.Is(err, processordomain.ErrInvalidPayload) {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	s.log.Debug("webhook acknowledged", zap.String("outcome", string(outcome)))
	c.Status(http.StatusOK)
}
