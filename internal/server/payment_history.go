package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymenthistorydomain "github.com/smallbiznis/offsession/internal/paymenthistory/domain"
	"github.com/smallbiznis/offsession/internal/providers/pdf"
)

func (s *Server) ListPaymentHistory(c *gin.Context) {
	records, err := s.historySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPaymentHistoryResponses(records))
}

func (s *Server) DownloadReceipt(c *gin.Context) {
	paymentIntentID := strings.TrimSpace(c.Param("paymentIntentId"))
	if paymentIntentID == "" {
		AbortWithError(c, newValidationError("paymentIntentId", "required", "paymentIntentId is required"))
		return
	}

	record, err := s.historySvc.Latest(c.Request.Context(), paymentIntentID)
	if err != nil {
		if errors.Is(err, paymenthistorydomain.ErrInvalidPaymentIntent) {
			AbortWithError(c, ErrNotFound)
			return
		}
		AbortWithError(c, err)
		return
	}

	doc, err := s.receipts.RenderReceipt(c.Request.Context(), pdf.ReceiptFromRecord(record, s.cfg.AppName, s.cfg.Invoice.Description))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="receipt-`+record.PaymentIntentID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", doc)
}
