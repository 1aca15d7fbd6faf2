package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DownloadInvoice resolves the processor-hosted PDF link. Every failure is
// reported as 500 {error: message}.
func (s *Server) DownloadInvoice(c *gin.Context) {
	invoiceID := strings.TrimSpace(c.Param("invoiceId"))

	url, err := s.invoiceSvc.ResolvePDF(c.Request.Context(), invoiceID)
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
