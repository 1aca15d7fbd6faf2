package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	chargedomain "github.com/smallbiznis/offsession/internal/charge/domain"
)

type createPaymentIntentRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (s *Server) CreatePaymentIntent(c *gin.Context) {
	var req createPaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.chargeFailed(c, bindingError(err))
		return
	}

	pi, err := s.chargeSvc.Charge(c.Request.Context(), req.Email)
	if err != nil {
		s.chargeFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"paymentIntent": json.RawMessage(pi.Snapshot())})
}

func (s *Server) chargeFailed(c *gin.Context, err error) {
	_ = c.Error(err)

	status := http.StatusBadRequest
	if errors.Is(err, chargedomain.ErrRateLimited) {
		status = http.StatusTooManyRequests
		var rl *chargedomain.RateLimitedError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		}
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: errorPayload{
		Type:    clientErrorType(err),
		Message: clientErrorMessage(err),
	}})
}
