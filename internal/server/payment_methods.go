package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentmethoddomain "github.com/smallbiznis/offsession/internal/paymentmethod/domain"
)

type createCustomerPaymentMethodRequest struct {
	Email         string `json:"email" binding:"required,email"`
	PaymentMethod struct {
		ID string `json:"id" binding:"required"`
	} `json:"paymentMethod"`
}

// CreateCustomerPaymentMethod answers failures with {message, err} and status
// 400, duplicates included.
func (s *Server) CreateCustomerPaymentMethod(c *gin.Context) {
	var req createCustomerPaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.registrationFailed(c, bindingError(err))
		return
	}

	created, err := s.paymentMethodSvc.Register(c.Request.Context(), paymentmethoddomain.RegisterRequest{
		Email:           req.Email,
		PaymentMethodID: req.PaymentMethod.ID,
	})
	if err != nil {
		s.registrationFailed(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"createdPaymentMethod": newPaymentMethodResponse(created)})
}

func (s *Server) registrationFailed(c *gin.Context, err error) {
	_ = c.Error(err)
	message := clientErrorMessage(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"message": message,
		"err": errorPayload{
			Type:    clientErrorType(err),
			Message: message,
		},
	})
}
