package handler

import (
	"collection-gateway/internal/adapter/http/dto"
	"collection-gateway/internal/adapter/http/middleware"
	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"
	"collection-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// PayoutHandler handles payout requests.
type PayoutHandler struct {
	payoutSvc ports.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler.
func NewPayoutHandler(payoutSvc ports.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutSvc: payoutSvc}
}

// RequestPayout handles POST /api/v1/payouts.
func (h *PayoutHandler) RequestPayout(c *gin.Context) {
	id, ok := merchantID(c)
	if !ok {
		return
	}
	var req dto.PayoutRequest
	if !bindJSON(c, &req) {
		return
	}

	payout, err := h.payoutSvc.RequestPayout(c.Request.Context(), ports.PayoutRequest{
		MerchantID: id,
		Amount:     req.Amount,
		Currency:   currency(req.Currency),
		Destination: domain.PayoutDestination{
			AccountName:   req.AccountName,
			AccountNumber: req.AccountNumber,
			BankCode:      req.BankCode,
			BankName:      req.BankName,
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, payout.Reference)
	response.Created(c, payout)
}
