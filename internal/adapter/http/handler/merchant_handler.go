package handler

import (
	"collection-gateway/internal/adapter/http/dto"
	"collection-gateway/internal/adapter/http/middleware"
	"collection-gateway/internal/core/ports"
	"collection-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// MerchantHandler handles registration and merchant self-service endpoints.
type MerchantHandler struct {
	merchantSvc ports.MerchantService
	querySvc    ports.QueryService
}

// NewMerchantHandler creates a new MerchantHandler.
func NewMerchantHandler(merchantSvc ports.MerchantService, querySvc ports.QueryService) *MerchantHandler {
	return &MerchantHandler{merchantSvc: merchantSvc, querySvc: querySvc}
}

// Register handles POST /api/v1/merchants.
func (h *MerchantHandler) Register(c *gin.Context) {
	var req dto.RegisterMerchantRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.merchantSvc.Register(c.Request.Context(), ports.RegisterRequest{
		FirstName:   req.FirstName,
		MiddleName:  req.MiddleName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, result.Merchant.ID.String())
	response.Created(c, dto.RegisterMerchantResponse{
		Merchant:       result.Merchant,
		VirtualAccount: result.VirtualAccount,
		Balances:       result.Balances,
		PublicKey:      result.PublicKey,
		SecretKey:      result.SecretKey,
	})
}

// GetBalance handles GET /api/v1/balance.
func (h *MerchantHandler) GetBalance(c *gin.Context) {
	id, ok := merchantID(c)
	if !ok {
		return
	}

	balances, err := h.querySvc.GetBalances(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, balances)
}

// ListPayouts handles GET /api/v1/payouts/mine.
func (h *MerchantHandler) ListPayouts(c *gin.Context) {
	id, ok := merchantID(c)
	if !ok {
		return
	}
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}

	params := ports.PayoutListParams{MerchantID: &id, Page: page(q)}
	payouts, total, err := h.querySvc.ListPayouts(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, listOf(payouts, total, params.Page))
}

// ListTransactions handles GET /api/v1/transactions/mine. Any merchant_id
// in the query is replaced by the authenticated merchant.
func (h *MerchantHandler) ListTransactions(c *gin.Context) {
	id, ok := merchantID(c)
	if !ok {
		return
	}
	var q dto.TransactionListQuery
	if !bindQuery(c, &q) {
		return
	}

	params := transactionFilters(q)
	params.MerchantID = &id
	txns, total, err := h.querySvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, listOf(txns, total, params.Page))
}
