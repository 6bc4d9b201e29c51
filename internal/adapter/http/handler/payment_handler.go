package handler

import (
	"collection-gateway/internal/adapter/http/dto"
	"collection-gateway/internal/adapter/http/middleware"
	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"
	"collection-gateway/pkg/apperror"
	"collection-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles the transaction lifecycle endpoints.
type PaymentHandler struct {
	txSvc     ports.TransactionService
	methodSvc ports.PaymentMethodService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(txSvc ports.TransactionService, methodSvc ports.PaymentMethodService) *PaymentHandler {
	return &PaymentHandler{txSvc: txSvc, methodSvc: methodSvc}
}

// ListPaymentMethods handles GET /api/v1/payment-methods?currency=.
func (h *PaymentHandler) ListPaymentMethods(c *gin.Context) {
	code := c.Query("currency")
	cur, ok := domain.ParseCurrency(code)
	if !ok {
		response.Error(c, apperror.ErrUnsupportedCurrency(code))
		return
	}

	methods, err := h.methodSvc.ListForCurrency(c.Request.Context(), cur)
	if err != nil {
		response.Error(c, err)
		return
	}
	if methods == nil {
		methods = []domain.PaymentMethod{}
	}
	response.OK(c, methods)
}

// Initialize handles POST /api/v1/payments/initialize.
func (h *PaymentHandler) Initialize(c *gin.Context) {
	id, ok := merchantID(c)
	if !ok {
		return
	}
	var req dto.InitializePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.txSvc.Initialize(c.Request.Context(), ports.InitializeRequest{
		MerchantID:  id,
		Amount:      req.Amount,
		Currency:    currency(req.Currency),
		Description: req.Description,
		Customer: domain.Customer{
			Name:        req.CustomerName,
			Email:       req.CustomerEmail,
			PhoneNumber: req.CustomerPhoneNumber,
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, result.Transaction.Reference)
	response.Created(c, dto.InitializePaymentResponse{
		Transaction:    result.Transaction,
		PaymentMethods: result.PaymentMethods,
		VirtualAccount: result.VirtualAccount,
	})
}

// Capture handles POST /api/v1/payments/:reference/pay.
func (h *PaymentHandler) Capture(c *gin.Context) {
	var req dto.CapturePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	methodID, err := uuid.Parse(req.PaymentMethodID)
	if err != nil {
		response.Error(c, apperror.Validation("Invalid payment_method_id"))
		return
	}

	capture := ports.CaptureRequest{
		Reference:       c.Param("reference"),
		Amount:          req.Amount,
		Currency:        currency(req.Currency),
		Type:            domain.TransactionType(req.TxType),
		PaymentMethodID: methodID,
	}
	switch capture.Type {
	case domain.TransactionTypeCard:
		capture.Card = &ports.CardInput{
			Number:     dto.StripCardNumber(req.CardNumber),
			HolderName: req.CardHolderName,
			Expiry:     req.CardExpiry,
			CVV:        req.CVV,
		}
	case domain.TransactionTypeVirtualAccount:
		capture.VirtualAccount = &ports.VirtualAccountInput{
			AccountName:   req.CustomerAccountName,
			AccountNumber: req.CustomerAccountNumber,
			BankCode:      req.CustomerBankCode,
		}
	}

	txn, err := h.txSvc.Capture(c.Request.Context(), capture)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, txn.Reference)
	response.OK(c, txn)
}

// SettleCard handles POST /api/v1/payments/card-settlement. The request has
// already been authenticated by SettlementAuth.
func (h *PaymentHandler) SettleCard(c *gin.Context) {
	var req dto.CardSettlementRequest
	if !bindJSON(c, &req) {
		return
	}

	txn, err := h.txSvc.Settle(c.Request.Context(), ports.SettleRequest{
		Reference:  req.Reference,
		Amount:     req.Amount,
		Currency:   currency(req.Currency),
		CardNumber: dto.StripCardNumber(req.CardNumber),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, txn.Reference)
	response.OK(c, txn)
}
