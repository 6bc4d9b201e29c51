package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"
	"collection-gateway/internal/core/ports/mocks"
	"collection-gateway/internal/service"
	"collection-gateway/pkg/apperror"
	"collection-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const processorSecret = "processor-secret"

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		ErrorCode string `json:"error_code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.ErrorCode
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxRequestID))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	_, err := uuid.Parse(w.Body.String())
	assert.NoError(t, err)
}

func TestMerchantAuth_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	merchantSvc := mocks.NewMockMerchantService(ctrl)
	merchant := &domain.Merchant{ID: uuid.New(), Status: domain.MerchantStatusActive}
	merchantSvc.EXPECT().Authenticate(gomock.Any(), "sqpk_abc", "sqsk_def").Return(merchant, nil)

	router := gin.New()
	router.GET("/test", MerchantAuth(merchantSvc), func(c *gin.Context) {
		mid, _ := c.Get(CtxMerchantID)
		assert.Equal(t, merchant.ID, mid)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderPublicKey, "sqpk_abc")
	req.Header.Set(HeaderAuthorization, "Bearer sqsk_def")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMerchantAuth_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		secret     string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing bearer", "", "", apperror.ErrMissingCredentials(), http.StatusUnauthorized, "AUTH_001"},
		{"wrong scheme", "Basic sqsk_def", "", apperror.ErrMissingCredentials(), http.StatusUnauthorized, "AUTH_001"},
		{"bad secret", "Bearer sqsk_bad", "sqsk_bad", apperror.ErrInvalidCredentials(), http.StatusUnauthorized, "AUTH_002"},
		{"suspended", "Bearer sqsk_def", "sqsk_def", apperror.ErrMerchantSuspended(), http.StatusForbidden, "AUTH_005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			merchantSvc := mocks.NewMockMerchantService(ctrl)
			merchantSvc.EXPECT().Authenticate(gomock.Any(), "sqpk_abc", tt.secret).Return(nil, tt.err)

			router := gin.New()
			router.GET("/test", MerchantAuth(merchantSvc), func(c *gin.Context) {
				t.Fatal("handler must not run")
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(HeaderPublicKey, "sqpk_abc")
			if tt.authHeader != "" {
				req.Header.Set(HeaderAuthorization, tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
		})
	}
}

func settlementRouter(nonceStore ports.NonceStore) *gin.Engine {
	router := gin.New()
	auth := SettlementAuth(service.NewHMACSignatureService(), nonceStore, processorSecret, 60*time.Second, 5*time.Minute, zerolog.Nop())
	router.POST("/api/v1/payments/card-settlement", auth, func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(body))
	})
	return router
}

func signedSettlement(body string, ts int64, nonce, secret string) *http.Request {
	sig := service.NewHMACSignatureService()
	path := "/api/v1/payments/card-settlement"
	signature := sig.Sign(secret, sig.BuildCanonicalString(http.MethodPost, path, ts, nonce, body))

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderNonce, nonce)
	return req
}

func TestSettlementAuth_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	nonceStore := mocks.NewMockNonceStore(ctrl)
	nonceStore.EXPECT().CheckAndSet(gomock.Any(), "card-settlement", "nonce-1", 5*time.Minute).Return(true, nil)

	body := `{"id":"tx_abc","amount":"2000","currency":"NGN","card_number":"4111111111111111"}`
	w := httptest.NewRecorder()
	settlementRouter(nonceStore).ServeHTTP(w, signedSettlement(body, time.Now().Unix(), "nonce-1", processorSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.String(), "body must be restored for the handler")
}

func TestSettlementAuth_Rejections(t *testing.T) {
	now := time.Now().Unix()
	body := `{"id":"tx_abc"}`

	tests := []struct {
		name       string
		req        func() *http.Request
		wantStatus int
		wantCode   string
	}{
		{"missing headers", func() *http.Request {
			return httptest.NewRequest(http.MethodPost, "/api/v1/payments/card-settlement", nil)
		}, http.StatusUnauthorized, "AUTH_007"},
		{"stale timestamp", func() *http.Request {
			return signedSettlement(body, now-120, "nonce-1", processorSecret)
		}, http.StatusForbidden, "AUTH_008"},
		{"future timestamp", func() *http.Request {
			return signedSettlement(body, now+120, "nonce-1", processorSecret)
		}, http.StatusForbidden, "AUTH_008"},
		{"malformed timestamp", func() *http.Request {
			req := signedSettlement(body, now, "nonce-1", processorSecret)
			req.Header.Set(HeaderTimestamp, "yesterday")
			return req
		}, http.StatusForbidden, "AUTH_008"},
		{"wrong secret", func() *http.Request {
			return signedSettlement(body, now, "nonce-1", "other-secret")
		}, http.StatusUnauthorized, "AUTH_007"},
		{"tampered body", func() *http.Request {
			req := signedSettlement(body, now, "nonce-1", processorSecret)
			req.Body = io.NopCloser(bytes.NewBufferString(`{"id":"tx_other"}`))
			return req
		}, http.StatusUnauthorized, "AUTH_007"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			// No expectations: the nonce is never consumed for rejected requests.
			nonceStore := mocks.NewMockNonceStore(ctrl)

			w := httptest.NewRecorder()
			settlementRouter(nonceStore).ServeHTTP(w, tt.req())

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
		})
	}
}

func TestSettlementAuth_ReplayedNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	nonceStore := mocks.NewMockNonceStore(ctrl)
	nonceStore.EXPECT().CheckAndSet(gomock.Any(), "card-settlement", "nonce-1", gomock.Any()).Return(false, nil)

	w := httptest.NewRecorder()
	settlementRouter(nonceStore).ServeHTTP(w, signedSettlement(`{}`, time.Now().Unix(), "nonce-1", processorSecret))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "AUTH_009", errorCode(t, w))
}

func TestSettlementAuth_NonceStoreDownFailsClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	nonceStore := mocks.NewMockNonceStore(ctrl)
	nonceStore.EXPECT().CheckAndSet(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("redis down"))

	w := httptest.NewRecorder()
	settlementRouter(nonceStore).ServeHTTP(w, signedSettlement(`{}`, time.Now().Unix(), "nonce-1", processorSecret))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SYS_001", errorCode(t, w))
}

func TestStaffAuth_MissingHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)

	router := gin.New()
	router.GET("/test", StaffAuth(tokenSvc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_006", errorCode(t, w))
}

func TestStaffAuth_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("bad-token").Return(nil, errors.New("invalid"))

	router := gin.New()
	router.GET("/test", StaffAuth(tokenSvc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderAuthorization, "Bearer bad-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStaffAuth_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("good-token").Return(&ports.TokenClaims{Username: "admin"}, nil)

	router := gin.New()
	router.GET("/test", StaffAuth(tokenSvc), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxStaffUser))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderAuthorization, "Bearer good-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", w.Body.String())
}

func TestRecovery_PanicRecovered(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery(zerolog.Nop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SYS_001", errorCode(t, w))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	router := gin.New()
	router.Use(RequestID())
	router.Use(RequestLogger(log))
	router.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(HeaderRequestID, "req-9")
	router.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "req-9", entry["request_id"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
}

func TestRequestLogger_RecordsErrorCodeAndCause(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	router := gin.New()
	router.Use(RequestLogger(log))
	router.GET("/boom", func(c *gin.Context) {
		response.Error(c, errors.New("pool exhausted"))
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "SYS_001", entry["error_code"])
	assert.Equal(t, "pool exhausted", entry["cause"])
}
