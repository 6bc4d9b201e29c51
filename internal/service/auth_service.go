package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"collection-gateway/config"
	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"
	"collection-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

const staffTable = "staff"

// StaffAuthServiceImpl implements ports.StaffAuthService against the single
// back-office operator configured under staff.
type StaffAuthServiceImpl struct {
	staff    config.StaffConfig
	hashSvc  ports.HashService
	tokenSvc ports.TokenService
	audit    ports.AuditService
	log      zerolog.Logger
}

// NewStaffAuthService creates a new StaffAuthServiceImpl.
func NewStaffAuthService(
	staff config.StaffConfig,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	audit ports.AuditService,
	log zerolog.Logger,
) *StaffAuthServiceImpl {
	return &StaffAuthServiceImpl{
		staff:    staff,
		hashSvc:  hashSvc,
		tokenSvc: tokenSvc,
		audit:    audit,
		log:      log,
	}
}

// Login validates credentials and returns a JWT token.
func (s *StaffAuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	if s.staff.PasswordHash == "" {
		return "", time.Time{}, s.reject(ctx, username, apperror.ErrInvalidStaffCredentials())
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.staff.Username)) == 1

	// Verify even on a username mismatch so both paths cost the same.
	valid, err := s.hashSvc.Verify(password, s.staff.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !userOK || !valid {
		return "", time.Time{}, s.reject(ctx, username, apperror.ErrInvalidStaffCredentials())
	}

	token, expiry, err := s.tokenSvc.Generate(username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.audit.Record(ctx, domain.AuditLog{
		EventType: domain.AuditEventStaffLogin,
		DBTable:   staffTable,
		Status:    domain.AuditStatusSuccess,
		ActorType: strPtr(domain.ActorStaff),
		ActorID:   strPtr(username),
	})
	return token, expiry, nil
}

func (s *StaffAuthServiceImpl) reject(ctx context.Context, username string, err error) error {
	s.audit.Record(ctx, failureEntry(domain.AuditEventStaffLogin, staffTable, "",
		domain.ActorStaff, username, nil, err))
	s.log.Warn().Str("username", username).Msg("staff login rejected")
	return err
}
