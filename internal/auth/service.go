// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hotdog/elotto/internal/core"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const generatedSecretBytes = 32

// RoleProvider resolves the current role of a device.
type RoleProvider interface {
	RoleOf(ctx context.Context, deviceID string) (string, error)
}

type Service struct {
	devices     DeviceRepository
	jwt         *JWTManager
	roles       RoleProvider
	revocations Revocations
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(
	devices DeviceRepository,
	jwt *JWTManager,
	roles RoleProvider,
	revocations Revocations,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		devices:     devices,
		jwt:         jwt,
		roles:       roles,
		revocations: revocations,
		logger:      logger,
		now:         time.Now,
	}
}

// Enroll authenticates a device by its install secret and issues an access
// token. The first enrollment of a device id registers the secret; a
// missing secret is generated and returned to the caller.
func (s *Service) Enroll(ctx context.Context, req EnrollRequest) (*EnrollResponse, error) {
	device, err := s.devices.Get(ctx, req.DeviceID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	var generated string
	now := s.now().UnixMilli()

	if device == nil {
		secret := req.Secret
		if secret == "" {
			generated, err = core.GenerateSecureToken(generatedSecretBytes)
			if err != nil {
				return nil, fmt.Errorf("generate secret: %w", err)
			}
			secret = generated
		}

		hash, err := core.HashSecret(secret)
		if err != nil {
			return nil, fmt.Errorf("hash secret: %w", err)
		}
		device = &Device{SecretHash: hash, Platform: req.Platform, EnrolledAt: now}

		s.logger.InfoContext(ctx, "device enrolled", "device_id", req.DeviceID)
	} else {
		ok, err := core.VerifySecretTimingSafe(req.Secret, &device.SecretHash)
		if err != nil || !ok || req.Secret == "" {
			return nil, ErrInvalidCredentials
		}
	}

	device.LastSeenAt = now
	if err := s.devices.Put(ctx, req.DeviceID, device); err != nil {
		return nil, err
	}

	role, err := s.roles.RoleOf(ctx, req.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("resolve role: %w", err)
	}

	issued, err := s.jwt.CreateAccessToken(req.DeviceID, role)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	return &EnrollResponse{
		DeviceID: req.DeviceID,
		Secret:   generated,
		Role:     role,
		Tokens: TokenResponse{
			AccessToken: issued.Token,
			TokenType:   "Bearer",
			ExpiresIn:   int(time.Until(issued.ExpiresAt).Seconds()),
			ExpiresAt:   issued.ExpiresAt,
		},
	}, nil
}

// Logout blacklists the presented access token until it expires.
func (s *Service) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.revocations == nil {
		return nil
	}
	return s.revocations.Revoke(ctx, jti, expiresAt)
}

// Forget removes a device's enrollment so its id can enroll afresh.
func (s *Service) Forget(ctx context.Context, deviceID string) error {
	err := s.devices.Delete(ctx, deviceID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return err
	}
	return nil
}
