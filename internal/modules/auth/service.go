package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"authservice/internal/domain"
	"authservice/internal/modules/rbac"
	"authservice/internal/pkg/metrics"
	"authservice/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tokenTypeBearer = "Bearer"
	dummyPassword   = "timing-parity-dummy-password"
)

type Option func(*Service)

// WithClock overrides the time source used for session listing and last-login stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the session manager: credential checks, token pair issuance,
// refresh rotation and revocation.
type Service struct {
	store  Store
	tokens TokenCodec
	hasher PasswordHasher
	log    *zap.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewService(store Store, tokens TokenCodec, hasher PasswordHasher, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tokens: tokens,
		hasher: hasher,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an active, unverified account with the default role.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	exists, err := s.store.Users().ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	defaultRole, err := s.store.Roles().GetByName(ctx, domain.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("load default role %q: %w", domain.RoleUser, err)
	}

	user := &domain.User{
		ID:                uuid.NewString(),
		Email:             email,
		Username:          username,
		PasswordHash:      hash,
		FirstName:         strings.TrimSpace(req.FirstName),
		LastName:          strings.TrimSpace(req.LastName),
		IsActive:          true,
		IsVerified:        false,
		VerificationToken: uuid.NewString(),
		Roles:             []domain.Role{*defaultRole},
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login returns ErrInvalidCredentials for unknown emails, wrong passwords and
// inactive accounts alike. Unknown emails still pay for one hash verification.
func (s *Service) Login(ctx context.Context, email, password string, meta domain.ClientMeta) (*LoginResult, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.Verify(password, s.dummy())
			metrics.LoginAttemptsTotal.WithLabelValues(metrics.StatusFailure).Inc()
			return nil, ErrInvalidCredentials
		}
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.StatusError).Inc()
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) || !user.IsActive {
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.StatusFailure).Inc()
		return nil, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	var pair *TokenPair
	err = s.store.Transaction(ctx, func(tx Store) error {
		var err error
		if pair, err = s.issuePair(ctx, tx, user, meta); err != nil {
			return err
		}
		return tx.Users().TouchLastLogin(ctx, user.ID, s.now())
	})
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.StatusError).Inc()
		return nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	s.log.Info("user logged in", zap.String("user_id", user.ID), zap.String("session_id", pair.SessionID))
	return &LoginResult{User: user, Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed and revoked in the same transaction that stores its successor, so
// of two concurrent calls with one token exactly one succeeds.
//
// Token and ledger rejections are ErrInvalidOrExpiredToken; storage failures
// are returned as they are.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta domain.ClientMeta) (*TokenPair, error) {
	claims, err := s.tokens.DecodeRefreshToken(refreshToken)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues(metrics.StatusFailure).Inc()
		s.log.Debug("refresh token rejected", zap.Error(err))
		return nil, ErrInvalidOrExpiredToken
	}

	var (
		pair     *TokenPair
		rejected error
	)
	// A rejection returns nil so that revocations made on the way (expiry
	// discovery, inactive owner) are committed.
	err = s.store.Transaction(ctx, func(tx Store) error {
		ledger := tx.Ledger()

		userID, err := ledger.ValidateAndConsume(ctx, claims.ID)
		if err != nil {
			if isLedgerRejection(err) {
				rejected = err
				return nil
			}
			return err
		}
		if userID != claims.Subject {
			rejected = errSubjectMismatch
			return nil
		}

		won, err := ledger.Revoke(ctx, claims.ID)
		if err != nil {
			return err
		}
		if !won {
			rejected = repository.ErrLedgerAlreadyRevoked
			return nil
		}

		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				rejected = err
				return nil
			}
			return err
		}
		if !user.IsActive {
			rejected = errInactiveUser
			return nil
		}

		pair, err = s.issuePair(ctx, tx, user, meta)
		return err
	})
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues(metrics.StatusError).Inc()
		return nil, err
	}
	if rejected != nil {
		metrics.TokenRefreshTotal.WithLabelValues(metrics.StatusFailure).Inc()
		s.log.Info("refresh rejected", zap.String("jti", claims.ID), zap.String("reason", rejected.Error()))
		return nil, ErrInvalidOrExpiredToken
	}

	metrics.TokenRefreshTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	return pair, nil
}

// Logout revokes the session behind refreshToken. Tokens that do not decode
// or are unknown count as logged out; only storage errors are returned.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.DecodeRefreshTokenIgnoringExpiry(refreshToken)
	if err != nil {
		return nil
	}
	if _, err := s.store.Ledger().Revoke(ctx, claims.ID); err != nil {
		return err
	}
	return nil
}

// RevokeSession revokes one of userID's sessions by its id.
func (s *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	ledger := s.store.Ledger()
	session, err := ledger.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrLedgerNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if session.UserID != userID {
		return ErrSessionNotFound
	}
	if _, err := ledger.RevokeByID(ctx, userID, sessionID); err != nil {
		return err
	}
	return nil
}

// RevokeAllSessions revokes every session of userID. When exceptRefreshToken
// is a valid token of the same user, that session survives.
func (s *Service) RevokeAllSessions(ctx context.Context, userID, exceptRefreshToken string) (int64, error) {
	except := ""
	if exceptRefreshToken != "" {
		claims, err := s.tokens.DecodeRefreshTokenIgnoringExpiry(exceptRefreshToken)
		if err == nil && claims.Subject == userID {
			except = claims.ID
		}
	}
	return s.store.Ledger().RevokeAllForUser(ctx, userID, except)
}

// ListSessions returns userID's sessions that are neither revoked nor expired.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	return s.store.Ledger().ListActiveForUser(ctx, userID, s.now())
}

// ChangePassword verifies the current password, stores the new hash, revokes
// every session and starts a fresh one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string, meta domain.ClientMeta) (*TokenPair, error) {
	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(current, user.PasswordHash) || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return nil, err
	}

	var pair *TokenPair
	err = s.store.Transaction(ctx, func(tx Store) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
			return err
		}
		if _, err := tx.Ledger().RevokeAllForUser(ctx, userID, ""); err != nil {
			return err
		}
		var err error
		pair, err = s.issuePair(ctx, tx, user, meta)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("password changed", zap.String("user_id", userID))
	return pair, nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of req.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.User, error) {
	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		user.Username = strings.TrimSpace(*req.Username)
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}

	if err := s.store.Users().UpdateProfile(ctx, userID, user.Username, user.FirstName, user.LastName); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrUserAlreadyExists
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// issuePair mints an access/refresh pair for user and records the refresh
// token in st's ledger.
func (s *Service) issuePair(ctx context.Context, st Store, user *domain.User, meta domain.ClientMeta) (*TokenPair, error) {
	access, _, err := s.tokens.IssueAccessToken(user.ID, user.Username, user.RoleNames(), rbac.EffectivePermissions(user))
	if err != nil {
		return nil, err
	}
	refresh, jti, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	session, err := st.Ledger().Store(ctx, user.ID, jti, s.tokens.RefreshTTL(), meta)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		SessionID:    session.ID,
	}, nil
}

// rehash upgrades a hash made with old parameters. Failure is logged only;
// the login itself already succeeded.
func (s *Service) rehash(ctx context.Context, user *domain.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.store.Users().UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.log.Warn("password rehash failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = hash
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.log.Warn("dummy hash failed", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func isLedgerRejection(err error) bool {
	return errors.Is(err, repository.ErrLedgerNotFound) ||
		errors.Is(err, repository.ErrLedgerAlreadyRevoked) ||
		errors.Is(err, repository.ErrLedgerExpired)
}
