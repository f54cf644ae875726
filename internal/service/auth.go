package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/heliawallet/vault-server-go/internal/config"
	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
	"github.com/heliawallet/vault-server-go/internal/model"
	"github.com/heliawallet/vault-server-go/internal/repository"
	"github.com/heliawallet/vault-server-go/internal/util"
	"github.com/heliawallet/vault-server-go/internal/validate"
)

// AuthService owns account lifecycle and session credentials. Access tokens
// are signed JWTs; refresh tokens are opaque and stored by digest only.
type AuthService struct {
	accountRepo  repository.AccountRepository
	sessionRepo  repository.SessionRepository
	snapshotRepo repository.SnapshotRepository
	signer       *TokenSigner

	refreshTTL        time.Duration
	snapshotRetention time.Duration
}

func NewAuthService(
	accountRepo repository.AccountRepository,
	sessionRepo repository.SessionRepository,
	snapshotRepo repository.SnapshotRepository,
	signer *TokenSigner,
	refreshTTL time.Duration,
	snapshotRetention time.Duration,
) *AuthService {
	return &AuthService{
		accountRepo:       accountRepo,
		sessionRepo:       sessionRepo,
		snapshotRepo:      snapshotRepo,
		signer:            signer,
		refreshTTL:        refreshTTL,
		snapshotRetention: snapshotRetention,
	}
}

// RegisterResult carries the new account plus the one-time email verification
// token. The token is returned to the caller for delivery and never stored in
// the clear.
type RegisterResult struct {
	Account           *model.Account
	VerificationToken string
}

func (s *AuthService) Register(ctx context.Context, in validate.RegisterInput) (*RegisterResult, error) {
	if err := validate.Register(in); err != nil {
		return nil, err
	}

	email := validate.NormalizeEmail(in.Email)
	existing, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("Account")
	}

	passwordHash, err := util.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	verificationToken, err := util.GenerateToken(32)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.Create(ctx, model.CreateAccountParams{
		Email:                 email,
		Name:                  in.Name,
		PasswordHash:          passwordHash,
		VerificationTokenHash: util.HashToken(verificationToken),
		VerificationExpiresAt: time.Now().Add(config.VerificationTokenTTL),
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("accountId", account.ID).Msg("account registered")

	return &RegisterResult{Account: account, VerificationToken: verificationToken}, nil
}

// LoginResult carries the issued credential pair alongside the account.
type LoginResult struct {
	Account      *model.Account
	Session      *model.Session
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Login verifies the credential and issues a fresh session. Unknown email,
// disabled account, and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP, userAgent string) (*LoginResult, error) {
	account, err := s.accountRepo.FindByEmail(ctx, validate.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if account == nil || !account.IsActive {
		return nil, apperrors.InvalidCredentials()
	}
	if !util.CheckPassword(password, account.PasswordHash) {
		return nil, apperrors.InvalidCredentials()
	}

	accessToken, err := s.signer.Issue(account)
	if err != nil {
		return nil, err
	}
	refreshToken, err := util.GenerateToken(32)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.Create(ctx, model.CreateSessionParams{
		AccountID:        account.ID,
		AccessTokenHash:  util.HashToken(accessToken),
		RefreshTokenHash: util.HashToken(refreshToken),
		ClientIP:         clientIP,
		UserAgent:        userAgent,
		ExpiresAt:        time.Now().Add(s.refreshTTL),
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	account.LoginCount++
	account.LastLoginAt = &now
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, err
	}

	log.Info().Str("accountId", account.ID).Str("sessionId", session.ID).Msg("login succeeded")

	return &LoginResult{
		Account:      account,
		Session:      session,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.signer.TTL().Seconds()),
	}, nil
}

// VerifySession checks that the presented access token still belongs to an
// active, unexpired session of the account, and bumps its activity timestamp.
func (s *AuthService) VerifySession(ctx context.Context, accountID, accessTokenHash string) (*model.Session, error) {
	sessions, err := s.sessionRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for i := range sessions {
		session := &sessions[i]
		if !util.ConstantTimeEqual(session.AccessTokenHash, accessTokenHash) {
			continue
		}
		if !session.IsActive || session.Expired(now) {
			return nil, apperrors.Unauthorized("Session is no longer active")
		}
		session.LastActivityAt = now
		if err := s.sessionRepo.Update(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}
	return nil, apperrors.Unauthorized("Session not found")
}

// Refresh rotates both tokens of the session identified by the presented
// refresh token. The old pair stops working immediately.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	session, err := s.sessionRepo.FindByRefreshHash(ctx, util.HashToken(refreshToken))
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if session == nil || !session.IsActive || session.Expired(now) {
		return nil, apperrors.InvalidToken("Refresh token is invalid")
	}

	account, err := s.accountRepo.FindByID(ctx, session.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil || !account.IsActive {
		return nil, apperrors.InvalidToken("Refresh token is invalid")
	}

	accessToken, err := s.signer.Issue(account)
	if err != nil {
		return nil, err
	}
	newRefreshToken, err := util.GenerateToken(32)
	if err != nil {
		return nil, err
	}

	session.AccessTokenHash = util.HashToken(accessToken)
	session.RefreshTokenHash = util.HashToken(newRefreshToken)
	session.ExpiresAt = now.Add(s.refreshTTL)
	session.LastActivityAt = now
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	return &LoginResult{
		Account:      account,
		Session:      session,
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    int64(s.signer.TTL().Seconds()),
	}, nil
}

// Logout deactivates the single session holding the presented access token.
func (s *AuthService) Logout(ctx context.Context, accountID, accessTokenHash string) error {
	sessions, err := s.sessionRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	for i := range sessions {
		session := &sessions[i]
		if !util.ConstantTimeEqual(session.AccessTokenHash, accessTokenHash) {
			continue
		}
		session.IsActive = false
		return s.sessionRepo.Update(ctx, session)
	}
	return nil
}

// LogoutAll deactivates every session of the account and returns the count.
func (s *AuthService) LogoutAll(ctx context.Context, accountID string) (int, error) {
	count, err := s.sessionRepo.DeactivateAll(ctx, accountID)
	if err != nil {
		return 0, err
	}
	log.Info().Str("accountId", accountID).Int("sessions", count).Msg("all sessions revoked")
	return count, nil
}

// Sessions lists the account's sessions as token-free metadata views.
func (s *AuthService) Sessions(ctx context.Context, accountID string) ([]model.SessionInfo, error) {
	sessions, err := s.sessionRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	infos := make([]model.SessionInfo, 0, len(sessions))
	for i := range sessions {
		infos = append(infos, sessions[i].Info())
	}
	return infos, nil
}

// RequestEmailVerification issues a fresh one-time verification token for an
// account that has not verified yet.
func (s *AuthService) RequestEmailVerification(ctx context.Context, accountID string) (string, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", apperrors.NotFound("Account")
	}
	if account.EmailVerified {
		return "", apperrors.Conflict("email is already verified")
	}

	token, err := util.GenerateToken(32)
	if err != nil {
		return "", err
	}
	tokenHash := util.HashToken(token)
	expiresAt := time.Now().Add(config.VerificationTokenTTL)
	account.VerificationTokenHash = &tokenHash
	account.VerificationExpiresAt = &expiresAt
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return "", err
	}
	return token, nil
}

// VerifyEmail consumes a verification token. Tokens are single-use; the hash
// is cleared on success.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*model.Account, error) {
	account, err := s.accountRepo.FindByVerificationTokenHash(ctx, util.HashToken(token))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.InvalidToken("Verification token is invalid")
	}
	if account.EmailVerified {
		return nil, apperrors.Conflict("email is already verified")
	}
	if account.VerificationExpiresAt == nil || time.Now().After(*account.VerificationExpiresAt) {
		return nil, apperrors.TokenExpired()
	}

	account.EmailVerified = true
	account.VerificationTokenHash = nil
	account.VerificationExpiresAt = nil
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, err
	}

	log.Info().Str("accountId", account.ID).Msg("email verified")
	return account, nil
}

// RequestPasswordReset issues a reset token for the account behind the email.
// Unknown and inactive emails return an empty token with no error, so callers
// cannot probe which addresses exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	account, err := s.accountRepo.FindByEmail(ctx, validate.NormalizeEmail(email))
	if err != nil {
		return "", err
	}
	if account == nil || !account.IsActive {
		return "", nil
	}

	token, err := util.GenerateToken(32)
	if err != nil {
		return "", err
	}
	tokenHash := util.HashToken(token)
	expiresAt := time.Now().Add(config.ResetTokenTTL)
	account.ResetTokenHash = &tokenHash
	account.ResetExpiresAt = &expiresAt
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return "", err
	}

	log.Info().Str("accountId", account.ID).Msg("password reset requested")
	return token, nil
}

// ResetPassword consumes a reset token, replaces the credential, and revokes
// every existing session.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validate.CheckPasswordStrength(newPassword); err != nil {
		return err
	}

	account, err := s.accountRepo.FindByResetTokenHash(ctx, util.HashToken(token))
	if err != nil {
		return err
	}
	if account == nil {
		return apperrors.InvalidToken("Reset token is invalid")
	}
	if account.ResetExpiresAt == nil || time.Now().After(*account.ResetExpiresAt) {
		return apperrors.TokenExpired()
	}

	passwordHash, err := util.HashPassword(newPassword)
	if err != nil {
		return err
	}
	account.PasswordHash = passwordHash
	account.ResetTokenHash = nil
	account.ResetExpiresAt = nil
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return err
	}
	if _, err := s.sessionRepo.DeactivateAll(ctx, account.ID); err != nil {
		return err
	}

	log.Info().Str("accountId", account.ID).Msg("password reset completed")
	return nil
}

// ChangePassword replaces the credential after checking the current one, then
// revokes every other session.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if err := validate.CheckPasswordStrength(newPassword); err != nil {
		return err
	}

	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return apperrors.NotFound("Account")
	}
	if !util.CheckPassword(currentPassword, account.PasswordHash) {
		return apperrors.InvalidCredentials()
	}

	passwordHash, err := util.HashPassword(newPassword)
	if err != nil {
		return err
	}
	account.PasswordHash = passwordHash
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return err
	}
	_, err = s.sessionRepo.DeactivateAll(ctx, account.ID)
	return err
}

// VerifyPassword checks the account's current credential. Destructive
// operations call this before proceeding.
func (s *AuthService) VerifyPassword(ctx context.Context, accountID, password string) error {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return apperrors.NotFound("Account")
	}
	if !util.CheckPassword(password, account.PasswordHash) {
		return apperrors.InvalidCredentials()
	}
	return nil
}

// LinkWallet attaches a wallet address to the account. An address can belong
// to at most one account.
func (s *AuthService) LinkWallet(ctx context.Context, accountID, address string) (*model.Account, error) {
	normalized := validate.NormalizeAddress(address)
	if !validate.IsValidAddress(normalized) {
		return nil, apperrors.InvalidInput("walletAddress", "must be a 0x-prefixed 40-hex-digit address")
	}

	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.NotFound("Account")
	}

	holder, err := s.accountRepo.FindByWallet(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if holder != nil && holder.ID != accountID {
		return nil, apperrors.Conflict("wallet address is linked to another account")
	}

	account.WalletAddress = &normalized
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AuthService) UnlinkWallet(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.NotFound("Account")
	}
	account.WalletAddress = nil
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AuthService) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	return s.accountRepo.FindByID(ctx, accountID)
}

// CleanupExpired deletes expired sessions and snapshots past the retention
// window. Called periodically by the cleanup job.
func (s *AuthService) CleanupExpired(ctx context.Context) (sessions, snapshots int64, err error) {
	sessions, err = s.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		return 0, 0, err
	}
	cutoff := time.Now().Add(-s.snapshotRetention)
	snapshots, err = s.snapshotRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return sessions, 0, err
	}
	return sessions, snapshots, nil
}
