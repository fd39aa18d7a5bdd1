// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, and issuing/refreshing JWTs
// plus server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/consentkeeper/internal/common"
	"github.com/dmitrijs2005/consentkeeper/internal/dbx"
	"github.com/dmitrijs2005/consentkeeper/internal/logging"
	"github.com/dmitrijs2005/consentkeeper/internal/server/auth"
	"github.com/dmitrijs2005/consentkeeper/internal/server/config"
	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
	"github.com/dmitrijs2005/consentkeeper/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token
// together with the principal they were issued for.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	Email        string
	Name         string
	Role         models.Role
}

// EmailChecker answers whether an email is already registered.
type EmailChecker interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// UserService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
// - CreateAdmin: bootstrap an administrator from the CLI
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	identity                     EmailChecker
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	adminEmail                   string
	bcryptCost                   int
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, ids EmailChecker, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		identity:                     ids,
		logger:                       logger.With("module", "users"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		adminEmail:                   cfg.AdminEmail,
		bcryptCost:                   bcrypt.DefaultCost,
	}
}

// RefreshToken consumes refreshToken and returns a fresh TokenPair for its
// owner. The old token is gone once this succeeds; expired tokens yield
// ErrRefreshTokenExpired and unknown or reused ones ErrorUnauthorized.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error consuming refresh token: %w", err)
		}
		if token.Expires.Before(time.Now()) {
			return common.ErrRefreshTokenExpired
		}
		user, err := s.repomanager.Users(tx).GetUserByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("error loading token owner: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, user, tx)
		return err
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Register creates a USER account, or an ADMIN account when email matches the
// configured bootstrap address, and logs the new user in.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*TokenPair, error) {
	role := models.RoleUser
	if strings.EqualFold(strings.TrimSpace(email), s.adminEmail) {
		role = models.RoleAdmin
	}

	var pair *TokenPair
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.createUser(ctx, tx, name, email, password, role)
		if err != nil {
			return err
		}
		pair, err = s.generateTokenPair(ctx, user, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "email", pair.Email, "role", pair.Role)
	return pair, nil
}

// CreateAdmin creates an ADMIN account without issuing tokens.
func (s *UserService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	user, err := s.createUser(ctx, s.db, name, email, password, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "admin created", "email", user.Email)
	return user, nil
}

// Login verifies the password against the stored bcrypt hash and, on success,
// returns a new TokenPair. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, common.ErrorUnauthorized
	}
	return s.generateTokenPair(ctx, user, s.db)
}

// --- helpers below ---

func (s *UserService) createUser(ctx context.Context, db dbx.DBTX, name, email, password string, role models.Role) (*models.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", common.ErrorValidation)
	}

	exists, err := s.identity.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if exists {
		return nil, errEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	u, err := s.repomanager.Users(db).Create(ctx, &models.User{Email: email, Name: name, PasswordHash: hash, Role: role})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, errEmailInUse
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

var errEmailInUse = fmt.Errorf("%w: email is already in use", common.ErrorValidation)

func (s *UserService) generateAccessToken(user *models.User) (string, error) {
	return auth.GenerateToken(user.Email, user.Role, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	now := time.Now()
	refreshRepo := s.repomanager.RefreshTokens(tx)
	purged, err := refreshRepo.PurgeExpired(ctx, user.ID, now)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if purged > 0 {
		s.logger.Debug(ctx, "expired refresh tokens purged", "user_id", user.ID, "count", purged)
	}
	if err := refreshRepo.Issue(ctx, user.ID, refresh, now.Add(s.refreshTokenValidityDuration)); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Email:        user.Email,
		Name:         user.Name,
		Role:         user.Role,
	}, nil
}
