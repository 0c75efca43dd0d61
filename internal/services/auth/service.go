package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/realmkeeper/internal/dependencies/clock"
	"github.com/mcoot/realmkeeper/internal/dependencies/ids"
	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/services/token"
	"github.com/mcoot/realmkeeper/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUnauthorized       = errors.New("could not validate credentials")
)

// Session is an issued access token together with its account
type Session struct {
	Token   *token.Token
	Account *model.Account
}

// SignupInput is the data needed to register an account
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Config holds configuration for the auth service
type Config struct {
	BcryptCost         int
	SuperAdminUsername string
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		BcryptCost:         bcrypt.DefaultCost,
		SuperAdminUsername: "admin",
	}
}

// Service handles signup, login and bearer-token resolution
type Service struct {
	storage storage.AccountStore
	tokens  *token.Service
	clock   clock.Clock
	ids     ids.Generator
	logger  *slog.Logger
	cfg     Config
}

// New creates a new auth Service
func New(storage storage.AccountStore, tokens *token.Service, clock clock.Clock, ids ids.Generator, logger *slog.Logger, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}
	if cfg.SuperAdminUsername == "" {
		cfg.SuperAdminUsername = defaults.SuperAdminUsername
	}
	return &Service{
		storage: storage,
		tokens:  tokens,
		clock:   clock,
		ids:     ids,
		logger:  logger,
		cfg:     cfg,
	}
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,50}$`)

func (s *Service) validateSignup(in SignupInput) error {
	if !usernamePattern.MatchString(in.Username) {
		return model.NewValidationError("username", "must be 3-50 characters of letters, digits, '_', '.' or '-'")
	}
	// Only the migrator may create the super-admin account
	if strings.EqualFold(in.Username, s.cfg.SuperAdminUsername) {
		return model.NewValidationError("username", "is reserved")
	}
	local, domain, ok := strings.Cut(in.Email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return model.NewValidationError("email", "must be a valid email address")
	}
	if len(in.Password) < 8 {
		return model.NewValidationError("password", "must be at least 8 characters")
	}
	return nil
}

// Signup registers a new account and issues its first token.
// Username uniqueness is checked before email uniqueness.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	if err := s.validateSignup(in); err != nil {
		return nil, err
	}
	email := strings.ToLower(in.Email)

	if _, err := s.storage.GetAccountByUsername(ctx, in.Username); err == nil {
		return nil, model.ErrUsernameTaken
	} else if !errors.Is(err, model.ErrAccountNotFound) {
		return nil, err
	}
	if _, err := s.storage.GetAccountByEmail(ctx, email); err == nil {
		return nil, model.ErrEmailTaken
	} else if !errors.Is(err, model.ErrAccountNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &model.Account{
		ID:           model.AccountID(s.ids.New()),
		Username:     in.Username,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    s.clock.Now(),
	}
	// The store re-checks both constraints atomically
	if err := s.storage.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account created", slog.String("account_id", string(account.ID)), slog.String("username", account.Username))
	return s.issue(account)
}

// Login authenticates by username and password.
// Unknown users, wrong passwords and inactive accounts are indistinguishable.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	account, err := s.storage.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, ErrInvalidCredentials
	}

	account, err = s.touch(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return s.issue(account)
}

// Refresh exchanges a still-valid token for a new one
func (s *Service) Refresh(ctx context.Context, raw string) (*Session, error) {
	account, err := s.accountForToken(ctx, raw)
	if err != nil {
		return nil, err
	}
	account, err = s.touch(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return s.issue(account)
}

// Authenticate resolves a bearer token to the calling principal
func (s *Service) Authenticate(ctx context.Context, raw string) (model.Principal, error) {
	account, err := s.accountForToken(ctx, raw)
	if err != nil {
		return model.Principal{}, err
	}
	return s.PrincipalFor(account), nil
}

// PrincipalFor derives the tenancy principal of an account
func (s *Service) PrincipalFor(account *model.Account) model.Principal {
	return model.Principal{
		AccountID:  account.ID,
		Username:   account.Username,
		SuperAdmin: account.IsSuperAdmin || account.Username == s.cfg.SuperAdminUsername,
	}
}

// Account loads the account behind a principal
func (s *Service) Account(ctx context.Context, p model.Principal) (*model.Account, error) {
	account, err := s.storage.GetAccount(ctx, p.AccountID)
	if errors.Is(err, model.ErrAccountNotFound) {
		return nil, ErrUnauthorized
	}
	return account, err
}

func (s *Service) accountForToken(ctx context.Context, raw string) (*model.Account, error) {
	if raw == "" {
		return nil, ErrUnauthorized
	}
	username, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	account, err := s.storage.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, ErrUnauthorized
	}
	return account, nil
}

func (s *Service) touch(ctx context.Context, id model.AccountID) (*model.Account, error) {
	now := s.clock.Now()
	return s.storage.UpdateAccount(ctx, id, func(a *model.Account) error {
		a.LastLogin = &now
		return nil
	})
}

func (s *Service) issue(account *model.Account) (*Session, error) {
	tok, err := s.tokens.Issue(account.Username)
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, Account: account}, nil
}
