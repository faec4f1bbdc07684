package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskmaster/todolists/internal/domain/entities"
	"github.com/taskmaster/todolists/internal/infrastructure/config"
	"github.com/taskmaster/todolists/internal/infrastructure/logger"
	"github.com/taskmaster/todolists/internal/ports"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 80
	minPasswordLength = 6
	// bcrypt only hashes the first 72 bytes and rejects anything longer
	maxPasswordBytes = 72
)

// tokenClaims represents the JWT claims
type tokenClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthService handles signup, login and token verification
type AuthService struct {
	store      ports.UnitOfWork
	denylist   ports.TokenDenylist
	jwtConfig  config.JWTConfig
	bcryptCost int
	logger     *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(store ports.UnitOfWork, denylist ports.TokenDenylist, jwtConfig config.JWTConfig, logger *logger.Logger) *AuthService {
	return &AuthService{
		store:      store,
		denylist:   denylist,
		jwtConfig:  jwtConfig,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger.WithComponent("auth"),
	}
}

// Signup creates a new account and signs the caller in
func (s *AuthService) Signup(ctx context.Context, req ports.SignupRequest) (*ports.AuthResponse, error) {
	if err := validateCredentials(req.Username, req.Password); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
	}

	err = s.store.Do(ctx, func(r ports.Repositories) error {
		if _, err := r.Users.GetByUsername(ctx, req.Username); err == nil {
			return entities.ErrUsernameTaken
		} else if !errors.Is(err, entities.ErrUserNotFound) {
			return err
		}
		return r.Users.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("User registered successfully", "user_id", user.ID, "username", user.Username)

	return s.respond("User created successfully", user)
}

// Login verifies a username and password and issues a token
func (s *AuthService) Login(ctx context.Context, req ports.LoginRequest) (*ports.AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, entities.ErrUsernameRequired
	}

	var user *entities.User
	err := s.store.Do(ctx, func(r ports.Repositories) error {
		var err error
		user, err = r.Users.GetByUsername(ctx, req.Username)
		return err
	})
	if err != nil {
		if errors.Is(err, entities.ErrUserNotFound) {
			s.logger.Warnw("Login attempt with unknown username", "username", req.Username)
			return nil, entities.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warnw("Login attempt with invalid password", "user_id", user.ID)
		return nil, entities.ErrInvalidCredentials
	}

	s.logger.Infow("User logged in successfully", "user_id", user.ID)

	return s.respond("Login successful", user)
}

// Me returns the public view of the caller's account
func (s *AuthService) Me(ctx context.Context, userID int64) (*ports.UserSummary, error) {
	var user *entities.User
	err := s.store.Do(ctx, func(r ports.Repositories) error {
		var err error
		user, err = r.Users.GetByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &ports.UserSummary{ID: user.ID, Username: user.Username}, nil
}

// Logout revokes the token the caller authenticated with
func (s *AuthService) Logout(ctx context.Context, claims *ports.Claims) error {
	if err := s.denylist.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.logger.Infow("User logged out successfully", "user_id", claims.UserID)
	return nil
}

// Authenticate verifies a bearer token and checks that it was not revoked
// and that its user still exists.
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (*ports.Claims, error) {
	claims, err := s.ValidateToken(rawToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, entities.ErrTokenRevoked
	}

	err = s.store.Do(ctx, func(r ports.Repositories) error {
		_, err := r.Users.GetByID(ctx, claims.UserID)
		return err
	})
	if err != nil {
		if errors.Is(err, entities.ErrUserNotFound) {
			return nil, entities.ErrInvalidToken
		}
		return nil, err
	}

	return claims, nil
}

// ValidateToken checks a token's signature and expiry and returns its claims
func (s *AuthService) ValidateToken(tokenString string) (*ports.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.jwtConfig.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.jwtConfig.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtConfig.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.ID == "" || claims.UserID == 0 {
		return nil, entities.ErrInvalidToken
	}

	return &ports.Claims{
		UserID:    claims.UserID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *AuthService) respond(message string, user *entities.User) (*ports.AuthResponse, error) {
	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &ports.AuthResponse{
		Message:   message,
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.jwtConfig.ExpiresIn.Seconds()),
		User:      ports.UserSummary{ID: user.ID, Username: user.Username},
	}, nil
}

func (s *AuthService) generateAccessToken(user *entities.User) (string, error) {
	now := time.Now()
	claims := &tokenClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.jwtConfig.Issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func validateCredentials(username, password string) error {
	switch {
	case username == "" || password == "":
		return entities.ErrUsernameRequired
	case utf8.RuneCountInString(username) < minUsernameLength:
		return entities.ErrUsernameTooShort
	case utf8.RuneCountInString(username) > maxUsernameLength:
		return entities.ErrUsernameTooLong
	case utf8.RuneCountInString(password) < minPasswordLength:
		return entities.ErrPasswordTooShort
	case len(password) > maxPasswordBytes:
		return entities.ErrPasswordTooLong
	}
	return nil
}
