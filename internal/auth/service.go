package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Service is the main auth service with dependencies
type Service struct {
	userRepo       CredentialStore
	tokenGenerator TokenGenerator
	bcryptCost     int
	accessTTL      time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewService(userRepo CredentialStore, tokenGen *JWTTokenGenerator, bcryptCost int) *Service {
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		accessTTL:      tokenGen.AccessTokenTTL,
		revoked:        make(map[string]time.Time),
	}
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	storedHash, userID, err := s.userRepo.GetPasswordForUsername(dto.Email)
	if err != nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	if err := VerifyPassword(storedHash, dto.Password); err != nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	return s.issue(userID, dto.Email)
}

// RefreshTokens validates refresh token and returns new tokens. The old
// refresh token is revoked.
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateToken(refreshToken, TokenRefresh)
	if err != nil {
		return AuthTokens{}, err
	}
	if !s.consume(claims) {
		return AuthTokens{}, ErrInvalidToken
	}
	return s.issue(claims.UserID, claims.Email)
}

func (s *Service) issue(userID, email string) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(userID, email)
	if err != nil {
		return AuthTokens{}, err
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(userID, email)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.tokenGenerator.ValidateToken(tokenString, TokenAccess)
	if err != nil {
		return nil, err
	}
	if s.isRevoked(claims.ID) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Revoke invalidates an access token until it would have expired anyway.
func (s *Service) Revoke(tokenString string) error {
	claims, err := s.ValidateAccessToken(tokenString)
	if err != nil {
		return err
	}
	s.revoke(claims)
	return nil
}

func (s *Service) revoke(claims *Claims) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokeLocked(claims)
}

// consume revokes a token and reports whether it was still live. Of several
// concurrent callers holding the same token exactly one wins.
func (s *Service) consume(claims *Claims) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revoked[claims.ID]; ok {
		return false
	}
	s.revokeLocked(claims)
	return true
}

func (s *Service) revokeLocked(claims *Claims) {
	now := time.Now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	if claims.ExpiresAt != nil {
		s.revoked[claims.ID] = claims.ExpiresAt.Time
	}
}

func (s *Service) isRevoked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[id]
	return ok
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	return HashPassword(password, s.bcryptCost)
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID string, email string) (string, error) {
	return j.generate(userID, email, TokenAccess, j.AccessTokenTTL, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) GenerateRefreshToken(userID string, email string) (string, error) {
	return j.generate(userID, email, TokenRefresh, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) generate(userID, email string, kind TokenKind, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken checks signature, expiry and that the token is of the expected kind.
func (j *JWTTokenGenerator) ValidateToken(tokenString string, kind TokenKind) (*Claims, error) {
	secret := j.AccessTokenSecret
	if kind == TokenRefresh {
		secret = j.RefreshTokenSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Kind != kind {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
