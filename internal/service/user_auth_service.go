package service

import (
	"errors"
	"strings"
	"time"

	"github.com/railbook-next/internal/clock"
	"github.com/railbook-next/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

const defaultUserJWTExpireHours = 24

var ErrTokenInvalid = errors.New("invalid token")

// UserJWTClaims 用户 JWT 声明，sub 为用户标识
type UserJWTClaims struct {
	jwt.RegisteredClaims
}

// UserID 返回声明中的用户标识
func (c *UserJWTClaims) UserID() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Subject)
}

// UserTokenService 用户令牌签发与校验。用户体系由上游负责，这里只认 sub。
type UserTokenService struct {
	cfg   config.JWTConfig
	clock clock.Clock
}

// NewUserTokenService 创建令牌服务
func NewUserTokenService(cfg config.JWTConfig, clk clock.Clock) *UserTokenService {
	if clk == nil {
		clk = clock.Real()
	}
	return &UserTokenService{cfg: cfg, clock: clk}
}

// GenerateUserJWT 生成用户 JWT Token
func (s *UserTokenService) GenerateUserJWT(userID string, expireHours int) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, errors.New("user id is required")
	}
	if strings.TrimSpace(s.cfg.SecretKey) == "" {
		return "", time.Time{}, errors.New("jwt secret is not configured")
	}
	resolvedHours := expireHours
	if resolvedHours <= 0 {
		resolvedHours = s.cfg.ExpireHours
	}
	if resolvedHours <= 0 {
		resolvedHours = defaultUserJWTExpireHours
	}
	now := s.clock.Now()
	expiresAt := now.Add(time.Duration(resolvedHours) * time.Hour)
	claims := UserJWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseUserJWT 解析用户 JWT Token
func (s *UserTokenService) ParseUserJWT(tokenString string) (*UserJWTClaims, error) {
	return ParseUserJWT(s.cfg.SecretKey, tokenString)
}

// ParseUserJWT 使用 HS256 密钥解析并校验用户令牌
func ParseUserJWT(secretKey, tokenString string) (*UserJWTClaims, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, ErrTokenInvalid
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &UserJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID() == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
