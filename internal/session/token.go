package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTTLHours = 720

var (
	// ErrSecretMissing 未配置签名密钥
	ErrSecretMissing = errors.New("session secret missing")
	// ErrTokenInvalid 会话 token 无效
	ErrTokenInvalid = errors.New("session token invalid")
)

// Claims 会话 JWT 声明
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Issuer 会话 token 签发与校验
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer 创建签发器
func NewIssuer(secret string, ttlHours int) *Issuer {
	if ttlHours <= 0 {
		ttlHours = defaultTTLHours
	}
	return &Issuer{
		secret: []byte(strings.TrimSpace(secret)),
		ttl:    time.Duration(ttlHours) * time.Hour,
		now:    time.Now,
	}
}

// Issue 生成新的会话 id 与 token
func (i *Issuer) Issue() (string, string, time.Time, error) {
	return i.IssueFor(uuid.NewString())
}

// IssueFor 为已有会话续签 token
func (i *Issuer) IssueFor(sessionID string) (string, string, time.Time, error) {
	if len(i.secret) == 0 {
		return "", "", time.Time{}, ErrSecretMissing
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return sessionID, tokenString, expiresAt, nil
}

// Parse 校验 token 并返回声明
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	if len(i.secret) == 0 {
		return nil, ErrSecretMissing
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	claims := &Claims{}
	token, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if _, err := uuid.Parse(claims.SessionID); err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
