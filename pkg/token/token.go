// Package token 签发/校验音频访问令牌。
//
// 令牌是自包含的 capability：持有即可在有效期内读取指定对象，
// 校验不查库、无吊销列表。令牌会出现在 URL 里，拿到 URL 的任何人
// 在过期前都能访问——这是 bearer-token-in-URL 方案的已知取舍，
// 靠短 TTL（默认 5 分钟、上限 10 分钟）压缩暴露窗口。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired 令牌已过期
	ErrExpired = errors.New("token: expired")
	// ErrInvalid 令牌格式/签名无效
	ErrInvalid = errors.New("token: invalid")
	// ErrWrongResource 令牌与目标资源不匹配
	ErrWrongResource = errors.New("token: wrong resource")
)

// Claims 令牌声明：一个主体、一个资源、一个用途
type Claims struct {
	UserID     uint   `json:"uid"`
	ResourceID string `json:"res"`
	Purpose    string `json:"pur"`
	jwt.RegisteredClaims
}

// Grant 校验通过后返回的授权信息
type Grant struct {
	UserID     uint
	ResourceID string
}

// Issuer 签发与校验器
type Issuer struct {
	secret  []byte
	purpose string
	now     func() time.Time
}

// NewIssuer 创建签发器，purpose 区分令牌用途（如 "audio"）
func NewIssuer(secret string, purpose string) *Issuer {
	return &Issuer{secret: []byte(secret), purpose: purpose, now: time.Now}
}

// WithClock 注入时钟，便于测试过期边界
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue 为 (用户, 资源) 签发有效期 ttl 的令牌
func (i *Issuer) Issue(userID uint, resourceID string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:     userID,
		ResourceID: resourceID,
		Purpose:    i.purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify 校验签名与有效期，返回授权信息
func (i *Issuer) Verify(tokenString string) (*Grant, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if !t.Valid || claims.Purpose != i.purpose {
		return nil, ErrInvalid
	}
	return &Grant{UserID: claims.UserID, ResourceID: claims.ResourceID}, nil
}

// VerifyResource 校验令牌且要求其指向给定资源
func (i *Issuer) VerifyResource(tokenString, resourceID string) (*Grant, error) {
	grant, err := i.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if grant.ResourceID != resourceID {
		return nil, ErrWrongResource
	}
	return grant, nil
}
