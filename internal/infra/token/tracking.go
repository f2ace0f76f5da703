package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid tracking token")

const trackingAudience = "order-tracking"

// 注文追跡リンク用の署名付きトークン（HS256、subject = order_number）
type TrackingTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTrackingTokens(secret string, ttl time.Duration) *TrackingTokens {
	return &TrackingTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TrackingTokens) Issue(orderNumber string) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   orderNumber,
		Audience:  jwt.ClaimStrings{trackingAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// 検証できたらorder_numberを返す
func (t *TrackingTokens) Parse(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims

	//期限はt.nowで見るのでここでは検証しない
	parser := jwt.NewParser(jwt.WithoutClaimsValidation(), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := parser.ParseWithClaims(tokenString, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}

	if !claims.VerifyExpiresAt(t.now(), true) || !claims.VerifyAudience(trackingAudience, true) {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
