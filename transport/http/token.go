package http

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/miravpn/shop/conf"
)

var (
	ErrTokenNotInit = errors.New("token not initialized")
	ErrInvalidToken = errors.New("invalid token")
)

var (
	issuer   string
	audience string
	keyFn    jwt.Keyfunc
)

func Init(i, a string, privkey ed25519.PrivateKey) {
	issuer = i
	audience = a

	pubkey := privkey.Public().(ed25519.PublicKey)
	keyFn = func(t *jwt.Token) (any, error) {
		return pubkey, nil
	}
}

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

func ParseToken(ctx *gin.Context, claims jwt.Claims) error {
	if audience == "" || keyFn == nil {
		return ErrTokenNotInit
	}

	authHeader := ctx.GetHeader("Authorization")

	tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return ErrInvalidToken
	}

	_, err := jwt.ParseWithClaims(tokenStr, claims, keyFn,
		jwt.WithAudience(audience),
		jwt.WithLeeway(10*time.Second),
	)

	return err
}

// SignToken issues an admin token; the CLI uses it to mint credentials for
// the management API.
func SignToken(subject string, roles []string) (string, time.Time, error) {
	cfg := conf.G()
	now := time.Now()
	expiredAt := now.Add(cfg.JWT.Timeout)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.BaseURL,
			Subject:   subject,
			Audience:  cfg.JWT.Audiences,
			ExpiresAt: jwt.NewNumericDate(expiredAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        ulid.Make().String(),
		},
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	tokenStr, err := token.SignedString(cfg.JWT.Privkey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenStr, expiredAt, nil
}

type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	Kid string `json:"kid"`
}

type JWKSet struct {
	Keys []JWK `json:"keys"`
}

func JWKHandler(c *gin.Context) {
	cfg := conf.G()

	pub := cfg.JWT.Privkey.Public().(ed25519.PublicKey)
	x := base64.RawURLEncoding.EncodeToString(pub)

	hash := sha256.Sum256(pub)
	kid := base64.RawURLEncoding.EncodeToString(hash[:16])

	jwk := JWK{
		Kty: "OKP",
		Crv: "Ed25519",
		X:   x,
		Alg: "EdDSA",
		Use: "sig",
		Kid: kid,
	}

	jwkSet := JWKSet{
		Keys: []JWK{jwk},
	}

	c.JSON(http.StatusOK, jwkSet)
}

func RefreshHandler(c *gin.Context) {
	cfg := conf.G()
	if !cfg.JWT.Refresh.Enabled {
		err := errors.New("token refresh disabled")
		c.Abort()
		c.Error(err)
		c.String(http.StatusForbidden, err.Error())
		return
	}

	var claims Claims
	if err := ParseToken(c, &claims); err != nil {
		unauthorized(c, http.StatusUnauthorized, err)
		return
	}

	if time.Since(claims.IssuedAt.Time) > cfg.JWT.Refresh.Maximum {
		err := errors.New("token beyond refresh time")
		unauthorized(c, http.StatusForbidden, err)
		return
	}

	now := time.Now()
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(cfg.JWT.Timeout))
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ID = ulid.Make().String()

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	tokenStr, err := token.SignedString(cfg.JWT.Privkey)
	if err != nil {
		unauthorized(c, http.StatusExpectationFailed, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      tokenStr,
		"expired_at": now.Add(cfg.JWT.Timeout),
	})
}

func unauthorized(c *gin.Context, code int, err error) {
	c.Abort()
	c.Error(err)
	c.Header("WWW-Authenticate", "Bearer realm="+issuer)
	c.String(code, err.Error())
}
