package webserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/eazybuy/config"
)

// Levels carried in token claims.
const (
	LevelOperator = "operator"
	LevelSuper    = "super"
	LevelCustomer = "customer"
)

// Claims is the token payload for both shoppers and operators.
type Claims struct {
	Uid      string `json:"uid"`
	Username string `json:"usr"`
	Level    string `json:"lvl"`
	jwt.RegisteredClaims
}

func newClaims(c echo.Context) jwt.Claims {
	return new(Claims)
}

// IssueToken signs a token for the given identity.
func IssueToken(cfg *config.AppConfig, uid int64, username, level string) (string, error) {
	expire := time.Duration(cfg.Web.JwtExpire) * time.Hour
	if expire <= 0 {
		expire = 24 * time.Hour
	}
	claims := &Claims{
		Uid:      strconv.FormatInt(uid, 10),
		Username: username,
		Level:    level,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expire)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Web.Secret))
}

// CurrentClaims returns the verified claims on the request, nil for
// anonymous shoppers.
func CurrentClaims(c echo.Context) *Claims {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil {
		return nil
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// CurrentUid returns the numeric identity on the request, 0 for guests.
func CurrentUid(c echo.Context) int64 {
	claims := CurrentClaims(c)
	if claims == nil {
		return 0
	}
	uid, _ := strconv.ParseInt(claims.Uid, 10, 64)
	return uid
}

func requireOperator(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := CurrentClaims(c)
		if claims == nil || (claims.Level != LevelOperator && claims.Level != LevelSuper) {
			return echo.NewHTTPError(http.StatusForbidden, "operator access required")
		}
		return next(c)
	}
}
