package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/ballot-consensus-backend/internal/http/response"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/ctxutil"
	pkgerrors "github.com/yungbote/ballot-consensus-backend/internal/pkg/errors"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

const headerAPIKey = "X-API-Key"

// AdminClaims is the payload of an admin bearer token. Subject names the operator.
type AdminClaims struct {
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	log       *logger.Logger
	keys      [][]byte
	jwtSecret []byte
}

// NewAuthMiddleware accepts static API keys and, when jwtSecret is set, HS256 bearer
// tokens signed with it.
func NewAuthMiddleware(log *logger.Logger, apiKeys []string, jwtSecret string) *AuthMiddleware {
	am := &AuthMiddleware{log: log.With("Middleware", "AuthMiddleware")}
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			am.keys = append(am.keys, []byte(k))
		}
	}
	if s := strings.TrimSpace(jwtSecret); s != "" {
		am.jwtSecret = []byte(s)
	}
	if len(am.keys) == 0 && len(am.jwtSecret) == 0 {
		am.log.Warn("no admin credentials configured, admin endpoints will reject every request")
	}
	return am
}

// RequireAdmin admits requests carrying a configured key in X-API-Key, or a bearer
// credential that is either a configured key or a valid admin JWT.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := extractCredential(c)
		if cred == "" {
			response.AbortErr(c, errors.Join(pkgerrors.ErrUnauthorized, errors.New("missing admin credential")))
			return
		}
		subject := ""
		if !am.validKey(cred) {
			claims, err := am.parseToken(cred)
			if err != nil {
				am.log.Warn("rejected admin request", "path", c.FullPath(), "error", err)
				response.AbortErr(c, errors.Join(pkgerrors.ErrUnauthorized, errors.New("invalid admin credential")))
				return
			}
			subject = claims.Subject
		}
		if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
			rd.Admin = true
			rd.Subject = subject
		}
		c.Next()
	}
}

func (am *AuthMiddleware) validKey(key string) bool {
	ok := 0
	for _, k := range am.keys {
		ok |= subtle.ConstantTimeCompare(k, []byte(key))
	}
	return ok == 1
}

func (am *AuthMiddleware) parseToken(tokenString string) (*AdminClaims, error) {
	if len(am.jwtSecret) == 0 {
		return nil, errors.New("unknown API key")
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		return am.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := parsedToken.Claims.(*AdminClaims)
	if !ok || !parsedToken.Valid {
		return nil, errors.New("invalid token claims")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func extractCredential(c *gin.Context) string {
	if k := strings.TrimSpace(c.GetHeader(headerAPIKey)); k != "" {
		return k
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
