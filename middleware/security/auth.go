package security

import (
	"net/http"
	"strings"

	"CProject/tools/errs"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Identity is the already-authenticated principal handed to the coordination
// core. The core itself never verifies credentials beyond this boundary.
type Identity struct {
	UserID string
	Name   string
	Avatar string
}

const ctxIdentityKey = "collabIdentity"

type Options struct {
	// Secret enables HS256 token verification. When empty the middleware runs
	// in dev mode and trusts user_id/name/avatar query parameters.
	Secret []byte
}

// Middleware resolves the caller identity and stores it in the gin context.
// Token sources: ?token= query parameter (websocket clients cannot always set
// headers) or Authorization: Bearer.
func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil {
		opts = &Options{}
	}
	return func(c *gin.Context) {
		id, err := resolve(c, opts)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}
		c.Set(ctxIdentityKey, id)
		c.Next()
	}
}

// IdentityFrom reads the identity placed by Middleware.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ctxIdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func resolve(c *gin.Context, opts *Options) (Identity, error) {
	if len(opts.Secret) == 0 {
		// dev mode
		id := Identity{
			UserID: strings.TrimSpace(c.Query("user_id")),
			Name:   c.Query("name"),
			Avatar: c.Query("avatar"),
		}
		if id.UserID == "" {
			return Identity{}, errs.ErrTokenInvalid.WithDetail("user_id missing")
		}
		return id, nil
	}

	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			}
		}
	}
	if token == "" {
		return Identity{}, errs.ErrTokenInvalid.WithDetail("token missing")
	}
	return verify(token, opts.Secret)
}

func verify(token string, secret []byte) (Identity, error) {
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		// HMAC family only
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errs.New("unexpected alg", "alg", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, errs.ErrTokenInvalid.WithDetail("verify failed")
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return Identity{}, errs.ErrTokenInvalid.WithDetail("claims malformed")
	}
	id := Identity{
		UserID: claimString(claims, "sub"),
		Name:   claimString(claims, "name"),
		Avatar: claimString(claims, "avatar"),
	}
	if id.UserID == "" {
		return Identity{}, errs.ErrTokenInvalid.WithDetail("sub missing")
	}
	return id, nil
}

func claimString(claims jwtlib.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
