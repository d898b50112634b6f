package internal

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const identityKey = "identity"

type identityCtxKey struct{}

// GatewayRules classifies a path. Excluded prefixes win over protected ones;
// a path matching neither is public.
type GatewayRules struct {
	Excluded  []string
	Protected []string
}

func (r GatewayRules) excluded(path string) bool  { return hasAnyPrefix(path, r.Excluded) }
func (r GatewayRules) protected(path string) bool { return hasAnyPrefix(path, r.Protected) }

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// RequestIdentity lives only as long as the request that carried the token.
type RequestIdentity struct {
	Subject string
	Token   string
}

// Gateway runs before routing. Protected paths need a verifiable token;
// public paths get an identity attached when one is supplied and valid.
func Gateway(codec *TokenCodec, rules GatewayRules, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if rules.excluded(path) {
			c.Next()
			return
		}
		protected := rules.protected(path)

		subject := ""
		if raw := bearerToken(c.GetHeader("Authorization")); raw != "" {
			claims, err := codec.Decode(raw)
			switch {
			case err == nil:
				subject = claims.Subject
				attachIdentity(c, RequestIdentity{Subject: claims.Subject, Token: raw})
			case protected:
				log.WithField("path", path).WithError(err).Debug("gateway rejected token")
				c.AbortWithStatusJSON(KindUnauthenticated.Status(), gin.H{"detail": "invalid token"})
				return
			}
		}

		if protected && subject == "" {
			log.WithField("path", path).Debug("gateway rejected anonymous request")
			c.AbortWithStatusJSON(KindUnauthenticated.Status(), gin.H{"detail": "not authenticated"})
			return
		}
		c.Next()
	}
}

func attachIdentity(c *gin.Context, id RequestIdentity) {
	c.Set(identityKey, id)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), identityCtxKey{}, id))
}

// IdentityFrom returns the identity the gateway attached, if any.
func IdentityFrom(c *gin.Context) (RequestIdentity, bool) {
	if v, ok := c.Get(identityKey); ok {
		id, ok := v.(RequestIdentity)
		return id, ok
	}
	return IdentityFromContext(c.Request.Context())
}

func IdentityFromContext(ctx context.Context) (RequestIdentity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(RequestIdentity)
	return id, ok
}

// bearerToken extracts <token> from "Bearer <token>"; the scheme is
// case-insensitive.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
