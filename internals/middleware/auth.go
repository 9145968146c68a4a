package middle

import (
	"context"
	"errors"
	"net/http"
	"pulsewatch/internals/security"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type operatorCtxKeyType struct{}

var operatorCtxKey = operatorCtxKeyType{}

type AuthMiddleware struct {
	tokenSvc *security.TokenService
}

func NewAuthMiddleware(tokenSvc *security.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenSvc: tokenSvc,
	}
}

func (a *AuthMiddleware) Handle(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())

		token, err := a.extractBearerToken(r)
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, err.Error())
			return
		}

		claims, err := a.tokenSvc.ValidateAccessToken(token)
		if err != nil {
			utils.FromAppError(w, reqID, err)
			return
		}

		if claims.Email == "" {
			utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "unauthorised")
			return
		}

		ctx := context.WithValue(r.Context(), operatorCtxKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}

func (*AuthMiddleware) extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")

	if authHeader == "" {
		return "", errors.New("missing Authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid Authorization header")
	}

	return parts[1], nil
}

func OperatorFromContext(ctx context.Context) (*security.RequestClaims, bool) {
	claims, ok := ctx.Value(operatorCtxKey).(*security.RequestClaims)
	return claims, ok
}
