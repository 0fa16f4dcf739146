package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

type principalKey struct{}

// PrincipalFromContext возвращает пользователя, аутентифицированного middleware.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	principal, _ := ctx.Value(principalKey{}).(*domain.Principal)
	return principal
}

// RequireAuth пропускает только запросы с валидным bearer-токеном.
// Проверка роли остаётся на стороне usecase.
func RequireAuth(authUC usecase.AuthUC, logger logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authUC.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				logger.Debugf("auth rejected: %s %s: %v", r.Method, r.URL.Path, err)
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, principal)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

// AccessLog пишет строку на каждый запрос. Ошибки сервера логируются на уровне warn.
func AccessLog(logger logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			format := "%s %s %d %dB %s req_id=%s"
			args := []any{r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start), middleware.GetReqID(r.Context())}
			if status >= http.StatusInternalServerError {
				logger.Warnf(format, args...)
				return
			}
			logger.Infof(format, args...)
		})
	}
}

// logFailure пишет в лог причину ответа с ошибкой: внутренние ошибки целиком, остальные кратко.
func logFailure(logger logger.Logger, op string, err error) {
	if code, _ := ToHTTPResponse(err); code >= http.StatusInternalServerError {
		logger.Errorf(err, "%s failed", op)
		return
	}
	if msg, ok := e.Message(err); ok {
		logger.Debugf("%s rejected: %s", op, msg)
	}
}
