// identity.go — определение того, для кого строится дашборд.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/goartstore/dashboard-module/internal/api/errors"
	"github.com/bigkaa/goartstore/dashboard-module/internal/service"
)

// ContextKeyViewer — service.Viewer в контексте запроса.
const ContextKeyViewer contextKey = "viewer"

// UserResolver отображает субъект JWT в числовой id пользователя.
type UserResolver interface {
	EnsureUser(ctx context.Context, subject, username string) (int64, error)
}

// Identity собирает service.Viewer: токен выбора из cookie cookieName и,
// если JWTAuth поместил claims в контекст, id и имя пользователя.
// Должен стоять после JWTAuth.Middleware().
func Identity(users UserResolver, cookieName string, logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With(slog.String("component", "identity"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var viewer service.Viewer

			if cookie, err := r.Cookie(cookieName); err == nil {
				viewer.SelectionID = cookie.Value
			}

			if claims := ClaimsFromContext(r.Context()); claims != nil {
				viewer.Username = claims.Username()
				if users != nil {
					id, err := users.EnsureUser(r.Context(), claims.Subject, viewer.Username)
					if err != nil {
						log.Error("Ошибка определения пользователя",
							slog.String("subject", claims.Subject),
							slog.String("error", err.Error()),
						)
						apierrors.InternalError(w, "Ошибка определения пользователя")
						return
					}
					viewer.UserID = &id
				}
			}

			ctx := context.WithValue(r.Context(), ContextKeyViewer, viewer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ViewerFromContext возвращает Viewer из контекста (нулевой, если его нет).
func ViewerFromContext(ctx context.Context) service.Viewer {
	viewer, _ := ctx.Value(ContextKeyViewer).(service.Viewer)
	return viewer
}
