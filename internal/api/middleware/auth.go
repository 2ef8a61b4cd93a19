package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"hedgewatch/pkg/crypto"
)

// Учетные данные для debug endpoints.
// DEBUG_PASSWORD_HASH - bcrypt хеш пароля (предпочтительно),
// DEBUG_PASSWORD - открытый пароль (только для разработки).
var (
	debugUsername     = os.Getenv("DEBUG_USERNAME")
	debugPassword     = os.Getenv("DEBUG_PASSWORD")
	debugPasswordHash = os.Getenv("DEBUG_PASSWORD_HASH")
)

// DebugAuth - middleware для защиты debug/pprof endpoints.
//
// Использует HTTP Basic Authentication. Пароль сравнивается с bcrypt
// хешем из DEBUG_PASSWORD_HASH; если хеш не задан, используется
// constant-time сравнение с DEBUG_PASSWORD.
//
// Если credentials не настроены, доступ разрешен только в development.
//
// Использование:
//
//	debug := router.PathPrefix("/debug").Subrouter()
//	debug.Use(middleware.DebugAuth)
func DebugAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if debugUsername == "" || (debugPassword == "" && debugPasswordHash == "") {
			if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Debug endpoints disabled. Set DEBUG_USERNAME and DEBUG_PASSWORD_HASH.", http.StatusForbidden)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(debugUsername)) == 1

		var passMatch bool
		if debugPasswordHash != "" {
			passMatch = crypto.VerifyPassword(pass, debugPasswordHash) == nil
		} else {
			passMatch = subtle.ConstantTimeCompare([]byte(pass), []byte(debugPassword)) == 1
		}

		if !userMatch || !passMatch {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
