package middleware

import (
	"net/http"
	"os"
	"strings"
)

// allowedOrigins - origins операторской панели, которым разрешен
// доступ к API из браузера. Продакшен-домены добавляются через
// CORS_ALLOWED_ORIGINS (список через запятую).
var allowedOrigins = map[string]bool{
	"http://localhost:3000": true,
	"http://127.0.0.1:3000": true,
	"http://localhost:8080": true,
	"http://127.0.0.1:8080": true,
}

func init() {
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}
}

func isOriginAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	return allowedOrigins[origin]
}

// CORS пропускает браузерные запросы операторской панели к REST API
// и /ws/stream. Панель живет на отдельном origin, поэтому без этих
// заголовков браузер режет и статусные запросы, и admin-команды.
//
// Для разрешенного origin отдается он сам плюс Allow-Credentials:
// admin-эндпойнты ходят с заголовком Authorization, а с ним wildcard
// недопустим. Запросы без Origin (curl, мониторинг) получают "*".
// Preflight кешируется на сутки, чтобы панель не дергала OPTIONS
// перед каждой командой оператора.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if isOriginAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		// Чужой origin не получает заголовков - браузер заблокирует сам

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
