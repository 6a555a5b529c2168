package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// KeyFunc extrai a chave de limite de uma requisição.
type KeyFunc func(r *http.Request) string

// PathParamKey usa um parâmetro de rota do chi (ex.: "userID") como chave.
// Sem o parâmetro, cai para o host de RemoteAddr, para a rota nunca ficar
// sem limite por um erro de wiring.
func PathParamKey(param string) KeyFunc {
	return func(r *http.Request) string {
		if v := chi.URLParam(r, param); v != "" {
			return v
		}
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

type Options struct {
	Store        *Store
	KeyFn        KeyFunc
	RejectStatus int
	RetryAfter   time.Duration
}

// Middleware rejeita com 429 (e Retry-After) quando o bucket da chave está
// vazio. Store nil desliga o limite e apenas repassa a requisição.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = PathParamKey("userID")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Store == nil {
				next.ServeHTTP(w, r)
				return
			}

			if !opts.Store.Allow(opts.KeyFn(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(int(opts.RetryAfter.Seconds())))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
