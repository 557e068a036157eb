package router

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/gabrielmiguelok/intakewizard/pkg/logging"
)

// Recovery middleware recovers from panics in HTTP handlers.
func Recovery(logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("http handler panic",
						logging.String("path", r.URL.Path),
						logging.Any("panic", rec),
						logging.String("stack", string(debug.Stack())),
					)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// SessionIDKey is the core.Session key holding the visitor's session ID.
const SessionIDKey = "session_id"

type sessionIDKey struct{}

// SessionIDFromContext returns the visitor session ID set by SessionCookie.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// SessionCookie makes sure every visitor carries a random session ID in the
// named cookie and exposes it through the request context.
func SessionCookie(name string, maxAge time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(name); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}

			// WebSocket upgrades cannot set cookies the page has not seen.
			if id == "" && !isWebSocketRequest(r) {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    id,
					Path:     "/",
					MaxAge:   int(maxAge.Seconds()),
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
			}

			if id != "" {
				r = r.WithContext(context.WithValue(r.Context(), sessionIDKey{}, id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecureHeadersConfig configures security headers.
type SecureHeadersConfig struct {
	// FrameOptions controls X-Frame-Options header.
	FrameOptions string

	// ReferrerPolicy sets the Referrer-Policy header.
	ReferrerPolicy string

	// HSTSMaxAge is the max-age for HSTS in seconds. Zero disables HSTS.
	HSTSMaxAge int

	// FrameSources are extra origins allowed in frame-src, such as an
	// embedded scheduling page.
	FrameSources []string
}

// DefaultSecureHeadersConfig returns secure default configuration.
func DefaultSecureHeadersConfig() SecureHeadersConfig {
	return SecureHeadersConfig{
		FrameOptions:   "DENY",
		ReferrerPolicy: "strict-origin-when-cross-origin",
		HSTSMaxAge:     31536000,
	}
}

type cspNonceKey struct{}

// GetCSPNonce retrieves the CSP nonce from context.
func GetCSPNonce(ctx context.Context) string {
	nonce, _ := ctx.Value(cspNonceKey{}).(string)
	return nonce
}

func generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.StdEncoding.EncodeToString(b)
}

// SecureHeaders sets the standard security headers and a nonce-based
// Content-Security-Policy.
func SecureHeaders(config SecureHeadersConfig) Middleware {
	frameSrc := "'none'"
	if len(config.FrameSources) > 0 {
		frameSrc = strings.Join(config.FrameSources, " ")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if config.FrameOptions != "" {
				h.Set("X-Frame-Options", config.FrameOptions)
			}
			h.Set("X-Content-Type-Options", "nosniff")
			if config.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", config.ReferrerPolicy)
			}
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

			if config.HSTSMaxAge > 0 && (r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https") {
				h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(config.HSTSMaxAge)+"; includeSubDomains")
			}

			nonce := generateNonce()
			h.Set("Content-Security-Policy", "default-src 'self'; "+
				"script-src 'self' 'nonce-"+nonce+"'; "+
				"style-src 'self' 'nonce-"+nonce+"'; "+
				"img-src 'self' data: https:; "+
				"connect-src 'self' ws: wss:; "+
				"frame-src "+frameSrc+"; "+
				"frame-ancestors 'none'; "+
				"base-uri 'self'; "+
				"form-action 'self'")

			ctx := context.WithValue(r.Context(), cspNonceKey{}, nonce)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit limits each client IP to perSecond requests with the given
// burst. Limiters unused for ten minutes are dropped.
func RateLimit(perSecond float64, burst int) Middleware {
	type entry struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	var (
		mu       sync.Mutex
		clients  = make(map[string]*entry)
		lastScan = time.Now()
	)

	allow := func(ip string) bool {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.Sub(lastScan) > time.Minute {
			for k, e := range clients {
				if now.Sub(e.lastSeen) > 10*time.Minute {
					delete(clients, k)
				}
			}
			lastScan = now
		}

		e, ok := clients[ip]
		if !ok {
			e = &entry{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
			clients[ip] = e
		}
		e.lastSeen = now
		return e.limiter.Allow()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(clientIP(r)) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
