package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy throttles one route per client IP and per buyer email.
// A zero limit disables that dimension.
type RateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "checkout"
	}
	return RateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

func (p RateLimitPolicy) ipKey(ip string) string {
	return "ip:" + p.name + ":" + ip
}

func (p RateLimitPolicy) emailKey(hash string) string {
	return "email:" + p.name + ":" + hash
}

// bucket is one counter a request is charged against.
type bucket struct {
	dimension string
	key       string
	limit     int
	logValue  string
}

// RateLimit charges each request to its IP bucket and, when the JSON body
// carries an email, to that email's bucket. Only the email hash reaches Redis
// or the logs.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buckets, err := policy.buckets(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			for _, b := range buckets {
				allowed, count, err := store.FixedWindowAllow(r.Context(), b.key, int64(b.limit), policy.window)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					policy.reject(r.Context(), logg, w, b, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// buckets reads the body at most once and restores it for the handler.
func (p RateLimitPolicy) buckets(r *http.Request) ([]bucket, error) {
	var out []bucket
	if ip := clientIP(r); p.ipLimit > 0 && ip != "" {
		out = append(out, bucket{dimension: "ip", key: p.ipKey(ip), limit: p.ipLimit, logValue: ip})
	}
	if p.emailLimit == 0 || r.Body == nil {
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, validators.MaxBodyBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if email := normalizeEmail(extractEmail(body)); email != "" {
		hash := hashValue(email)
		out = append(out, bucket{dimension: "email", key: p.emailKey(hash), limit: p.emailLimit, logValue: hash})
	}
	return out, nil
}

func (p RateLimitPolicy) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, b bucket, count int64) {
	if logg != nil {
		valueField := "ip"
		if b.dimension == "email" {
			valueField = "email_hash"
		}
		logg.Warn(logg.WithFields(ctx, logger.Fields{
			"scope":          b.dimension,
			"policy":         p.name,
			"attempts":       count,
			"limit":          b.limit,
			"window_seconds": int(p.window.Seconds()),
			valueField:       b.logValue,
		}), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(max(1, int(p.window.Seconds()))))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many checkout attempts, please wait and try again"))
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func extractEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return body.Email
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
