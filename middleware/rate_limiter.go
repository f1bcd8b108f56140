package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"donamaha/models"
	"donamaha/utils"
)

// In-memory sliding-window limiters with trusted-proxy support and
// progressive penalties. Login lockout moves to Redis when it is configured.

type timestamps []int64 // unix nanos

func nowUnix() int64 { return time.Now().UnixNano() }

func getEnvInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return time.Duration(v) * time.Second
		}
	}
	return def
}

func trustedProxies() []string {
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		return strings.Split(v, ",")
	}
	return nil
}

// prune drops timestamps older than cutoff.
func prune(arr timestamps, cutoff int64) timestamps {
	var filtered timestamps
	for _, ts := range arr {
		if ts >= cutoff {
			filtered = append(filtered, ts)
		}
	}
	return filtered
}

func writeTooMany(w http.ResponseWriter, retryAfter int) {
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
		Success: false,
		Message: "Terlalu banyak permintaan, Coba lagi nanti",
		Data:    map[string]interface{}{"retry_after_seconds": retryAfter},
	})
}

// IPRateLimiter implements per-IP sliding-window counters.
type IPRateLimiter struct {
	window      time.Duration
	max         int
	mu          sync.Mutex
	state       map[string]timestamps
	cleanupTick time.Duration
	trustedCIDR []string
}

// NewIPRateLimiter creates a limiter allowing maxReq requests per window per IP.
func NewIPRateLimiter(maxReq int, window time.Duration) *IPRateLimiter {
	l := &IPRateLimiter{
		window:      window,
		max:         maxReq,
		state:       make(map[string]timestamps),
		cleanupTick: getEnvDuration("RATE_CLEANUP_SECONDS", 60*time.Second),
		trustedCIDR: trustedProxies(),
	}
	go l.cleanupLoop()
	return l
}

// clientIPGeneric returns the client IP string. X-Forwarded-For / X-Real-IP
// are honored only when the remote address is one of trustedCIDR.
func clientIPGeneric(r *http.Request, trustedCIDR []string) string {
	remoteHost, _, _ := net.SplitHostPort(r.RemoteAddr)
	remoteIP := net.ParseIP(remoteHost)
	trusted := false
	for _, cidr := range trustedCIDR {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if strings.Contains(cidr, "/") {
			if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
				if remoteIP != nil && ipnet.Contains(remoteIP) {
					trusted = true
					break
				}
			}
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil && remoteIP != nil && ip.Equal(remoteIP) {
			trusted = true
			break
		}
	}
	if trusted {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[0])
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}
	if remoteHost == "" {
		return r.RemoteAddr
	}
	return remoteHost
}

// allow records a hit for key and reports whether it is within limit, with
// the seconds until the oldest hit leaves the window.
func (l *IPRateLimiter) allow(key string) (bool, int, int) {
	now := nowUnix()
	windowNs := int64(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	filtered := append(prune(l.state[key], now-windowNs), now)
	l.state[key] = filtered
	count := len(filtered)
	if count <= l.max {
		return true, l.max - count, 0
	}
	retryAfter := int((filtered[0] + windowNs - now) / int64(time.Second))
	return false, 0, retryAfter
}

// Middleware applies per-IP limits and sets rate-limit headers.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, remaining, retryAfter := l.allow(clientIPGeneric(r, l.trustedCIDR))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			writeTooMany(w, retryAfter)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *IPRateLimiter) cleanupLoop() {
	tick := time.NewTicker(l.cleanupTick)
	defer tick.Stop()
	for range tick.C {
		l.mu.Lock()
		cutoff := nowUnix() - int64(l.window)
		for k, arr := range l.state {
			if filtered := prune(arr, cutoff); len(filtered) == 0 {
				delete(l.state, k)
			} else {
				l.state[k] = filtered
			}
		}
		l.mu.Unlock()
	}
}

// UserRateLimiter limits authenticated users per route category and applies
// growing penalties to repeat offenders. Admins are not limited.
type UserRateLimiter struct {
	mu          sync.Mutex
	state       map[string]timestamps // key = userID:category
	penalty     map[string]penaltyInfo
	window      time.Duration
	cleanupTick time.Duration
	readMax     int
	writeMax    int
}

type penaltyInfo struct {
	Level int
	Until int64 // unix nanos
}

func NewUserRateLimiter(maxReqRead, maxReqWrite int, windowSec int) *UserRateLimiter {
	l := &UserRateLimiter{
		state:       make(map[string]timestamps),
		penalty:     make(map[string]penaltyInfo),
		window:      time.Duration(windowSec) * time.Second,
		cleanupTick: getEnvDuration("RATE_CLEANUP_SECONDS", 60*time.Second),
		readMax:     maxReqRead,
		writeMax:    maxReqWrite,
	}
	go l.cleanupLoop()
	return l
}

func requestCategory(r *http.Request) string {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return "upload"
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "read"
	}
	return "write"
}

func (l *UserRateLimiter) limitFor(cat string) int {
	switch cat {
	case "upload":
		return getEnvInt("RATE_USER_UPLOAD", 10)
	case "read":
		return l.readMax
	default:
		return l.writeMax
	}
}

func penaltyDuration(level int) time.Duration {
	switch level {
	case 1:
		return time.Minute
	case 2:
		return 5 * time.Minute
	case 3:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

func (l *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := utils.GetUserID(r)
		if !ok || utils.GetUserRole(r) == models.RoleAdmin {
			next.ServeHTTP(w, r)
			return
		}
		cat := requestCategory(r)
		limit := l.limitFor(cat)
		key := fmt.Sprintf("u:%d:%s", uid, cat)
		now := nowUnix()

		l.mu.Lock()
		pi := l.penalty[key]
		if pi.Until > now {
			l.mu.Unlock()
			writeTooMany(w, int(time.Duration(pi.Until-now).Seconds()))
			return
		}
		filtered := append(prune(l.state[key], now-int64(l.window)), now)
		l.state[key] = filtered
		if len(filtered) > limit {
			level := pi.Level + 1
			d := penaltyDuration(level)
			l.penalty[key] = penaltyInfo{Level: level, Until: now + int64(d)}
			l.mu.Unlock()
			writeTooMany(w, int(d.Seconds()))
			return
		}
		l.mu.Unlock()
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-len(filtered)))
		next.ServeHTTP(w, r)
	})
}

func (l *UserRateLimiter) cleanupLoop() {
	tick := time.NewTicker(l.cleanupTick)
	defer tick.Stop()
	for range tick.C {
		l.mu.Lock()
		now := nowUnix()
		for k, arr := range l.state {
			if filtered := prune(arr, now-int64(l.window)); len(filtered) == 0 {
				delete(l.state, k)
			} else {
				l.state[k] = filtered
			}
		}
		for k, p := range l.penalty {
			if p.Until < now {
				delete(l.penalty, k)
			}
		}
		l.mu.Unlock()
	}
}

// Account lockout tracker for failed logins. The first lockoutFreeAttempts
// failures only count; after that each failure locks for a growing period.
const lockoutFreeAttempts = 4

var (
	loginMu   sync.Mutex
	failedMap = make(map[string]int)   // key = u:<id> -> failures
	lockMap   = make(map[string]int64) // key -> lockUntil unix nanos
)

func lockoutDuration(failures int64) time.Duration {
	if failures <= lockoutFreeAttempts {
		return 0
	}
	return penaltyDuration(int(failures - lockoutFreeAttempts))
}

func IsAccountLocked(ctx context.Context, userID uint) (bool, time.Duration) {
	if utils.RedisClient != nil {
		ttl, err := utils.RedisClient.TTL(ctx, fmt.Sprintf("login:lock:u:%d", userID)).Result()
		if err == nil && ttl > 0 {
			return true, ttl
		}
		return false, 0
	}
	loginMu.Lock()
	defer loginMu.Unlock()
	key := fmt.Sprintf("u:%d", userID)
	until := lockMap[key]
	if until == 0 {
		return false, 0
	}
	now := nowUnix()
	if until > now {
		return true, time.Duration(until - now)
	}
	delete(lockMap, key)
	return false, 0
}

func RecordFailedLogin(ctx context.Context, userID uint) {
	if utils.RedisClient != nil {
		failKey := fmt.Sprintf("login:fail:u:%d", userID)
		failures, err := utils.RedisClient.Incr(ctx, failKey).Result()
		if err == nil {
			_ = utils.RedisClient.Expire(ctx, failKey, 30*time.Minute).Err()
			if d := lockoutDuration(failures); d > 0 {
				_ = utils.RedisClient.Set(ctx, fmt.Sprintf("login:lock:u:%d", userID), "1", d).Err()
			}
			return
		}
	}

	loginMu.Lock()
	defer loginMu.Unlock()
	key := fmt.Sprintf("u:%d", userID)
	failedMap[key]++
	if d := lockoutDuration(int64(failedMap[key])); d > 0 {
		lockMap[key] = nowUnix() + int64(d)
	}
}

func ResetFailedLogin(ctx context.Context, userID uint) {
	if utils.RedisClient != nil {
		_ = utils.RedisClient.Del(ctx, fmt.Sprintf("login:fail:u:%d", userID), fmt.Sprintf("login:lock:u:%d", userID)).Err()
		return
	}
	loginMu.Lock()
	defer loginMu.Unlock()
	key := fmt.Sprintf("u:%d", userID)
	delete(lockMap, key)
	delete(failedMap, key)
}
