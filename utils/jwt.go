package utils

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"donamaha/database"
	"donamaha/models"
	"donamaha/policy"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	AccessTokenTTL      = 15 * time.Minute
	AdminAccessTokenTTL = 6 * time.Hour
	RefreshTokenDays    = 7
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

// RedisClient is an optional shared Redis client used for token revocation and
// login lockout. It is nil when REDIS_ADDR is not configured.
var RedisClient *redis.Client

// InitRedis connects RedisClient from REDIS_ADDR, REDIS_PASS and REDIS_DB.
// A failed ping leaves RedisClient nil; callers fall back to the database.
func InitRedis(ctx context.Context) {
	addr := strings.ReplaceAll(strings.TrimSpace(os.Getenv("REDIS_ADDR")), " ", "")
	if addr == "" {
		return
	}
	opts := &redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASS")}
	if n, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		opts.DB = n
	}
	rc := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		slog.Warn("[redis] ping failed, using database fallback", "addr", addr, "error", err)
		_ = rc.Close()
		return
	}
	RedisClient = rc
}

type contextKey string

const UserIDKey = contextKey("userID")
const UserRoleKey = contextKey("userRole")
const RequestIDKey = contextKey("requestID")
const TokenClaimsKey = contextKey("tokenClaims")

type tokenClaims struct {
	UserID uint   `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	UserID    uint
	Role      models.Role
	JTI       string
	ExpiresAt time.Time
}

func jwtSecret() ([]byte, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	return []byte(secret), nil
}

// GenerateAccessToken issues an access token with the default lifetime for role.
func GenerateAccessToken(userID uint, role models.Role) (string, time.Time, error) {
	ttl := AccessTokenTTL
	if role == models.RoleAdmin {
		ttl = AdminAccessTokenTTL
	}
	return GenerateAccessTokenWithExpiry(userID, role, ttl)
}

// GenerateAccessTokenWithExpiry issues an HS256 access token carrying the
// user id, role and a unique jti.
func GenerateAccessTokenWithExpiry(userID uint, role models.Role, expiry time.Duration) (string, time.Time, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	exp := now.Add(expiry)
	claims := tokenClaims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
			Issuer:    os.Getenv("JWT_ISS"),
		},
	}
	if aud := os.Getenv("JWT_AUD"); aud != "" {
		claims.Audience = jwt.ClaimStrings{aud}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ValidateAccessToken verifies signature, registered claims and revocation.
func ValidateAccessToken(ctx context.Context, tokenStr string) (*AccessClaims, error) {
	secret, err := jwtSecret()
	if err != nil {
		return nil, err
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if aud := os.Getenv("JWT_AUD"); aud != "" {
		opts = append(opts, jwt.WithAudience(aud))
	}
	if iss := os.Getenv("JWT_ISS"); iss != "" {
		opts = append(opts, jwt.WithIssuer(iss))
	}

	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	role, ok := models.ParseRole(claims.Role)
	if !ok || claims.UserID == 0 || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	if IsRevoked(ctx, claims.ID) {
		return nil, ErrTokenRevoked
	}
	return &AccessClaims{
		UserID:    claims.UserID,
		Role:      role,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// IsRevoked checks the Redis blacklist, or the revoked_tokens table when
// Redis is not configured. Store outages do not fail authentication.
func IsRevoked(ctx context.Context, jti string) bool {
	if RedisClient != nil {
		res, err := RedisClient.Get(ctx, "jwt:blacklist:"+jti).Result()
		return err == nil && res == "1"
	}
	if database.DB == nil {
		return false
	}
	var n int64
	if err := database.DB.WithContext(ctx).Model(&models.RevokedToken{}).Where("id = ?", jti).Count(&n).Error; err != nil {
		slog.Warn("[auth] revocation lookup failed", "error", err)
		return false
	}
	return n > 0
}

// RevokeJTI blacklists an access token id for ttl.
func RevokeJTI(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("empty jti")
	}
	if RedisClient != nil {
		if ttl <= 0 {
			ttl = time.Minute
		}
		return RedisClient.Set(ctx, "jwt:blacklist:"+jti, "1", ttl).Err()
	}
	if database.DB == nil {
		return errors.New("no revocation store configured")
	}
	return database.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoUpdates: clause.AssignmentColumns([]string{"revoked_at"})}).
		Create(&models.RevokedToken{ID: jti, RevokedAt: time.Now()}).Error
}

// GenerateRefreshToken stores a new refresh token for userID and returns its
// opaque id.
func GenerateRefreshToken(db *gorm.DB, userID uint) (string, error) {
	rt := models.NewRefreshToken(userID, RefreshTokenDays)
	if err := db.Create(rt).Error; err != nil {
		return "", err
	}
	return rt.ID, nil
}

// ValidateRefreshToken checks that id exists, is not revoked and has not expired.
func ValidateRefreshToken(db *gorm.DB, id string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := db.Where("id = ?", id).First(&rt).Error; err != nil {
		return nil, err
	}
	if rt.Revoked {
		return nil, ErrTokenRevoked
	}
	if time.Now().After(rt.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return &rt, nil
}

// Get userID from context
func GetUserID(r *http.Request) (uint, bool) {
	id, ok := r.Context().Value(UserIDKey).(uint)
	return id, ok && id != 0
}

func GetUserRole(r *http.Request) models.Role {
	role, _ := r.Context().Value(UserRoleKey).(models.Role)
	return role
}

// GetClaims returns the verified access token of the request, if any.
func GetClaims(r *http.Request) (*AccessClaims, bool) {
	c, ok := r.Context().Value(TokenClaimsKey).(*AccessClaims)
	return c, ok
}

// ActorFrom builds the policy actor of the request. Requests without a
// verified token are guests.
func ActorFrom(r *http.Request) policy.Actor {
	id, ok := GetUserID(r)
	if !ok {
		return policy.Guest
	}
	return policy.Actor{ID: id, Role: GetUserRole(r)}
}

func RequestID(r *http.Request) string {
	id, _ := r.Context().Value(RequestIDKey).(string)
	return id
}
