package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/forgecomply/forgecomply360/internal/domain"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tm := NewTokenManager("s3cret", 30)
	tm.now = func() time.Time { return now }

	user := &domain.User{ID: "u-1", OrgID: "org-1", Role: domain.RoleManager}
	token, expiresAt, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute), expiresAt)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID())
	assert.Equal(t, "org-1", claims.OrgID)
	assert.Equal(t, domain.RoleManager, claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, 30*time.Minute, claims.Remaining(now))

	tm.now = func() time.Time { return now.Add(31 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseTokenRejectsForeignTokens(t *testing.T) {
	tm := NewTokenManager("s3cret", 30)
	user := &domain.User{ID: "u-1", OrgID: "org-1", Role: domain.RoleViewer}

	other, _, err := NewTokenManager("other", 30).GenerateToken(user)
	require.NoError(t, err)
	_, err = tm.ParseToken(other)
	assert.Error(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		OrgID:            "org-1",
		Role:             domain.RoleOwner,
		RegisteredClaims: jwt.RegisteredClaims{ID: "j", Subject: "u-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.ParseToken(unsigned)
	assert.Error(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		OrgID:            "org-1",
		Role:             domain.RoleOwner,
		RegisteredClaims: jwt.RegisteredClaims{ID: "j", Subject: "u-1"},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(noExpiry)
	assert.Error(t, err)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		failing  []string
	}{
		{"correct-horse-battery-9", nil},
		{"short1", []string{"length"}},
		{"no-digits-in-this-one", []string{"digit"}},
		{"123456789012345", []string{"letter"}},
		{"", []string{"length", "letter", "digit"}},
	}
	for _, tc := range tests {
		err := ValidatePassword(tc.password)
		if tc.failing == nil {
			assert.NoError(t, err, tc.password)
			continue
		}
		domainErr := apperrors.ToDomainError(err)
		require.NotNil(t, domainErr, tc.password)
		assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
		problems := domainErr.Details["password"].(map[string]any)
		assert.Len(t, problems, len(tc.failing), tc.password)
		for _, key := range tc.failing {
			assert.Contains(t, problems, key)
		}
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery-9", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct-horse-battery-9"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}

func TestLoginThrottleRefills(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	th := NewLoginThrottle(3)
	th.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, th.Allow("10.0.0.1"))
	}
	assert.False(t, th.Allow("10.0.0.1"))
	assert.True(t, th.Allow("10.0.0.2"), "limits are per key")

	now = now.Add(20 * time.Second)
	assert.True(t, th.Allow("10.0.0.1"))
	assert.False(t, th.Allow("10.0.0.1"))

	now = now.Add(time.Hour)
	th.Allow("10.0.0.3")
	th.mu.Lock()
	_, kept := th.limiters["10.0.0.1"]
	th.mu.Unlock()
	assert.False(t, kept, "idle limiters are evicted")
}

func TestLoginThrottleDisabled(t *testing.T) {
	th := NewLoginThrottle(0)
	for i := 0; i < 100; i++ {
		require.True(t, th.Allow("k"))
	}
	var nilThrottle *LoginThrottle
	assert.True(t, nilThrottle.Allow("k"))
}

func TestRequireRole(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Use(func(c *fiber.Ctx) error {
		if role := c.Get("X-Test-Role"); role != "" {
			c.Locals(principalKey, &Principal{User: &domain.User{ID: "u", Role: domain.Role(role)}})
		}
		return c.Next()
	})
	app.Get("/admin", RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	tests := []struct {
		role   string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"viewer", http.StatusForbidden},
		{"manager", http.StatusForbidden},
		{"admin", http.StatusOK},
		{"owner", http.StatusOK},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tc.role != "" {
			req.Header.Set("X-Test-Role", tc.role)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, tc.role)
	}
}
