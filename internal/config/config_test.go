package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designengineer/course-api/internal/model"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("COURSE_TEST_MODE", "")
	t.Setenv("COURSE_TEST_ACCESS", "")
	t.Setenv("COURSE_TEST_BYPASS_USER_IDS", "")
	t.Setenv("COURSE_PREVIEW_TOKEN", "")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ADMIN_USER_IDS", "user_a, user_b,,")
	t.Setenv("LEMON_PRODUCT_DESIGN_WEB", "1001")
	t.Setenv("LEMON_PRODUCT_FULL", " 1009 ")

	cfg := Load()

	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 7, cfg.TemporaryAccessDays)
	assert.Equal(t, 30*time.Second, cfg.EnrollmentCacheTTL)
	assert.Equal(t, "@hourly", cfg.CleanupSchedule)
	assert.Equal(t, []string{"user_a", "user_b"}, cfg.AdminUserIDs)
	assert.True(t, cfg.IsAdmin("user_b"))
	assert.False(t, cfg.IsAdmin(""))
	assert.Equal(t, "1001", cfg.ProductVariants[model.AccessDesignWeb])
	assert.Equal(t, "1009", cfg.ProductVariants[model.AccessFull])
	assert.Nil(t, cfg.TestAccess)
	assert.Empty(t, cfg.PreviewToken)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_PreviewToken(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("COURSE_PREVIEW_TOKEN", "  friends-of-dxe \n")

	cfg := Load()
	assert.Equal(t, "friends-of-dxe", cfg.PreviewToken)
}

func TestLoad_TestAccess(t *testing.T) {
	t.Run("defaults to full", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("COURSE_TEST_MODE", "true")
		cfg := Load()
		require.NotNil(t, cfg.TestAccess)
		assert.Equal(t, model.AccessFull, cfg.TestAccess.Level)
	})

	t.Run("explicit level and bypass list", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("COURSE_TEST_MODE", "1")
		t.Setenv("COURSE_TEST_ACCESS", "design-ios")
		t.Setenv("COURSE_TEST_BYPASS_USER_IDS", "owner")
		cfg := Load()
		require.NotNil(t, cfg.TestAccess)
		assert.Equal(t, model.AccessDesignIOS, cfg.TestAccess.Level)
		assert.True(t, cfg.TestAccess.Bypassed("owner"))
		assert.False(t, cfg.TestAccess.Bypassed("someone"))
	})

	t.Run("never in production", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("APP_ENV", "production")
		t.Setenv("STORE_DRIVER", "mysql")
		t.Setenv("DB_USER", "u")
		t.Setenv("DB_HOST", "h")
		t.Setenv("DB_PORT", "3306")
		t.Setenv("DB_NAME", "course")
		t.Setenv("COURSE_TEST_MODE", "true")
		cfg := Load()
		assert.True(t, cfg.IsProduction())
		assert.Nil(t, cfg.TestAccess)
	})
}

func TestTestAccess_NilIsBypassed(t *testing.T) {
	var ta *TestAccess
	assert.True(t, ta.Bypassed("anyone"))
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
}
