package middleware

import (
	"math"
	"strconv"

	"github.com/cozy-creator/brandgen/internal/api"
	"github.com/cozy-creator/brandgen/internal/app"
	"github.com/cozy-creator/brandgen/internal/commands"
	"github.com/cozy-creator/brandgen/internal/result"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitMiddleware throttles by user id, or by client IP for anonymous
// callers. It must run after AuthenticationMiddleware.
func RateLimitMiddleware(ctx *gin.Context) {
	app := ctx.MustGet("app").(*app.App)
	limiter := app.Limiter()
	if limiter == nil {
		ctx.Next()
		return
	}

	key := "user:" + commands.UserID(ctx.Request.Context())
	if _, ok := ctx.Get(UserIDKey); !ok {
		key = "ip:" + ctx.ClientIP()
	}

	decision, err := limiter.Allow(ctx.Request.Context(), key)
	if err != nil {
		// Fail open.
		app.Logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
		ctx.Next()
		return
	}

	ctx.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	if !decision.Allowed {
		seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
		ctx.Header("Retry-After", strconv.Itoa(seconds))
		api.Abort(ctx, result.FromTemplate(result.CodeRateLimited,
			result.WithDetails(gin.H{"retry_after_seconds": seconds})))
		return
	}

	ctx.Next()
}
