package api

import (
	"net/http"
	"testing"

	"github.com/cozy-creator/brandgen/internal/result"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		res    *result.Result
		status int
	}{
		{result.Success(nil), http.StatusOK},
		{result.FromTemplate(result.CodeJobNotFound), http.StatusNotFound},
		{result.FromTemplate(result.CodeValidationError), http.StatusBadRequest},
		{result.FromTemplate(result.CodeJobAlreadyDone), http.StatusConflict},
		{result.FromTemplate(result.CodeInsufficientImages), http.StatusConflict},
		{result.FromTemplate(result.CodeTokenExpired), http.StatusUnauthorized},
		{result.FromTemplate(result.CodeRateLimited), http.StatusTooManyRequests},
		{result.FromTemplate(result.CodeGenerationFailed), http.StatusBadGateway},
		{result.FromTemplate(result.CodeServiceUnavail), http.StatusServiceUnavailable},
		{result.FromTemplate(result.CodeInternalError), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusFor(tt.res), "code %q", tt.res.Code())
	}
}

func TestParamConvert(t *testing.T) {
	assert.Equal(t, 3, Query("limit", "limit", IntParam).convert("3"))
	assert.Equal(t, "three", Query("limit", "limit", IntParam).convert("three"))
	assert.Equal(t, true, Query("force", "force", BoolParam).convert("true"))
	assert.Equal(t, "0042", Path("id", "job_id", StringParam).convert("0042"))
}

func TestWantsMsgPack(t *testing.T) {
	assert.True(t, wantsMsgPack("application/msgpack"))
	assert.True(t, wantsMsgPack("application/x-msgpack, application/json;q=0.5"))
	assert.False(t, wantsMsgPack("application/json"))
	assert.False(t, wantsMsgPack(""))
}
