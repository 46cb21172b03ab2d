package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/mediavault-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
)

const testSecret = "test-secret"

func authRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware(logger.NewNop(), testSecret)
	r := gin.New()
	r.GET("/private", am.RequireAuth(), func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.BusinessID.String())
	})
	return r
}

func TestRequireAuthAcceptsBearerToken(t *testing.T) {
	businessID := uuid.New()
	tok, err := SignToken(testSecret, businessID, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	authRouter(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if rec.Body.String() != businessID.String() {
		t.Fatalf("business id: want=%q got=%q", businessID.String(), rec.Body.String())
	}
}

func TestRequireAuthAcceptsQueryToken(t *testing.T) {
	tok, _ := SignToken(testSecret, uuid.New(), "", time.Minute)
	rec := httptest.NewRecorder()
	authRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private?token="+tok, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, rec.Code)
	}
}

func TestRequireAuthRejects(t *testing.T) {
	expired, _ := SignToken(testSecret, uuid.New(), "", -time.Minute)
	wrongKey, _ := SignToken("other", uuid.New(), "", time.Minute)
	noBusiness, _ := SignToken(testSecret, uuid.Nil, "", time.Minute)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"nil business", "Bearer " + noBusiness, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		authRouter(t).ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: want=%d got=%d", tc.name, tc.want, rec.Code)
		}
	}
}
