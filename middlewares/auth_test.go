package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-chat/models"
	"clinic-chat/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthEngine(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", TokenAuthMiddleware(secret), func(c *gin.Context) {
		p, ok := CurrentParticipant(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok, "id": p.ID, "role": p.Role})
	})
	return r
}

func get(r *gin.Engine, target, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTokenAuthDisabledWithoutSecret(t *testing.T) {
	w := get(newAuthEngine(""), "/me", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestTokenAuthStoresParticipant(t *testing.T) {
	token, err := services.GenerateToken("secret", models.Participant{ID: "d1", Role: models.RoleDoctor}, time.Hour)
	require.NoError(t, err)
	r := newAuthEngine("secret")

	w := get(r, "/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":true,"id":"d1","role":"Doctor"}`, w.Body.String())

	w = get(r, "/me?token="+token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTokenAuthRejects(t *testing.T) {
	r := newAuthEngine("secret")
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer nope").Code)

	w := get(r, "/me", "Bearer nope")
	assert.Contains(t, w.Body.String(), `"success":false`)
}
