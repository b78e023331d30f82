package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakery/orderdesk/internal/interfaces/http/dto"
)

func validationRouter() *gin.Engine {
	SetupValidator()
	r := gin.New()
	r.POST("/assign", func(c *gin.Context) {
		var req dto.AssignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	r.POST("/status", func(c *gin.Context) {
		var req dto.ItemStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func TestHandleValidationError(t *testing.T) {
	r := validationRouter()

	t.Run("field errors use json names", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/assign", strings.NewReader(`{"items":[]}`)))

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "items", resp.Error.Details[0].Field)
		assert.Equal(t, "min", resp.Error.Details[0].Code)
		assert.Equal(t, "Must be at least 1 item(s)", resp.Error.Details[0].Message)
	})

	t.Run("nested fields keep their path", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/assign",
			strings.NewReader(`{"items":[{"itemId":"i-1"}]}`)))

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), `"field":"items[0].chefId"`)
	})

	t.Run("oneof lists the choices", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/status", strings.NewReader(`{"status":"pending"}`)))

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Must be one of: in_progress, completed")
	})

	t.Run("malformed json", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/assign", strings.NewReader(`{"items":`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidJSON)
	})
}
