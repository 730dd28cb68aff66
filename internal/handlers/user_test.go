package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/AyanAhmedKhan/careerly-backend/internal/database"
	"github.com/AyanAhmedKhan/careerly-backend/internal/middleware"
	"github.com/AyanAhmedKhan/careerly-backend/internal/models"
)

func TestGetContactsMutualOnly(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createUser(t, "ct_me")
	createUser(t, "ct_mutual")
	createUser(t, "ct_oneway")

	// Mutual pair of edges with ct_mutual, a single edge toward ct_oneway.
	database.DB.Create(&models.Connection{FollowerID: "ct_me", FolloweeID: "ct_mutual"})
	database.DB.Create(&models.Connection{FollowerID: "ct_mutual", FolloweeID: "ct_me"})
	database.DB.Create(&models.Connection{FollowerID: "ct_me", FolloweeID: "ct_oneway"})

	w := httptest.NewRecorder()
	c, _ := authedContext(w, "ct_me", "GET", "/api/users/contacts", nil)
	GetContacts(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Contacts []models.PublicProfile `json:"contacts"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)

	if assert.Len(t, response.Contacts, 1) {
		assert.Equal(t, "ct_mutual", response.Contacts[0].ID)
	}
}

func TestGetUserPublicProfile(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	createUser(t, "gp_alice")

	w := httptest.NewRecorder()
	c, _ := authedContext(w, "gp_alice", "GET", "/api/users/gp_alice", nil)
	c.Params = gin.Params{{Key: "id", Value: "gp_alice"}}
	GetUser(c)

	assert.Equal(t, http.StatusOK, w.Code)
	// Profile payload carries no credential or email fields.
	assert.NotContains(t, w.Body.String(), "email")
	assert.NotContains(t, w.Body.String(), "password")
}

func TestGetUserUnknownIDReturns404(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.ErrorHandlerMiddleware())
	r.GET("/api/users/:id", GetUser)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/users/nobody", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "User not found")
}
