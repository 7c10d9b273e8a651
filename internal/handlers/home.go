package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"facequery-backend/internal/models"
)

// HomeHandler godoc
// @Summary     Landing page
// @Tags        home
// @Produce     json
// @Success     200 {object} models.HomeResponse
// @Router      / [get]
func HomeHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.HomeResponse{
		Service: "facequery-backend",
		Status:  "ok",
	})
}

// HealthHandler godoc
// @Summary     Health check
// @Description Returns the health status of the API
// @Tags        health
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Router      /health [get]
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status: "ok",
	})
}
