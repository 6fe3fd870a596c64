package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Created writes a 201 response carrying the new resource.
func Created(c *gin.Context, resource any) {
	JSON(c, http.StatusCreated, resource)
}

// NoContent ends a successful delete or reset.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
