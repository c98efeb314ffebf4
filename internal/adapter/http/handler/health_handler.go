package handler

import (
	"net/http"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// HealthCheck returns a handler that pings every dependency and reports 503
// when any is down.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := dto.HealthResponse{
			Status: "ok",
			Checks: make(map[string]string, len(checkers)),
		}
		code := http.StatusOK
		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				resp.Checks[checker.Name()] = "down: " + err.Error()
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[checker.Name()] = "up"
		}
		c.JSON(code, resp)
	}
}
