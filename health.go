package accounts

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

// HealthResponse is the liveness probe payload. It names the environment so
// an operator can tell at a glance which deployment answered.
type HealthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Storage     string `json:"storage"`
	Time        string `json:"time"`
}

// HealthHandler answers liveness probes. The storage check is best effort:
// a failing ping degrades the payload but still answers 200, since the
// process itself is alive.
func HealthHandler(cfg Config, manager RepositoryManager) router.HandlerFunc {
	return func(c router.Context) error {
		storage := "ok"
		if err := manager.Validate(); err != nil {
			storage = "unavailable"
		}

		return c.JSON(http.StatusOK, HealthResponse{
			Status:      "ok",
			Environment: cfg.GetEnvironment(),
			Storage:     storage,
			Time:        time.Now().UTC().Format(time.RFC3339),
		})
	}
}
