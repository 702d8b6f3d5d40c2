package http

import (
	"net/http"
	"strconv"

	"github.com/jmehdipour/churn-predictor/internal/repository"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// labelCountsHandler reports how many customers of the published snapshot churned.
func labelCountsHandler(chRepo repository.CHFeaturesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		if chRepo == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "analytics store not configured"})
		}

		counts, err := chRepo.CountByLabel(c.Request().Context())
		if err != nil {
			log.Errorf("count by label failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		out := make(map[string]int64, 2)
		var total int64
		for label, n := range counts {
			out[strconv.Itoa(label)] = n
			total += n
		}
		return c.JSON(http.StatusOK, map[string]any{
			"total":  total,
			"labels": out,
		})
	}
}
