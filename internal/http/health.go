package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/database"
)

// HealthResponse is the /health payload. Catalog is omitted when the
// counters could not be read.
type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
	Catalog *CatalogHealth    `json:"catalog,omitempty"`
}

type CatalogHealth struct {
	Books     int64 `json:"books"`
	Copies    int64 `json:"copies"`
	Available int64 `json:"available"`
}

type HealthController struct {
	db      *database.Database
	version string
	now     func() time.Time
}

func NewHealthController(db *database.Database, version string, now func() time.Time) *HealthController {
	if now == nil {
		now = time.Now
	}
	return &HealthController{db: db, version: version, now: now}
}

// Status reports database reachability and the catalog size. Any failed
// check answers 503.
func (h *HealthController) Status(c *gin.Context) {
	resp := HealthResponse{
		Status:  "healthy",
		Time:    h.now().Format(time.RFC3339),
		Version: h.version,
		Checks:  map[string]string{},
	}

	if h.db == nil {
		resp.Checks["database"] = "not configured"
	} else if err := h.db.Ping(); err != nil {
		resp.Checks["database"] = "error: " + err.Error()
		resp.Status = "unhealthy"
	} else {
		resp.Checks["database"] = "ok"
		if stats, err := h.db.Stats(); err != nil {
			resp.Checks["catalog"] = "error: " + err.Error()
			resp.Status = "unhealthy"
		} else {
			resp.Checks["catalog"] = "ok"
			resp.Catalog = &CatalogHealth{
				Books:     stats.Books,
				Copies:    stats.Instances,
				Available: stats.InstancesAvailable,
			}
		}
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.IndentedJSON(code, resp)
}

// Ping is the liveness probe.
func (h *HealthController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
