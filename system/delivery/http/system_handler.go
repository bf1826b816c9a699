package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/dexlens/dexlens/chain"
	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/cache"
	"github.com/dexlens/dexlens/domain/mvc"
)

// SystemHandler serves health and admin endpoints.
type SystemHandler struct {
	gateway *chain.Gateway
	cache   *cache.Cache
	oracle  mvc.PriceOracle
	started time.Time
}

// NewSystemHandler registers the system routes.
func NewSystemHandler(e *echo.Echo, gateway *chain.Gateway, c *cache.Cache, oracle mvc.PriceOracle) {
	handler := &SystemHandler{
		gateway: gateway,
		cache:   c,
		oracle:  oracle,
		started: time.Now(),
	}

	e.GET("/health", handler.Health)
	e.GET("/cache/stats", handler.CacheStats)
	e.POST("/cache/clear", handler.CacheClear)
	e.GET("/prices", handler.Prices)
	e.POST("/prices", handler.SetPrice)
}

// Health reports process liveness and oracle freshness.
func (h *SystemHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"status":        "ok",
		"uptimeSeconds": int64(time.Since(h.started).Seconds()),
		"pricesStale":   h.oracle.AreStale(),
		"endpoints":     h.gateway.EndpointSummaries(),
	})
}

// CacheStats returns the store sizes and held locks.
func (h *SystemHandler) CacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "stats": h.cache.GetStats()})
}

// clearRequest is the POST /cache/clear body.
type clearRequest struct {
	Type string `json:"type"`
}

// CacheClear drops entries by store type: all, pools or prices.
func (h *SystemHandler) CacheClear(c echo.Context) error {
	var req clearRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, domain.ErrBadParamInput)
	}

	switch req.Type {
	case "all":
		h.cache.Pools().Clear()
		h.cache.Prices().Clear()
		h.cache.Tokens().Clear()
	case "pools":
		h.cache.Pools().Clear()
	case "prices":
		h.cache.Prices().Clear()
	default:
		return respondError(c, domain.ErrBadParamInput)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "cleared": req.Type})
}

// Prices returns the oracle snapshot.
func (h *SystemHandler) Prices(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"stale":   h.oracle.AreStale(),
		"prices":  h.oracle.Snapshot(),
	})
}

// setPriceRequest is the POST /prices body.
type setPriceRequest struct {
	Token string  `json:"token"`
	Price float64 `json:"price"`
}

// SetPrice overrides one token's USD price.
func (h *SystemHandler) SetPrice(c echo.Context) error {
	var req setPriceRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, domain.ErrBadParamInput)
	}
	if req.Price <= 0 {
		return respondError(c, domain.InvalidAmountError{Input: "price"})
	}

	addr, err := domain.ParseAddress(req.Token)
	if err != nil {
		return respondError(c, err)
	}

	h.oracle.SetPriceUSD(domain.LowerAddress(addr), req.Price)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "token": req.Token, "price": req.Price})
}

func respondError(c echo.Context, err error) error {
	return c.JSON(getStatusCode(err), domain.ResponseError{Success: false, Message: err.Error()})
}

func getStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	logrus.Error(err)
	return domain.GetStatusCode(err)
}
