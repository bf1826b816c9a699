package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/dexlens/dexlens/domain"
	"github.com/dexlens/dexlens/domain/mvc"
)

// RouterHandler serves the routing endpoints.
type RouterHandler struct {
	RUsecase mvc.RouterUsecase
}

// NewRouterHandler registers the routing routes.
func NewRouterHandler(e *echo.Echo, router mvc.RouterUsecase) {
	handler := &RouterHandler{RUsecase: router}

	e.POST("/route", handler.RoutePost)
	e.GET("/route/:tokenIn/:tokenOut", handler.RouteGet)
	e.GET("/router/graph/:tokenIn/:tokenOut", handler.Graph)
}

// routeRequest is the POST /route body.
type routeRequest struct {
	TokenIn  string  `json:"tokenIn"`
	TokenOut string  `json:"tokenOut"`
	AmountIn float64 `json:"amountIn"`
}

// RoutePost plans a route from a JSON body.
func (h *RouterHandler) RoutePost(c echo.Context) error {
	var req routeRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, domain.ErrBadParamInput)
	}
	return h.respondRoute(c, req.TokenIn, req.TokenOut, req.AmountIn)
}

// RouteGet plans a route from path params, amount via query.
func (h *RouterHandler) RouteGet(c echo.Context) error {
	amount := 1.0
	if raw := c.QueryParam("amount"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			return respondError(c, domain.InvalidAmountError{Input: raw})
		}
		amount = parsed
	}
	return h.respondRoute(c, c.Param("tokenIn"), c.Param("tokenOut"), amount)
}

func (h *RouterHandler) respondRoute(c echo.Context, tokenIn, tokenOut string, amountIn float64) error {
	plan, err := h.RUsecase.FindBestRoute(c.Request().Context(), tokenIn, tokenOut, amountIn)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "route": plan})
}

// Graph renders the pool topology between two tokens in DOT format.
func (h *RouterHandler) Graph(c echo.Context) error {
	dotSource, err := h.RUsecase.GraphDOT(c.Request().Context(), c.Param("tokenIn"), c.Param("tokenOut"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Blob(http.StatusOK, "text/vnd.graphviz", []byte(dotSource))
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
