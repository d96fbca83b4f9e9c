package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/guttosm/coinpulse/internal/domain/dto"
	"github.com/guttosm/coinpulse/internal/domain/models"
	"github.com/guttosm/coinpulse/internal/middleware"
	"github.com/guttosm/coinpulse/internal/service"
)

// Handler provides HTTP handlers for the ticker endpoints.
//
// Responsibilities:
//   - Validate incoming HTTP query parameters
//   - Delegate to the ticker service
//   - Map service errors to HTTP status codes
//   - Return structured JSON responses
type Handler struct {
	svc service.TickerService
}

// NewHandler constructs a new Handler instance.
//
// Parameters:
//   - svc (service.TickerService): read-through ticker service.
//
// Returns:
//   - *Handler: A handler ready to be registered with the router.
func NewHandler(svc service.TickerService) *Handler {
	registerFormTagNames()
	return &Handler{svc: svc}
}

// listTickersParams binds GET /tickers. Pointers distinguish absent from zero.
type listTickersParams struct {
	Page   *int    `form:"page" binding:"omitempty,min=1"`
	Limit  *int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Sort   string  `form:"sort" binding:"omitempty,oneof=price market_cap rank"`
	Symbol *string `form:"symbol" binding:"omitempty,min=1,max=10"`
}

func (p listTickersParams) query() models.TickerQuery {
	var q models.TickerQuery
	if p.Page != nil {
		q.Page = *p.Page
	}
	if p.Limit != nil {
		q.Limit = *p.Limit
	}
	q.Sort = models.SortField(p.Sort)
	if p.Symbol != nil {
		q.Symbol = *p.Symbol
	}
	return q
}

type trendingParams struct {
	By    string `form:"by" binding:"omitempty,oneof=volume priceChange"`
	Limit *int   `form:"limit" binding:"omitempty,min=1,max=100"`
}

var fieldMessages = map[string]string{
	"page":   "Page must be a positive integer",
	"limit":  "Limit must be 1-100",
	"sort":   "Invalid sort field",
	"symbol": "Symbol must be 1-10 characters",
	"by":     "by must be one of volume, priceChange",
}

// ListTickers handles GET /api/v1/tickers requests.
//
// Query Parameters:
//   - page (int, optional): 1-based page number. Default 1.
//   - limit (int, optional): page size 1-100. Default 20.
//   - sort (string, optional): price | market_cap | rank. Default rank, ascending.
//   - symbol (string, optional): case-insensitive exact symbol match.
//
// Responses:
//   - 200 OK: TickerPage envelope.
//   - 400 Bad Request: one entry per rejected parameter.
//   - 503 Service Unavailable: durable store unreachable.
//
// ListTickers godoc
// @Summary      List tickers
// @Description  Paginated, filtered and sorted ticker listing served from cache or refreshed from upstream
// @Tags         tickers
// @Produce      json
// @Param        page    query     int     false  "Page number (>=1)" example(1)
// @Param        limit   query     int     false  "Page size (1-100)" example(20)
// @Param        sort    query     string  false  "Sort field" Enums(price, market_cap, rank)
// @Param        symbol  query     string  false  "Ticker symbol" example(BTC)
// @Success      200     {object}  models.TickerPage            "Success"
// @Failure      400     {object}  dto.ValidationErrorResponse  "Bad Request"
// @Failure      503     {object}  dto.ErrorResponse            "Store unavailable"
// @Router       /api/v1/tickers [get]
func (h *Handler) ListTickers(c *gin.Context) {
	// ─── Validate query params ────────────────────────────────
	var params listTickersParams
	if errs := bindQuery(c, &params, "page", "limit"); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, dto.ValidationErrorResponse{Errors: errs})
		return
	}

	// ─── Query service (with request context) ─────────────────
	page, err := h.svc.ListTickers(c.Request.Context(), params.query())
	if err != nil {
		h.fail(c, err, "")
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetTicker handles GET /api/v1/tickers/:id requests.
//
// GetTicker godoc
// @Summary      Get ticker by id
// @Description  Returns one ticker from cache or the durable store; never calls upstream
// @Tags         tickers
// @Produce      json
// @Param        id   path      string  true  "Ticker id" example(btc-bitcoin)
// @Success      200  {object}  models.Ticker      "Success"
// @Failure      400  {object}  dto.ValidationErrorResponse  "Bad Request"
// @Failure      404  {object}  dto.ErrorResponse  "Not Found"
// @Failure      503  {object}  dto.ErrorResponse  "Store unavailable"
// @Router       /api/v1/tickers/{id} [get]
func (h *Handler) GetTicker(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, dto.ValidationErrorResponse{Errors: []dto.FieldError{
			{Field: "id", Message: "id param is required"},
		}})
		return
	}

	ticker, err := h.svc.GetTickerByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, id)
		return
	}

	c.JSON(http.StatusOK, ticker)
}

// TrendingTickers handles GET /api/v1/tickers/trending requests.
//
// TrendingTickers godoc
// @Summary      Trending tickers
// @Description  Top tickers by 24h volume or 24h price change, from the durable store
// @Tags         tickers
// @Produce      json
// @Param        by     query     string  false  "Ranking" Enums(volume, priceChange)
// @Param        limit  query     int     false  "Result size (1-100)" example(10)
// @Success      200    {object}  dto.TrendingResponse         "Success"
// @Failure      400    {object}  dto.ValidationErrorResponse  "Bad Request"
// @Failure      503    {object}  dto.ErrorResponse            "Store unavailable"
// @Router       /api/v1/tickers/trending [get]
func (h *Handler) TrendingTickers(c *gin.Context) {
	var params trendingParams
	if errs := bindQuery(c, &params, "limit"); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, dto.ValidationErrorResponse{Errors: errs})
		return
	}

	limit := 0
	if params.Limit != nil {
		limit = *params.Limit
	}
	out, err := h.svc.TrendingTickers(c.Request.Context(), models.TrendingBy(params.By), limit)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	c.JSON(http.StatusOK, dto.TrendingResponse{Data: out})
}

// fail maps service errors to HTTP responses.
func (h *Handler) fail(c *gin.Context, err error, id string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		middleware.AbortWithError(c, http.StatusNotFound, fmt.Sprintf("Ticker with id '%s' not found", id), nil)
	case errors.Is(err, service.ErrInvalidQuery):
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid query", err)
	case errors.Is(err, service.ErrStoreUnavailable):
		middleware.AbortWithError(c, http.StatusServiceUnavailable, "ticker store unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		middleware.AbortWithError(c, http.StatusGatewayTimeout, "request timed out", err)
	default:
		middleware.AbortWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

// bindQuery binds query params into dst and returns one FieldError per
// rejected parameter. intFields are re-checked by name when binding fails
// before validation (non-numeric input).
func bindQuery(c *gin.Context, dst any, intFields ...string) []dto.FieldError {
	err := c.ShouldBindQuery(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]dto.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError(fe.Field(), fe.Tag()))
		}
		return out
	}

	var out []dto.FieldError
	for _, name := range intFields {
		if v, ok := c.GetQuery(name); ok {
			if _, perr := strconv.Atoi(v); perr != nil {
				out = append(out, fieldError(name, "int"))
			}
		}
	}
	if len(out) == 0 {
		out = append(out, dto.FieldError{Field: "query", Message: err.Error()})
	}
	return out
}

func fieldError(field, tag string) dto.FieldError {
	if msg, ok := fieldMessages[field]; ok {
		return dto.FieldError{Field: field, Message: msg}
	}
	return dto.FieldError{Field: field, Message: "failed on " + tag}
}

var tagNamesOnce sync.Once

// registerFormTagNames makes validation errors report query parameter names.
func registerFormTagNames() {
	tagNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
}
