// Package transport предоставляет REST адаптер пайплайна заказов.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/domain"
	"github.com/akriventsev/fulfillment/internal/fetch"
	"github.com/akriventsev/fulfillment/internal/observability"
	"github.com/akriventsev/fulfillment/internal/order"
	"github.com/akriventsev/fulfillment/internal/payment"
)

// RESTConfig конфигурация REST адаптера
type RESTConfig struct {
	Addr          string
	BasePath      string
	ServiceName   string
	EnableMetrics bool
	EnableTracing bool
}

// DefaultRESTConfig возвращает конфигурацию REST по умолчанию
func DefaultRESTConfig() RESTConfig {
	return RESTConfig{
		Addr:          ":8080",
		BasePath:      "/api/v1",
		EnableMetrics: true,
	}
}

// RESTAdapter тонкий HTTP слой: биндинг, вызов сервиса, маппинг
// категорий ошибок в статусы. Бизнес-логики не содержит.
type RESTAdapter struct {
	config       RESTConfig
	router       *gin.Engine
	orchestrator *order.Orchestrator
	summaries    *payment.SummaryService
	server       *http.Server
	running      bool
}

// NewRESTAdapter создает REST адаптер
func NewRESTAdapter(config RESTConfig, orchestrator *order.Orchestrator, summaries *payment.SummaryService) *RESTAdapter {
	adapter := &RESTAdapter{
		config:       config,
		router:       gin.Default(),
		orchestrator: orchestrator,
		summaries:    summaries,
	}

	if config.EnableTracing {
		adapter.router.Use(observability.HTTPTracingMiddleware(config.ServiceName))
	}
	if config.EnableMetrics {
		adapter.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	group := adapter.router.Group(config.BasePath)
	if adapter.orchestrator != nil {
		group.POST("/orders", adapter.createOrder)
	}
	if adapter.summaries != nil {
		group.GET("/payments/summary", adapter.paymentSummary)
	}

	adapter.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return adapter
}

// Start запускает HTTP сервер (реализация core.Lifecycle)
func (r *RESTAdapter) Start(ctx context.Context) error {
	r.running = true

	r.server = &http.Server{
		Addr:    r.config.Addr,
		Handler: r.router,
	}

	go func() {
		if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			core.DefaultLogger().Log("http server stopped: %v", err)
		}
	}()

	return nil
}

// Stop останавливает HTTP сервер (реализация core.Lifecycle)
func (r *RESTAdapter) Stop(ctx context.Context) error {
	r.running = false

	if r.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return r.server.Shutdown(shutdownCtx)
	}

	return nil
}

// IsRunning проверяет, запущен ли адаптер (реализация core.Lifecycle)
func (r *RESTAdapter) IsRunning() bool {
	return r.running
}

// Name возвращает имя компонента (реализация core.Component)
func (r *RESTAdapter) Name() string {
	return "rest-adapter"
}

// Type возвращает тип компонента (реализация core.Component)
func (r *RESTAdapter) Type() core.ComponentType {
	return core.ComponentTypeTransport
}

// Router возвращает gin router (для тестов)
func (r *RESTAdapter) Router() *gin.Engine {
	return r.router
}

type createOrderRequest struct {
	CustomerID    string             `json:"customer_id" binding:"required"`
	PaymentMethod string             `json:"payment_method" binding:"required"`
	Items         []purchaseItemBody `json:"items" binding:"required"`
}

type purchaseItemBody struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type createOrderResponse struct {
	OrderID   int64  `json:"order_id"`
	Status    string `json:"status"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	PaymentID string `json:"payment_id,omitempty"`
}

func (r *RESTAdapter) createOrder(c *gin.Context) {
	var body createOrderRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	method, err := domain.ToPaymentMethod(body.PaymentMethod)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]fetch.PurchaseItem, 0, len(body.Items))
	for _, item := range body.Items {
		items = append(items, fetch.PurchaseItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	result, err := r.orchestrator.CreateOrder(c.Request.Context(), order.CreateOrderRequest{
		CustomerID:    body.CustomerID,
		Items:         items,
		PaymentMethod: method,
	})
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, createOrderResponse{
		OrderID:   result.Order.ID,
		Status:    string(result.Order.Status),
		Amount:    result.Order.Amount.FixedString(),
		Currency:  result.Order.Amount.Currency.String(),
		PaymentID: result.PaymentID,
	})
}

func (r *RESTAdapter) paymentSummary(c *gin.Context) {
	from, err := parseTimeParam(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid from: %v", err)})
		return
	}
	to, err := parseTimeParam(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid to: %v", err)})
		return
	}

	page, err := parseIntParam(c.DefaultQuery("page", "1"), 1)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
		return
	}
	size, err := parseIntParam(c.DefaultQuery("size", "20"), 20)
	if err != nil || size < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "size must be a positive integer"})
		return
	}

	result, err := r.summaries.Summarize(c.Request.Context(), from, to, page, size)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	type summaryBody struct {
		PaymentMethod string `json:"payment_method"`
		Count         int64  `json:"count"`
		TotalAmount   string `json:"total_amount"`
		Currency      string `json:"currency"`
	}

	content := make([]summaryBody, 0, len(result.Content))
	for _, summary := range result.Content {
		content = append(content, summaryBody{
			PaymentMethod: string(summary.PaymentMethod),
			Count:         summary.Count,
			TotalAmount:   summary.TotalAmount.FixedString(),
			Currency:      summary.TotalAmount.Currency.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"content":        content,
		"page":           result.Number,
		"size":           result.Size,
		"total_elements": result.TotalElements,
		"total_pages":    result.TotalPages,
	})
}

// statusForError переводит категорию ошибки в HTTP статус
func statusForError(err error) int {
	var unavailable *fetch.ProductUnavailableError
	if errors.As(err, &unavailable) {
		return http.StatusConflict
	}

	switch core.KindOf(err) {
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindConflict:
		return http.StatusConflict
	case core.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func parseTimeParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseIntParam(value string, defaultValue int) (int, error) {
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}
