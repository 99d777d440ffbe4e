package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/verdano/oms/internal/service/models/order"
	"github.com/verdano/oms/internal/service/services/ordersvc"
	addnotes "github.com/verdano/oms/internal/transport/http/add_notes"
	cancelorder "github.com/verdano/oms/internal/transport/http/cancel_order"
	getorder "github.com/verdano/oms/internal/transport/http/get_order"
	listorders "github.com/verdano/oms/internal/transport/http/list_orders"
	orderstats "github.com/verdano/oms/internal/transport/http/order_stats"
	paymentwebhook "github.com/verdano/oms/internal/transport/http/payment_webhook"
	pendingorders "github.com/verdano/oms/internal/transport/http/pending_orders"
	"github.com/verdano/oms/internal/transport/http/respond"
	searchorders "github.com/verdano/oms/internal/transport/http/search_orders"
	updatestatus "github.com/verdano/oms/internal/transport/http/update_status"
	"github.com/verdano/oms/pkg/http/middleware/trace"
	"github.com/verdano/oms/pkg/logger"
)

type service interface {
	CreateOrder(ctx context.Context, params ordersvc.CreateOrderParams) (*order.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus order.Status, opts ordersvc.UpdateStatusOptions) (*order.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID, reason, actorID string) (*order.Order, error)
	AddInternalNotes(ctx context.Context, id uuid.UUID, notes string) (*order.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error)
	GetPendingOrders(ctx context.Context) ([]order.Order, error)
	Search(ctx context.Context, query string) ([]order.Order, error)
	List(ctx context.Context, filter order.Filter) ([]order.Order, int64, error)
	GetStats(ctx context.Context, from, to *time.Time) (*order.Stats, error)
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	service service
}

func NewHTTPTransport(service service) *HTTPTransport {
	router := newRouter()
	server := newServer(router)

	return &HTTPTransport{
		server:  server,
		router:  router,
		service: service,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Post("/webhooks/payment", h.paymentWebhook)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Get("/pending", h.pendingOrders)
			r.Get("/search", h.searchOrders)
			r.Get("/stats", h.orderStats)
			r.Get("/number/{orderNumber}", h.getOrderByNumber)
			r.Get("/{id}", h.getOrder)

			// Mutations require audit attribution from the auth collaborator.
			r.Group(func(r chi.Router) {
				r.Use(requireActor)
				r.Patch("/{id}/status", h.updateStatus)
				r.Patch("/{id}/notes", h.addNotes)
				r.Post("/{id}/cancel", h.cancelOrder)
			})
		})
	})
}

// requireActor rejects administrative mutations that arrive without the
// actor id resolved by the upstream auth collaborator.
func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Actor-ID") == "" {
			respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "actor id is required"})

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.service)
}

func (h *HTTPTransport) pendingOrders(w http.ResponseWriter, r *http.Request) {
	pendingorders.ListPending(w, r, h.service)
}

func (h *HTTPTransport) searchOrders(w http.ResponseWriter, r *http.Request) {
	searchorders.Search(w, r, h.service)
}

func (h *HTTPTransport) orderStats(w http.ResponseWriter, r *http.Request) {
	orderstats.Stats(w, r, h.service)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetByID(w, r, h.service)
}

func (h *HTTPTransport) getOrderByNumber(w http.ResponseWriter, r *http.Request) {
	getorder.GetByOrderNumber(w, r, h.service)
}

func (h *HTTPTransport) updateStatus(w http.ResponseWriter, r *http.Request) {
	updatestatus.UpdateStatus(w, r, h.service)
}

func (h *HTTPTransport) addNotes(w http.ResponseWriter, r *http.Request) {
	addnotes.AddNotes(w, r, h.service)
}

func (h *HTTPTransport) cancelOrder(w http.ResponseWriter, r *http.Request) {
	cancelorder.Cancel(w, r, h.service)
}

func (h *HTTPTransport) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	paymentwebhook.HandlePaymentCompleted(w, r, h.service)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
