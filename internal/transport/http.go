package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kasuri-atelier/storefront/internal/handler"
	"github.com/kasuri-atelier/storefront/internal/metrics"
	"github.com/kasuri-atelier/storefront/internal/order"
	"github.com/kasuri-atelier/storefront/internal/payment"
)

// Deps carries everything the router wires together.
type Deps struct {
	OrderService      order.Service
	SignatureVerifier *payment.SignatureVerifier
	Reconciler        handler.Reconciler
	Minter            handler.Minter
	Resolver          handler.Resolver
	Resetter          handler.Resetter
	Metrics           *metrics.Metrics
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	orders := handler.NewOrderHandler(d.OrderService)
	payments := handler.NewPaymentHandler(d.SignatureVerifier, d.Reconciler)
	certificates := handler.NewCertificateHandler(d.Minter, d.Resolver)
	admin := handler.NewAdminHandler(d.Resetter)

	r.Route("/api", func(r chi.Router) {
		r.Post("/orders", orders.CreateOrder)
		r.Get("/orders/{id}/status", orders.GetStatus)
		r.Post("/orders/{id}/certificate/mint", certificates.Mint)
		r.Post("/payments/notifications", payments.Notification)
		r.Get("/certificates/{value}", certificates.Verify)
		r.Post("/admin/orders/{id}/certificate/reset", admin.ResetCertificate)
	})

	return r
}
