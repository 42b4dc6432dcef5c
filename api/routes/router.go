package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/givefi/givefi-backend/api/controllers"
	"github.com/givefi/givefi-backend/api/middleware"
	"github.com/givefi/givefi-backend/internal/causes"
	"github.com/givefi/givefi-backend/internal/disbursements"
	"github.com/givefi/givefi-backend/internal/donations"
	"github.com/givefi/givefi-backend/internal/trace"
	"github.com/givefi/givefi-backend/pkg/config"
	"github.com/givefi/givefi-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Tracer is the traversal surface the trace endpoint consumes.
type Tracer interface {
	Trace(ctx context.Context, input trace.TraceInput) (*trace.TraceResult, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP pinger,
	redisClient pinger,
	ledgerClient pinger,
	causeService causes.Service,
	donationService donations.Service,
	disbursementService disbursements.Service,
	tracer Tracer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient, ledgerClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/causes", func(r chi.Router) {
			r.Get("/", controllers.CauseList(causeService, logg))
			r.Post("/", controllers.CauseCreate(causeService, logg))
			r.Get("/{causeId}", controllers.CauseGet(causeService, logg))
			r.Get("/{causeId}/donations", controllers.DonationListByCause(donationService, logg))
			r.Get("/{causeId}/disbursements", controllers.DisbursementListByCause(disbursementService, logg))
		})

		r.Post("/donations", controllers.DonationCreate(donationService, logg))
		r.Get("/donations/{donationId}/disbursements", controllers.DisbursementListByDonation(disbursementService, logg))
		r.Post("/disbursements", controllers.DisbursementAllocate(disbursementService, logg))
		r.Post("/traces", controllers.TraceCreate(tracer, logg))
	})

	return r
}
