package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/AlexZinkM/dca-vault/docs" // swagger docs
	"github.com/AlexZinkM/dca-vault/internal/handler"
	"github.com/AlexZinkM/dca-vault/internal/observability"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// Options configures the router.
type Options struct {
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer // served on /metrics when set
	Faucet   bool                // serve POST /dev/faucet
}

// SetupRouter sets up router with handlers
func SetupRouter(vaultHandler *handler.VaultHandler, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	route := func(pattern string, h http.HandlerFunc) (string, http.Handler) {
		return pattern, instrument(pattern, h, log, opts.Metrics)
	}

	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	if opts.Gatherer != nil {
		mux.Handle("/metrics", observability.Handler(opts.Gatherer))
	}

	// Vault endpoints
	mux.Handle(route("/vault", vaultHandler.Get))
	mux.Handle(route("/vault/initialize", vaultHandler.Initialize))
	mux.Handle(route("/vault/swap", vaultHandler.Swap))
	mux.Handle(route("/vault/withdraw", vaultHandler.Withdraw))
	mux.Handle(route("/vault/events", vaultHandler.Events))
	mux.Handle(route("/vault/qr", vaultHandler.QR))
	mux.Handle(route("/holding", vaultHandler.Holding))

	if opts.Faucet {
		mux.Handle(route("/dev/faucet", vaultHandler.Faucet))
	}

	return mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func instrument(route string, next http.Handler, log *zap.Logger, metrics *observability.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		took := time.Since(start)
		if metrics != nil {
			metrics.RecordHTTPRequest(route, strconv.Itoa(rec.status), took.Seconds())
		}
		log.Info("http request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("took", took),
		)
	})
}
