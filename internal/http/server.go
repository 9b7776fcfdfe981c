package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"spendlog/internal/log"
	"spendlog/internal/middleware/ratelimit"
	"spendlog/internal/middleware/security"
	"spendlog/internal/middleware/trace"
	"spendlog/internal/rpc"
)

// Pinger reports datastore reachability for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr               string
	RateLimitPerMinute int // 0 disables limiting
	CORSAllowedOrigins []string
	// TrustedProxies are CIDRs, beyond loopback and private ranges, whose
	// X-Forwarded-For is believed.
	TrustedProxies []string
	Logger         *log.Logger
}

// Server serves the RPC endpoint plus health checks.
type Server struct {
	http.Server
	router       *rpc.Router
	limiter      *ratelimit.Limiter
	db           Pinger
	logger       *log.Logger
	shutdownOnce sync.Once
}

func NewServer(opts Options, categories rpc.CategoryAPI, expenses rpc.ExpenseAPI, db Pinger) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	router := rpc.NewRouter(logger)
	rpc.Register(router, categories, expenses)

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		router: router,
		db:     db,
		logger: logger.WithComponent(log.ComponentHTTP),
	}

	ips := security.NewClientIPResolver()
	secLogger := logger.WithComponent(log.ComponentSecurity)
	for _, cidr := range opts.TrustedProxies {
		if err := ips.AddTrustedProxy(cidr); err != nil {
			secLogger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
			continue
		}
		secLogger.Info("Trusting proxy", "cidr", cidr)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var rpcHandler http.Handler = router
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
		rlLogger := logger.WithComponent(log.ComponentRateLimit)
		onLimit := func(w http.ResponseWriter, r *http.Request) {
			rlLogger.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, ips.ClientIP(r),
				log.FieldProcedure, r.PathValue("procedure"))
			rateLimited(w, r)
		}
		rpcHandler = s.limiter.Middleware(ips.ClientIP, s.isMutation, onLimit)(rpcHandler)
	}
	mux.Handle("/rpc/{procedure}", rpcHandler)

	cors := security.DefaultCORSConfig()
	if len(opts.CORSAllowedOrigins) > 0 {
		cors.AllowedOrigins = opts.CORSAllowedOrigins
	}
	secLogger.Info("CORS configured", "allowed_origins", cors.AllowedOrigins)

	var handler http.Handler = mux
	handler = security.CORS(cors)(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = trace.NewMiddleware(logger, ips.ClientIP).Middleware(handler)
	s.Handler = handler
	return s
}

// isMutation limits only state-changing procedure calls.
func (s *Server) isMutation(r *http.Request) bool {
	name := r.PathValue("procedure")
	if name == "" {
		name = strings.TrimPrefix(r.URL.Path, "/rpc/")
	}
	kind, ok := s.router.Kind(name)
	return ok && kind == rpc.KindMutation
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":{"code":"TOO_MANY_REQUESTS","message":"Rate limit exceeded. Please try again later.","httpStatus":429}}`))
}

// Shutdown stops the limiter and drains in-flight requests. Safe to call twice.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}
