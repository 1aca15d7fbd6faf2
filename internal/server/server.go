package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	chargedomain "github.com/smallbiznis/offsession/internal/charge/domain"
	"github.com/smallbiznis/offsession/internal/config"
	invoicedomain "github.com/smallbiznis/offsession/internal/invoice/domain"
	"github.com/smallbiznis/offsession/internal/observability"
	obsmiddleware "github.com/smallbiznis/offsession/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/offsession/internal/observability/metrics"
	obstracing "github.com/smallbiznis/offsession/internal/observability/tracing"
	paymenthistorydomain "github.com/smallbiznis/offsession/internal/paymenthistory/domain"
	paymentmethoddomain "github.com/smallbiznis/offsession/internal/paymentmethod/domain"
	"github.com/smallbiznis/offsession/internal/providers/pdf"
	webhookdomain "github.com/smallbiznis/offsession/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine           *gin.Engine
	cfg              config.Config
	log              *zap.Logger
	paymentMethodSvc paymentmethoddomain.Service
	chargeSvc        chargedomain.Service
	webhookSvc       webhookdomain.Service
	historySvc       paymenthistorydomain.Service
	invoiceSvc       invoicedomain.Service
	receipts         pdf.Renderer
}

type ServerParams struct {
	fx.In

	Gin              *gin.Engine
	Cfg              config.Config
	Log              *zap.Logger
	PaymentMethodSvc paymentmethoddomain.Service
	ChargeSvc        chargedomain.Service
	WebhookSvc       webhookdomain.Service
	HistorySvc       paymenthistorydomain.Service
	InvoiceSvc       invoicedomain.Service
	Receipts         pdf.Renderer
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:           p.Gin,
		cfg:              p.Cfg,
		log:              p.Log.Named("http.server"),
		paymentMethodSvc: p.PaymentMethodSvc,
		chargeSvc:        p.ChargeSvc,
		webhookSvc:       p.WebhookSvc,
		historySvc:       p.HistorySvc,
		invoiceSvc:       p.InvoiceSvc,
		receipts:         p.Receipts,
	}

	svc.registerRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	r := s.engine

	r.GET("/config", s.GetConfig)

	// -------- Payment methods --------
	r.POST("/create-customer-payment-method", s.CreateCustomerPaymentMethod)

	// -------- Charges --------
	r.POST("/create-payment-intent", s.CreatePaymentIntent)

	// -------- Processor webhooks --------
	r.POST("/webhook", s.HandleWebhook)

	// -------- History & invoices --------
	r.GET("/payment-history", s.ListPaymentHistory)
	r.GET("/payment-history/:paymentIntentId/receipt", s.DownloadReceipt)
	r.GET("/download-invoice/:invoiceId", s.DownloadInvoice)
}

func (s *Server) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publishableKey": s.cfg.Stripe.PublishableKey})
}

func (s *Server) registerFallback() {
	staticDir := strings.TrimSpace(s.cfg.StaticDir)
	s.engine.NoRoute(func(c *gin.Context) {
		if staticDir == "" || c.Request.Method != http.MethodGet {
			AbortWithError(c, ErrNotFound)
			return
		}

		if fileExists(staticDir, c.Request.URL.Path) {
			c.File(filepath.Join(staticDir, filepath.Clean(c.Request.URL.Path)))
			return
		}

		index := filepath.Join(staticDir, "index.html")
		if fileExists(staticDir, "/index.html") {
			c.File(index)
			return
		}
		AbortWithError(c, ErrNotFound)
	})
}

func fileExists(publicDir, reqPath string) bool {
	clean := filepath.Clean("/" + reqPath)

	// prevent path traversal
	if clean == "." || clean == "/" || strings.Contains(clean, "..") {
		return false
	}

	fullPath := filepath.Join(publicDir, clean)

	info, err := os.Stat(fullPath)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
