// Package restserver serves the comfort model and stored runs over HTTP.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chrissnell/thermalcomfort/internal/evaluator"
	"github.com/chrissnell/thermalcomfort/internal/log"
	"github.com/chrissnell/thermalcomfort/internal/storage"
	"github.com/chrissnell/thermalcomfort/pkg/comfort"
	"github.com/chrissnell/thermalcomfort/pkg/config"
)

// Controller represents the REST server controller
type Controller struct {
	ctx            context.Context
	wg             *sync.WaitGroup
	restConfig     config.RESTServerData
	Server         http.Server
	store          storage.Store
	health         *storage.HealthManager
	defaultVariant comfort.Variant
	evaluators     map[comfort.Variant]*evaluator.Evaluator
	logger         *zap.SugaredLogger
	handlers       *Handlers
}

// Options carries what the controller needs beyond its own configuration
type Options struct {
	Store   storage.Store
	Health  *storage.HealthManager
	Variant comfort.Variant
	Workers int
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, opts Options, logger *zap.SugaredLogger) (*Controller, error) {
	ctrl := &Controller{
		ctx:            ctx,
		wg:             wg,
		restConfig:     rc,
		store:          opts.Store,
		health:         opts.Health,
		defaultVariant: opts.Variant,
		evaluators:     make(map[comfort.Variant]*evaluator.Evaluator),
		logger:         logger,
	}

	if ctrl.defaultVariant == "" {
		ctrl.defaultVariant = comfort.VariantCalibrated
	}
	if ctrl.health == nil {
		ctrl.health = storage.NewHealthManager()
	}

	for _, v := range []comfort.Variant{comfort.VariantCalibrated, comfort.VariantBaseline} {
		tables, err := comfort.TablesFor(v)
		if err != nil {
			return nil, fmt.Errorf("error loading %s coefficient tables: %w", v, err)
		}
		ctrl.evaluators[v] = evaluator.New(tables, opts.Workers, logger)
	}
	if _, ok := ctrl.evaluators[ctrl.defaultVariant]; !ok {
		return nil, fmt.Errorf("unknown default variant %q", ctrl.defaultVariant)
	}

	// If a DefaultListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Infof("rest.listen_addr not provided; defaulting to %s (all interfaces)", config.DefaultListenAddr)
		rc.ListenAddr = config.DefaultListenAddr
	}

	// Set default HTTP port if not specified
	if rc.Port == 0 {
		logger.Infof("rest.port not provided; defaulting to %d", config.DefaultPort)
		rc.Port = config.DefaultPort
	}
	ctrl.restConfig = rc

	// Create handlers
	ctrl.handlers = NewHandlers(ctrl)

	// Set up router
	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(logger.Desugar())),
		handlers.PrintRecoveryStack(true),
	)
	ctrl.Server.Handler = handlers.CompressHandler(recovery(ctrl.setupRouter()))
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	c.logger.Infof("starting REST server on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.restConfig.TLSCertPath != "" && c.restConfig.TLSKeyPath != "" {
			if err := c.Server.ListenAndServeTLS(c.restConfig.TLSCertPath, c.restConfig.TLSKeyPath); err != http.ErrServerClosed {
				c.logger.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				c.logger.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Handler returns the routed HTTP handler
func (c *Controller) Handler() http.Handler {
	return c.Server.Handler
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware(c.logger))

	router.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)
	router.HandleFunc("/segments", c.handlers.GetSegments).Methods(http.MethodGet)
	router.HandleFunc("/evaluate", c.handlers.PostEvaluate).Methods(http.MethodPost)

	router.HandleFunc("/runs", c.handlers.GetRuns).Methods(http.MethodGet)
	router.HandleFunc("/runs", c.handlers.PostRun).Methods(http.MethodPost)
	router.HandleFunc("/runs/{id}", c.handlers.GetRun).Methods(http.MethodGet)
	router.HandleFunc("/runs/{id}/results", c.handlers.GetRunResults).Methods(http.MethodGet)
	router.HandleFunc("/runs/{id}/summary", c.handlers.GetRunSummary).Methods(http.MethodGet)

	return router
}

// evaluatorFor resolves a variant name, falling back to the configured default
func (c *Controller) evaluatorFor(name string) (*evaluator.Evaluator, error) {
	if name == "" {
		return c.evaluators[c.defaultVariant], nil
	}
	v, err := comfort.ParseVariant(name)
	if err != nil {
		return nil, err
	}
	return c.evaluators[v], nil
}
