package api

import (
	"net/http"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewContainer wires filters, routes and the OpenAPI document.
func NewContainer(handler *Handler, logger *zerolog.Logger) *restful.Container {
	container := restful.NewContainer()

	container.Filter(RequestID)
	container.Filter(Logger(logger))
	container.Filter(RecoverPanic(logger))

	RegisterRoutes(container, handler)
	RegisterOpenAPI(container)

	return container
}

// NewServer returns an http.Server serving the API with permissive CORS.
func NewServer(cfg ServerConfig, handler *Handler, logger *zerolog.Logger) *http.Server {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{HeaderRequestID},
	})

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      corsHandler.Handler(NewContainer(handler, logger)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
}
