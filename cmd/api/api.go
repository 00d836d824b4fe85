package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ovalledev/sigex/internal/files"
	"github.com/ovalledev/sigex/internal/logger"
	"github.com/ovalledev/sigex/internal/mailer"
	"github.com/ovalledev/sigex/internal/store"
)

type application struct {
	config config
	store  store.Storage
	files  files.Store
	mailer mailer.Mailer
	logger *logger.Logger
}

type config struct {
	addr       string
	uploadsDir string
	db         dbConfig
	smtp       smtpConfig
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleConns int
	maxIdleTime  string
}

type smtpConfig struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)

		// Everything below requires an authenticated, active user.
		r.Group(func(r chi.Router) {
			r.Use(app.actorMiddleware)

			r.Route("/expedientes", func(r chi.Router) {
				r.Get("/", app.handleListExpedientes)
				r.Post("/", app.handleCreateExpediente)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", app.handleGetExpediente)
					r.Patch("/", app.handleUpdateExpediente)
					r.Delete("/", app.handleDeleteExpediente)
					r.Post("/archivar", app.handleArchivarExpediente)
					r.Post("/enviar-revision", app.handleEnviarRevision)
					r.Patch("/estado", app.handleCambiarEstado)
					r.Get("/revisiones", app.handleListRevisiones)
					r.Post("/revisiones", app.handleCreateRevision)
				})
			})
			r.Get("/tipos-solicitud", app.handleListTiposSolicitud)

			r.Route("/guias", func(r chi.Router) {
				r.Get("/", app.handleListGuias)
				r.Post("/", app.handleCreateGuia)
				r.Get("/categorias", app.handleListCategoriasGuia)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/descargar", app.handleDescargarGuia)
					r.Delete("/", app.handleDeleteGuia)
				})
			})

			r.Route("/municipios", func(r chi.Router) {
				r.Get("/", app.handleListMunicipios)
				r.Post("/", app.handleCreateMunicipio)
				r.Get("/{id}", app.handleGetMunicipio)
				r.Patch("/{id}", app.handleUpdateMunicipio)
			})

			r.Route("/usuarios", func(r chi.Router) {
				r.Get("/", app.handleListUsuarios)
				r.Post("/", app.handleCreateUsuario)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", app.handleGetUsuario)
					r.Patch("/", app.handleUpdateUsuario)
					r.Patch("/activo", app.handleSetUsuarioActivo)
					r.Post("/municipios", app.handleAssignMunicipio)
					r.Delete("/municipios/{municipioID}", app.handleDeactivateMunicipio)
				})
			})

			r.Route("/notificaciones", func(r chi.Router) {
				r.Get("/", app.handleListNotificaciones)
				r.Post("/", app.handleCreateNotificacion)
				r.Post("/{id}/reintentar", app.handleReintentarNotificacion)
			})

			r.Get("/bitacora", app.handleListBitacora)

			r.Route("/reportes", func(r chi.Router) {
				r.Get("/resumen", app.handleReporteResumen)
				r.Get("/resumen/global", app.handleReporteGlobal)
				r.Get("/por-estado", app.handleReportePorEstado)
				r.Get("/tiempos-aprobacion", app.handleReporteTiempos)
				r.Get("/export", app.handleReporteExport)
			})
		})
	})

	return r
}

func (app *application) run(mux http.Handler) error {

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 120,
		ReadTimeout:  time.Second * 40,
		IdleTimeout:  time.Minute,
	}

	app.logger.Info("API", "Server started on %s", app.config.addr)
	return srv.ListenAndServe()
}
