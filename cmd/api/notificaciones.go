package main

import (
	"net/http"
	"strconv"

	"github.com/ovalledev/sigex/internal/domain"
	"github.com/ovalledev/sigex/internal/response"
	"github.com/ovalledev/sigex/internal/store"
)

type GetNotificacionResponse = response.APIResponse[*store.Notificacion]
type ListNotificacionesResponse = response.APIResponse[[]store.Notificacion]

func (app *application) handleListNotificaciones(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}
	if !domain.CanSendNotificaciones(actor) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	data, err := app.store.Notificaciones.List(r.Context(), q.Get("estado"), limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list notificaciones: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &ListNotificacionesResponse{Success: true, Data: data})
}

// dispatch attempts the mail send and records the outcome on the row.
// Delivery failure is data, not a request error: the caller gets the
// row back with estado Fallida and may retry later.
func (app *application) dispatch(r *http.Request, n *store.Notificacion) {
	sendErr := app.mailer.Send(n.DestinatarioCorreo, n.Asunto, n.Mensaje)

	estado := store.NotificacionEnviada
	var ultimoError *string
	if sendErr != nil {
		estado = store.NotificacionFallida
		msg := sendErr.Error()
		ultimoError = &msg
		app.logger.Warn("Notificaciones", "dispatch of %d failed: %v", n.ID, sendErr)
	}

	if err := app.store.Notificaciones.MarkResultado(r.Context(), n.ID, estado, ultimoError); err != nil {
		app.logger.Error("Notificaciones", "failed to mark notificacion %d: %v", n.ID, err)
		return
	}
	n.Estado = estado
	n.UltimoError = ultimoError
}

func (app *application) handleCreateNotificacion(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}
	if !domain.CanSendNotificaciones(actor) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	var input struct {
		Tipo               string `json:"tipo"`
		ExpedienteID       *int64 `json:"expediente_id"`
		MunicipioID        *int64 `json:"municipio_id"`
		DestinatarioCorreo string `json:"destinatario_correo"`
		DestinatarioNombre string `json:"destinatario_nombre"`
		Asunto             string `json:"asunto"`
		Mensaje            string `json:"mensaje"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if input.Tipo == "" || input.DestinatarioCorreo == "" || input.Asunto == "" {
		writeJSONError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	n := &store.Notificacion{
		Tipo:               input.Tipo,
		ExpedienteID:       input.ExpedienteID,
		MunicipioID:        input.MunicipioID,
		RemitenteID:        actor.ID,
		DestinatarioCorreo: input.DestinatarioCorreo,
		DestinatarioNombre: input.DestinatarioNombre,
		Asunto:             input.Asunto,
		Mensaje:            input.Mensaje,
		Estado:             store.NotificacionPendiente,
	}

	if err := app.store.Notificaciones.Create(r.Context(), n); err != nil {
		writeDomainError(w, err)
		return
	}

	app.dispatch(r, n)
	app.audit(r, actor, "notificacion", n.ID, "enviar", n.DestinatarioCorreo+": "+n.Estado)

	writeJSON(w, http.StatusCreated, &GetNotificacionResponse{
		Success: true,
		Data:    n,
		Message: "Notification recorded with estado " + n.Estado,
	})
}

// handleReintentarNotificacion re-dispatches a failed notification.
// Retry is always manual; there is no automatic backoff.
func (app *application) handleReintentarNotificacion(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}
	if !domain.CanSendNotificaciones(actor) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid notificacion id")
		return
	}

	n, err := app.store.Notificaciones.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if n.Estado == store.NotificacionEnviada {
		writeJSONError(w, http.StatusConflict, "notification was already sent")
		return
	}

	app.dispatch(r, n)
	app.audit(r, actor, "notificacion", n.ID, "reintentar", n.Estado)

	writeJSON(w, http.StatusOK, &GetNotificacionResponse{
		Success: true,
		Data:    n,
		Message: "Retry finished with estado " + n.Estado,
	})
}
