package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ovalledev/sigex/internal/domain"
	"github.com/ovalledev/sigex/internal/response"
	"github.com/ovalledev/sigex/internal/store"
)

type GetRevisionResponse = response.APIResponse[*store.RevisionFinanciera]
type ListRevisionesResponse = response.APIResponse[[]store.RevisionFinanciera]

func (app *application) handleListRevisiones(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid expediente id")
		return
	}

	_, ref, err := app.loadExpedienteRef(r, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !domain.Can(actor, domain.AccionVer, ref) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	data, err := app.store.Revisiones.ListByExpediente(r.Context(), id)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list revisiones: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &ListRevisionesResponse{Success: true, Data: data})
}

var accionesRevision = map[string]bool{
	store.AccionRevisionAprobar:      true,
	store.AccionRevisionRechazar:     true,
	store.AccionRevisionCorrecciones: true,
}

// handleCreateRevision registers a financial review. Aprobar and
// Rechazar cascade a transition onto the expediente; the transition is
// validated here against the table and executed with the review insert
// in one transaction, so the review's own validity never bypasses the
// workflow rules.
func (app *application) handleCreateRevision(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid expediente id")
		return
	}

	var input struct {
		EstadoCompletitud string   `json:"estado_completitud"`
		Accion            *string  `json:"accion"`
		MontoAprobado     *float64 `json:"monto_aprobado"`
		Observaciones     string   `json:"observaciones"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if input.EstadoCompletitud != store.RevisionCompleta && input.EstadoCompletitud != store.RevisionIncompleta {
		writeJSONError(w, http.StatusBadRequest, "estado_completitud must be Completo or Incompleto")
		return
	}
	if input.Accion != nil && !accionesRevision[*input.Accion] {
		writeJSONError(w, http.StatusBadRequest, "invalid accion")
		return
	}
	if input.Accion != nil && *input.Accion == store.AccionRevisionAprobar {
		if input.MontoAprobado == nil || *input.MontoAprobado <= 0 {
			writeJSONError(w, http.StatusBadRequest, "monto_aprobado is required and must be positive when approving")
			return
		}
	}

	exp, ref, err := app.loadExpedienteRef(r, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !domain.Can(actor, domain.AccionRevisarFinanciera, ref) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	var cascada *store.CambioEstado
	if input.Accion != nil {
		var hacia domain.Estado
		switch *input.Accion {
		case store.AccionRevisionAprobar:
			hacia = domain.EstadoAprobado
		case store.AccionRevisionRechazar:
			hacia = domain.EstadoRechazado
		}

		if hacia != "" {
			if !domain.CanTransition(exp.Estado, hacia) {
				writeDomainError(w, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, exp.Estado, hacia))
				return
			}
			cascada = &store.CambioEstado{
				ExpedienteID: exp.ID,
				Desde:        exp.Estado,
				Hacia:        hacia,
			}
			if hacia == domain.EstadoAprobado {
				now := time.Now()
				cascada.FechaAprobacion = &now
			}
		}
	}

	rev := &store.RevisionFinanciera{
		ExpedienteID:      id,
		RevisorID:         actor.ID,
		EstadoCompletitud: input.EstadoCompletitud,
		Accion:            input.Accion,
		MontoAprobado:     input.MontoAprobado,
		Observaciones:     input.Observaciones,
	}

	if err := app.store.Revisiones.Create(r.Context(), rev, cascada); err != nil {
		writeDomainError(w, err)
		return
	}

	detalle := input.EstadoCompletitud
	if input.Accion != nil {
		detalle += ", " + *input.Accion
	}
	app.audit(r, actor, "revision_financiera", rev.ID, "crear",
		fmt.Sprintf("expediente %d: %s", id, detalle))

	writeJSON(w, http.StatusCreated, &GetRevisionResponse{
		Success: true,
		Data:    rev,
		Message: "Revision registered",
	})
}
