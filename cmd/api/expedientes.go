package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ovalledev/sigex/internal/domain"
	"github.com/ovalledev/sigex/internal/response"
	"github.com/ovalledev/sigex/internal/store"
)

type GetExpedienteResponse = response.APIResponse[*store.Expediente]
type ListExpedientesResponse = response.APIResponse[[]store.Expediente]
type ListTiposSolicitudResponse = response.APIResponse[[]store.TipoSolicitud]

var categoriasValidas = map[string]bool{
	store.CategoriaOrdinario:                true,
	store.CategoriaExtraordinario:           true,
	store.CategoriaAsignacionExtraordinaria: true,
}

func (app *application) handleListExpedientes(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}

	var f store.ExpedienteFilter
	q := r.URL.Query()

	if estado := q.Get("estado"); estado != "" {
		parsed, err := domain.ParseEstado(estado)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid estado filter")
			return
		}
		f.Estado = parsed
	}
	f.Busqueda = q.Get("q")
	if v := q.Get("responsable"); v != "" {
		f.ResponsableID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("offset"); v != "" {
		f.Offset, _ = strconv.Atoi(v)
	}
	if v := q.Get("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}

	// TECNICO and MUNICIPAL actors only ever see their own municipios.
	switch actor.Rol {
	case domain.RolTecnico, domain.RolMunicipal:
		f.MunicipioIDs = actor.MunicipioIDs
		if len(f.MunicipioIDs) == 0 {
			writeJSON(w, http.StatusOK, &ListExpedientesResponse{
				Success: true,
				Data:    []store.Expediente{},
				Message: "No municipios assigned",
			})
			return
		}
	default:
		if v := q.Get("municipio"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid municipio filter")
				return
			}
			f.MunicipioIDs = []int64{id}
		}
	}

	data, err := app.store.Expedientes.List(r.Context(), f)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list expedientes: "+err.Error())
		return
	}

	response := &ListExpedientesResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved expedientes",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleCreateExpediente(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}

	var input struct {
		Codigo          string   `json:"codigo"`
		NombreProyecto  string   `json:"nombre_proyecto"`
		MunicipioID     int64    `json:"municipio_id"`
		ResponsableID   int64    `json:"responsable_id"`
		TipoSolicitudID int64    `json:"tipo_solicitud_id"`
		Categoria       string   `json:"categoria"`
		FechaRecepcion  string   `json:"fecha_recepcion"`
		MontoContrato   *float64 `json:"monto_contrato"`
		Adjudicatario   *string  `json:"adjudicatario"`
		Observaciones   string   `json:"observaciones"`
	}

	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if input.Codigo == "" || input.NombreProyecto == "" || input.MunicipioID == 0 || input.TipoSolicitudID == 0 {
		writeJSONError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	if !categoriasValidas[input.Categoria] {
		writeJSONError(w, http.StatusBadRequest, "invalid categoria")
		return
	}
	if input.MontoContrato != nil && *input.MontoContrato <= 0 {
		writeJSONError(w, http.StatusBadRequest, "monto_contrato must be positive")
		return
	}

	if !domain.Can(actor, domain.AccionCrear, domain.ExpedienteRef{MunicipioID: input.MunicipioID}) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	fechaRecepcion := time.Now()
	if input.FechaRecepcion != "" {
		var err error
		fechaRecepcion, err = parseTime(input.FechaRecepcion)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid fecha_recepcion format (YYYY-MM-DD expected)")
			return
		}
	}

	// The creating technician is the responsable; only an admin may
	// register an expediente on someone else's behalf.
	responsable := actor.ID
	if actor.Rol == domain.RolAdmin && input.ResponsableID != 0 {
		responsable = input.ResponsableID
	}

	exp := &store.Expediente{
		Codigo:          input.Codigo,
		NombreProyecto:  input.NombreProyecto,
		MunicipioID:     input.MunicipioID,
		ResponsableID:   responsable,
		TipoSolicitudID: input.TipoSolicitudID,
		Categoria:       input.Categoria,
		FechaRecepcion:  fechaRecepcion,
		MontoContrato:   input.MontoContrato,
		Adjudicatario:   input.Adjudicatario,
		Observaciones:   input.Observaciones,
		Estado:          domain.EstadoRecibido,
	}

	if err := app.store.Expedientes.Create(r.Context(), exp); err != nil {
		writeDomainError(w, err)
		return
	}

	app.audit(r, actor, "expediente", exp.ID, "crear", "código "+exp.Codigo)

	response := &GetExpedienteResponse{
		Success: true,
		Data:    exp,
		Message: "Expediente registered with estado Recibido",
	}

	if err := writeJSON(w, http.StatusCreated, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// loadExpedienteRef fetches the expediente and the facts the
// permission matrix needs about it.
func (app *application) loadExpedienteRef(r *http.Request, id int64) (*store.Expediente, domain.ExpedienteRef, error) {
	exp, err := app.store.Expedientes.GetByID(r.Context(), id)
	if err != nil {
		return nil, domain.ExpedienteRef{}, err
	}

	count, err := app.store.Revisiones.CountByExpediente(r.Context(), id)
	if err != nil {
		return nil, domain.ExpedienteRef{}, err
	}

	return exp, domain.ExpedienteRef{
		Estado:          exp.Estado,
		MunicipioID:     exp.MunicipioID,
		ResponsableID:   exp.ResponsableID,
		TieneRevisiones: count > 0,
	}, nil
}

func (app *application) handleGetExpediente(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid expediente id")
		return
	}

	exp, ref, err := app.loadExpedienteRef(r, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !domain.Can(actor, domain.AccionVer, ref) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	writeJSON(w, http.StatusOK, &GetExpedienteResponse{Success: true, Data: exp})
}

func (app *application) handleUpdateExpediente(w http.ResponseWriter, r *http.Request) {
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
		NombreProyecto  *string  `json:"nombre_proyecto"`
		TipoSolicitudID *int64   `json:"tipo_solicitud_id"`
		Categoria       *string  `json:"categoria"`
		FechaRecepcion  *string  `json:"fecha_recepcion"`
		MontoContrato   *float64 `json:"monto_contrato"`
		Adjudicatario   *string  `json:"adjudicatario"`
		Observaciones   *string  `json:"observaciones"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	exp, ref, err := app.loadExpedienteRef(r, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !domain.Can(actor, domain.AccionActualizar, ref) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	if input.NombreProyecto != nil {
		exp.NombreProyecto = *input.NombreProyecto
	}
	if input.TipoSolicitudID != nil {
		exp.TipoSolicitudID = *input.TipoSolicitudID
	}
	if input.Categoria != nil {
		if !categoriasValidas[*input.Categoria] {
			writeJSONError(w, http.StatusBadRequest, "invalid categoria")
			return
		}
		exp.Categoria = *input.Categoria
	}
	if input.FechaRecepcion != nil {
		fecha, err := parseTime(*input.FechaRecepcion)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid fecha_recepcion format (YYYY-MM-DD expected)")
			return
		}
		exp.FechaRecepcion = fecha
	}
	if input.MontoContrato != nil {
		if *input.MontoContrato <= 0 {
			writeJSONError(w, http.StatusBadRequest, "monto_contrato must be positive")
			return
		}
		exp.MontoContrato = input.MontoContrato
	}
	if input.Adjudicatario != nil {
		exp.Adjudicatario = input.Adjudicatario
	}
	if input.Observaciones != nil {
		exp.Observaciones = *input.Observaciones
	}

	if err := app.store.Expedientes.Update(r.Context(), exp); err != nil {
		writeDomainError(w, err)
		return
	}

	app.audit(r, actor, "expediente", exp.ID, "actualizar", "")

	writeJSON(w, http.StatusOK, &GetExpedienteResponse{
		Success: true,
		Data:    exp,
		Message: "Expediente updated",
	})
}

func (app *application) handleDeleteExpediente(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid expediente id")
		return
	}

	exp, ref, err := app.loadExpedienteRef(r, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !domain.Can(actor, domain.AccionEliminar, ref) {
		writeJSONError(w, http.StatusForbidden,
			"only an expediente in estado Recibido with no revisiones can be deleted; use archivar instead")
		return
	}

	if err := app.store.Expedientes.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	app.audit(r, actor, "expediente", id, "eliminar", "código "+exp.Codigo)
	w.WriteHeader(http.StatusNoContent)
}

// transitionExpediente validates and executes a single estado change,
// stamping fecha_aprobacion when the target is Aprobado.
func (app *application) transitionExpediente(r *http.Request, exp *store.Expediente, hacia domain.Estado, observacion string) error {
	if !domain.CanTransition(exp.Estado, hacia) {
		if domain.IsTerminal(exp.Estado) {
			return fmt.Errorf("%w: %s is terminal", domain.ErrInvalidTransition, exp.Estado)
		}
		return fmt.Errorf("%w: %s -> %s (allowed: %v)",
			domain.ErrInvalidTransition, exp.Estado, hacia, domain.AllowedTransitions(exp.Estado))
	}

	cambio := store.CambioEstado{
		ExpedienteID: exp.ID,
		Desde:        exp.Estado,
		Hacia:        hacia,
		Observacion:  observacion,
	}
	if hacia == domain.EstadoAprobado {
		now := time.Now()
		cambio.FechaAprobacion = &now
	}

	if err := app.store.Expedientes.ChangeEstado(r.Context(), cambio); err != nil {
		return err
	}

	exp.Estado = hacia
	exp.FechaAprobacion = cambio.FechaAprobacion
	return nil
}

func (app *application) handleArchivarExpediente(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid expediente id")
		return
	}

	exp, ref, err := app.loadExpedienteRef(r, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !domain.Can(actor, domain.AccionArchivar, ref) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	if err := app.transitionExpediente(r, exp, domain.EstadoArchivado, ""); err != nil {
		writeDomainError(w, err)
		return
	}

	app.audit(r, actor, "expediente", exp.ID, "archivar", "")

	writeJSON(w, http.StatusOK, &GetExpedienteResponse{
		Success: true,
		Data:    exp,
		Message: "Expediente archived",
	})
}

func (app *application) handleEnviarRevision(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid expediente id")
		return
	}

	exp, ref, err := app.loadExpedienteRef(r, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !domain.Can(actor, domain.AccionEnviarRevision, ref) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	if err := app.transitionExpediente(r, exp, domain.EstadoEnRevision, ""); err != nil {
		writeDomainError(w, err)
		return
	}

	app.audit(r, actor, "expediente", exp.ID, "enviar_revision", "")

	writeJSON(w, http.StatusOK, &GetExpedienteResponse{
		Success: true,
		Data:    exp,
		Message: "Expediente submitted for review",
	})
}

func (app *application) handleCambiarEstado(w http.ResponseWriter, r *http.Request) {
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
		Estado      string `json:"estado"`
		Observacion string `json:"observacion"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	hacia, err := domain.ParseEstado(input.Estado)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid estado: "+input.Estado)
		return
	}

	exp, ref, err := app.loadExpedienteRef(r, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !domain.Can(actor, domain.AccionCambiarEstado, ref) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	desde := exp.Estado
	if err := app.transitionExpediente(r, exp, hacia, input.Observacion); err != nil {
		writeDomainError(w, err)
		return
	}

	app.audit(r, actor, "expediente", exp.ID, "cambiar_estado",
		fmt.Sprintf("%s -> %s", desde, hacia))

	writeJSON(w, http.StatusOK, &GetExpedienteResponse{
		Success: true,
		Data:    exp,
		Message: "Estado updated",
	})
}

func (app *application) handleListTiposSolicitud(w http.ResponseWriter, r *http.Request) {
	data, err := app.store.Expedientes.ListTiposSolicitud(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list tipos de solicitud: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &ListTiposSolicitudResponse{Success: true, Data: data})
}
