package main

import (
	"net/http"

	"github.com/ovalledev/sigex/internal/domain"
	"github.com/ovalledev/sigex/internal/response"
	"github.com/ovalledev/sigex/internal/store"
)

type GetMunicipioResponse = response.APIResponse[*store.Municipio]
type ListMunicipiosResponse = response.APIResponse[[]store.Municipio]

func (app *application) handleListMunicipios(w http.ResponseWriter, r *http.Request) {
	if _, ok := app.mustActor(w, r); !ok {
		return
	}

	soloActivos := r.URL.Query().Get("todos") != "true"
	data, err := app.store.Municipios.List(r.Context(), soloActivos)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list municipios: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &ListMunicipiosResponse{Success: true, Data: data})
}

func (app *application) handleGetMunicipio(w http.ResponseWriter, r *http.Request) {
	if _, ok := app.mustActor(w, r); !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid municipio id")
		return
	}

	m, err := app.store.Municipios.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &GetMunicipioResponse{Success: true, Data: m})
}

func (app *application) handleCreateMunicipio(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}
	if !domain.CanManageUsuarios(actor) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	var input struct {
		Nombre       string  `json:"nombre"`
		Departamento string  `json:"departamento"`
		Telefono     *string `json:"telefono"`
		Correo       *string `json:"correo"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if input.Nombre == "" || input.Departamento == "" {
		writeJSONError(w, http.StatusBadRequest, "nombre and departamento are required")
		return
	}

	m := &store.Municipio{
		Nombre:       input.Nombre,
		Departamento: input.Departamento,
		Telefono:     input.Telefono,
		Correo:       input.Correo,
		Activo:       true,
	}

	if err := app.store.Municipios.Create(r.Context(), m); err != nil {
		writeDomainError(w, err)
		return
	}

	app.audit(r, actor, "municipio", m.ID, "crear", m.Nombre)

	writeJSON(w, http.StatusCreated, &GetMunicipioResponse{
		Success: true,
		Data:    m,
		Message: "Municipio created",
	})
}

func (app *application) handleUpdateMunicipio(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}
	if !domain.CanManageUsuarios(actor) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid municipio id")
		return
	}

	m, err := app.store.Municipios.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var input struct {
		Nombre       *string `json:"nombre"`
		Departamento *string `json:"departamento"`
		Telefono     *string `json:"telefono"`
		Correo       *string `json:"correo"`
		Activo       *bool   `json:"activo"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if input.Nombre != nil {
		m.Nombre = *input.Nombre
	}
	if input.Departamento != nil {
		m.Departamento = *input.Departamento
	}
	if input.Telefono != nil {
		m.Telefono = input.Telefono
	}
	if input.Correo != nil {
		m.Correo = input.Correo
	}
	if input.Activo != nil {
		m.Activo = *input.Activo
	}

	if err := app.store.Municipios.Update(r.Context(), m); err != nil {
		writeDomainError(w, err)
		return
	}

	app.audit(r, actor, "municipio", m.ID, "actualizar", "")

	writeJSON(w, http.StatusOK, &GetMunicipioResponse{Success: true, Data: m, Message: "Municipio updated"})
}
