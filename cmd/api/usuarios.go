package main

import (
	"fmt"
	"net/http"

	"github.com/ovalledev/sigex/internal/domain"
	"github.com/ovalledev/sigex/internal/response"
	"github.com/ovalledev/sigex/internal/store"
)

type GetUsuarioResponse = response.APIResponse[*store.Usuario]
type ListUsuariosResponse = response.APIResponse[[]store.Usuario]

func (app *application) requireUserAdmin(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return actor, false
	}
	if !domain.CanManageUsuarios(actor) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return actor, false
	}
	return actor, true
}

func (app *application) handleListUsuarios(w http.ResponseWriter, r *http.Request) {
	if _, ok := app.requireUserAdmin(w, r); !ok {
		return
	}

	data, err := app.store.Usuarios.List(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list usuarios: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &ListUsuariosResponse{Success: true, Data: data})
}

func (app *application) handleCreateUsuario(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.requireUserAdmin(w, r)
	if !ok {
		return
	}

	var input struct {
		Nombres   string `json:"nombres"`
		Apellidos string `json:"apellidos"`
		Correo    string `json:"correo"`
		Rol       string `json:"rol"`
		Activo    *bool  `json:"activo"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if input.Nombres == "" || input.Apellidos == "" || input.Correo == "" {
		writeJSONError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	rol, err := domain.ParseRol(input.Rol)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid rol: "+input.Rol)
		return
	}

	activo := true
	if input.Activo != nil {
		activo = *input.Activo
	}

	u := &store.Usuario{
		Nombres:   input.Nombres,
		Apellidos: input.Apellidos,
		Correo:    input.Correo,
		Rol:       rol,
		Activo:    activo,
	}

	if err := app.store.Usuarios.Create(r.Context(), u); err != nil {
		writeDomainError(w, err)
		return
	}

	app.audit(r, actor, "usuario", u.ID, "crear", fmt.Sprintf("%s (%s)", u.Correo, u.Rol))

	writeJSON(w, http.StatusCreated, &GetUsuarioResponse{
		Success: true,
		Data:    u,
		Message: "Usuario created",
	})
}

func (app *application) handleGetUsuario(w http.ResponseWriter, r *http.Request) {
	if _, ok := app.requireUserAdmin(w, r); !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid usuario id")
		return
	}

	u, err := app.store.Usuarios.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &GetUsuarioResponse{Success: true, Data: u})
}

func (app *application) handleUpdateUsuario(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.requireUserAdmin(w, r)
	if !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid usuario id")
		return
	}

	u, err := app.store.Usuarios.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var input struct {
		Nombres   *string `json:"nombres"`
		Apellidos *string `json:"apellidos"`
		Correo    *string `json:"correo"`
		Rol       *string `json:"rol"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if input.Nombres != nil {
		u.Nombres = *input.Nombres
	}
	if input.Apellidos != nil {
		u.Apellidos = *input.Apellidos
	}
	if input.Correo != nil {
		u.Correo = *input.Correo
	}
	if input.Rol != nil {
		rol, err := domain.ParseRol(*input.Rol)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid rol: "+*input.Rol)
			return
		}
		u.Rol = rol
	}

	if err := app.store.Usuarios.Update(r.Context(), u); err != nil {
		writeDomainError(w, err)
		return
	}

	app.audit(r, actor, "usuario", u.ID, "actualizar", "")

	writeJSON(w, http.StatusOK, &GetUsuarioResponse{
		Success: true,
		Data:    u,
		Message: "Usuario updated",
	})
}

func (app *application) handleSetUsuarioActivo(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.requireUserAdmin(w, r)
	if !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid usuario id")
		return
	}

	var input struct {
		Activo *bool `json:"activo"`
	}
	if err := readJSON(w, r, &input); err != nil || input.Activo == nil {
		writeJSONError(w, http.StatusBadRequest, "activo field is required")
		return
	}

	if err := app.store.Usuarios.SetActivo(r.Context(), id, *input.Activo); err != nil {
		writeDomainError(w, err)
		return
	}

	accion := "desactivar"
	if *input.Activo {
		accion = "activar"
	}
	app.audit(r, actor, "usuario", id, accion, "")

	u, err := app.store.Usuarios.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &GetUsuarioResponse{Success: true, Data: u})
}

func (app *application) handleAssignMunicipio(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.requireUserAdmin(w, r)
	if !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid usuario id")
		return
	}

	var input struct {
		MunicipioID int64 `json:"municipio_id"`
	}
	if err := readJSON(w, r, &input); err != nil || input.MunicipioID == 0 {
		writeJSONError(w, http.StatusBadRequest, "municipio_id is required")
		return
	}

	u, err := app.store.Usuarios.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !u.Rol.RequiereMunicipios() {
		writeJSONError(w, http.StatusBadRequest, "rol "+string(u.Rol)+" does not take municipio assignments")
		return
	}

	if err := app.store.Usuarios.AssignMunicipio(r.Context(), id, input.MunicipioID); err != nil {
		writeDomainError(w, err)
		return
	}

	app.audit(r, actor, "usuario", id, "asignar_municipio",
		fmt.Sprintf("municipio %d", input.MunicipioID))

	u, err = app.store.Usuarios.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &GetUsuarioResponse{Success: true, Data: u, Message: "Municipio assigned"})
}

func (app *application) handleDeactivateMunicipio(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.requireUserAdmin(w, r)
	if !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid usuario id")
		return
	}
	municipioID, err := parseIDParam(r, "municipioID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid municipio id")
		return
	}

	if err := app.store.Usuarios.DeactivateMunicipio(r.Context(), id, municipioID); err != nil {
		writeDomainError(w, err)
		return
	}

	app.audit(r, actor, "usuario", id, "desasignar_municipio",
		fmt.Sprintf("municipio %d", municipioID))
	w.WriteHeader(http.StatusNoContent)
}
