package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/ovalledev/sigex/internal/domain"
	"github.com/ovalledev/sigex/internal/response"
	"github.com/ovalledev/sigex/internal/store"
)

type GetGuiaResponse = response.APIResponse[*store.Guia]
type ListGuiasResponse = response.APIResponse[[]store.Guia]
type ListCategoriasResponse = response.APIResponse[[]store.CategoriaGuia]

const maxGuiaUploadBytes = 32 << 20 // 32 MB

func (app *application) handleListGuias(w http.ResponseWriter, r *http.Request) {
	if _, ok := app.mustActor(w, r); !ok {
		return
	}

	categoria := domain.NormalizeCategoria(r.URL.Query().Get("categoria"))

	var (
		data []store.Guia
		err  error
	)
	if r.URL.Query().Get("historial") == "true" && categoria != "" {
		data, err = app.store.Guias.ListByCategoria(r.Context(), categoria)
	} else {
		data, err = app.store.Guias.ListActivas(r.Context(), categoria)
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list guias: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &ListGuiasResponse{Success: true, Data: data})
}

func (app *application) handleListCategoriasGuia(w http.ResponseWriter, r *http.Request) {
	if _, ok := app.mustActor(w, r); !ok {
		return
	}

	data, err := app.store.Guias.ListCategorias(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list categorias: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &ListCategoriasResponse{Success: true, Data: data})
}

// handleCreateGuia uploads a new version into a category. The file is
// stored first; if the row insert then fails (cap reached, conflict)
// the stored blob is removed again.
func (app *application) handleCreateGuia(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}
	if !domain.CanManageGuias(actor) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxGuiaUploadBytes)
	if err := r.ParseMultipartForm(maxGuiaUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}

	titulo := r.FormValue("titulo")
	categoria := domain.NormalizeCategoria(r.FormValue("categoria"))
	if titulo == "" || categoria == "" {
		writeJSONError(w, http.StatusBadRequest, "titulo and categoria are required")
		return
	}

	file, header, err := r.FormFile("archivo")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "archivo file field is required")
		return
	}
	defer file.Close()

	ref, err := app.files.Save(file, header.Filename)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to store file: "+err.Error())
		return
	}

	g := &store.Guia{
		Titulo:        titulo,
		Categoria:     categoria,
		Archivo:       ref,
		NombreArchivo: header.Filename,
		SubidaPorID:   actor.ID,
	}

	if err := app.store.Guias.Create(r.Context(), g); err != nil {
		if rmErr := app.files.Remove(ref); rmErr != nil {
			app.logger.Error("Guias", "orphan file %s after failed insert: %v", ref, rmErr)
		}
		writeDomainError(w, err)
		return
	}

	app.audit(r, actor, "guia", g.ID, "crear",
		fmt.Sprintf("%s v%d", g.Categoria, g.Version))

	writeJSON(w, http.StatusCreated, &GetGuiaResponse{
		Success: true,
		Data:    g,
		Message: "Guia published as the active version of its categoria",
	})
}

func (app *application) handleDescargarGuia(w http.ResponseWriter, r *http.Request) {
	if _, ok := app.mustActor(w, r); !ok {
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid guia id")
		return
	}

	g, err := app.store.Guias.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	f, err := app.files.Open(g.Archivo)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to open stored file")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+g.NombreArchivo+`"`)
	if _, err := io.Copy(w, f); err != nil {
		app.logger.Error("Guias", "failed to stream guia %d: %v", id, err)
	}
}

// handleDeleteGuia removes the stored file first and the row second,
// so a failed disk operation never leaves a row pointing at nothing.
func (app *application) handleDeleteGuia(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}
	if !domain.CanManageGuias(actor) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid guia id")
		return
	}

	g, err := app.store.Guias.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := app.files.Remove(g.Archivo); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to remove stored file: "+err.Error())
		return
	}
	if err := app.store.Guias.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	app.audit(r, actor, "guia", id, "eliminar", fmt.Sprintf("%s v%d", g.Categoria, g.Version))
	w.WriteHeader(http.StatusNoContent)
}
