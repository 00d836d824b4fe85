package main

import (
	"net/http"
	"strconv"

	"github.com/ovalledev/sigex/internal/domain"
	"github.com/ovalledev/sigex/internal/response"
	"github.com/ovalledev/sigex/internal/store"
)

type ListBitacoraResponse = response.APIResponse[[]store.EntradaBitacora]

// audit appends a bitacora entry for a mutation that already
// succeeded. A failed append is logged, never surfaced to the client:
// the mutation stands either way.
func (app *application) audit(r *http.Request, actor domain.Actor, entidad string, entidadID int64, accion, detalle string) {
	entry := &store.EntradaBitacora{
		Entidad:   entidad,
		EntidadID: entidadID,
		Accion:    accion,
		Detalle:   detalle,
		UsuarioID: actor.ID,
	}
	if err := app.store.Bitacora.Append(r.Context(), entry); err != nil {
		app.logger.Error("Bitacora", "failed to record %s %s/%d: %v", accion, entidad, entidadID, err)
	}
}

func (app *application) handleListBitacora(w http.ResponseWriter, r *http.Request) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return
	}
	if !domain.CanReadBitacora(actor) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return
	}

	q := r.URL.Query()
	f := store.BitacoraFilter{Entidad: q.Get("entidad")}
	if v := q.Get("entidad_id"); v != "" {
		f.EntidadID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}

	data, err := app.store.Bitacora.List(r.Context(), f)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list bitacora: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &ListBitacoraResponse{Success: true, Data: data})
}
