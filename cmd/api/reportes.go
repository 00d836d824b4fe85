package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"github.com/ovalledev/sigex/internal/domain"
	"github.com/ovalledev/sigex/internal/response"
	"github.com/ovalledev/sigex/internal/store"
)

type ReporteResumenResponse = response.APIResponse[[]store.ResumenMunicipio]
type ReporteGlobalResponse = response.APIResponse[store.ResumenGlobal]
type ReportePorEstadoResponse = response.APIResponse[[]store.ConteoEstado]
type ReporteTiemposResponse = response.APIResponse[[]store.TiempoAprobacion]

// reporteFilter builds the shared date/municipio filter. TECNICO and
// MUNICIPAL actors are always pinned to their own municipios; global
// roles may narrow by a comma-separated municipios parameter.
func reporteFilter(r *http.Request, actor domain.Actor) (store.ReporteFilter, error) {
	q := r.URL.Query()

	var f store.ReporteFilter
	var err error
	f.Desde, err = time.Parse("2006-01-02", parseDateOrDefault(q.Get("desde"), "2000-01-01"))
	if err != nil {
		return f, err
	}
	f.Hasta, err = time.Parse("2006-01-02", parseDateOrDefault(q.Get("hasta"), "2100-12-31"))
	if err != nil {
		return f, err
	}

	switch actor.Rol {
	case domain.RolTecnico, domain.RolMunicipal:
		f.MunicipioIDs = actor.MunicipioIDs
	default:
		if raw := q.Get("municipios"); raw != "" {
			for _, part := range strings.Split(raw, ",") {
				id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
				if err != nil {
					return f, err
				}
				f.MunicipioIDs = append(f.MunicipioIDs, id)
			}
		}
	}
	return f, nil
}

func (app *application) reporteActor(w http.ResponseWriter, r *http.Request) (domain.Actor, store.ReporteFilter, bool) {
	actor, ok := app.mustActor(w, r)
	if !ok {
		return actor, store.ReporteFilter{}, false
	}
	if !domain.CanReadReportes(actor) {
		writeDomainError(w, domain.ErrPermissionDenied)
		return actor, store.ReporteFilter{}, false
	}

	f, err := reporteFilter(r, actor)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid report filters")
		return actor, f, false
	}
	return actor, f, true
}

func (app *application) handleReporteResumen(w http.ResponseWriter, r *http.Request) {
	_, f, ok := app.reporteActor(w, r)
	if !ok {
		return
	}

	data, err := app.store.Reportes.ResumenPorMunicipio(r.Context(), f)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to build resumen: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &ReporteResumenResponse{
		Success: true,
		Data:    data,
		Message: "Successfully built resumen por municipio",
	})
}

func (app *application) handleReporteGlobal(w http.ResponseWriter, r *http.Request) {
	_, f, ok := app.reporteActor(w, r)
	if !ok {
		return
	}

	data, err := app.store.Reportes.ResumenGlobal(r.Context(), f)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to build resumen global: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &ReporteGlobalResponse{Success: true, Data: data})
}

func (app *application) handleReportePorEstado(w http.ResponseWriter, r *http.Request) {
	_, f, ok := app.reporteActor(w, r)
	if !ok {
		return
	}

	data, err := app.store.Reportes.ConteoPorEstado(r.Context(), f)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to count por estado: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &ReportePorEstadoResponse{Success: true, Data: data})
}

func (app *application) handleReporteTiempos(w http.ResponseWriter, r *http.Request) {
	_, f, ok := app.reporteActor(w, r)
	if !ok {
		return
	}

	data, err := app.store.Reportes.TiemposAprobacion(r.Context(), f)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to compute tiempos de aprobacion: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &ReporteTiemposResponse{Success: true, Data: data})
}

// handleReporteExport streams the per-municipio summary as CSV.
func (app *application) handleReporteExport(w http.ResponseWriter, r *http.Request) {
	_, f, ok := app.reporteActor(w, r)
	if !ok {
		return
	}

	data, err := app.store.Reportes.ResumenPorMunicipio(r.Context(), f)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to build resumen: "+err.Error())
		return
	}

	df := dataframe.LoadStructs(data)
	if df.Err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to assemble export: "+df.Err.Error())
		return
	}

	filename := "resumen_expedientes_" + time.Now().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := df.WriteCSV(w); err != nil {
		app.logger.Error("Reportes", "failed to write CSV export: %v", err)
	}
}
