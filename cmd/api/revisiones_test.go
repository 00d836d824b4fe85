package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovalledev/sigex/internal/domain"
	"github.com/ovalledev/sigex/internal/store"
)

func TestCreateRevision(t *testing.T) {
	t.Run("approval cascades onto the expediente", func(t *testing.T) {
		env := newTestEnv()
		exp := seedExpediente(env, 10, 4, domain.EstadoCompleto)

		rr := do(t, env, http.MethodPost, "/v1/expedientes/1/revisiones", 3, map[string]any{
			"estado_completitud": store.RevisionCompleta,
			"accion":             store.AccionRevisionAprobar,
			"monto_aprobado":     125000.50,
		})
		require.Equal(t, http.StatusCreated, rr.Code)

		resp := decode[*store.RevisionFinanciera](t, rr)
		assert.Equal(t, int64(3), resp.Data.RevisorID)
		require.NotNil(t, resp.Data.MontoAprobado)

		stored := env.expedientes.byID[exp.ID]
		assert.Equal(t, domain.EstadoAprobado, stored.Estado)
		assert.NotNil(t, stored.FechaAprobacion)
		assert.Len(t, env.revisiones.byExp[exp.ID], 1)
	})

	t.Run("rejection cascades without fecha_aprobacion", func(t *testing.T) {
		env := newTestEnv()
		exp := seedExpediente(env, 10, 4, domain.EstadoCompleto)

		rr := do(t, env, http.MethodPost, "/v1/expedientes/1/revisiones", 3, map[string]any{
			"estado_completitud": store.RevisionCompleta,
			"accion":             store.AccionRevisionRechazar,
			"observaciones":      "monto fuera de techo presupuestario",
		})
		require.Equal(t, http.StatusCreated, rr.Code)

		stored := env.expedientes.byID[exp.ID]
		assert.Equal(t, domain.EstadoRechazado, stored.Estado)
		assert.Nil(t, stored.FechaAprobacion)
	})

	t.Run("approving from the wrong estado writes nothing", func(t *testing.T) {
		env := newTestEnv()
		exp := seedExpediente(env, 10, 4, domain.EstadoRecibido)

		rr := do(t, env, http.MethodPost, "/v1/expedientes/1/revisiones", 3, map[string]any{
			"estado_completitud": store.RevisionCompleta,
			"accion":             store.AccionRevisionAprobar,
			"monto_aprobado":     5000.0,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

		assert.Empty(t, env.revisiones.byExp[exp.ID])
		assert.Equal(t, domain.EstadoRecibido, env.expedientes.byID[exp.ID].Estado)
	})

	t.Run("approval requires a positive monto", func(t *testing.T) {
		env := newTestEnv()
		seedExpediente(env, 10, 4, domain.EstadoCompleto)

		rr := do(t, env, http.MethodPost, "/v1/expedientes/1/revisiones", 3, map[string]any{
			"estado_completitud": store.RevisionCompleta,
			"accion":             store.AccionRevisionAprobar,
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("revision without accion leaves estado alone", func(t *testing.T) {
		env := newTestEnv()
		exp := seedExpediente(env, 10, 4, domain.EstadoEnRevision)

		rr := do(t, env, http.MethodPost, "/v1/expedientes/1/revisiones", 3, map[string]any{
			"estado_completitud": store.RevisionIncompleta,
			"observaciones":      "falta acta de adjudicación",
		})
		require.Equal(t, http.StatusCreated, rr.Code)

		assert.Equal(t, domain.EstadoEnRevision, env.expedientes.byID[exp.ID].Estado)
		assert.Len(t, env.revisiones.byExp[exp.ID], 1)
	})

	t.Run("tecnico cannot review", func(t *testing.T) {
		env := newTestEnv()
		seedExpediente(env, 10, 4, domain.EstadoCompleto)

		rr := do(t, env, http.MethodPost, "/v1/expedientes/1/revisiones", 4, map[string]any{
			"estado_completitud": store.RevisionCompleta,
		})
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestListRevisiones(t *testing.T) {
	env := newTestEnv()
	exp := seedExpediente(env, 10, 4, domain.EstadoEnRevision)
	env.revisiones.byExp[exp.ID] = []store.RevisionFinanciera{
		{ID: 1, ExpedienteID: exp.ID, RevisorID: 3, EstadoCompletitud: store.RevisionIncompleta},
		{ID: 2, ExpedienteID: exp.ID, RevisorID: 3, EstadoCompletitud: store.RevisionCompleta},
	}

	rr := do(t, env, http.MethodGet, "/v1/expedientes/1/revisiones", 2, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[[]store.RevisionFinanciera](t, rr)
	assert.Len(t, resp.Data, 2)
}
