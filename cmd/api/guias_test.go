package main

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovalledev/sigex/internal/domain"
	"github.com/ovalledev/sigex/internal/store"
)

func uploadGuia(t *testing.T, env *testEnv, userID int64, titulo, categoria, filename, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("titulo", titulo))
	require.NoError(t, mw.WriteField("categoria", categoria))
	fw, err := mw.CreateFormFile("archivo", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/guias", &buf)
	req.Header.Set("X-User-ID", strconv.FormatInt(userID, 10))
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rr := httptest.NewRecorder()
	env.app.mount().ServeHTTP(rr, req)
	return rr
}

func TestCreateGuia(t *testing.T) {
	t.Run("categoria is normalized and versions rotate", func(t *testing.T) {
		env := newTestEnv()

		rr := uploadGuia(t, env, 1, "Guía de rendición", "  manejo  de fondos ", "guia-v1.pdf", "v1")
		require.Equal(t, http.StatusCreated, rr.Code)

		first := decode[*store.Guia](t, rr)
		assert.Equal(t, "MANEJO DE FONDOS", first.Data.Categoria)
		assert.Equal(t, 1, first.Data.Version)
		assert.True(t, first.Data.Activa)

		rr = uploadGuia(t, env, 1, "Guía de rendición", "Manejo De Fondos", "guia-v2.pdf", "v2")
		require.Equal(t, http.StatusCreated, rr.Code)

		second := decode[*store.Guia](t, rr)
		assert.Equal(t, "MANEJO DE FONDOS", second.Data.Categoria)
		assert.Equal(t, 2, second.Data.Version)

		activas, err := env.guias.ListActivas(context.Background(), "MANEJO DE FONDOS")
		require.NoError(t, err)
		require.Len(t, activas, 1)
		assert.Equal(t, 2, activas[0].Version)
	})

	t.Run("version cap removes the stored blob again", func(t *testing.T) {
		env := newTestEnv()
		for v := 1; v <= domain.MaxVersionesPorCategoria; v++ {
			env.guias.guias = append(env.guias.guias, &store.Guia{
				ID: int64(v), Titulo: "Guía", Categoria: "RENDICION",
				Version: v, Archivo: "seed", NombreArchivo: "g.pdf",
				SubidaPorID: 1, PublicadaEn: time.Now(),
				Activa: v == domain.MaxVersionesPorCategoria,
			})
			env.guias.nextID = int64(v)
		}

		rr := uploadGuia(t, env, 1, "Guía", "rendicion", "g6.pdf", "v6")
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

		assert.Len(t, env.guias.guias, domain.MaxVersionesPorCategoria)
		require.Len(t, env.files.removed, 1)
		assert.NotContains(t, env.files.blobs, env.files.removed[0])
	})

	t.Run("only admin uploads", func(t *testing.T) {
		env := newTestEnv()

		rr := uploadGuia(t, env, 4, "Guía", "RENDICION", "g.pdf", "v1")
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Empty(t, env.guias.guias)
		assert.Empty(t, env.files.blobs)
	})
}

func TestDescargarGuia(t *testing.T) {
	env := newTestEnv()
	env.files.blobs["blob-seed"] = "contenido pdf"
	env.guias.guias = append(env.guias.guias, &store.Guia{
		ID: 1, Titulo: "Guía", Categoria: "RENDICION", Version: 1,
		Archivo: "blob-seed", NombreArchivo: "guia-rendicion.pdf",
		SubidaPorID: 1, Activa: true,
	})
	env.guias.nextID = 1

	rr := do(t, env, http.MethodGet, "/v1/guias/1/descargar", 4, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "contenido pdf", rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "guia-rendicion.pdf")
}

func TestDeleteGuia(t *testing.T) {
	env := newTestEnv()
	env.files.blobs["blob-seed"] = "contenido"
	env.guias.guias = append(env.guias.guias, &store.Guia{
		ID: 1, Titulo: "Guía", Categoria: "RENDICION", Version: 1,
		Archivo: "blob-seed", NombreArchivo: "g.pdf", SubidaPorID: 1, Activa: true,
	})
	env.guias.nextID = 1

	rr := do(t, env, http.MethodDelete, "/v1/guias/1", 1, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	assert.Contains(t, env.files.removed, "blob-seed")
	assert.Empty(t, env.guias.guias)
}

func TestListGuias(t *testing.T) {
	env := newTestEnv()
	env.guias.guias = append(env.guias.guias,
		&store.Guia{ID: 1, Categoria: "RENDICION", Version: 1, Activa: false},
		&store.Guia{ID: 2, Categoria: "RENDICION", Version: 2, Activa: true},
		&store.Guia{ID: 3, Categoria: "ADQUISICIONES", Version: 1, Activa: true},
	)
	env.guias.nextID = 3

	t.Run("default lists active versions only", func(t *testing.T) {
		rr := do(t, env, http.MethodGet, "/v1/guias", 6, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		resp := decode[[]store.Guia](t, rr)
		assert.Len(t, resp.Data, 2)
	})

	t.Run("historial shows every version of a categoria", func(t *testing.T) {
		rr := do(t, env, http.MethodGet, "/v1/guias?categoria=rendicion&historial=true", 6, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		resp := decode[[]store.Guia](t, rr)
		assert.Len(t, resp.Data, 2)
	})
}
