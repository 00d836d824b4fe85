package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovalledev/sigex/internal/domain"
)

type ExpedienteStore struct {
	db *sqlx.DB
}

// ExpedienteFilter narrows List. MunicipioIDs is mandatory scoping for
// TECNICO/MUNICIPAL actors; global roles pass it empty.
type ExpedienteFilter struct {
	MunicipioIDs  []int64
	Estado        domain.Estado
	ResponsableID int64
	Busqueda      string
	Limit         int
	Offset        int
}

func (es *ExpedienteStore) Create(ctx context.Context, exp *Expediente) error {
	query := `INSERT INTO expedientes (
		codigo,
		nombre_proyecto,
		municipio_id,
		responsable_id,
		tipo_solicitud_id,
		categoria,
		fecha_recepcion,
		monto_contrato,
		adjudicatario,
		observaciones,
		estado
	) VALUES (
		:codigo,
		:nombre_proyecto,
		:municipio_id,
		:responsable_id,
		:tipo_solicitud_id,
		:categoria,
		:fecha_recepcion,
		:monto_contrato,
		:adjudicatario,
		:observaciones,
		:estado
	) RETURNING id, creado_en, actualizado_en`

	rows, err := es.db.NamedQueryContext(ctx, query, exp)
	if err != nil {
		return mapConflict(err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&exp.ID, &exp.CreadoEn, &exp.ActualizadoEn); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (es *ExpedienteStore) GetByID(ctx context.Context, id int64) (*Expediente, error) {
	query := `SELECT id, codigo, nombre_proyecto, municipio_id, responsable_id,
		tipo_solicitud_id, categoria, fecha_recepcion, monto_contrato, adjudicatario,
		observaciones, estado, fecha_aprobacion, creado_en, actualizado_en
	FROM expedientes WHERE id = $1`

	var exp Expediente
	if err := es.db.GetContext(ctx, &exp, query, id); err != nil {
		return nil, mapNotFound(err)
	}
	return &exp, nil
}

func (es *ExpedienteStore) List(ctx context.Context, f ExpedienteFilter) ([]Expediente, error) {
	query := `SELECT id, codigo, nombre_proyecto, municipio_id, responsable_id,
		tipo_solicitud_id, categoria, fecha_recepcion, monto_contrato, adjudicatario,
		observaciones, estado, fecha_aprobacion, creado_en, actualizado_en
	FROM expedientes
	WHERE (cardinality($1::bigint[]) = 0 OR municipio_id = ANY($1::bigint[]))
		AND ($2 = '' OR estado = $2)
		AND ($3 = 0 OR responsable_id = $3)
		AND ($4 = '' OR codigo ILIKE '%' || $4 || '%' OR nombre_proyecto ILIKE '%' || $4 || '%')
	ORDER BY fecha_recepcion DESC, id DESC
	LIMIT $5 OFFSET $6`

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var out []Expediente
	err := es.db.SelectContext(ctx, &out, query,
		pq.Array(f.MunicipioIDs), string(f.Estado), f.ResponsableID, f.Busqueda, limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list expedientes: %w", err)
	}
	return out, nil
}

// Update persists the editable fields. Estado is never touched here;
// transitions go through ChangeEstado.
func (es *ExpedienteStore) Update(ctx context.Context, exp *Expediente) error {
	query := `UPDATE expedientes SET
		nombre_proyecto = :nombre_proyecto,
		tipo_solicitud_id = :tipo_solicitud_id,
		categoria = :categoria,
		fecha_recepcion = :fecha_recepcion,
		monto_contrato = :monto_contrato,
		adjudicatario = :adjudicatario,
		observaciones = :observaciones,
		actualizado_en = now()
	WHERE id = :id`

	res, err := es.db.NamedExecContext(ctx, query, exp)
	if err != nil {
		return mapConflict(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (es *ExpedienteStore) ChangeEstado(ctx context.Context, c CambioEstado) error {
	return withTx(ctx, es.db, func(tx *sqlx.Tx) error {
		return applyCambioEstado(ctx, tx, c)
	})
}

// Delete removes an expediente only while it is still Recibido and has
// no financial reviews. The guard lives in the statement itself so a
// race with a concurrent review or transition cannot slip through.
func (es *ExpedienteStore) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM expedientes
	WHERE id = $1
		AND estado = $2
		AND NOT EXISTS (SELECT 1 FROM revisiones_financieras WHERE expediente_id = $1)`

	res, err := es.db.ExecContext(ctx, query, id, domain.EstadoRecibido)
	if err != nil {
		return fmt.Errorf("failed to delete expediente: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrConcurrentUpdate
	}
	return nil
}

func (es *ExpedienteStore) ListTiposSolicitud(ctx context.Context) ([]TipoSolicitud, error) {
	var out []TipoSolicitud
	err := es.db.SelectContext(ctx, &out,
		`SELECT id, nombre, activo FROM tipos_solicitud WHERE activo = true ORDER BY nombre`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tipos de solicitud: %w", err)
	}
	return out, nil
}
