package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type BitacoraStore struct {
	db *sqlx.DB
}

type BitacoraFilter struct {
	Entidad   string
	EntidadID int64
	Limit     int
}

// Append writes an audit entry. The table is append-only; nothing in
// this module updates or deletes bitacora rows.
func (bs *BitacoraStore) Append(ctx context.Context, e *EntradaBitacora) error {
	query := `INSERT INTO bitacora (entidad, entidad_id, accion, detalle, usuario_id)
	VALUES (:entidad, :entidad_id, :accion, :detalle, :usuario_id)
	RETURNING id, fecha_hora`

	rows, err := bs.db.NamedQueryContext(ctx, query, e)
	if err != nil {
		return fmt.Errorf("failed to append bitacora: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&e.ID, &e.FechaHora); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (bs *BitacoraStore) List(ctx context.Context, f BitacoraFilter) ([]EntradaBitacora, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var out []EntradaBitacora
	err := bs.db.SelectContext(ctx, &out,
		`SELECT id, entidad, entidad_id, accion, detalle, usuario_id, fecha_hora
		FROM bitacora
		WHERE ($1 = '' OR entidad = $1)
			AND ($2 = 0 OR entidad_id = $2)
		ORDER BY fecha_hora DESC
		LIMIT $3`, f.Entidad, f.EntidadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bitacora: %w", err)
	}
	return out, nil
}
