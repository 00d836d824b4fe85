package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovalledev/sigex/internal/domain"
)

type NotificacionStore struct {
	db *sqlx.DB
}

func (ns *NotificacionStore) Create(ctx context.Context, n *Notificacion) error {
	query := `INSERT INTO notificaciones_enviadas (
		tipo,
		expediente_id,
		municipio_id,
		remitente_id,
		destinatario_correo,
		destinatario_nombre,
		asunto,
		mensaje,
		estado
	) VALUES (
		:tipo,
		:expediente_id,
		:municipio_id,
		:remitente_id,
		:destinatario_correo,
		:destinatario_nombre,
		:asunto,
		:mensaje,
		:estado
	) RETURNING id, creada_en`

	rows, err := ns.db.NamedQueryContext(ctx, query, n)
	if err != nil {
		return fmt.Errorf("failed to insert notificacion: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&n.ID, &n.CreadaEn); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (ns *NotificacionStore) GetByID(ctx context.Context, id int64) (*Notificacion, error) {
	var n Notificacion
	err := ns.db.GetContext(ctx, &n,
		`SELECT id, tipo, expediente_id, municipio_id, remitente_id, destinatario_correo,
			destinatario_nombre, asunto, mensaje, estado, ultimo_error, enviada_en, creada_en
		FROM notificaciones_enviadas WHERE id = $1`, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &n, nil
}

func (ns *NotificacionStore) List(ctx context.Context, estado string, limit int) ([]Notificacion, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var out []Notificacion
	err := ns.db.SelectContext(ctx, &out,
		`SELECT id, tipo, expediente_id, municipio_id, remitente_id, destinatario_correo,
			destinatario_nombre, asunto, mensaje, estado, ultimo_error, enviada_en, creada_en
		FROM notificaciones_enviadas
		WHERE ($1 = '' OR estado = $1)
		ORDER BY creada_en DESC
		LIMIT $2`, estado, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notificaciones: %w", err)
	}
	return out, nil
}

// MarkResultado records the outcome of a dispatch attempt. enviada_en
// is stamped only when the mail went out.
func (ns *NotificacionStore) MarkResultado(ctx context.Context, id int64, estado string, ultimoError *string) error {
	res, err := ns.db.ExecContext(ctx,
		`UPDATE notificaciones_enviadas
		SET estado = $1,
			ultimo_error = $2,
			enviada_en = CASE WHEN $1 = $3 THEN now() ELSE enviada_en END
		WHERE id = $4`,
		estado, ultimoError, NotificacionEnviada, id)
	if err != nil {
		return fmt.Errorf("failed to mark notificacion: %w", err)
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
