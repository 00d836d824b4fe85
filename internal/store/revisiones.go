package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type RevisionStore struct {
	db *sqlx.DB
}

// Create inserts a financial review and, when the review carries an
// Aprobar/Rechazar action, applies the cascaded expediente transition
// in the same transaction. An invalid or concurrently broken cascade
// aborts the whole operation, so no orphan review rows remain.
func (rs *RevisionStore) Create(ctx context.Context, rev *RevisionFinanciera, cascada *CambioEstado) error {
	return withTx(ctx, rs.db, func(tx *sqlx.Tx) error {
		query := `INSERT INTO revisiones_financieras (
			expediente_id,
			revisor_id,
			estado_completitud,
			accion,
			monto_aprobado,
			observaciones
		) VALUES (
			:expediente_id,
			:revisor_id,
			:estado_completitud,
			:accion,
			:monto_aprobado,
			:observaciones
		) RETURNING id, fecha_revision`

		rows, err := tx.NamedQuery(query, rev)
		if err != nil {
			return fmt.Errorf("failed to insert revision: %w", err)
		}

		if rows.Next() {
			if err := rows.Scan(&rev.ID, &rev.FechaRevision); err != nil {
				rows.Close()
				return err
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if cascada != nil {
			return applyCambioEstado(ctx, tx, *cascada)
		}
		return nil
	})
}

func (rs *RevisionStore) ListByExpediente(ctx context.Context, expedienteID int64) ([]RevisionFinanciera, error) {
	query := `SELECT id, expediente_id, revisor_id, estado_completitud, accion,
		monto_aprobado, observaciones, fecha_revision
	FROM revisiones_financieras
	WHERE expediente_id = $1
	ORDER BY fecha_revision DESC`

	var out []RevisionFinanciera
	if err := rs.db.SelectContext(ctx, &out, query, expedienteID); err != nil {
		return nil, fmt.Errorf("failed to list revisiones: %w", err)
	}
	return out, nil
}

func (rs *RevisionStore) CountByExpediente(ctx context.Context, expedienteID int64) (int, error) {
	var count int
	err := rs.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM revisiones_financieras WHERE expediente_id = $1`, expedienteID)
	if err != nil {
		return 0, fmt.Errorf("failed to count revisiones: %w", err)
	}
	return count, nil
}
