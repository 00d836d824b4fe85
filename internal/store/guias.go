package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovalledev/sigex/internal/domain"
)

type GuiaStore struct {
	db *sqlx.DB
}

// Create inserts the next version of a guía in its category. One
// transaction locks the category's rows, checks the version cap,
// deactivates every prior version and inserts the new row as the only
// active one. The caller must have normalized g.Categoria already.
func (gs *GuiaStore) Create(ctx context.Context, g *Guia) error {
	return withTx(ctx, gs.db, func(tx *sqlx.Tx) error {
		var versiones []int
		err := tx.SelectContext(ctx, &versiones,
			`SELECT version FROM guias WHERE categoria = $1 FOR UPDATE`, g.Categoria)
		if err != nil {
			return fmt.Errorf("failed to lock categoria: %w", err)
		}

		if !domain.CanAddVersion(len(versiones)) {
			return fmt.Errorf("%w: categoria %q ya tiene %d versiones",
				domain.ErrVersionCapExceeded, g.Categoria, len(versiones))
		}
		g.Version = domain.NextVersion(versiones)

		if _, err := tx.ExecContext(ctx,
			`UPDATE guias SET activa = false WHERE categoria = $1`, g.Categoria); err != nil {
			return fmt.Errorf("failed to deactivate categoria: %w", err)
		}

		query := `INSERT INTO guias (titulo, categoria, version, archivo, nombre_archivo, subida_por_id, activa)
		VALUES (:titulo, :categoria, :version, :archivo, :nombre_archivo, :subida_por_id, true)
		RETURNING id, publicada_en`

		rows, err := tx.NamedQuery(query, g)
		if err != nil {
			return mapConflict(err)
		}
		defer rows.Close()

		g.Activa = true
		if rows.Next() {
			if err := rows.Scan(&g.ID, &g.PublicadaEn); err != nil {
				return err
			}
		}
		return rows.Err()
	})
}

func (gs *GuiaStore) GetByID(ctx context.Context, id int64) (*Guia, error) {
	var g Guia
	err := gs.db.GetContext(ctx, &g,
		`SELECT id, titulo, categoria, version, archivo, nombre_archivo, subida_por_id, publicada_en, activa
		FROM guias WHERE id = $1`, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &g, nil
}

// ListActivas returns the single active version per category,
// optionally narrowed to one category.
func (gs *GuiaStore) ListActivas(ctx context.Context, categoria string) ([]Guia, error) {
	var out []Guia
	err := gs.db.SelectContext(ctx, &out,
		`SELECT id, titulo, categoria, version, archivo, nombre_archivo, subida_por_id, publicada_en, activa
		FROM guias
		WHERE activa = true AND ($1 = '' OR categoria = $1)
		ORDER BY categoria`, categoria)
	if err != nil {
		return nil, fmt.Errorf("failed to list guias activas: %w", err)
	}
	return out, nil
}

func (gs *GuiaStore) ListByCategoria(ctx context.Context, categoria string) ([]Guia, error) {
	var out []Guia
	err := gs.db.SelectContext(ctx, &out,
		`SELECT id, titulo, categoria, version, archivo, nombre_archivo, subida_por_id, publicada_en, activa
		FROM guias WHERE categoria = $1
		ORDER BY version DESC`, categoria)
	if err != nil {
		return nil, fmt.Errorf("failed to list guias: %w", err)
	}
	return out, nil
}

func (gs *GuiaStore) ListCategorias(ctx context.Context) ([]CategoriaGuia, error) {
	query := `SELECT
		categoria,
		COUNT(*) AS versiones,
		MAX(version) FILTER (WHERE activa) AS version_activa
	FROM guias
	GROUP BY categoria
	ORDER BY categoria`

	var out []CategoriaGuia
	if err := gs.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("failed to list categorias: %w", err)
	}
	return out, nil
}

// Delete removes the row. The caller removes the stored file first and
// only calls this once the file is gone.
func (gs *GuiaStore) Delete(ctx context.Context, id int64) error {
	res, err := gs.db.ExecContext(ctx, `DELETE FROM guias WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete guia: %w", err)
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
