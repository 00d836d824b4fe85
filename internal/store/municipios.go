package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovalledev/sigex/internal/domain"
)

type MunicipioStore struct {
	db *sqlx.DB
}

func (ms *MunicipioStore) Create(ctx context.Context, m *Municipio) error {
	query := `INSERT INTO municipios (nombre, departamento, telefono, correo, activo)
	VALUES (:nombre, :departamento, :telefono, :correo, :activo)
	RETURNING id, creado_en`

	rows, err := ms.db.NamedQueryContext(ctx, query, m)
	if err != nil {
		return mapConflict(err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&m.ID, &m.CreadoEn); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Upsert is used by the catalog importer: rows are keyed on
// (nombre, departamento) and contact fields are refreshed in place.
func (ms *MunicipioStore) Upsert(ctx context.Context, m *Municipio) error {
	query := `INSERT INTO municipios (nombre, departamento, telefono, correo, activo)
	VALUES (:nombre, :departamento, :telefono, :correo, :activo)
	ON CONFLICT (nombre, departamento)
	DO UPDATE SET telefono = EXCLUDED.telefono, correo = EXCLUDED.correo
	RETURNING id, creado_en`

	rows, err := ms.db.NamedQueryContext(ctx, query, m)
	if err != nil {
		return fmt.Errorf("failed to upsert municipio: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&m.ID, &m.CreadoEn); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (ms *MunicipioStore) GetByID(ctx context.Context, id int64) (*Municipio, error) {
	var m Municipio
	err := ms.db.GetContext(ctx, &m,
		`SELECT id, nombre, departamento, telefono, correo, activo, creado_en
		FROM municipios WHERE id = $1`, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &m, nil
}

func (ms *MunicipioStore) List(ctx context.Context, soloActivos bool) ([]Municipio, error) {
	var out []Municipio
	err := ms.db.SelectContext(ctx, &out,
		`SELECT id, nombre, departamento, telefono, correo, activo, creado_en
		FROM municipios
		WHERE ($1 = false OR activo = true)
		ORDER BY departamento, nombre`, soloActivos)
	if err != nil {
		return nil, fmt.Errorf("failed to list municipios: %w", err)
	}
	return out, nil
}

func (ms *MunicipioStore) Update(ctx context.Context, m *Municipio) error {
	query := `UPDATE municipios SET
		nombre = :nombre,
		departamento = :departamento,
		telefono = :telefono,
		correo = :correo,
		activo = :activo
	WHERE id = :id`

	res, err := ms.db.NamedExecContext(ctx, query, m)
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
