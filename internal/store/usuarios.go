package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovalledev/sigex/internal/domain"
)

type UsuarioStore struct {
	db *sqlx.DB
}

// checkRolUnico fails when another active user already holds a
// role that is exclusive system-wide.
func checkRolUnico(ctx context.Context, tx *sqlx.Tx, rol domain.Rol, excludeID int64) error {
	if !rol.UnicoGlobal() {
		return nil
	}

	var existing struct {
		ID      int64  `db:"id"`
		Nombres string `db:"nombres"`
	}
	err := tx.GetContext(ctx, &existing,
		`SELECT id, nombres FROM usuarios WHERE rol = $1 AND activo = true AND id <> $2 LIMIT 1`,
		rol, excludeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check rol exclusivity: %w", err)
	}
	return fmt.Errorf("%w: ya existe un %s activo (usuario %d, %s)",
		domain.ErrUniquenessConflict, rol, existing.ID, existing.Nombres)
}

// checkMunicipioDisponible fails when the municipio already has an
// active user of the given scoped role.
func checkMunicipioDisponible(ctx context.Context, tx *sqlx.Tx, rol domain.Rol, municipioID, excludeUsuarioID int64) error {
	var existing int64
	err := tx.GetContext(ctx, &existing,
		`SELECT u.id
		FROM usuarios u
		JOIN usuario_municipios um ON um.usuario_id = u.id AND um.activo = true
		WHERE u.rol = $1 AND u.activo = true AND um.municipio_id = $2 AND u.id <> $3
		LIMIT 1`,
		rol, municipioID, excludeUsuarioID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check municipio assignment: %w", err)
	}
	return fmt.Errorf("%w: municipio %d ya tiene %s activo (usuario %d)",
		domain.ErrUniquenessConflict, municipioID, rol, existing)
}

// checkAsignacionesDisponibles re-validates every active assignment of
// the user against the per-municipio exclusivity of the given role.
// Used when a dormant exclusivity can come back to life: reactivation,
// or a change into a municipio-scoped role.
func checkAsignacionesDisponibles(ctx context.Context, tx *sqlx.Tx, rol domain.Rol, usuarioID int64) error {
	var municipios []int64
	err := tx.SelectContext(ctx, &municipios,
		`SELECT municipio_id FROM usuario_municipios
		WHERE usuario_id = $1 AND activo = true`, usuarioID)
	if err != nil {
		return fmt.Errorf("failed to load assignments: %w", err)
	}

	for _, mid := range municipios {
		if err := checkMunicipioDisponible(ctx, tx, rol, mid, usuarioID); err != nil {
			return err
		}
	}
	return nil
}

func (us *UsuarioStore) Create(ctx context.Context, u *Usuario) error {
	return withTx(ctx, us.db, func(tx *sqlx.Tx) error {
		if u.Activo {
			if err := checkRolUnico(ctx, tx, u.Rol, 0); err != nil {
				return err
			}
		}

		query := `INSERT INTO usuarios (nombres, apellidos, correo, rol, activo)
		VALUES (:nombres, :apellidos, :correo, :rol, :activo)
		RETURNING id, creado_en, actualizado_en`

		rows, err := tx.NamedQuery(query, u)
		if err != nil {
			return mapConflict(err)
		}
		defer rows.Close()

		if rows.Next() {
			if err := rows.Scan(&u.ID, &u.CreadoEn, &u.ActualizadoEn); err != nil {
				return err
			}
		}
		return rows.Err()
	})
}

func (us *UsuarioStore) GetByID(ctx context.Context, id int64) (*Usuario, error) {
	var u Usuario
	err := us.db.GetContext(ctx, &u,
		`SELECT id, nombres, apellidos, correo, rol, activo, creado_en, actualizado_en
		FROM usuarios WHERE id = $1`, id)
	if err != nil {
		return nil, mapNotFound(err)
	}

	err = us.db.SelectContext(ctx, &u.MunicipioIDs,
		`SELECT municipio_id FROM usuario_municipios
		WHERE usuario_id = $1 AND activo = true ORDER BY municipio_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load municipio assignments: %w", err)
	}
	return &u, nil
}

func (us *UsuarioStore) List(ctx context.Context) ([]Usuario, error) {
	var usuarios []Usuario
	err := us.db.SelectContext(ctx, &usuarios,
		`SELECT id, nombres, apellidos, correo, rol, activo, creado_en, actualizado_en
		FROM usuarios ORDER BY apellidos, nombres`)
	if err != nil {
		return nil, fmt.Errorf("failed to list usuarios: %w", err)
	}

	type asignacion struct {
		UsuarioID   int64 `db:"usuario_id"`
		MunicipioID int64 `db:"municipio_id"`
	}
	var asignaciones []asignacion
	err = us.db.SelectContext(ctx, &asignaciones,
		`SELECT usuario_id, municipio_id FROM usuario_municipios WHERE activo = true`)
	if err != nil {
		return nil, fmt.Errorf("failed to load municipio assignments: %w", err)
	}

	porUsuario := make(map[int64][]int64, len(usuarios))
	for _, a := range asignaciones {
		porUsuario[a.UsuarioID] = append(porUsuario[a.UsuarioID], a.MunicipioID)
	}
	for i := range usuarios {
		usuarios[i].MunicipioIDs = porUsuario[usuarios[i].ID]
	}
	return usuarios, nil
}

// Update persists profile fields and role changes. Moving a user away
// from a municipio-scoped role is rejected while any assignment
// history exists, active or not; moving an active user into a scoped
// role re-validates their assignments against that role's
// per-municipio exclusivity.
func (us *UsuarioStore) Update(ctx context.Context, u *Usuario) error {
	return withTx(ctx, us.db, func(tx *sqlx.Tx) error {
		var current struct {
			Rol    domain.Rol `db:"rol"`
			Activo bool       `db:"activo"`
		}
		err := tx.GetContext(ctx, &current,
			`SELECT rol, activo FROM usuarios WHERE id = $1 FOR UPDATE`, u.ID)
		if err != nil {
			return mapNotFound(err)
		}

		if current.Rol != u.Rol {
			if current.Rol.RequiereMunicipios() && !u.Rol.RequiereMunicipios() {
				var history int
				err := tx.GetContext(ctx, &history,
					`SELECT COUNT(*) FROM usuario_municipios WHERE usuario_id = $1`, u.ID)
				if err != nil {
					return fmt.Errorf("failed to check assignment history: %w", err)
				}
				if history > 0 {
					return domain.ErrRoleChangeBlocked
				}
			}
			if current.Activo {
				if err := checkRolUnico(ctx, tx, u.Rol, u.ID); err != nil {
					return err
				}
				// The kept assignments now count against the new
				// role's per-municipio exclusivity.
				if u.Rol.RequiereMunicipios() {
					if err := checkAsignacionesDisponibles(ctx, tx, u.Rol, u.ID); err != nil {
						return err
					}
				}
			}
		}

		res, err := tx.NamedExecContext(ctx,
			`UPDATE usuarios SET nombres = :nombres, apellidos = :apellidos,
				correo = :correo, rol = :rol, actualizado_en = now()
			WHERE id = :id`, u)
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
	})
}

// SetActivo flips the active flag. Activation re-validates the
// exclusivity invariants against whatever is active right now.
func (us *UsuarioStore) SetActivo(ctx context.Context, id int64, activo bool) error {
	return withTx(ctx, us.db, func(tx *sqlx.Tx) error {
		var current struct {
			Rol domain.Rol `db:"rol"`
		}
		err := tx.GetContext(ctx, &current,
			`SELECT rol FROM usuarios WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return mapNotFound(err)
		}

		if activo {
			if err := checkRolUnico(ctx, tx, current.Rol, id); err != nil {
				return err
			}
			if current.Rol.RequiereMunicipios() {
				if err := checkAsignacionesDisponibles(ctx, tx, current.Rol, id); err != nil {
					return err
				}
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE usuarios SET activo = $1, actualizado_en = now() WHERE id = $2`, activo, id)
		if err != nil {
			return mapConflict(err)
		}
		return nil
	})
}

// AssignMunicipio creates or reactivates an assignment. TECNICO and
// MUNICIPAL assignments are exclusive per municipio.
func (us *UsuarioStore) AssignMunicipio(ctx context.Context, usuarioID, municipioID int64) error {
	return withTx(ctx, us.db, func(tx *sqlx.Tx) error {
		var u struct {
			Rol    domain.Rol `db:"rol"`
			Activo bool       `db:"activo"`
		}
		err := tx.GetContext(ctx, &u,
			`SELECT rol, activo FROM usuarios WHERE id = $1 FOR UPDATE`, usuarioID)
		if err != nil {
			return mapNotFound(err)
		}

		if !u.Rol.RequiereMunicipios() {
			return fmt.Errorf("rol %s does not take municipio assignments", u.Rol)
		}
		if u.Activo {
			if err := checkMunicipioDisponible(ctx, tx, u.Rol, municipioID, usuarioID); err != nil {
				return err
			}
		}

		query := `INSERT INTO usuario_municipios (usuario_id, municipio_id, activo)
		VALUES ($1, $2, true)
		ON CONFLICT (usuario_id, municipio_id)
		DO UPDATE SET activo = true, asignado_en = now(), desactivado_en = NULL`

		if _, err := tx.ExecContext(ctx, query, usuarioID, municipioID); err != nil {
			return mapConflict(err)
		}
		return nil
	})
}

// DeactivateMunicipio soft-removes an assignment, preserving history.
func (us *UsuarioStore) DeactivateMunicipio(ctx context.Context, usuarioID, municipioID int64) error {
	res, err := us.db.ExecContext(ctx,
		`UPDATE usuario_municipios SET activo = false, desactivado_en = now()
		WHERE usuario_id = $1 AND municipio_id = $2 AND activo = true`,
		usuarioID, municipioID)
	if err != nil {
		return fmt.Errorf("failed to deactivate assignment: %w", err)
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
