package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovalledev/sigex/internal/domain"
)

type Storage struct {
	Expedientes interface {
		Create(ctx context.Context, exp *Expediente) error
		GetByID(ctx context.Context, id int64) (*Expediente, error)
		List(ctx context.Context, f ExpedienteFilter) ([]Expediente, error)
		Update(ctx context.Context, exp *Expediente) error
		ChangeEstado(ctx context.Context, c CambioEstado) error
		Delete(ctx context.Context, id int64) error
		ListTiposSolicitud(ctx context.Context) ([]TipoSolicitud, error)
	}

	Revisiones interface {
		Create(ctx context.Context, rev *RevisionFinanciera, cascada *CambioEstado) error
		ListByExpediente(ctx context.Context, expedienteID int64) ([]RevisionFinanciera, error)
		CountByExpediente(ctx context.Context, expedienteID int64) (int, error)
	}

	Usuarios interface {
		Create(ctx context.Context, u *Usuario) error
		GetByID(ctx context.Context, id int64) (*Usuario, error)
		List(ctx context.Context) ([]Usuario, error)
		Update(ctx context.Context, u *Usuario) error
		SetActivo(ctx context.Context, id int64, activo bool) error
		AssignMunicipio(ctx context.Context, usuarioID, municipioID int64) error
		DeactivateMunicipio(ctx context.Context, usuarioID, municipioID int64) error
	}

	Municipios interface {
		Create(ctx context.Context, m *Municipio) error
		Upsert(ctx context.Context, m *Municipio) error
		GetByID(ctx context.Context, id int64) (*Municipio, error)
		List(ctx context.Context, soloActivos bool) ([]Municipio, error)
		Update(ctx context.Context, m *Municipio) error
	}

	Guias interface {
		Create(ctx context.Context, g *Guia) error
		GetByID(ctx context.Context, id int64) (*Guia, error)
		ListActivas(ctx context.Context, categoria string) ([]Guia, error)
		ListByCategoria(ctx context.Context, categoria string) ([]Guia, error)
		ListCategorias(ctx context.Context) ([]CategoriaGuia, error)
		Delete(ctx context.Context, id int64) error
	}

	Notificaciones interface {
		Create(ctx context.Context, n *Notificacion) error
		GetByID(ctx context.Context, id int64) (*Notificacion, error)
		List(ctx context.Context, estado string, limit int) ([]Notificacion, error)
		MarkResultado(ctx context.Context, id int64, estado string, ultimoError *string) error
	}

	Bitacora interface {
		Append(ctx context.Context, e *EntradaBitacora) error
		List(ctx context.Context, f BitacoraFilter) ([]EntradaBitacora, error)
	}

	Reportes interface {
		ResumenPorMunicipio(ctx context.Context, f ReporteFilter) ([]ResumenMunicipio, error)
		ResumenGlobal(ctx context.Context, f ReporteFilter) (ResumenGlobal, error)
		ConteoPorEstado(ctx context.Context, f ReporteFilter) ([]ConteoEstado, error)
		TiemposAprobacion(ctx context.Context, f ReporteFilter) ([]TiempoAprobacion, error)
	}
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		Expedientes:    &ExpedienteStore{db: db},
		Revisiones:     &RevisionStore{db: db},
		Usuarios:       &UsuarioStore{db: db},
		Municipios:     &MunicipioStore{db: db},
		Guias:          &GuiaStore{db: db},
		Notificaciones: &NotificacionStore{db: db},
		Bitacora:       &BitacoraStore{db: db},
		Reportes:       &ReporteStore{db: db},
	}
}

// CambioEstado is a guarded estado transition: the UPDATE only applies
// while the row is still in Desde, so concurrent changes surface as
// domain.ErrConcurrentUpdate instead of silently overwriting.
type CambioEstado struct {
	ExpedienteID    int64
	Desde           domain.Estado
	Hacia           domain.Estado
	FechaAprobacion *time.Time
	Observacion     string
}

const pqUniqueViolation = "23505"

// mapConflict converts Postgres unique violations (partial unique
// indexes backing the exclusivity invariants) into the domain error.
func mapConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrUniquenessConflict, pqErr.Constraint)
	}
	return err
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// applyCambioEstado runs the guarded estado UPDATE inside tx.
func applyCambioEstado(ctx context.Context, tx *sqlx.Tx, c CambioEstado) error {
	query := `
	UPDATE expedientes
	SET estado = $1,
		fecha_aprobacion = COALESCE($2, fecha_aprobacion),
		observaciones = CASE WHEN $3 <> '' THEN observaciones || E'\n' || $3 ELSE observaciones END,
		actualizado_en = now()
	WHERE id = $4 AND estado = $5`

	res, err := tx.ExecContext(ctx, query, c.Hacia, c.FechaAprobacion, c.Observacion, c.ExpedienteID, c.Desde)
	if err != nil {
		return fmt.Errorf("failed to update estado: %w", err)
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

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
