package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type ReporteStore struct {
	db *sqlx.DB
}

type ReporteFilter struct {
	Desde        time.Time
	Hasta        time.Time
	MunicipioIDs []int64
}

type ResumenMunicipio struct {
	MunicipioID     int64   `db:"municipio_id" json:"municipio_id"`
	Municipio       string  `db:"municipio" json:"municipio"`
	Total           int     `db:"total" json:"total"`
	Recibidos       int     `db:"recibidos" json:"recibidos"`
	EnRevision      int     `db:"en_revision" json:"en_revision"`
	Completos       int     `db:"completos" json:"completos"`
	Incompletos     int     `db:"incompletos" json:"incompletos"`
	Aprobados       int     `db:"aprobados" json:"aprobados"`
	Rechazados      int     `db:"rechazados" json:"rechazados"`
	Archivados      int     `db:"archivados" json:"archivados"`
	MontoContratado float64 `db:"monto_contratado" json:"monto_contratado"`
	MontoAprobado   float64 `db:"monto_aprobado" json:"monto_aprobado"`
}

type ResumenGlobal struct {
	Total              int     `db:"total" json:"total"`
	Aprobados          int     `db:"aprobados" json:"aprobados"`
	Rechazados         int     `db:"rechazados" json:"rechazados"`
	EnTramite          int     `db:"en_tramite" json:"en_tramite"`
	MontoContratado    float64 `db:"monto_contratado" json:"monto_contratado"`
	MontoAprobado      float64 `db:"monto_aprobado" json:"monto_aprobado"`
	PorcentajeAprobado float64 `db:"porcentaje_aprobado" json:"porcentaje_aprobado"`
}

type ConteoEstado struct {
	Estado string `db:"estado" json:"estado"`
	Total  int    `db:"total" json:"total"`
}

type TiempoAprobacion struct {
	MunicipioID  int64   `db:"municipio_id" json:"municipio_id"`
	Municipio    string  `db:"municipio" json:"municipio"`
	Aprobados    int     `db:"aprobados" json:"aprobados"`
	DiasPromedio float64 `db:"dias_promedio" json:"dias_promedio"`
}

/*
Aggregation queries backing the dashboards and the CSV export. Every
query takes the same filter: a fecha_recepcion range plus an optional
municipio id list (empty list means all municipios the caller may see,
which the handler resolves before reaching this store).
*/
func (rs *ReporteStore) ResumenPorMunicipio(ctx context.Context, f ReporteFilter) ([]ResumenMunicipio, error) {
	query := `
	SELECT
		m.id AS municipio_id,
		m.nombre AS municipio,
		COUNT(e.id) AS total,
		COUNT(e.id) FILTER (WHERE e.estado = 'Recibido') AS recibidos,
		COUNT(e.id) FILTER (WHERE e.estado = 'En Revisión') AS en_revision,
		COUNT(e.id) FILTER (WHERE e.estado = 'Completo') AS completos,
		COUNT(e.id) FILTER (WHERE e.estado = 'Incompleto') AS incompletos,
		COUNT(e.id) FILTER (WHERE e.estado = 'Aprobado') AS aprobados,
		COUNT(e.id) FILTER (WHERE e.estado = 'Rechazado') AS rechazados,
		COUNT(e.id) FILTER (WHERE e.estado = 'Archivado') AS archivados,
		COALESCE(SUM(e.monto_contrato), 0) AS monto_contratado,
		COALESCE(SUM(e.monto_contrato) FILTER (WHERE e.estado = 'Aprobado'), 0) AS monto_aprobado
	FROM
		municipios m
	JOIN
		expedientes e ON e.municipio_id = m.id
	WHERE
		e.fecha_recepcion BETWEEN $1 AND $2
		AND (cardinality($3::bigint[]) = 0 OR m.id = ANY($3::bigint[]))
	GROUP BY
		m.id, m.nombre
	ORDER BY
		m.nombre;
	`

	var rows []ResumenMunicipio
	err := rs.db.SelectContext(ctx, &rows, query, f.Desde, f.Hasta, pq.Array(f.MunicipioIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query resumen por municipio: %w", err)
	}
	return rows, nil
}

func (rs *ReporteStore) ResumenGlobal(ctx context.Context, f ReporteFilter) (ResumenGlobal, error) {
	query := `
	SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE estado = 'Aprobado') AS aprobados,
		COUNT(*) FILTER (WHERE estado = 'Rechazado') AS rechazados,
		COUNT(*) FILTER (WHERE estado NOT IN ('Aprobado', 'Rechazado', 'Archivado')) AS en_tramite,
		COALESCE(SUM(monto_contrato), 0) AS monto_contratado,
		COALESCE(SUM(monto_contrato) FILTER (WHERE estado = 'Aprobado'), 0) AS monto_aprobado,
		CASE
			WHEN COUNT(*) > 0 THEN ROUND(COUNT(*) FILTER (WHERE estado = 'Aprobado') * 100.0 / COUNT(*), 2)
			ELSE 0
		END AS porcentaje_aprobado
	FROM
		expedientes
	WHERE
		fecha_recepcion BETWEEN $1 AND $2
		AND (cardinality($3::bigint[]) = 0 OR municipio_id = ANY($3::bigint[]));
	`

	var result ResumenGlobal
	err := rs.db.GetContext(ctx, &result, query, f.Desde, f.Hasta, pq.Array(f.MunicipioIDs))
	if err != nil {
		return ResumenGlobal{}, fmt.Errorf("failed to query resumen global: %w", err)
	}
	return result, nil
}

func (rs *ReporteStore) ConteoPorEstado(ctx context.Context, f ReporteFilter) ([]ConteoEstado, error) {
	query := `
	SELECT
		estado,
		COUNT(*) AS total
	FROM
		expedientes
	WHERE
		fecha_recepcion BETWEEN $1 AND $2
		AND (cardinality($3::bigint[]) = 0 OR municipio_id = ANY($3::bigint[]))
	GROUP BY
		estado
	ORDER BY
		total DESC;
	`

	var result []ConteoEstado
	err := rs.db.SelectContext(ctx, &result, query, f.Desde, f.Hasta, pq.Array(f.MunicipioIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query conteo por estado: %w", err)
	}
	return result, nil
}

func (rs *ReporteStore) TiemposAprobacion(ctx context.Context, f ReporteFilter) ([]TiempoAprobacion, error) {
	query := `
	SELECT
		m.id AS municipio_id,
		m.nombre AS municipio,
		COUNT(e.id) AS aprobados,
		ROUND(AVG(EXTRACT(EPOCH FROM (e.fecha_aprobacion - e.fecha_recepcion)) / 86400.0), 1) AS dias_promedio
	FROM
		municipios m
	JOIN
		expedientes e ON e.municipio_id = m.id
	WHERE
		e.estado = 'Aprobado'
		AND e.fecha_aprobacion IS NOT NULL
		AND e.fecha_recepcion BETWEEN $1 AND $2
		AND (cardinality($3::bigint[]) = 0 OR m.id = ANY($3::bigint[]))
	GROUP BY
		m.id, m.nombre
	ORDER BY
		dias_promedio;
	`

	var result []TiempoAprobacion
	err := rs.db.SelectContext(ctx, &result, query, f.Desde, f.Hasta, pq.Array(f.MunicipioIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query tiempos de aprobacion: %w", err)
	}
	return result, nil
}
