package store

import (
	"time"

	"github.com/ovalledev/sigex/internal/domain"
)

// Categorías de expediente.
const (
	CategoriaOrdinario                = "ORDINARIO"
	CategoriaExtraordinario           = "EXTRAORDINARIO"
	CategoriaAsignacionExtraordinaria = "ASIGNACION_EXTRAORDINARIA"
)

// Estados de completitud de una revisión financiera.
const (
	RevisionCompleta   = "Completo"
	RevisionIncompleta = "Incompleto"
)

// Acciones opcionales de una revisión financiera.
const (
	AccionRevisionAprobar      = "Aprobar"
	AccionRevisionRechazar     = "Rechazar"
	AccionRevisionCorrecciones = "Solicitar Correcciones"
)

// Estados de una notificación enviada.
const (
	NotificacionPendiente = "Pendiente"
	NotificacionEnviada   = "Enviada"
	NotificacionFallida   = "Fallida"
)

// Expediente represents the 'expedientes' table.
type Expediente struct {
	ID              int64         `db:"id" json:"id"`
	Codigo          string        `db:"codigo" json:"codigo"`
	NombreProyecto  string        `db:"nombre_proyecto" json:"nombre_proyecto"`
	MunicipioID     int64         `db:"municipio_id" json:"municipio_id"`
	ResponsableID   int64         `db:"responsable_id" json:"responsable_id"`
	TipoSolicitudID int64         `db:"tipo_solicitud_id" json:"tipo_solicitud_id"`
	Categoria       string        `db:"categoria" json:"categoria"`
	FechaRecepcion  time.Time     `db:"fecha_recepcion" json:"fecha_recepcion"`
	MontoContrato   *float64      `db:"monto_contrato" json:"monto_contrato,omitempty"`
	Adjudicatario   *string       `db:"adjudicatario" json:"adjudicatario,omitempty"`
	Observaciones   string        `db:"observaciones" json:"observaciones"`
	Estado          domain.Estado `db:"estado" json:"estado"`
	FechaAprobacion *time.Time    `db:"fecha_aprobacion" json:"fecha_aprobacion,omitempty"`
	CreadoEn        time.Time     `db:"creado_en" json:"creado_en"`
	ActualizadoEn   time.Time     `db:"actualizado_en" json:"actualizado_en"`
}

// TipoSolicitud represents the 'tipos_solicitud' catalog table.
type TipoSolicitud struct {
	ID     int64  `db:"id" json:"id"`
	Nombre string `db:"nombre" json:"nombre"`
	Activo bool   `db:"activo" json:"activo"`
}

// RevisionFinanciera represents the 'revisiones_financieras' table.
// Rows are immutable once created.
type RevisionFinanciera struct {
	ID                int64     `db:"id" json:"id"`
	ExpedienteID      int64     `db:"expediente_id" json:"expediente_id"`
	RevisorID         int64     `db:"revisor_id" json:"revisor_id"`
	EstadoCompletitud string    `db:"estado_completitud" json:"estado_completitud"`
	Accion            *string   `db:"accion" json:"accion,omitempty"`
	MontoAprobado     *float64  `db:"monto_aprobado" json:"monto_aprobado,omitempty"`
	Observaciones     string    `db:"observaciones" json:"observaciones"`
	FechaRevision     time.Time `db:"fecha_revision" json:"fecha_revision"`
}

// Municipio represents the 'municipios' table.
type Municipio struct {
	ID           int64     `db:"id" json:"id"`
	Nombre       string    `db:"nombre" json:"nombre"`
	Departamento string    `db:"departamento" json:"departamento"`
	Telefono     *string   `db:"telefono" json:"telefono,omitempty"`
	Correo       *string   `db:"correo" json:"correo,omitempty"`
	Activo       bool      `db:"activo" json:"activo"`
	CreadoEn     time.Time `db:"creado_en" json:"creado_en"`
}

// Usuario represents the 'usuarios' table. MunicipioIDs carries the
// user's active assignments, loaded from 'usuario_municipios'.
type Usuario struct {
	ID            int64      `db:"id" json:"id"`
	Nombres       string     `db:"nombres" json:"nombres"`
	Apellidos     string     `db:"apellidos" json:"apellidos"`
	Correo        string     `db:"correo" json:"correo"`
	Rol           domain.Rol `db:"rol" json:"rol"`
	Activo        bool       `db:"activo" json:"activo"`
	CreadoEn      time.Time  `db:"creado_en" json:"creado_en"`
	ActualizadoEn time.Time  `db:"actualizado_en" json:"actualizado_en"`

	MunicipioIDs []int64 `db:"-" json:"municipio_ids"`
}

// AsignacionMunicipio represents the 'usuario_municipios' table.
// Assignments are deactivated, never deleted, to preserve history.
type AsignacionMunicipio struct {
	ID            int64      `db:"id" json:"id"`
	UsuarioID     int64      `db:"usuario_id" json:"usuario_id"`
	MunicipioID   int64      `db:"municipio_id" json:"municipio_id"`
	Activo        bool       `db:"activo" json:"activo"`
	AsignadoEn    time.Time  `db:"asignado_en" json:"asignado_en"`
	DesactivadoEn *time.Time `db:"desactivado_en" json:"desactivado_en,omitempty"`
}

// Guia represents the 'guias' table.
type Guia struct {
	ID            int64     `db:"id" json:"id"`
	Titulo        string    `db:"titulo" json:"titulo"`
	Categoria     string    `db:"categoria" json:"categoria"`
	Version       int       `db:"version" json:"version"`
	Archivo       string    `db:"archivo" json:"-"`
	NombreArchivo string    `db:"nombre_archivo" json:"nombre_archivo"`
	SubidaPorID   int64     `db:"subida_por_id" json:"subida_por_id"`
	PublicadaEn   time.Time `db:"publicada_en" json:"publicada_en"`
	Activa        bool      `db:"activa" json:"activa"`
}

// CategoriaGuia is a row of the categories listing.
type CategoriaGuia struct {
	Categoria     string `db:"categoria" json:"categoria"`
	Versiones     int    `db:"versiones" json:"versiones"`
	VersionActiva *int   `db:"version_activa" json:"version_activa,omitempty"`
}

// Notificacion represents the 'notificaciones_enviadas' table.
type Notificacion struct {
	ID                 int64      `db:"id" json:"id"`
	Tipo               string     `db:"tipo" json:"tipo"`
	ExpedienteID       *int64     `db:"expediente_id" json:"expediente_id,omitempty"`
	MunicipioID        *int64     `db:"municipio_id" json:"municipio_id,omitempty"`
	RemitenteID        int64      `db:"remitente_id" json:"remitente_id"`
	DestinatarioCorreo string     `db:"destinatario_correo" json:"destinatario_correo"`
	DestinatarioNombre string     `db:"destinatario_nombre" json:"destinatario_nombre"`
	Asunto             string     `db:"asunto" json:"asunto"`
	Mensaje            string     `db:"mensaje" json:"mensaje"`
	Estado             string     `db:"estado" json:"estado"`
	UltimoError        *string    `db:"ultimo_error" json:"ultimo_error,omitempty"`
	EnviadaEn          *time.Time `db:"enviada_en" json:"enviada_en,omitempty"`
	CreadaEn           time.Time  `db:"creada_en" json:"creada_en"`
}

// EntradaBitacora represents the 'bitacora' table. Append-only.
type EntradaBitacora struct {
	ID        int64     `db:"id" json:"id"`
	Entidad   string    `db:"entidad" json:"entidad"`
	EntidadID int64     `db:"entidad_id" json:"entidad_id"`
	Accion    string    `db:"accion" json:"accion"`
	Detalle   string    `db:"detalle" json:"detalle"`
	UsuarioID int64     `db:"usuario_id" json:"usuario_id"`
	FechaHora time.Time `db:"fecha_hora" json:"fecha_hora"`
}
