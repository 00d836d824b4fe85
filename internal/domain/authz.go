package domain

// Actor is the authenticated user performing an action. It is passed
// explicitly into every permission check; there is no ambient current
// user anywhere in the module.
type Actor struct {
	ID           int64
	Rol          Rol
	MunicipioIDs []int64
}

// AssignedTo reports whether the actor holds an active assignment to
// the given municipio.
func (a Actor) AssignedTo(municipioID int64) bool {
	for _, id := range a.MunicipioIDs {
		if id == municipioID {
			return true
		}
	}
	return false
}

// Accion is an operation on an expediente.
type Accion string

const (
	AccionVer               Accion = "ver"
	AccionCrear             Accion = "crear"
	AccionActualizar        Accion = "actualizar"
	AccionEnviarRevision    Accion = "enviar_revision"
	AccionRevisarFinanciera Accion = "revisar_financiera"
	AccionCambiarEstado     Accion = "cambiar_estado"
	AccionArchivar          Accion = "archivar"
	AccionEliminar          Accion = "eliminar"
)

// ExpedienteRef carries the facts about an expediente that the
// permission matrix needs. For AccionCrear only MunicipioID is
// meaningful (the municipio the new expediente would belong to).
type ExpedienteRef struct {
	Estado          Estado
	MunicipioID     int64
	ResponsableID   int64
	TieneRevisiones bool
}

// Can is the permission matrix: a pure decision over the actor's role,
// the action, and the expediente's ownership and estado.
func Can(actor Actor, accion Accion, exp ExpedienteRef) bool {
	// Eliminar is state-guarded for everyone, admins included: only a
	// freshly received expediente with no financial reviews may be
	// removed. Anything else can only be archived.
	if accion == AccionEliminar {
		return actor.Rol == RolAdmin &&
			exp.Estado == EstadoRecibido &&
			!exp.TieneRevisiones
	}

	if actor.Rol == RolAdmin {
		return true
	}

	switch accion {
	case AccionVer:
		switch actor.Rol {
		case RolDirector, RolJefeFinanciero:
			return true
		case RolTecnico, RolMunicipal:
			return actor.AssignedTo(exp.MunicipioID)
		}
	case AccionCrear:
		return actor.Rol == RolTecnico && actor.AssignedTo(exp.MunicipioID)
	case AccionActualizar:
		return actor.Rol == RolTecnico &&
			actor.AssignedTo(exp.MunicipioID) &&
			(exp.Estado == EstadoRecibido || exp.Estado == EstadoIncompleto)
	case AccionEnviarRevision:
		return actor.Rol == RolTecnico &&
			actor.ID == exp.ResponsableID &&
			exp.Estado == EstadoRecibido
	case AccionRevisarFinanciera:
		return actor.Rol == RolJefeFinanciero
	case AccionCambiarEstado, AccionArchivar:
		// Manual overrides and archiving stay with ADMIN.
		return false
	}
	return false
}

// CanManageUsuarios gates user and municipio administration.
func CanManageUsuarios(actor Actor) bool {
	return actor.Rol == RolAdmin
}

// CanManageGuias gates guía uploads and removal. Reading active guías
// is open to every authenticated role.
func CanManageGuias(actor Actor) bool {
	return actor.Rol == RolAdmin
}

// CanSendNotificaciones gates composing and retrying notification mail.
func CanSendNotificaciones(actor Actor) bool {
	return actor.Rol == RolAdmin
}

// CanReadBitacora gates the audit trail listing.
func CanReadBitacora(actor Actor) bool {
	return actor.Rol == RolAdmin || actor.Rol == RolDirector
}

// CanReadReportes gates the aggregated reports. MUNICIPAL users see
// reports too, but scoped to their own municipio by the handler.
func CanReadReportes(actor Actor) bool {
	return actor.Rol != ""
}
