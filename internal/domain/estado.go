package domain

import "fmt"

// Estado is the lifecycle state of an expediente.
type Estado string

const (
	EstadoRecibido   Estado = "Recibido"
	EstadoEnRevision Estado = "En Revisión"
	EstadoCompleto   Estado = "Completo"
	EstadoIncompleto Estado = "Incompleto"
	EstadoAprobado   Estado = "Aprobado"
	EstadoRechazado  Estado = "Rechazado"
	EstadoArchivado  Estado = "Archivado"
)

// Estados lists every valid estado, in workflow order.
var Estados = []Estado{
	EstadoRecibido,
	EstadoEnRevision,
	EstadoCompleto,
	EstadoIncompleto,
	EstadoAprobado,
	EstadoRechazado,
	EstadoArchivado,
}

// transiciones is the fixed transition table. Aprobado, Rechazado and
// Archivado are terminal and have no entry.
var transiciones = map[Estado][]Estado{
	EstadoRecibido:   {EstadoEnRevision, EstadoArchivado},
	EstadoEnRevision: {EstadoCompleto, EstadoIncompleto, EstadoRecibido, EstadoArchivado},
	EstadoCompleto:   {EstadoAprobado, EstadoRechazado, EstadoEnRevision, EstadoArchivado},
	EstadoIncompleto: {EstadoEnRevision, EstadoRecibido, EstadoArchivado},
}

// ParseEstado validates a raw string against the closed enumeration.
func ParseEstado(s string) (Estado, error) {
	for _, e := range Estados {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown estado %q", s)
}

// AllowedTransitions returns the estados an expediente in the given
// estado may move to. Terminal estados return an empty slice.
func AllowedTransitions(from Estado) []Estado {
	next := transiciones[from]
	out := make([]Estado, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is present in the table.
func CanTransition(from, to Estado) bool {
	for _, e := range transiciones[from] {
		if e == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the estado admits no further transitions.
func IsTerminal(e Estado) bool {
	return len(transiciones[e]) == 0
}
