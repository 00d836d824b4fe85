package domain

import "fmt"

// Rol is the closed set of user roles.
type Rol string

const (
	RolAdmin          Rol = "ADMIN"
	RolDirector       Rol = "DIRECTOR"
	RolJefeFinanciero Rol = "JEFE_FINANCIERO"
	RolTecnico        Rol = "TECNICO"
	RolMunicipal      Rol = "MUNICIPAL"
)

var Roles = []Rol{RolAdmin, RolDirector, RolJefeFinanciero, RolTecnico, RolMunicipal}

func ParseRol(s string) (Rol, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown rol %q", s)
}

// RequiereMunicipios reports whether the role is scoped through
// municipio assignments.
func (r Rol) RequiereMunicipios() bool {
	return r == RolTecnico || r == RolMunicipal
}

// UnicoGlobal reports whether at most one active user may hold the role
// system-wide.
func (r Rol) UnicoGlobal() bool {
	return r == RolDirector || r == RolJefeFinanciero
}
