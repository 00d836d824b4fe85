package domain

import "strings"

// MaxVersionesPorCategoria caps how many guía versions a single
// category may accumulate.
const MaxVersionesPorCategoria = 5

// NormalizeCategoria canonicalizes a free-text category so that
// "guía de llenado" and "GUÍA DE LLENADO" key the same category.
func NormalizeCategoria(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// NextVersion returns the version number a new guía in the category
// should take, regardless of the order existing versions were created.
func NextVersion(existing []int) int {
	max := 0
	for _, v := range existing {
		if v > max {
			max = v
		}
	}
	return max + 1
}

// CanAddVersion reports whether the category still has room for
// another version.
func CanAddVersion(count int) bool {
	return count < MaxVersionesPorCategoria
}
