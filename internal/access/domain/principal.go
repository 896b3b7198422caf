package domain

// Principal es el llamante autenticado con los permisos de su rol. Nunca
// lleva la contraseña.
type Principal struct {
	ID          string
	RoleID      string
	RoleName    string
	Permissions []string
}

// Can hace la comprobación exacta, sin comodines ni herencia.
func (p Principal) Can(permission string) bool {
	for _, name := range p.Permissions {
		if name == permission {
			return true
		}
	}
	return false
}
