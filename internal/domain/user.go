package domain

import (
	"strings"

	"github.com/samber/lo"
)

// DefaultUsers es el roster con el que arranca el servicio si no se configura otro.
var DefaultUsers = []string{"Vamshi", "Akilesh", "Shashank", "Abhishek", "Aneesh"}

// Directory es el conjunto fijo de usuarios validos. Se construye una vez y no cambia.
type Directory struct {
	users []string
	index map[string]struct{}
}

// NewDirectory crea el directorio a partir de usernames, descartando vacios y duplicados.
// Si no queda ninguno se usa DefaultUsers.
func NewDirectory(usernames []string) *Directory {
	users := lo.Uniq(lo.FilterMap(usernames, func(u string, _ int) (string, bool) {
		u = strings.TrimSpace(u)
		return u, u != ""
	}))
	if len(users) == 0 {
		users = append([]string(nil), DefaultUsers...)
	}
	return &Directory{
		users: users,
		index: lo.SliceToMap(users, func(u string) (string, struct{}) { return u, struct{}{} }),
	}
}

// Contains reporta si username es miembro del roster.
func (d *Directory) Contains(username string) bool {
	_, ok := d.index[username]
	return ok
}

// Users devuelve una copia del roster en orden de configuracion.
func (d *Directory) Users() []string {
	return append([]string(nil), d.users...)
}

// Others devuelve el roster sin username.
func (d *Directory) Others(username string) []string {
	return lo.Without(d.users, username)
}
