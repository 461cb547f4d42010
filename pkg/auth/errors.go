package auth

import (
	"errors"

	"github.com/PancyStudios/GuildAuthBot/pkg/database"
	"github.com/PancyStudios/GuildAuthBot/pkg/guard"
)

// Expected outcomes. They are answered to the user and never logged.
var (
	ErrBlacklisted          = errors.New("estás en la lista negra de este servidor")
	ErrDuplicatePending     = database.ErrDuplicatePending
	ErrNotConfigured        = errors.New("el canal de notificaciones no está configurado")
	ErrNoQuestions          = errors.New("no hay preguntas configuradas")
	ErrNoPendingApplication = errors.New("no hay una solicitud pendiente")
	ErrReasonRequired       = errors.New("la razón es obligatoria")
	ErrNoRoles              = errors.New("debes seleccionar al menos un rol")
	ErrNotBlacklisted       = errors.New("el usuario no está en la lista negra")
)

var userFacing = []error{
	ErrBlacklisted,
	ErrDuplicatePending,
	ErrNotConfigured,
	ErrNoQuestions,
	ErrNoPendingApplication,
	ErrReasonRequired,
	ErrNoRoles,
	ErrNotBlacklisted,
	guard.ErrUnauthorized,
}

// IsUserFacing reports whether err is an expected outcome rather than a
// failure worth logging
func IsUserFacing(err error) bool {
	for _, target := range userFacing {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
