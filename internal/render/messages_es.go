package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.Spanish

	message.SetString(lang, "notification.generic.title", "Notificación")
	message.SetString(lang, "notification.generic.body", "Tenés una nueva notificación.")
	message.SetString(lang, "notification.session_canceled.title", "Sesión cancelada: %s")
	message.SetString(lang, "notification.session_canceled.body", "La sesión del %s fue cancelada. Motivo: %s")
	message.SetString(lang, "notification.session_rescheduled.title", "Sesión reprogramada: %s")
	message.SetString(lang, "notification.session_rescheduled.body", "Nueva fecha: %s (antes: %s)")
	message.SetString(lang, "notification.session_reminder.title", "Recordatorio: %s")
	message.SetString(lang, "notification.session_reminder.body", "Falta menos de una hora para tu sesión (%s)")
}
