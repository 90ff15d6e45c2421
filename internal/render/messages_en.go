package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "notification.generic.title", "Notification")
	message.SetString(lang, "notification.generic.body", "You have a new notification.")
	message.SetString(lang, "notification.session_canceled.title", "Session canceled: %s")
	message.SetString(lang, "notification.session_canceled.body", "The session on %s was canceled. Reason: %s")
	message.SetString(lang, "notification.session_rescheduled.title", "Session rescheduled: %s")
	message.SetString(lang, "notification.session_rescheduled.body", "New time: %s (was: %s)")
	message.SetString(lang, "notification.session_reminder.title", "Reminder: %s")
	message.SetString(lang, "notification.session_reminder.body", "Your session starts in less than an hour (%s)")
}
