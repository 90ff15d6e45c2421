// Package render produces the localized title and body of session
// notifications.
package render

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/iliyamo/class-session-booking/internal/model"
)

// Localizer is the minimal message-printer contract required by Render.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// Input carries the facts a notification talks about.
type Input struct {
	ClassTitle    string
	StartsAt      time.Time
	PreviousStart time.Time // reschedule only
	Reason        string    // cancel only
}

// Output is the rendered copy.
type Output struct {
	Title string
	Body  string
}

// Renderer binds a printer, a date layout and the zone dates are shown in.
type Renderer struct {
	loc    Localizer
	layout string
	zone   *time.Location
}

var supported = language.NewMatcher([]language.Tag{language.Spanish, language.English})

// New returns a Renderer for the best supported match of locale.  Spanish is
// the fallback.
func New(locale string, zone *time.Location) *Renderer {
	tag, _ := language.MatchStrings(supported, locale)
	base, _ := tag.Base()
	layout := "02/01/2006 15:04"
	printerTag := language.Spanish
	if base.String() == "en" {
		layout = "Jan 2, 2006 3:04 PM"
		printerTag = language.English
	}
	if zone == nil {
		zone = time.UTC
	}
	return &Renderer{loc: message.NewPrinter(printerTag), layout: layout, zone: zone}
}

// Render returns the copy for a notification of type typ.
func (r *Renderer) Render(typ model.NotificationType, in Input) Output {
	when := r.date(in.StartsAt)
	switch typ {
	case model.NotificationSessionCanceled:
		return Output{
			Title: r.loc.Sprintf("notification.session_canceled.title", in.ClassTitle),
			Body:  r.loc.Sprintf("notification.session_canceled.body", when, in.Reason),
		}
	case model.NotificationSessionRescheduled:
		return Output{
			Title: r.loc.Sprintf("notification.session_rescheduled.title", in.ClassTitle),
			Body:  r.loc.Sprintf("notification.session_rescheduled.body", when, r.date(in.PreviousStart)),
		}
	case model.NotificationSessionReminder:
		return Output{
			Title: r.loc.Sprintf("notification.session_reminder.title", in.ClassTitle),
			Body:  r.loc.Sprintf("notification.session_reminder.body", when),
		}
	default:
		return Output{
			Title: r.loc.Sprintf("notification.generic.title"),
			Body:  r.loc.Sprintf("notification.generic.body"),
		}
	}
}

func (r *Renderer) date(t time.Time) string {
	return t.In(r.zone).Format(r.layout)
}
