package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/class-session-booking/internal/model"
)

func TestRenderSpanishDefault(t *testing.T) {
	t.Parallel()

	zone := time.FixedZone("ART", -3*60*60)
	r := New("es-AR", zone)
	start := time.Date(2026, 3, 10, 21, 30, 0, 0, time.UTC)

	out := r.Render(model.NotificationSessionCanceled, Input{ClassTitle: "Yoga", StartsAt: start, Reason: "Class canceled"})
	assert.Equal(t, "Sesión cancelada: Yoga", out.Title)
	assert.Equal(t, "La sesión del 10/03/2026 18:30 fue cancelada. Motivo: Class canceled", out.Body)

	out = r.Render(model.NotificationSessionRescheduled, Input{
		ClassTitle:    "Yoga",
		StartsAt:      start,
		PreviousStart: start.Add(-24 * time.Hour),
	})
	assert.Equal(t, "Sesión reprogramada: Yoga", out.Title)
	assert.Equal(t, "Nueva fecha: 10/03/2026 18:30 (antes: 09/03/2026 18:30)", out.Body)

	out = r.Render(model.NotificationSessionReminder, Input{ClassTitle: "Yoga", StartsAt: start})
	assert.Equal(t, "Recordatorio: Yoga", out.Title)
	assert.Equal(t, "Falta menos de una hora para tu sesión (10/03/2026 18:30)", out.Body)
}

func TestRenderEnglish(t *testing.T) {
	t.Parallel()

	r := New("en-US", time.UTC)
	out := r.Render(model.NotificationSessionReminder, Input{
		ClassTitle: "Pilates",
		StartsAt:   time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC),
	})
	assert.Equal(t, "Reminder: Pilates", out.Title)
	assert.Equal(t, "Your session starts in less than an hour (Mar 10, 2026 9:05 AM)", out.Body)
}

func TestRenderUnknownLocaleFallsBackToSpanish(t *testing.T) {
	t.Parallel()

	out := New("xx", nil).Render(model.NotificationSessionReminder, Input{ClassTitle: "Box"})
	assert.Equal(t, "Recordatorio: Box", out.Title)
}
