package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/class-session-booking/internal/model"
)

var rosterHeader = []any{"reservation_id", "user_id", "status", "reserved_at", "canceled_at", "cancel_reason"}

// Roster exports every reservation of a session as an xlsx workbook.  The
// first sheet is named after the session start in the service's zone.
func (s *SessionService) Roster(ctx context.Context, id string) (_ []byte, err error) {
	const op = "service.SessionService.Roster"
	ctx, span := startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.ledger.ListBySession(ctx, id)
	if err != nil {
		err = translate(err, "session")
		logFailure(s.log, op, err)
		return nil, err
	}

	b, err := s.buildRoster(sess, rows)
	if err != nil {
		err = translate(fmt.Errorf("%s: %w", op, err), "session")
		logFailure(s.log, op, err)
		return nil, err
	}
	return b, nil
}

func (s *SessionService) buildRoster(sess *model.Session, rows []model.ReservationDetail) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := sess.StartsAt.In(s.zone).Format("2006-01-02 1504")
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return nil, fmt.Errorf("sheet name: %w", err)
	}

	header := rosterHeader
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	for i, r := range rows {
		canceledAt, reason := "", ""
		if r.CanceledAt != nil {
			canceledAt = r.CanceledAt.In(s.zone).Format(time.DateTime)
		}
		if r.CancelReason != nil {
			reason = *r.CancelReason
		}
		row := []any{
			r.ID,
			r.UserID,
			string(r.Status),
			r.CreatedAt.In(s.zone).Format(time.DateTime),
			canceledAt,
			reason,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	return buf.Bytes(), nil
}
