package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/iliyamo/class-session-booking/internal/apperr"
	"github.com/iliyamo/class-session-booking/internal/clock"
	"github.com/iliyamo/class-session-booking/internal/model"
	"github.com/iliyamo/class-session-booking/internal/repository"
)

// ClassInput is the payload for creating a catalogue entry.  Zero defaults
// fall back to model.DefaultClassDurationMin and model.DefaultClassCapacity.
type ClassInput struct {
	Title              string
	Description        string
	Discipline         string
	InstructorName     string
	LocationName       string
	DefaultDurationMin int
	DefaultCapacity    int
}

// ClassPatch carries the optional fields of a catalogue update.  Nil means
// "leave unchanged".  Sessions already scheduled keep their own duration and
// capacity; only future schedules pick up new defaults.
type ClassPatch struct {
	Title              *string
	Description        *string
	Discipline         *string
	InstructorName     *string
	LocationName       *string
	DefaultDurationMin *int
	DefaultCapacity    *int
}

// ClassService manages the class catalogue.
type ClassService struct {
	classes *repository.ClassRepo
	clock   clock.Clock
	log     *slog.Logger
}

func NewClassService(classes *repository.ClassRepo, clk clock.Clock, log *slog.Logger) *ClassService {
	return &ClassService{classes: classes, clock: clk, log: log}
}

// Create validates in and stores a new class.
func (s *ClassService) Create(ctx context.Context, in ClassInput) (*model.Class, error) {
	const op = "service.ClassService.Create"

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return nil, apperr.InvalidField("title", "title is required")
	case in.DefaultDurationMin != 0 && in.DefaultDurationMin < model.MinSessionDurationMin:
		return nil, apperr.InvalidField("default_duration_min", "duration must be at least 10 minutes")
	case in.DefaultCapacity < 0:
		return nil, apperr.InvalidField("default_capacity", "capacity must be at least 1")
	}

	c := &model.Class{
		Title:              title,
		Description:        in.Description,
		Discipline:         in.Discipline,
		InstructorName:     in.InstructorName,
		LocationName:       in.LocationName,
		DefaultDurationMin: in.DefaultDurationMin,
		DefaultCapacity:    in.DefaultCapacity,
	}
	if err := s.classes.Create(ctx, c, s.clock.Now()); err != nil {
		err = translate(err, "class")
		logFailure(s.log, op, err)
		return nil, err
	}
	s.log.Info("class created", slog.String("op", op), slog.String("class_id", c.ID))
	return c, nil
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, id string) (*model.Class, error) {
	c, err := s.classes.GetByID(ctx, id)
	if err != nil {
		err = translate(err, "class")
		logFailure(s.log, "service.ClassService.Get", err)
		return nil, err
	}
	return c, nil
}

// List returns a page of the catalogue.  Page starts at 1.
func (s *ClassService) List(ctx context.Context, page, limit int) ([]model.Class, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}
	out, err := s.classes.List(ctx, limit, offset)
	if err != nil {
		err = translate(err, "class")
		logFailure(s.log, "service.ClassService.List", err)
		return nil, err
	}
	return out, nil
}

// Update applies patch to an existing class.
func (s *ClassService) Update(ctx context.Context, id string, patch ClassPatch) (c *model.Class, err error) {
	const op = "service.ClassService.Update"
	defer func() {
		if err != nil {
			logFailure(s.log, op, err)
		}
	}()

	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperr.InvalidField("title", "title cannot be empty")
	}
	if patch.DefaultDurationMin != nil && *patch.DefaultDurationMin < model.MinSessionDurationMin {
		return nil, apperr.InvalidField("default_duration_min", "duration must be at least 10 minutes")
	}
	if patch.DefaultCapacity != nil && *patch.DefaultCapacity < 1 {
		return nil, apperr.InvalidField("default_capacity", "capacity must be at least 1")
	}

	c, err = s.classes.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "class")
	}
	if patch.Title != nil {
		c.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.Discipline != nil {
		c.Discipline = *patch.Discipline
	}
	if patch.InstructorName != nil {
		c.InstructorName = *patch.InstructorName
	}
	if patch.LocationName != nil {
		c.LocationName = *patch.LocationName
	}
	if patch.DefaultDurationMin != nil {
		c.DefaultDurationMin = *patch.DefaultDurationMin
	}
	if patch.DefaultCapacity != nil {
		c.DefaultCapacity = *patch.DefaultCapacity
	}
	if err := s.classes.Update(ctx, c, s.clock.Now()); err != nil {
		return nil, translate(err, "class")
	}
	s.log.Info("class updated", slog.String("op", op), slog.String("class_id", c.ID))
	return c, nil
}
