package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-session-booking/internal/service"
)

type ClassHandler struct {
	svc *service.ClassService
}

func NewClassHandler(svc *service.ClassService) *ClassHandler {
	return &ClassHandler{svc: svc}
}

type createClassRequest struct {
	Title              string `json:"title" validate:"required,max=200"`
	Description        string `json:"description"`
	Discipline         string `json:"discipline" validate:"max=100"`
	InstructorName     string `json:"instructor_name" validate:"max=200"`
	LocationName       string `json:"location_name" validate:"max=200"`
	DefaultDurationMin int    `json:"default_duration_min"`
	DefaultCapacity    int    `json:"default_capacity"`
}

// Create handles POST /v1/admin/classes.
func (h *ClassHandler) Create(c echo.Context) error {
	var req createClassRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	cls, err := h.svc.Create(c.Request().Context(), service.ClassInput{
		Title:              req.Title,
		Description:        req.Description,
		Discipline:         req.Discipline,
		InstructorName:     req.InstructorName,
		LocationName:       req.LocationName,
		DefaultDurationMin: req.DefaultDurationMin,
		DefaultCapacity:    req.DefaultCapacity,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cls)
}

// Get handles GET /v1/classes/:id.
func (h *ClassHandler) Get(c echo.Context) error {
	cls, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cls)
}

type updateClassRequest struct {
	Title              *string `json:"title" validate:"omitempty,max=200"`
	Description        *string `json:"description"`
	Discipline         *string `json:"discipline" validate:"omitempty,max=100"`
	InstructorName     *string `json:"instructor_name" validate:"omitempty,max=200"`
	LocationName       *string `json:"location_name" validate:"omitempty,max=200"`
	DefaultDurationMin *int    `json:"default_duration_min"`
	DefaultCapacity    *int    `json:"default_capacity"`
}

// Update handles PATCH /v1/admin/classes/:id.
func (h *ClassHandler) Update(c echo.Context) error {
	var req updateClassRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	cls, err := h.svc.Update(c.Request().Context(), c.Param("id"), service.ClassPatch{
		Title:              req.Title,
		Description:        req.Description,
		Discipline:         req.Discipline,
		InstructorName:     req.InstructorName,
		LocationName:       req.LocationName,
		DefaultDurationMin: req.DefaultDurationMin,
		DefaultCapacity:    req.DefaultCapacity,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cls)
}

// List handles GET /v1/classes?page=&limit=.
func (h *ClassHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	items, err := h.svc.List(c.Request().Context(), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
