package restaurants

import (
	"errors"
	"strings"

	"github.com/tablekeep/tablekeep/internal/platform/httpx"
)

func (s *Service) validateRestaurant(r Restaurant) error {
	if strings.TrimSpace(r.Name) == "" {
		return validationError("restaurant name is required")
	}
	if strings.TrimSpace(r.Slug) == "" {
		return validationError("restaurant slug is required")
	}
	if strings.Contains(strings.TrimSpace(r.Slug), " ") {
		return validationError("restaurant slug must not contain spaces")
	}
	return nil
}

func (s *Service) validateLocation(l Location) error {
	if l.RestaurantID <= 0 {
		return validationError("location requires a restaurant")
	}
	if strings.TrimSpace(l.Name) == "" {
		return validationError("location name is required")
	}
	return nil
}

func validationError(msg string) error {
	return errors.Join(httpx.ErrValidation, errors.New(msg))
}

func normalizeRestaurant(r Restaurant) Restaurant {
	r.Name = strings.TrimSpace(r.Name)
	r.Slug = strings.ToLower(strings.TrimSpace(r.Slug))
	r.Timezone = strings.TrimSpace(r.Timezone)
	if r.Timezone == "" {
		r.Timezone = "UTC"
	}
	r.Address = strings.TrimSpace(r.Address)
	return r
}
