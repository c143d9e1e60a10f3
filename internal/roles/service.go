package roles

import (
	"context"

	"github.com/tablekeep/tablekeep/internal/authz"
)

// Service exposes the role catalog for management surfaces.
type Service struct {
	catalog *authz.CatalogLoader
}

// NewService builds Service instance.
func NewService(catalog *authz.CatalogLoader) *Service {
	return &Service{catalog: catalog}
}

// ListRoles returns the catalog ordered by precedence.
func (s *Service) ListRoles(ctx context.Context) ([]authz.Role, error) {
	catalog, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Roles(), nil
}

// GetRole fetches a single catalog role by name.
func (s *Service) GetRole(ctx context.Context, name string) (authz.Role, bool, error) {
	catalog, err := s.catalog.Load(ctx)
	if err != nil {
		return authz.Role{}, false, err
	}
	role, ok := catalog.ByName(name)
	return role, ok, nil
}
