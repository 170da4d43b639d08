package ports

import "go.trai.ch/crossbuild/internal/core/domain"

// BuildInfoStore persists one BuildInfo record per task.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type BuildInfoStore interface {
	// Put stores the build info, replacing an earlier record for the same task.
	Put(info domain.BuildInfo) error

	// List returns every stored record ordered by completion time.
	List() ([]domain.BuildInfo, error)
}
