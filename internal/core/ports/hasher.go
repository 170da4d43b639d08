package ports

// Hasher defines the interface for computing artifact digests.
//
//go:generate mockgen -destination=mocks/mock_hasher.go -package=mocks -source=hasher.go
type Hasher interface {
	// HashFiles computes a digest over the contents of the given files, in order.
	HashFiles(paths []string) (string, error)
}
