package capacity

import (
	"context"

	"github.com/s5bridge/s5bridge/internal/logging"
	"github.com/s5bridge/s5bridge/internal/storage"
)

// Lister pages through objects under a prefix.
type Lister interface {
	ListPages(ctx context.Context, prefix, delimiter string, fn func(*storage.Page) error) error
}

// RemoteUsage summarizes the objects under a prefix.
type RemoteUsage struct {
	Files int64
	Bytes int64
	// Free is the configured bucket capacity minus Bytes. Zero after a
	// listing failure; callers treat zero as full.
	Free int64
}

// Model computes remote usage against a fixed bucket capacity.
type Model struct {
	lister   Lister
	capacity int64
	logger   *logging.Logger
}

// NewModel parses bucketSize (e.g. "500 TB") as the bucket capacity.
func NewModel(lister Lister, bucketSize string, logger *logging.Logger) (*Model, error) {
	capacity, err := ParseSize(bucketSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Model{lister: lister, capacity: capacity, logger: logger}, nil
}

// Capacity returns the configured bucket size in bytes.
func (m *Model) Capacity() int64 {
	return m.capacity
}

// RemoteDataSize counts every object under prefix across all pages.
// An empty prefix covers the whole bucket. Listing failures are logged and
// reported as zero usage with zero free space.
func (m *Model) RemoteDataSize(ctx context.Context, prefix string) RemoteUsage {
	var usage RemoteUsage
	err := m.lister.ListPages(ctx, prefix, "", func(p *storage.Page) error {
		for _, obj := range p.Objects {
			usage.Files++
			usage.Bytes += obj.Size
		}
		return nil
	})
	if err != nil {
		m.logger.Warnf("Failed to compute remote usage for %q: %v", prefix, err)
		return RemoteUsage{}
	}

	usage.Free = m.capacity - usage.Bytes
	return usage
}

// RemoteObjectSize is RemoteDataSize restricted to the single object key.
// Objects that merely share key as a prefix ("README" and "README.md") are
// not counted.
func (m *Model) RemoteObjectSize(ctx context.Context, key string) RemoteUsage {
	var usage RemoteUsage
	err := m.lister.ListPages(ctx, key, "", func(p *storage.Page) error {
		for _, obj := range p.Objects {
			if obj.Key != key {
				continue
			}
			usage.Files++
			usage.Bytes += obj.Size
		}
		return nil
	})
	if err != nil {
		m.logger.Warnf("Failed to compute remote usage for %q: %v", key, err)
		return RemoteUsage{}
	}

	usage.Free = m.capacity - usage.Bytes
	return usage
}
