package generation

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"server/internal/storage"
)

// Resolver turns a stored blob path back into bytes plus a mime type. The
// assembler depends on this function shape rather than on the blob store
// itself so conversation rehydration stays testable without file I/O.
type Resolver func(ctx context.Context, path string) ([]byte, string, error)

// NewCachedResolver builds a Resolver backed by the file store. Art form
// reference images under assets/ are shared across every generation request
// and immutable for the process lifetime, so their bytes are cached;
// session-specific uploads are read fresh.
func NewCachedResolver(store *storage.FileStore) Resolver {
	assetCache := gocache.New(30*time.Minute, 10*time.Minute)

	return func(ctx context.Context, path string) ([]byte, string, error) {
		mime := storage.MimeForPath(path)

		cacheable := strings.HasPrefix(path, "assets/")
		if cacheable {
			if cached, ok := assetCache.Get(path); ok {
				return cached.([]byte), mime, nil
			}
		}

		data, err := store.Read(ctx, path)
		if err != nil {
			return nil, "", err
		}
		if cacheable {
			assetCache.Set(path, data, gocache.DefaultExpiration)
		}
		return data, mime, nil
	}
}
