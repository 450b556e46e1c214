package statcache

import "context"

// nullCache is the backend selected when no cache binding is configured.
// Every lookup misses and every store succeeds without effect, keeping the
// request path free of cache-presence branches.
type nullCache struct{}

// NewNull returns the always-miss backend.
func NewNull() StatsCache {
	return nullCache{}
}

func (nullCache) Lookup(context.Context, string) (Entry, bool, error) {
	return Entry{}, false, nil
}

func (nullCache) Store(context.Context, string, Entry) error {
	return nil
}

func (nullCache) Close(context.Context) error {
	return nil
}
