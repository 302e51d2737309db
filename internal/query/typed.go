package query

import "context"

// Fetcher adapts a typed loader to a FetchFunc.
func Fetcher[T any](load func(ctx context.Context) (T, error)) FetchFunc {
	return func(ctx context.Context) (any, error) {
		return load(ctx)
	}
}

// Value extracts typed data from an entry. It reports false when the entry
// holds no data of type T.
func Value[T any](e Entry) (T, bool) {
	v, ok := e.Data.(T)
	return v, ok
}
