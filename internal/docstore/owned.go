package docstore

import (
	"context"
	"fmt"

	"github.com/dvloznov/lifeledger/internal/logger"
)

// OwnerField names the user id stored on every user-scoped document.
const OwnerField = "userId"

// GetOwned loads collection/id into a T. A document owned by another user is
// reported as ErrNotFound.
func GetOwned[T any](ctx context.Context, s Store, collection, userID, id string) (T, error) {
	var v T
	doc, err := s.Get(ctx, collection, id)
	if err != nil {
		return v, err
	}
	if owner, _ := doc.Data[OwnerField].(string); owner == "" || owner != userID {
		return v, fmt.Errorf("Get %s/%s: %w", collection, id, ErrNotFound)
	}
	if err := Decode(doc, &v); err != nil {
		return v, err
	}
	return v, nil
}

// Owned prepends the owner filter to q.
func Owned(q Query, userID string) Query {
	q.Filters = append([]Filter{Where(OwnerField, Eq, userID)}, q.Filters...)
	return q
}

// QueryOwned runs q restricted to userID's documents.
func QueryOwned[T any](ctx context.Context, s Store, userID string, q Query) ([]T, error) {
	found, err := s.Query(ctx, Owned(q, userID))
	if err != nil {
		return nil, err
	}
	return DecodeAll[T](found)
}

// SubscribeOwned streams decoded snapshots of q restricted to userID.
func SubscribeOwned[T any](ctx context.Context, s Store, userID string, q Query, fn func([]T)) (func(), error) {
	if userID == "" {
		return nil, fmt.Errorf("docstore: subscribe %s: user id is required", q.Collection)
	}
	return s.Subscribe(ctx, Owned(q, userID), func(found []*Document) {
		items, err := DecodeAll[T](found)
		if err != nil {
			log := logger.FromContext(ctx)
			log.Error().Err(err).Str("collection", q.Collection).Msg("Failed to decode snapshot")
			return
		}
		fn(items)
	})
}
