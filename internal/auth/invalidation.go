package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

const invalidationKeyPrefix = "invalidated:"

// InvalidationStore records per-user instants before which refresh tokens
// are no longer honoured.
type InvalidationStore struct {
	store  cache.Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewInvalidationStore constructs an InvalidationStore. ttl must outlive the
// refresh token lifetime so a mark cannot expire before the tokens it revokes.
func NewInvalidationStore(store cache.Store, ttl time.Duration, logger *slog.Logger) *InvalidationStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvalidationStore{store: store, ttl: ttl, logger: logger, now: time.Now}
}

// MarkInvalidated records the current instant for userKey. Later marks
// overwrite earlier ones.
func (s *InvalidationStore) MarkInvalidated(ctx context.Context, userKey string) error {
	value := strconv.FormatInt(s.now().UnixMicro(), 10)
	if err := s.store.Set(ctx, invalidationKeyPrefix+userKey, value, s.ttl); err != nil {
		return fmt.Errorf("auth: mark invalidated %s: %w", userKey, err)
	}
	return nil
}

// IsInvalidatedSince reports whether userKey was marked strictly after since.
func (s *InvalidationStore) IsInvalidatedSince(ctx context.Context, userKey string, since time.Time) (bool, error) {
	value, ok, err := s.store.Get(ctx, invalidationKeyPrefix+userKey)
	if err != nil {
		return false, fmt.Errorf("auth: read invalidation %s: %w", userKey, err)
	}
	if !ok {
		return false, nil
	}
	micros, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false, fmt.Errorf("auth: malformed invalidation mark for %s: %w", userKey, err)
	}
	return micros > since.UnixMicro(), nil
}

// HandleAccessChanged marks every user named by evt.
func (s *InvalidationStore) HandleAccessChanged(ctx context.Context, evt shared.AccessChangedEvent) error {
	for _, key := range evt.UserKeys() {
		if err := s.MarkInvalidated(ctx, key); err != nil {
			return err
		}
	}
	if len(evt.UserIDs) > 0 {
		s.logger.Info("sessions invalidated",
			slog.String("reason", evt.Reason),
			slog.Int("users", len(evt.UserIDs)))
	}
	return nil
}

var _ shared.AccessChangeHandler = (*InvalidationStore)(nil)
