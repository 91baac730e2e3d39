package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"lazyrecipes/internal/shoppinglist"
)

// Keeper owns the snapshot key scheme and the freshness rules. Both the
// list record and its sibling timestamp record embed the buster version, so
// bumping the buster orphans every prior record regardless of age.
type Keeper struct {
	store  Store
	maxAge time.Duration
	buster string
	now    func() time.Time
}

// NewKeeper creates a Keeper over the given backend.
func NewKeeper(store Store, maxAge time.Duration, buster string) *Keeper {
	return &Keeper{store: store, maxAge: maxAge, buster: buster, now: time.Now}
}

func (k *Keeper) listKey(session string) string {
	return fmt.Sprintf("shopping-list:%s:%s", k.buster, session)
}

func (k *Keeper) stampKey(session string) string {
	return fmt.Sprintf("shopping-list-ts:%s:%s", k.buster, session)
}

// Open runs the freshness check for a session and returns its snapshot.
// When the timestamp record is missing, unreadable, or older than maxAge,
// both records are purged and a fresh timestamp is written before any read,
// so a stale snapshot can never be served. A missing or corrupt list record
// is a cache miss: the empty default is returned, never an error the
// caller must handle.
func (k *Keeper) Open(ctx context.Context, session string) shoppinglist.Result {
	now := k.now()

	stamp, err := k.store.Load(ctx, k.stampKey(session))
	fresh := false
	if err == nil {
		if established, parseErr := time.Parse(time.RFC3339, string(stamp)); parseErr == nil {
			fresh = now.Sub(established) <= k.maxAge
		}
	} else if !errors.Is(err, ErrNotFound) {
		log.Warn().Err(err).Str("session", session).Msg("Failed to read snapshot timestamp")
	}

	if !fresh {
		if err := k.store.Clear(ctx, k.listKey(session)); err != nil {
			log.Warn().Err(err).Str("session", session).Msg("Failed to purge expired snapshot")
		}
		if err := k.store.Clear(ctx, k.stampKey(session)); err != nil {
			log.Warn().Err(err).Str("session", session).Msg("Failed to purge expired snapshot timestamp")
		}
		if err := k.store.Save(ctx, k.stampKey(session), []byte(now.Format(time.RFC3339))); err != nil {
			log.Warn().Err(err).Str("session", session).Msg("Failed to record snapshot timestamp")
		}
		return shoppinglist.Result{}
	}

	data, err := k.store.Load(ctx, k.listKey(session))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("session", session).Msg("Failed to load snapshot")
		}
		return shoppinglist.Result{}
	}

	var res shoppinglist.Result
	if err := json.Unmarshal(data, &res); err != nil {
		// Corrupt or foreign payloads degrade to a cache miss.
		log.Warn().Err(err).Str("session", session).Msg("Discarding unparseable snapshot")
		return shoppinglist.Result{}
	}
	return res
}

// Save writes the session's snapshot. When the session has no timestamp
// record yet, one is established now; an existing one is left alone so the
// expiry clock never slides.
func (k *Keeper) Save(ctx context.Context, session string, res shoppinglist.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := k.store.Save(ctx, k.listKey(session), data); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	if _, err := k.store.Load(ctx, k.stampKey(session)); errors.Is(err, ErrNotFound) {
		if err := k.store.Save(ctx, k.stampKey(session), []byte(k.now().Format(time.RFC3339))); err != nil {
			log.Warn().Err(err).Str("session", session).Msg("Failed to record snapshot timestamp")
		}
	}
	return nil
}

// Purge drops the session's snapshot record. The timestamp record stays; it
// marks when the session's cache was established, not the list contents.
func (k *Keeper) Purge(ctx context.Context, session string) error {
	return k.store.Clear(ctx, k.listKey(session))
}
