package icons

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/kvstore"
)

// KeyPrefix namespaces icon positions inside the shared key-value store.
const KeyPrefix = "desktop-icon-"

// Key returns the storage key for an icon's saved position.
func Key(id string) string {
	return KeyPrefix + id
}

// PositionStore persists the positions users drop icons at.
type PositionStore struct {
	kv     kvstore.Store
	logger *slog.Logger
}

// NewPositionStore wraps kv. A nil logger discards.
func NewPositionStore(kv kvstore.Store, logger *slog.Logger) *PositionStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PositionStore{kv: kv, logger: logger}
}

// Save clamps p into the grid bounds and writes it under the icon's key.
// The stored point is returned.
func (s *PositionStore) Save(g Grid, id string, p geom.Point) (geom.Point, error) {
	p = g.Bounds().Clamp(p)
	data, err := json.Marshal(p)
	if err != nil {
		return p, fmt.Errorf("encode position for %s: %w", id, err)
	}
	if err := s.kv.Set(Key(id), data); err != nil {
		return p, fmt.Errorf("save position for %s: %w", id, err)
	}
	return p, nil
}

// Lookup returns the saved position for id. Missing, unreadable and
// corrupt entries all report false.
func (s *PositionStore) Lookup(id string) (geom.Point, bool) {
	data, ok, err := s.kv.Get(Key(id))
	if err != nil {
		s.logger.Debug("icon position read failed", "id", id, "error", err)
		return geom.Point{}, false
	}
	if !ok {
		return geom.Point{}, false
	}
	var p geom.Point
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Debug("ignoring corrupt icon position", "id", id, "error", err)
		return geom.Point{}, false
	}
	return p, true
}

// Load returns the saved position for id, or the grid origin when there
// is none.
func (s *PositionStore) Load(g Grid, id string) geom.Point {
	if p, ok := s.Lookup(id); ok {
		return p
	}
	return g.Origin()
}

// Forget deletes the saved position of a removed icon.
func (s *PositionStore) Forget(id string) error {
	if err := s.kv.Delete(Key(id)); err != nil {
		return fmt.Errorf("forget position for %s: %w", id, err)
	}
	return nil
}
