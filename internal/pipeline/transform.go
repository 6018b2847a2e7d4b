package pipeline

import (
	"context"
	"errors"

	"github.com/couchcryptid/cafepick-api/internal/domain"
)

var errMissingID = errors.New("cafe record has no id")

// CafeTransformer derives venues from raw messages with a set of tables.
type CafeTransformer struct {
	tables *domain.Tables
}

// NewTransformer creates a CafeTransformer. A nil tables uses the defaults.
func NewTransformer(tables *domain.Tables) *CafeTransformer {
	if tables == nil {
		tables = domain.DefaultTables()
	}
	return &CafeTransformer{tables: tables}
}

func (t *CafeTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.Venue, error) {
	v, err := t.tables.ParseMessage(raw)
	if err != nil {
		return domain.Venue{}, err
	}
	if v.ID == "" {
		return domain.Venue{}, errMissingID
	}
	return v, nil
}
