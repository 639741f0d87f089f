// Package vectorutils builds vector drivers from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/recall/pkg/vector"
	"github.com/papercomputeco/recall/pkg/vector/chroma"
	"github.com/papercomputeco/recall/pkg/vector/inmemory"
	"github.com/papercomputeco/recall/pkg/vector/pgvector"
	"github.com/papercomputeco/recall/pkg/vector/qdrant"
	"github.com/papercomputeco/recall/pkg/vector/sqlitevec"
)

// Provider names accepted by NewVectorDriver.
const (
	ProviderInMemory = "inmemory"
	ProviderSQLite   = "sqlite"
	ProviderPGVector = "pgvector"
	ProviderQdrant   = "qdrant"
	ProviderChroma   = "chroma"
)

// Providers lists every supported provider name.
var Providers = []string{
	ProviderInMemory,
	ProviderSQLite,
	ProviderPGVector,
	ProviderQdrant,
	ProviderChroma,
}

type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is the provider location: a database path for sqlite, a DSN
	// for pgvector, host:port for qdrant and a base URL for chroma.
	TargetURL string

	// Collection names the table or collection. Provider default when empty.
	Collection string

	APIKey     string
	Dimensions uint
	Logger     *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch o.ProviderType {
	case ProviderInMemory:
		return inmemory.NewDriver(logger), nil
	case ProviderSQLite:
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: o.Dimensions,
		}, logger)
	case ProviderPGVector:
		return pgvector.NewDriver(ctx, pgvector.Config{
			DSN:        o.TargetURL,
			Table:      o.Collection,
			Dimensions: o.Dimensions,
		}, logger)
	case ProviderQdrant:
		return qdrant.NewDriver(ctx, qdrant.Config{
			Addr:       o.TargetURL,
			APIKey:     o.APIKey,
			Collection: o.Collection,
			Dimensions: o.Dimensions,
		}, logger)
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
