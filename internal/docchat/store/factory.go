package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/pkg/component/mysql"
	"github.com/kart-io/docchat/pkg/component/postgres"
	"github.com/kart-io/docchat/pkg/component/sqlite"
	"github.com/kart-io/docchat/pkg/component/storage"
	"github.com/kart-io/docchat/pkg/options/database"
)

// datastore implements the Factory interface over a gorm.DB. Inside Tx the
// db field is the transaction handle.
type datastore struct {
	db     *gorm.DB
	client storage.Client
}

var _ Factory = (*datastore)(nil)

// NewFactory connects to the configured database engine, migrates the
// schema, and returns the store factory along with the underlying storage
// client for health registration.
func NewFactory(ctx context.Context, opts *database.Options) (Factory, storage.Client, error) {
	if opts == nil {
		return nil, nil, fmt.Errorf("store: database options cannot be nil")
	}

	var (
		db     *gorm.DB
		client storage.Client
	)

	switch opts.Engine {
	case database.EngineSQLite:
		c, err := sqlite.NewWithContext(ctx, &sqlite.Options{
			Path:               opts.Path,
			MaxOpenConnections: opts.MaxOpenConnections,
			LogLevel:           opts.LogLevel,
		})
		if err != nil {
			return nil, nil, err
		}
		db, client = c.DB(), c

	case database.EngineMySQL:
		c, err := mysql.NewWithContext(ctx, &mysql.Options{
			Host:                  opts.Host,
			Port:                  opts.Port,
			Username:              opts.Username,
			Password:              opts.Password,
			Database:              opts.Database,
			MaxIdleConnections:    opts.MaxIdleConnections,
			MaxOpenConnections:    opts.MaxOpenConnections,
			MaxConnectionLifeTime: opts.MaxConnectionLifeTime,
			LogLevel:              opts.LogLevel,
		})
		if err != nil {
			return nil, nil, err
		}
		db, client = c.DB(), c

	case database.EnginePostgres:
		c, err := postgres.NewWithContext(ctx, &postgres.Options{
			Host:                  opts.Host,
			Port:                  opts.Port,
			Username:              opts.Username,
			Password:              opts.Password,
			Database:              opts.Database,
			MaxIdleConnections:    opts.MaxIdleConnections,
			MaxOpenConnections:    opts.MaxOpenConnections,
			MaxConnectionLifeTime: opts.MaxConnectionLifeTime,
			LogLevel:              opts.LogLevel,
		})
		if err != nil {
			return nil, nil, err
		}
		db, client = c.DB(), c

	default:
		return nil, nil, fmt.Errorf("store: unsupported database engine %q", opts.Engine)
	}

	ds := &datastore{db: db, client: client}
	if err := ds.autoMigrate(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("store: schema migration failed: %w", err)
	}

	return ds, client, nil
}

func (ds *datastore) autoMigrate() error {
	return ds.db.AutoMigrate(
		&model.Document{},
		&model.Chunk{},
		&model.ChatSession{},
		&model.ChatMessage{},
	)
}

// Documents returns the document store.
func (ds *datastore) Documents() DocumentStore {
	return newDocuments(ds.db)
}

// Chunks returns the chunk store.
func (ds *datastore) Chunks() ChunkStore {
	return newChunks(ds.db)
}

// Sessions returns the session store.
func (ds *datastore) Sessions() SessionStore {
	return newSessions(ds.db)
}

// Messages returns the message store.
func (ds *datastore) Messages() MessageStore {
	return newMessages(ds.db)
}

// Tx runs fn inside a database transaction. The factory passed to fn is
// scoped to that transaction; returning an error rolls everything back.
func (ds *datastore) Tx(ctx context.Context, fn func(Factory) error) error {
	return ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&datastore{db: tx, client: ds.client})
	})
}

// Close closes the underlying database connection.
func (ds *datastore) Close() error {
	if ds.client == nil {
		return nil
	}
	return ds.client.Close()
}
