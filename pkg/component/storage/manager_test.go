package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	name    string
	pingErr error
	closed  int
}

func (f *fakeClient) Name() string                 { return f.name }
func (f *fakeClient) Ping(_ context.Context) error { return f.pingErr }
func (f *fakeClient) Close() error                 { f.closed++; return nil }
func (f *fakeClient) Health() HealthChecker {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return f.Ping(ctx)
	}
}

func TestManagerRegister(t *testing.T) {
	tests := []struct {
		name       string
		clientName string
		client     Client
		wantErr    bool
	}{
		{name: "valid", clientName: "db", client: &fakeClient{name: "sqlite"}, wantErr: false},
		{name: "empty name", clientName: "", client: &fakeClient{name: "sqlite"}, wantErr: true},
		{name: "nil client", clientName: "db", client: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			err := m.Register(tt.clientName, tt.client)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestManagerRegisterDuplicate(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("db", &fakeClient{name: "sqlite"}))
	assert.Error(t, m.Register("db", &fakeClient{name: "mysql"}))
}

func TestManagerHealthCheckAll(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("db", &fakeClient{name: "sqlite"}))
	require.NoError(t, m.Register("cache", &fakeClient{name: "redis", pingErr: errors.New("connection refused")}))

	statuses := m.HealthCheckAll(context.Background())
	require.Len(t, statuses, 2)

	assert.True(t, statuses["db"].Healthy)
	assert.Equal(t, "sqlite", statuses["db"].Name)
	assert.False(t, statuses["cache"].Healthy)
	assert.Error(t, statuses["cache"].Error)
}

func TestManagerCloseAll(t *testing.T) {
	db := &fakeClient{name: "sqlite"}
	cache := &fakeClient{name: "redis"}

	m := NewManager()
	require.NoError(t, m.Register("db", db))
	require.NoError(t, m.Register("cache", cache))

	require.NoError(t, m.CloseAll())
	assert.Equal(t, 1, db.closed)
	assert.Equal(t, 1, cache.closed)
	assert.Empty(t, m.List())
}

func TestManagerList(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("db", &fakeClient{name: "sqlite"}))
	require.NoError(t, m.Register("cache", &fakeClient{name: "redis"}))

	assert.Equal(t, []string{"cache", "db"}, m.List())
}
