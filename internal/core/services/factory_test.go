package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbsync/internal/core/domain"
	"github.com/custodia-labs/kbsync/internal/core/ports/driven"
)

func TestConnectorFactory(t *testing.T) {
	factory := NewConnectorFactory()

	built := newMockConnector("src")
	factory.Register("mock", func(_ domain.Source) (driven.Connector, error) {
		return built, nil
	})
	factory.Register("other", func(_ domain.Source) (driven.Connector, error) {
		return nil, domain.ErrMissingCredentials
	})

	t.Run("creates registered type", func(t *testing.T) {
		conn, err := factory.Create(context.Background(), domain.Source{ID: "src", Type: "mock"})
		require.NoError(t, err)
		assert.Same(t, driven.Connector(built), conn)
	})

	t.Run("builder errors propagate", func(t *testing.T) {
		_, err := factory.Create(context.Background(), domain.Source{ID: "x", Type: "other"})
		assert.ErrorIs(t, err, domain.ErrMissingCredentials)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := factory.Create(context.Background(), domain.Source{ID: "x", Type: "carrier-pigeon"})
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("supported types sorted", func(t *testing.T) {
		assert.Equal(t, []string{"mock", "other"}, factory.SupportedTypes())
	})
}
