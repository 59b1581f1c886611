package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name string
}

func (s *stubProvider) Name() string                       { return s.name }
func (s *stubProvider) Initialize(_ context.Context) error { return nil }
func (s *stubProvider) Close(_ context.Context) error      { return nil }
func (s *stubProvider) HealthCheck(_ context.Context) bool { return true }

type stubSearcher struct {
	stubProvider
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ map[string]any) ([]Tender, error) {
	return nil, nil
}

func (s *stubSearcher) Details(_ context.Context, _ string) (*Tender, error) {
	return nil, ErrNotFound
}

func TestRegistry_PreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubSearcher{stubProvider{name: "pncp"}}))
	require.NoError(t, r.Register(&stubSearcher{stubProvider{name: "comprasnet"}}))
	require.NoError(t, r.Register(&stubProvider{name: "receita"}))

	assert.Equal(t, []string{"pncp", "comprasnet", "receita"}, r.Names())
	assert.Equal(t, []string{"pncp", "comprasnet"}, r.SearcherNames())
}

func TestRegistry_RejectsDuplicatesAndNil(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubProvider{name: "pncp"}))

	assert.Error(t, r.Register(&stubProvider{name: "pncp"}))
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&stubProvider{}))
}

func TestRegistry_SearcherFiltersByCapability(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubSearcher{stubProvider{name: "pncp"}}))
	require.NoError(t, r.Register(&stubProvider{name: "receita"}))

	_, ok := r.Searcher("pncp")
	assert.True(t, ok)

	_, ok = r.Searcher("receita")
	assert.False(t, ok, "non-searching provider must not be returned as a searcher")

	_, ok = r.Searcher("ghost")
	assert.False(t, ok)
}
