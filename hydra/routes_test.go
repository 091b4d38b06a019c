package hydra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRoutes_ReplacesWholesale(t *testing.T) {
	f := newFixture(t)
	svc := f.start(t, "orders")

	require.NoError(t, svc.RegisterRoutes(f.kit.Ctx, []Route{
		{Path: "/v1/orders", Methods: []string{"GET", "Post"}},
		{Path: "/v1/orders/:id", Methods: []string{"delete"}},
	}))

	routes, err := svc.GetRoutes(f.kit.Ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"[delete]/v1/orders/:id",
		"[get]/orders",
		"[get]/orders/",
		"[get]/orders/:rest",
		"[get]/v1/orders",
		"[post]/v1/orders",
	}, routes)

	require.NoError(t, svc.RegisterRoutes(f.kit.Ctx, []Route{
		{Path: "/v2/orders", Methods: []string{"put"}},
	}))
	routes, err = svc.GetRoutes(f.kit.Ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"[get]/orders",
		"[get]/orders/",
		"[get]/orders/:rest",
		"[put]/v2/orders",
	}, routes)
}

func TestRegisterRoutes_ImplicitOnly(t *testing.T) {
	f := newFixture(t)
	svc := f.start(t, "orders")

	require.NoError(t, svc.RegisterRoutes(f.kit.Ctx, nil))
	routes, err := svc.GetRoutes(f.kit.Ctx, "orders")
	require.NoError(t, err)
	assert.Len(t, routes, 3)
}

func TestRegisterRoutes_NotifiesRouter(t *testing.T) {
	f := newFixture(t)
	svc := f.start(t, "orders")
	raw := f.subscribe(t, "hydra:service:mc:hydra-router")

	require.NoError(t, svc.RegisterRoutes(f.kit.Ctx, []Route{{Path: "/v1/x", Methods: []string{"get"}}}))

	got := receiveOne(t, raw)
	assert.Equal(t, "hydra-router:/refresh", got.To)
	assert.Equal(t, "orders:/", got.From)
	assert.JSONEq(t, `{"action":"refresh","serviceName":"orders"}`, string(got.Body))
}

func TestRegisterRoutes_EmptyPath(t *testing.T) {
	f := newFixture(t)
	svc := f.start(t, "orders")

	err := svc.RegisterRoutes(f.kit.Ctx, []Route{{Methods: []string{"get"}}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.False(t, f.mr.Exists("hydra:service:orders:service:routes"))
}

func TestGetRoutes_UnknownService(t *testing.T) {
	f := newFixture(t)
	svc := f.newService(t, "orders", nil)

	routes, err := svc.GetRoutes(f.kit.Ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, routes)
}
