package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecomply/forgecomply360/internal/catalog"
	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/testutil"
)

const catalogYAML = `
framework:
  name: NIST SP 800-53
  version: rev5
controls:
  - ref: ac-2
    title: Account Management
    baseline: Moderate
  - ref: AU-6
    title: Audit Record Review
`

func TestCatalogImportIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewCatalogService(repository.NewControlRepository(h.fx.DB.Handle()), nil, testutil.FixedClock(h.now))

	doc, err := catalog.Load(strings.NewReader(catalogYAML))
	require.NoError(t, err)

	first, err := svc.Import(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Controls)

	second, err := svc.Import(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, first.FrameworkID, second.FrameworkID)

	controls, total, err := svc.ListControls(ctx, repository.ControlFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "AC-2", controls[0].ControlRef)
	assert.Equal(t, "AC", controls[0].Family)
	assert.Equal(t, domain.BaselineModerate, controls[0].Baseline)

	_, err = svc.GetControl(ctx, "missing")
	assert.Equal(t, "NOT_FOUND", errorCode(err))

	_, err = svc.Import(ctx, &catalog.Document{Framework: catalog.FrameworkSpec{Name: "Empty", Version: "1"}})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err))
}

func TestAssetInventory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	db := h.fx.DB.Handle()
	svc := NewAssetService(repository.NewAssetRepository(db), repository.NewSystemRepository(db), h.audit, testutil.FixedClock(h.now))
	analyst := h.actor(domain.RoleAnalyst)
	sys := h.fx.System(t, "Billing", false)

	name, server := "db-01", domain.AssetServer
	badIP, goodIP := "300.1.1.1", "10.0.4.17"
	missing := "missing"

	_, err := svc.Create(ctx, analyst, AssetInput{Name: &name})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err), "asset_type is required")
	_, err = svc.Create(ctx, analyst, AssetInput{Name: &name, AssetType: &server, IPAddress: &badIP})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err))
	_, err = svc.Create(ctx, analyst, AssetInput{Name: &name, AssetType: &server, SystemID: &missing})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err))

	asset, err := svc.Create(ctx, analyst, AssetInput{Name: &name, AssetType: &server, IPAddress: &goodIP, SystemID: &sys.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.EnvProduction, asset.Environment)
	assert.Equal(t, domain.RiskModerate, asset.Criticality)

	header, rows, err := svc.Export(ctx, analyst, repository.AssetFilter{})
	require.NoError(t, err)
	assert.Equal(t, "ip_address", header[4])
	require.Len(t, rows, 1)
	assert.Equal(t, "10.0.4.17", rows[0][4])
	assert.Equal(t, sys.ID, rows[0][10])

	require.NoError(t, svc.Delete(ctx, analyst, asset.ID))
	assert.Equal(t, "NOT_FOUND", errorCode(svc.Delete(ctx, analyst, asset.ID)))
}

func TestInheritanceTree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	analyst := h.actor(domain.RoleAnalyst)
	provider := h.fx.System(t, "Cloud Platform", true)
	consumer := h.fx.System(t, "Portal", false)
	controls := h.fx.Controls(t, "PE-3", "PE-6")

	for _, c := range controls {
		_, err := h.implementations.Upsert(ctx, analyst, consumer.ID, c.ID, ImplementationInput{
			Status:                domain.ImplImplemented,
			Origination:           domain.OriginInherited,
			InheritedFromSystemID: &provider.ID,
		})
		require.NoError(t, err)
	}

	layout, err := h.systems.InheritanceTree(ctx, analyst)
	require.NoError(t, err)
	require.Len(t, layout.Nodes, 2)
	require.Len(t, layout.Edges, 1)
	assert.Equal(t, provider.ID, layout.Edges[0].From)
	assert.Equal(t, consumer.ID, layout.Edges[0].To)
	assert.Equal(t, 2, layout.Edges[0].Weight)

	depth := map[string]int{}
	for _, n := range layout.Nodes {
		depth[n.ID] = n.Depth
		if n.ID == provider.ID {
			assert.Equal(t, "common control provider", n.Subtitle)
		}
	}
	assert.Less(t, depth[provider.ID], depth[consumer.ID])
}
