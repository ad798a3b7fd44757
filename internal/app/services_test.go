package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kitchenledger/backoffice/internal/observability"
)

func TestBuildServicesWiresHandlers(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	svc, err := BuildServices(ServiceDeps{
		Policy:   DefaultPolicy(),
		Location: wib,
		Metrics:  observability.NewMetrics(),
		CacheTTL: time.Minute,
	})
	require.NoError(t, err)
	require.Equal(t, wib, svc.Location)
	require.Equal(t, wib, svc.Reports.Location())

	params := svc.Handlers(nil, &Config{RateLimitPerMinute: 10})
	require.NotNil(t, params.CategoryHandler)
	require.NotNil(t, params.InventoryHandler)
	require.NotNil(t, params.ExpenseHandler)
	require.NotNil(t, params.PayrollHandler)
	require.NotNil(t, params.SalesHandler)
	require.NotNil(t, params.PartnerHandler)
	require.NotNil(t, params.ReportHandler)
}

func TestBuildServicesRejectsBadRate(t *testing.T) {
	policy := DefaultPolicy()
	policy.Balance.LiabilityRate = "ten percent"
	_, err := BuildServices(ServiceDeps{Policy: policy})
	require.Error(t, err)
}
