package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/cohort-ltv/internal/cli"
	"github.com/joelkehle/cohort-ltv/internal/ltv"
)

func TestWritePoints(t *testing.T) {
	raw := ltv.DefaultRawInputs()
	raw[ltv.FieldCAC] = "500"
	base, err := ltv.Validate(raw)
	require.NoError(t, err)

	points, err := ltv.Sweep(base, ltv.DriverChurnRate, []float64{8, 100}, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writePoints(&buf, ltv.DriverChurnRate, points))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "churnRate,valid,ltv_revenue_per_customer,ltv_margin_per_customer,ltv_margin_cohort,ltv_to_cac_ratio,payback_period,final_active_pct,error", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "8,true,864.82,562.13,56213.39,1.1243,18,14.69,"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "100,false,0.00,0.00,0.00,,,0.00,"), lines[2])
}

func TestCheckLimits(t *testing.T) {
	base, err := ltv.Validate(ltv.DefaultRawInputs())
	require.NoError(t, err)
	assert.NoError(t, checkLimits(base, ltv.DriverHorizon, 1200, 1200))
	require.ErrorIs(t, checkLimits(base, ltv.DriverHorizon, 1e9, 1200), cli.ErrHorizonLimit)

	raw := ltv.DefaultRawInputs()
	raw[ltv.FieldHorizon] = "5000"
	big, err := ltv.Validate(raw)
	require.NoError(t, err)
	require.ErrorIs(t, checkLimits(big, ltv.DriverAOV, 100, 1200), cli.ErrHorizonLimit)
}
