package main

import (
	"bytes"
	"testing"

	"production-service/internal/config"
	"production-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "production-service dev")
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"serve", "migrate", "orders", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCmd_ErrorsSkipUsage(t *testing.T) {
	cmd := newRootCmd()
	assert.True(t, cmd.SilenceUsage)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version", "--bogus"})

	require.Error(t, cmd.Execute())
	assert.Contains(t, out.String(), "unknown flag: --bogus")
	assert.NotContains(t, out.String(), "Usage:")
}

func TestInitLogger(t *testing.T) {
	log, err := initLogger(config.LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))

	log, err = initLogger(config.LogConfig{Level: "bogus"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestRenderOrders(t *testing.T) {
	parent := "o-1"
	stages := domain.DefaultStages()
	stages[0].Status = domain.StageDone
	orders := []domain.ProductionOrder{
		{OrderCode: "PO191225", ItemCode: "B0137", CustomerName: "LA CAMIE", TotalQuantity: 252, DeliveryDate: "2026-01-15", Priority: domain.PriorityMedium, Status: domain.StatusActive, Stages: stages},
		{SortOrder: 1, OrderCode: "PO191225-BÙ", ItemCode: "B0137", CustomerName: "LA CAMIE", TotalQuantity: 3, Priority: domain.PriorityHigh, Status: domain.StatusSuspended, ParentOrderID: &parent},
	}

	var out bytes.Buffer
	require.NoError(t, renderOrders(&out, orders))
	s := out.String()
	assert.Contains(t, s, "PO191225-BÙ")
	assert.Contains(t, s, "1/7")
	assert.Contains(t, s, "o-1")

	active := filterStatus(orders, domain.StatusActive)
	require.Len(t, active, 1)
	assert.Equal(t, "PO191225", active[0].OrderCode)
	assert.Len(t, filterStatus(orders, ""), 2)
}
