package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validKitchensYAML = `
defaults:
  schedule:
    start_time: "09:00"
    end_time: "17:00"
  days_off: [7]

kitchens:
  - id: 1
    name: "Dockside Commissary"
    group_id: 1
    capacity: 2
    is_active: true
  - id: 2
    name: "Mill Street Bakehouse"
    group_id: 1
    is_active: false
    default_schedule:
      start_time: "06:00"
      end_time: "14:00"

holidays:
  - date: "2026-07-04"
    name: "Independence Day"
`

func writeKitchens(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kitchens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadKitchensConfig(t *testing.T) {
	cfg, err := LoadKitchensConfig(writeKitchens(t, validKitchensYAML))
	require.NoError(t, err)

	require.Len(t, cfg.Kitchens, 2)

	dockside := cfg.GetKitchenByName("Dockside Commissary")
	require.NotNil(t, dockside)
	assert.Equal(t, 2, dockside.Capacity)
	// Omitted schedule falls back to the global default.
	require.NotNil(t, dockside.DefaultSchedule)
	assert.Equal(t, "09:00", dockside.DefaultSchedule.StartTime)

	bakehouse := cfg.GetKitchenByName("Mill Street Bakehouse")
	require.NotNil(t, bakehouse)
	assert.Equal(t, "06:00", bakehouse.DefaultSchedule.StartTime)
	assert.Equal(t, 1, bakehouse.Capacity, "zero capacity defaults to 1")

	active := cfg.GetActiveKitchens()
	require.Len(t, active, 1)
	assert.Equal(t, "Dockside Commissary", active[0].Name)

	assert.Nil(t, cfg.GetKitchenByName("No Such Kitchen"))
}

func TestKitchensValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			"no kitchens",
			`kitchens: []`,
		},
		{
			"duplicate id",
			`kitchens:
  - {id: 1, name: "A", is_active: true, default_schedule: {start_time: "09:00", end_time: "17:00"}}
  - {id: 1, name: "B", is_active: true, default_schedule: {start_time: "09:00", end_time: "17:00"}}`,
		},
		{
			"duplicate name",
			`kitchens:
  - {id: 1, name: "A", is_active: true, default_schedule: {start_time: "09:00", end_time: "17:00"}}
  - {id: 2, name: "A", is_active: true, default_schedule: {start_time: "09:00", end_time: "17:00"}}`,
		},
		{
			"bad start time",
			`kitchens:
  - {id: 1, name: "A", is_active: true, default_schedule: {start_time: "9am", end_time: "17:00"}}`,
		},
		{
			"inverted window",
			`kitchens:
  - {id: 1, name: "A", is_active: true, default_schedule: {start_time: "17:00", end_time: "09:00"}}`,
		},
		{
			"bad holiday date",
			`kitchens:
  - {id: 1, name: "A", is_active: true, default_schedule: {start_time: "09:00", end_time: "17:00"}}
holidays:
  - {date: "07/04/2026", name: "bad"}`,
		},
		{
			"day off out of range",
			`defaults:
  days_off: [0]
kitchens:
  - {id: 1, name: "A", is_active: true, default_schedule: {start_time: "09:00", end_time: "17:00"}}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadKitchensConfig(writeKitchens(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestIsHoliday(t *testing.T) {
	cfg, err := LoadKitchensConfig(writeKitchens(t, validKitchensYAML))
	require.NoError(t, err)

	ok, name := cfg.IsHoliday(time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, "Independence Day", name)

	ok, _ = cfg.IsHoliday(time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestIsDayOff(t *testing.T) {
	cfg, err := LoadKitchensConfig(writeKitchens(t, validKitchensYAML))
	require.NoError(t, err)

	// days_off [7] means Sunday.
	assert.True(t, cfg.IsDayOff(time.Sunday))
	assert.False(t, cfg.IsDayOff(time.Monday))
	assert.False(t, cfg.IsDayOff(time.Saturday))
}
