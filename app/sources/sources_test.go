package sources_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/amirphl/pn-backup/app/sources"
	"github.com/amirphl/pn-backup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCSVSource_ReadTable(t *testing.T) {
	dir := t.TempDir()
	accounts := writeFile(t, dir, "accounts.csv", "\ufeffAccount SID, Status ,Email\nT1,yes,noc@t1.example\n,,\nT2,no\n")

	src := sources.NewCSVSource(map[sources.Category]string{sources.CategoryAccounts: accounts})

	rows, err := src.ReadTable(context.Background(), sources.CategoryAccounts)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "T1", rows[0]["account_sid"])
	assert.Equal(t, "yes", rows[0]["status"])
	assert.Equal(t, "noc@t1.example", rows[0]["email"])
	assert.Equal(t, "", rows[1]["email"])

	_, err = src.ReadTable(context.Background(), sources.CategoryRegionPreferences)
	assert.ErrorIs(t, err, sources.ErrCategoryNotConfigured)

	missing := sources.NewCSVSource(map[sources.Category]string{sources.CategoryAccounts: filepath.Join(dir, "absent.csv")})
	_, err = missing.ReadTable(context.Background(), sources.CategoryAccounts)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, sources.ErrCategoryNotConfigured)
}

func TestWorkbookSource_ReadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inputs.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Accounts"))
	require.NoError(t, f.SetSheetRow("Accounts", "A1", &[]any{"tenant", "status", "allowed pilots"}))
	require.NoError(t, f.SetSheetRow("Accounts", "A2", &[]any{"T1", "Active", "P7, P8"}))
	_, err := f.NewSheet("RegionPreferences")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("RegionPreferences", "A1", &[]any{"Region", "Pilots"}))
	require.NoError(t, f.SetSheetRow("RegionPreferences", "A2", &[]any{"APAC", "P1,P2"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src := sources.NewWorkbookSource(path, map[sources.Category]string{
		sources.CategoryAccounts:          "Accounts",
		sources.CategoryRegionPreferences: "RegionPreferences",
		sources.CategoryTenantExceptions:  "TenantExceptions",
	})
	ctx := context.Background()

	rows, err := src.ReadTable(ctx, sources.CategoryAccounts)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "P7, P8", rows[0]["allowed_pilots"])

	rows, err = src.ReadTable(ctx, sources.CategoryRegionPreferences)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "APAC", rows[0]["region"])

	_, err = src.ReadTable(ctx, sources.CategoryTenantExceptions)
	assert.ErrorIs(t, err, sources.ErrCategoryNotConfigured)
}

func TestNewSourceFromConfig(t *testing.T) {
	src, err := sources.NewSourceFromConfig(config.SourcesConfig{Kind: config.SourceKindCSV})
	require.NoError(t, err)
	assert.IsType(t, &sources.CSVSource{}, src)

	src, err = sources.NewSourceFromConfig(config.SourcesConfig{Kind: config.SourceKindXLSX, Workbook: "in.xlsx"})
	require.NoError(t, err)
	assert.IsType(t, &sources.WorkbookSource{}, src)

	_, err = sources.NewSourceFromConfig(config.SourcesConfig{Kind: "gsheets"})
	assert.Error(t, err)
}

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	paths := map[sources.Category]string{
		sources.CategoryAccounts: writeFile(t, dir, "accounts.csv",
			"tenant,account_id,status,email,allowed_operators\n"+
				"Tenant One,T1,YES,noc@t1.example,\n"+
				"Tenant Two,T2,no,,\n"+
				"Tenant Three,T3,enabled,not-an-email,\n"+
				",,active,,\n"+
				"Tenant Four,T4,Active,,\"P9, P10\"\n"+
				"Tenant One again,T1,yes,,\n"),
		sources.CategoryTenantExceptions: writeFile(t, dir, "exceptions.csv",
			"tenant,allowed_operators\nT1,\"P3, P4\"\nT5,\n"),
		sources.CategoryRegionPreferences: writeFile(t, dir, "regions.csv",
			"region,pilots\nAPAC,\"P1,P2\"\nEU,\n,P6\n"),
	}

	core, logs := observer.New(zap.WarnLevel)
	loader := sources.NewLoader(sources.NewCSVSource(paths), zap.New(core))
	ctx := context.Background()

	t.Run("LoadAccounts", func(t *testing.T) {
		tenants, err := loader.LoadAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, tenants, 2)

		assert.Equal(t, "T1", tenants[0].ID)
		assert.Equal(t, "noc@t1.example", tenants[0].Email)
		assert.Nil(t, tenants[0].AllowedPilots)
		assert.False(t, tenants[0].HasPilotOverride())

		assert.Equal(t, "T4", tenants[1].ID)
		assert.Equal(t, []string{"P9", "P10"}, tenants[1].AllowedPilots)
		assert.True(t, tenants[1].HasPilotOverride())

		assert.Equal(t, 1, logs.FilterMessage("Skipping invalid account row").FilterField(zap.String("tenant_id", "T3")).Len())
		assert.Equal(t, 1, logs.FilterMessage("Skipping duplicate account row").Len())
	})

	t.Run("LoadTenantExceptions", func(t *testing.T) {
		exceptions, err := loader.LoadTenantExceptions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"P3", "P4"}, exceptions["T1"])

		empty, ok := exceptions["T5"]
		assert.True(t, ok)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("LoadRegionPilots", func(t *testing.T) {
		prefs, err := loader.LoadRegionPilots(ctx)
		require.NoError(t, err)
		assert.Len(t, prefs, 2)
		assert.Equal(t, []string{"P1", "P2"}, prefs["APAC"])
		assert.Empty(t, prefs["EU"])
	})

	t.Run("AccountsWithoutStatusColumn", func(t *testing.T) {
		noStatus := sources.NewLoader(sources.NewCSVSource(map[sources.Category]string{
			sources.CategoryAccounts: writeFile(t, dir, "no_status.csv", "account_sid,email\nT1,noc@t1.example\n"),
		}), zap.New(core))

		tenants, err := noStatus.LoadAccounts(ctx)
		require.NoError(t, err)
		assert.Empty(t, tenants)
		assert.Equal(t, 1, logs.FilterMessage("Accounts table has no status column, no tenant is enabled").Len())
	})

	t.Run("UnconfiguredCategoryIsEmpty", func(t *testing.T) {
		bare := sources.NewLoader(sources.NewCSVSource(nil), zap.New(core))
		prefs, err := bare.LoadRegionPilots(ctx)
		require.NoError(t, err)
		assert.Empty(t, prefs)
		assert.GreaterOrEqual(t, logs.FilterMessage("Input table not configured, using empty table").Len(), 1)
	})
}
