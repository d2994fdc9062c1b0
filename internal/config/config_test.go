package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"APFEED_SETTINGS", "ALMA_PAGE_SIZE", "AMOUNT_TOLERANCE", "FETCH_WORKERS", "PARSE_WORKERS", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "apfeed.yaml", cfg.SettingsPath)
	assert.Equal(t, 100, cfg.AlmaPageSize)
	assert.Equal(t, 20, cfg.FetchWorkers)
	assert.True(t, cfg.AmountTolerance.IsZero())
	assert.Equal(t, "info", cfg.GetLoggerConfig().Level)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APFEED_DIR", "/srv/apfeed")
	t.Setenv("ALMA_PAGE_SIZE", "50")
	t.Setenv("AMOUNT_TOLERANCE", "0.02")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/apfeed", cfg.FeedDir)
	assert.Equal(t, 50, cfg.AlmaPageSize)
	assert.True(t, cfg.AmountTolerance.Equal(decimal.RequireFromString("0.02")))
	assert.Equal(t, "json", cfg.GetLoggerConfig().Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"ALMA_PAGE_SIZE":   "500",
		"FETCH_WORKERS":    "-1",
		"AMOUNT_TOLERANCE": "-0.1",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSettings))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, key, verr.Field)
		})
	}

	t.Run("tolerance not a decimal", func(t *testing.T) {
		t.Setenv("AMOUNT_TOLERANCE", "two percent")
		_, err := Load()
		assert.True(t, errors.Is(err, ErrInvalidSettings))
	})
}

func TestFeedSettings_LoadMissingFile(t *testing.T) {
	settings, err := LoadFeedSettings(filepath.Join(t.TempDir(), "apfeed.yaml"))
	require.NoError(t, err)

	def := DefaultFeedSettings()
	assert.Equal(t, &def, settings)
	assert.Zero(t, settings.OrgDocNumber)
}

func TestFeedSettings_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apfeed.yaml")

	settings := DefaultFeedSettings()
	settings.OrgDocNumber = 42
	settings.TaxRate = "0.0725"
	require.NoError(t, SaveFeedSettings(path, &settings))

	loaded, err := LoadFeedSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.OrgDocNumber)
	assert.True(t, loaded.Feed().TaxRate.Equal(decimal.RequireFromString("0.0725")))
	assert.Equal(t, settings.Feed().OrgName, loaded.Feed().OrgName)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is cleaned up")

	loaded.OrgDocNumber = 43
	require.NoError(t, SaveFeedSettings(path, loaded))
	again, err := LoadFeedSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 43, again.OrgDocNumber)
}

func TestFeedSettings_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apfeed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("org_doc_nbr: 7\n"), 0o644))

	settings, err := LoadFeedSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 7, settings.OrgDocNumber)
	assert.Equal(t, DefaultFeedSettings().PaymentGroup, settings.PaymentGroup)
}

func TestFeedSettings_Validate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*FeedSettings)
		field string
	}{
		{name: "long indicator", edit: func(s *FeedSettings) { s.EmployeeInd = "NO" }, field: "emp_ind"},
		{name: "empty chart", edit: func(s *FeedSettings) { s.ChartCode = "" }, field: "fin_coa_cd"},
		{name: "no org", edit: func(s *FeedSettings) { s.OrgName = "" }, field: "org_name"},
		{name: "negative doc", edit: func(s *FeedSettings) { s.OrgDocNumber = -1 }, field: "org_doc_nbr"},
		{name: "bad rate", edit: func(s *FeedSettings) { s.TaxRate = "7%" }, field: "tax_rate"},
		{name: "negative rate", edit: func(s *FeedSettings) { s.TaxRate = "-0.01" }, field: "tax_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultFeedSettings()
			require.NoError(t, s.Validate())

			tt.edit(&s)
			err := s.Validate()

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.True(t, errors.Is(err, ErrInvalidSettings))
		})
	}
}

func TestFeedSettings_LoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apfeed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("emp_ind: NOPE\n"), 0o644))

	_, err := LoadFeedSettings(path)
	assert.True(t, errors.Is(err, ErrInvalidSettings))

	require.NoError(t, os.WriteFile(path, []byte("org_doc_nbr: [1, 2\n"), 0o644))
	_, err = LoadFeedSettings(path)
	assert.Error(t, err)
}
