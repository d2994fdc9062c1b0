package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"apfeed/internal/apfeed"
)

// FeedSettings is the persisted feed state: the record constants and the
// last org document number handed out.
type FeedSettings struct {
	OrgName       string `yaml:"org_name"`
	OrgDocNumber  int    `yaml:"org_doc_nbr"`
	EmployeeInd   string `yaml:"emp_ind"`
	ShipZip       string `yaml:"org_shp_zip_cd"`
	ShipState     string `yaml:"org_shp_state_cd"`
	PaymentGroup  string `yaml:"pmt_grp_cd"`
	NonCheckInd   string `yaml:"pmt_non_check_ind"`
	ChartCode     string `yaml:"fin_coa_cd"`
	ObjectCode    string `yaml:"fin_object_cd"`
	ApplyDiscount string `yaml:"apply_disc_ind"`
	EFTOverride   string `yaml:"eft_override_ind"`
	TaxRate       string `yaml:"tax_rate"`
}

// DefaultFeedSettings returns the settings used when no file exists yet.
func DefaultFeedSettings() FeedSettings {
	d := apfeed.DefaultSettings()
	return FeedSettings{
		OrgName:       d.OrgName,
		EmployeeInd:   d.EmployeeInd,
		ShipZip:       d.ShipZip,
		ShipState:     d.ShipState,
		PaymentGroup:  d.PaymentGroup,
		NonCheckInd:   d.NonCheckInd,
		ChartCode:     d.ChartCode,
		ObjectCode:    d.ObjectCode,
		ApplyDiscount: d.ApplyDiscountInd,
		EFTOverride:   d.EFTOverrideInd,
		TaxRate:       d.TaxRate.String(),
	}
}

// LoadFeedSettings reads the settings file. A missing file yields the defaults.
func LoadFeedSettings(path string) (*FeedSettings, error) {
	const op = "LoadFeedSettings"

	settings := DefaultFeedSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s: %w", op, path, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("%s: failed to parse %s: %w", op, path, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, path, err)
	}

	return &settings, nil
}

// SaveFeedSettings writes the settings through a temp file and a rename, so
// a crash never leaves a truncated org document number behind.
func SaveFeedSettings(path string, settings *FeedSettings) error {
	const op = "SaveFeedSettings"

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("%s: failed to encode settings: %w", op, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: failed to create temp file: %w", op, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: failed to write settings: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: failed to close temp file: %w", op, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%s: failed to replace %s: %w", op, path, err)
	}
	return nil
}

// Validate checks the indicator widths and the tax rate.
func (s *FeedSettings) Validate() error {
	single := map[string]string{
		"emp_ind":           s.EmployeeInd,
		"pmt_grp_cd":        s.PaymentGroup,
		"pmt_non_check_ind": s.NonCheckInd,
		"fin_coa_cd":        s.ChartCode,
		"apply_disc_ind":    s.ApplyDiscount,
		"eft_override_ind":  s.EFTOverride,
	}
	for field, value := range single {
		if len(value) != 1 {
			return &ValidationError{Field: field, Value: value, Message: "must be exactly one character"}
		}
	}

	if s.OrgName == "" {
		return &ValidationError{Field: "org_name", Value: s.OrgName, Message: "is required"}
	}
	if s.OrgDocNumber < 0 {
		return &ValidationError{Field: "org_doc_nbr", Value: s.OrgDocNumber, Message: "must not be negative"}
	}

	rate, err := s.taxRate()
	if err != nil || rate.IsNegative() {
		return &ValidationError{Field: "tax_rate", Value: s.TaxRate, Message: "must be a non-negative decimal"}
	}

	return nil
}

// Feed converts the file settings to the record constants of a feed builder.
func (s *FeedSettings) Feed() apfeed.Settings {
	rate, _ := s.taxRate()
	return apfeed.Settings{
		OrgName:          s.OrgName,
		EmployeeInd:      s.EmployeeInd,
		ShipZip:          s.ShipZip,
		ShipState:        s.ShipState,
		PaymentGroup:     s.PaymentGroup,
		NonCheckInd:      s.NonCheckInd,
		ChartCode:        s.ChartCode,
		ObjectCode:       s.ObjectCode,
		ApplyDiscountInd: s.ApplyDiscount,
		EFTOverrideInd:   s.EFTOverride,
		TaxRate:          rate,
	}
}

func (s *FeedSettings) taxRate() (decimal.Decimal, error) {
	if s.TaxRate == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s.TaxRate)
}
