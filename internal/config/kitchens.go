package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// KitchenConfig describes one kitchen seeded from kitchens.yaml.
type KitchenConfig struct {
	ID              int                    `yaml:"id"`
	Name            string                 `yaml:"name"`
	Description     string                 `yaml:"description"`
	GroupID         int64                  `yaml:"group_id"`
	Capacity        int                    `yaml:"capacity"`
	IsActive        bool                   `yaml:"is_active"`
	DefaultSchedule *KitchenScheduleConfig `yaml:"default_schedule,omitempty"`
}

// KitchenScheduleConfig describes the weekly operating window.
type KitchenScheduleConfig struct {
	StartTime string `yaml:"start_time"` // "09:00"
	EndTime   string `yaml:"end_time"`   // "17:00"
}

// HolidayConfig marks a calendar date closed for all kitchens.
type HolidayConfig struct {
	Date string `yaml:"date"` // "2026-01-01"
	Name string `yaml:"name"`
}

// DefaultsConfig holds global fallbacks for kitchens without explicit settings.
type DefaultsConfig struct {
	Schedule *KitchenScheduleConfig `yaml:"schedule"`
	DaysOff  []int                  `yaml:"days_off"` // 1=Mon, 7=Sun
}

// KitchensConfig is the root configuration for kitchens.yaml.
type KitchensConfig struct {
	Kitchens []KitchenConfig `yaml:"kitchens"`
	Defaults DefaultsConfig  `yaml:"defaults"`
	Holidays []HolidayConfig `yaml:"holidays"`
}

// LoadKitchensConfig loads and validates kitchen configuration from a YAML file.
func LoadKitchensConfig(path string) (*KitchensConfig, error) {
	if path == "" {
		path = "configs/kitchens.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read kitchens config: %w", err)
	}

	var cfg KitchensConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse kitchens config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate kitchens config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *KitchensConfig) Validate() error {
	if len(c.Kitchens) == 0 {
		return fmt.Errorf("no kitchens defined")
	}

	ids := make(map[int]bool)
	names := make(map[string]bool)

	for i, k := range c.Kitchens {
		if k.ID <= 0 {
			return fmt.Errorf("kitchen[%d]: id must be positive, got %d", i, k.ID)
		}
		if ids[k.ID] {
			return fmt.Errorf("kitchen[%d]: duplicate id %d", i, k.ID)
		}
		ids[k.ID] = true

		if k.Name == "" {
			return fmt.Errorf("kitchen[%d]: name is required", i)
		}
		if names[k.Name] {
			return fmt.Errorf("kitchen[%d]: duplicate name '%s'", i, k.Name)
		}
		names[k.Name] = true

		if k.Capacity < 0 {
			return fmt.Errorf("kitchen[%d]: capacity cannot be negative", i)
		}

		if k.DefaultSchedule != nil {
			if err := validateSchedule(k.DefaultSchedule, fmt.Sprintf("kitchen[%d].default_schedule", i)); err != nil {
				return err
			}
		}
	}

	if c.Defaults.Schedule != nil {
		if err := validateSchedule(c.Defaults.Schedule, "defaults.schedule"); err != nil {
			return err
		}
	}

	for i, h := range c.Holidays {
		if h.Date == "" {
			return fmt.Errorf("holiday[%d]: date is required", i)
		}
		if _, err := time.Parse("2006-01-02", h.Date); err != nil {
			return fmt.Errorf("holiday[%d]: invalid date format '%s', expected YYYY-MM-DD", i, h.Date)
		}
	}

	for i, d := range c.Defaults.DaysOff {
		if d < 1 || d > 7 {
			return fmt.Errorf("defaults.days_off[%d]: invalid day %d, must be 1-7 (1=Mon, 7=Sun)", i, d)
		}
	}

	return nil
}

func validateSchedule(s *KitchenScheduleConfig, prefix string) error {
	if s.StartTime == "" {
		return fmt.Errorf("%s.start_time is required", prefix)
	}
	if s.EndTime == "" {
		return fmt.Errorf("%s.end_time is required", prefix)
	}

	startTime, err := time.Parse("15:04", s.StartTime)
	if err != nil {
		return fmt.Errorf("%s.start_time: invalid format '%s', expected HH:MM", prefix, s.StartTime)
	}

	endTime, err := time.Parse("15:04", s.EndTime)
	if err != nil {
		return fmt.Errorf("%s.end_time: invalid format '%s', expected HH:MM", prefix, s.EndTime)
	}

	if !endTime.After(startTime) {
		return fmt.Errorf("%s: end_time must be after start_time", prefix)
	}

	return nil
}

// applyDefaults fills in schedule and capacity for kitchens that omit them.
func (c *KitchensConfig) applyDefaults() {
	for i := range c.Kitchens {
		if c.Kitchens[i].DefaultSchedule == nil && c.Defaults.Schedule != nil {
			c.Kitchens[i].DefaultSchedule = c.Defaults.Schedule
		}
		if c.Kitchens[i].Capacity == 0 {
			c.Kitchens[i].Capacity = 1
		}
	}
}

// GetKitchenByName returns kitchen config by name.
func (c *KitchensConfig) GetKitchenByName(name string) *KitchenConfig {
	for i := range c.Kitchens {
		if c.Kitchens[i].Name == name {
			return &c.Kitchens[i]
		}
	}
	return nil
}

// GetActiveKitchens returns only active kitchens.
func (c *KitchensConfig) GetActiveKitchens() []KitchenConfig {
	result := make([]KitchenConfig, 0)
	for _, k := range c.Kitchens {
		if k.IsActive {
			result = append(result, k)
		}
	}
	return result
}

// IsHoliday checks if a date is a holiday.
func (c *KitchensConfig) IsHoliday(date time.Time) (bool, string) {
	dateStr := date.Format("2006-01-02")
	for _, h := range c.Holidays {
		if h.Date == dateStr {
			return true, h.Name
		}
	}
	return false, ""
}

// IsDayOff checks if a weekday is a configured day off.
func (c *KitchensConfig) IsDayOff(weekday time.Weekday) bool {
	// Convert Go's weekday (0=Sun) to config format (1=Mon, 7=Sun).
	day := int(weekday)
	if day == 0 {
		day = 7
	}

	for _, d := range c.Defaults.DaysOff {
		if d == day {
			return true
		}
	}
	return false
}

// String returns a summary of the configuration.
func (c *KitchensConfig) String() string {
	active := 0
	for _, k := range c.Kitchens {
		if k.IsActive {
			active++
		}
	}
	return fmt.Sprintf("KitchensConfig: %d kitchens (%d active), %d holidays",
		len(c.Kitchens), active, len(c.Holidays))
}
