package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/lap-pace/internal/correction"
	"github.com/banshee-data/lap-pace/internal/degradation"
	"github.com/banshee-data/lap-pace/internal/evolution"
	"github.com/banshee-data/lap-pace/internal/fuel"
)

// DefaultConfigPath is the path to the canonical pace defaults file.
const DefaultConfigPath = "config/pace.defaults.json"

// PaceConfig holds every tunable constant of a run. Omitted fields fall
// back to the defaults returned by the Get* accessors, so partial files
// are safe.
type PaceConfig struct {
	Event *string `json:"event,omitempty"`

	// Sessions
	RookieSession    *string `json:"rookie_session,omitempty"`
	ReferenceSession *string `json:"reference_session,omitempty"`

	// Fuel model
	FuelEffectPerKg  *float64 `json:"fuel_effect_per_kg,omitempty"`
	FuelBurnKgPerLap *float64 `json:"fuel_burn_kg_per_lap,omitempty"`
	StartFuelKg      *float64 `json:"start_fuel_kg,omitempty"`
	FuelFloorKg      *float64 `json:"fuel_floor_kg,omitempty"`

	// Stints
	StintGap *string `json:"stint_gap,omitempty"` // duration string like "300s"

	// Track evolution
	EvolutionWindow                *string  `json:"evolution_window,omitempty"` // duration string like "5m"
	EvolutionRepresentativePercent *float64 `json:"evolution_representative_percent,omitempty"`
	MinLapsPerWindow               *int     `json:"min_laps_per_window,omitempty"`
	MinWindows                     *int     `json:"min_windows,omitempty"`
	MaxEvolutionRate               *float64 `json:"max_evolution_rate,omitempty"`

	// Tyre degradation
	MinLapsForDegradation *int               `json:"min_laps_for_degradation,omitempty"`
	MinDegradationSlope   *float64           `json:"min_degradation_slope,omitempty"`
	MaxDegradationSlope   *float64           `json:"max_degradation_slope,omitempty"`
	PriorDegradation      map[string]float64 `json:"prior_degradation,omitempty"`

	// Analytics
	OutlierThresholdPercent *float64 `json:"outlier_threshold_percent,omitempty"`
	MinLongRunLaps          *int     `json:"min_long_run_laps,omitempty"`

	Roster *Roster `json:"roster,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyPaceConfig returns a PaceConfig with every field unset.
func EmptyPaceConfig() *PaceConfig {
	return &PaceConfig{}
}

// DefaultPaceConfig returns a PaceConfig with every field set to its default.
func DefaultPaceConfig() *PaceConfig {
	empty := EmptyPaceConfig()
	roster := empty.GetRoster()
	return &PaceConfig{
		Event:                          ptrString(empty.GetEvent()),
		RookieSession:                  ptrString(empty.GetRookieSession()),
		ReferenceSession:               ptrString(empty.GetReferenceSession()),
		FuelEffectPerKg:                ptrFloat64(empty.GetFuelEffectPerKg()),
		FuelBurnKgPerLap:               ptrFloat64(empty.GetFuelBurnKgPerLap()),
		StartFuelKg:                    ptrFloat64(empty.GetStartFuelKg()),
		FuelFloorKg:                    ptrFloat64(empty.GetFuelFloorKg()),
		StintGap:                       ptrString(empty.GetStintGap().String()),
		EvolutionWindow:                ptrString(empty.GetEvolutionWindow().String()),
		EvolutionRepresentativePercent: ptrFloat64(empty.GetEvolutionRepresentativePercent()),
		MinLapsPerWindow:               ptrInt(empty.GetMinLapsPerWindow()),
		MinWindows:                     ptrInt(empty.GetMinWindows()),
		MaxEvolutionRate:               ptrFloat64(empty.GetMaxEvolutionRate()),
		MinLapsForDegradation:          ptrInt(empty.GetMinLapsForDegradation()),
		MinDegradationSlope:            ptrFloat64(empty.GetMinDegradationSlope()),
		MaxDegradationSlope:            ptrFloat64(empty.GetMaxDegradationSlope()),
		PriorDegradation:               empty.GetPriorDegradation(),
		OutlierThresholdPercent:        ptrFloat64(empty.GetOutlierThresholdPercent()),
		MinLongRunLaps:                 ptrInt(empty.GetMinLongRunLaps()),
		Roster:                         &roster,
	}
}

// LoadPaceConfig loads a PaceConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadPaceConfig(path string) (*PaceConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPaceConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *PaceConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadPaceConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable.
func (c *PaceConfig) Validate() error {
	for name, v := range map[string]*float64{
		"fuel_effect_per_kg":               c.FuelEffectPerKg,
		"fuel_burn_kg_per_lap":             c.FuelBurnKgPerLap,
		"start_fuel_kg":                    c.StartFuelKg,
		"fuel_floor_kg":                    c.FuelFloorKg,
		"max_evolution_rate":               c.MaxEvolutionRate,
		"evolution_representative_percent": c.EvolutionRepresentativePercent,
		"outlier_threshold_percent":        c.OutlierThresholdPercent,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}

	if c.EvolutionRepresentativePercent != nil && *c.EvolutionRepresentativePercent < 100 {
		return fmt.Errorf("evolution_representative_percent must be at least 100, got %f", *c.EvolutionRepresentativePercent)
	}
	if c.OutlierThresholdPercent != nil && *c.OutlierThresholdPercent < 100 {
		return fmt.Errorf("outlier_threshold_percent must be at least 100, got %f", *c.OutlierThresholdPercent)
	}
	if c.MaxEvolutionRate != nil && *c.MaxEvolutionRate <= 0 {
		return fmt.Errorf("max_evolution_rate must be positive, got %f", *c.MaxEvolutionRate)
	}
	if c.GetFuelFloorKg() > c.GetStartFuelKg() {
		return fmt.Errorf("fuel_floor_kg %f exceeds start_fuel_kg %f", c.GetFuelFloorKg(), c.GetStartFuelKg())
	}
	if c.GetMinDegradationSlope() >= c.GetMaxDegradationSlope() {
		return fmt.Errorf("min_degradation_slope %f must be below max_degradation_slope %f",
			c.GetMinDegradationSlope(), c.GetMaxDegradationSlope())
	}

	for name, v := range map[string]*int{
		"min_laps_per_window":      c.MinLapsPerWindow,
		"min_windows":              c.MinWindows,
		"min_laps_for_degradation": c.MinLapsForDegradation,
		"min_long_run_laps":        c.MinLongRunLaps,
	} {
		if v != nil && *v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", name, *v)
		}
	}
	if c.MinLapsForDegradation != nil && *c.MinLapsForDegradation < 2 {
		return fmt.Errorf("min_laps_for_degradation must be at least 2 to fit a slope, got %d", *c.MinLapsForDegradation)
	}

	for name, v := range map[string]*string{
		"stint_gap":        c.StintGap,
		"evolution_window": c.EvolutionWindow,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *v)
		}
	}

	for compound, rate := range c.PriorDegradation {
		if rate < 0 {
			return fmt.Errorf("prior_degradation[%s] must be non-negative, got %f", compound, rate)
		}
	}

	if c.GetRookieSession() == c.GetReferenceSession() {
		return fmt.Errorf("rookie_session and reference_session must differ, both are %q", c.GetRookieSession())
	}

	if c.Roster != nil {
		if err := c.Roster.Validate(); err != nil {
			return fmt.Errorf("roster: %w", err)
		}
	}
	return nil
}

// GetEvent returns the event label used in output titles.
func (c *PaceConfig) GetEvent() string {
	if c.Event == nil {
		return "2025 Abu Dhabi"
	}
	return *c.Event
}

// GetRookieSession returns the name of the session the rookies drove.
func (c *PaceConfig) GetRookieSession() string {
	if c.RookieSession == nil || *c.RookieSession == "" {
		return "FP1"
	}
	return *c.RookieSession
}

// GetReferenceSession returns the name of the session the reference
// drivers drove.
func (c *PaceConfig) GetReferenceSession() string {
	if c.ReferenceSession == nil || *c.ReferenceSession == "" {
		return "FP2"
	}
	return *c.ReferenceSession
}

// GetFuelEffectPerKg returns the fuel_effect_per_kg value or the default.
func (c *PaceConfig) GetFuelEffectPerKg() float64 {
	if c.FuelEffectPerKg == nil {
		return fuel.DefaultEffectPerKg
	}
	return *c.FuelEffectPerKg
}

// GetFuelBurnKgPerLap returns the fuel_burn_kg_per_lap value or the default.
func (c *PaceConfig) GetFuelBurnKgPerLap() float64 {
	if c.FuelBurnKgPerLap == nil {
		return fuel.DefaultBurnKgPerLap
	}
	return *c.FuelBurnKgPerLap
}

// GetStartFuelKg returns the start_fuel_kg value or the default.
func (c *PaceConfig) GetStartFuelKg() float64 {
	if c.StartFuelKg == nil {
		return fuel.DefaultStartKg
	}
	return *c.StartFuelKg
}

// GetFuelFloorKg returns the fuel_floor_kg value or the default.
func (c *PaceConfig) GetFuelFloorKg() float64 {
	if c.FuelFloorKg == nil {
		return fuel.DefaultFloorKg
	}
	return *c.FuelFloorKg
}

// GetStintGap parses and returns StintGap as a time.Duration.
func (c *PaceConfig) GetStintGap() time.Duration {
	return parseDurationOr(c.StintGap, 300*time.Second)
}

// GetEvolutionWindow parses and returns EvolutionWindow as a time.Duration.
func (c *PaceConfig) GetEvolutionWindow() time.Duration {
	return parseDurationOr(c.EvolutionWindow, 5*time.Minute)
}

func parseDurationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil || d <= 0 {
		return def // default on parse error
	}
	return d
}

// GetEvolutionRepresentativePercent returns the evolution_representative_percent
// value or the default.
func (c *PaceConfig) GetEvolutionRepresentativePercent() float64 {
	if c.EvolutionRepresentativePercent == nil {
		return 105
	}
	return *c.EvolutionRepresentativePercent
}

// GetMinLapsPerWindow returns the min_laps_per_window value or the default.
func (c *PaceConfig) GetMinLapsPerWindow() int {
	if c.MinLapsPerWindow == nil {
		return 3
	}
	return *c.MinLapsPerWindow
}

// GetMinWindows returns the min_windows value or the default.
func (c *PaceConfig) GetMinWindows() int {
	if c.MinWindows == nil {
		return 3
	}
	return *c.MinWindows
}

// GetMaxEvolutionRate returns the max_evolution_rate value or the default.
func (c *PaceConfig) GetMaxEvolutionRate() float64 {
	if c.MaxEvolutionRate == nil {
		return 0.05
	}
	return *c.MaxEvolutionRate
}

// GetMinLapsForDegradation returns the min_laps_for_degradation value or the default.
func (c *PaceConfig) GetMinLapsForDegradation() int {
	if c.MinLapsForDegradation == nil {
		return 4
	}
	return *c.MinLapsForDegradation
}

// GetMinDegradationSlope returns the min_degradation_slope value or the default.
func (c *PaceConfig) GetMinDegradationSlope() float64 {
	if c.MinDegradationSlope == nil {
		return 0
	}
	return *c.MinDegradationSlope
}

// GetMaxDegradationSlope returns the max_degradation_slope value or the default.
func (c *PaceConfig) GetMaxDegradationSlope() float64 {
	if c.MaxDegradationSlope == nil {
		return 0.3
	}
	return *c.MaxDegradationSlope
}

// GetPriorDegradation returns the prior table merged over the defaults, so
// a file may override a single compound.
func (c *PaceConfig) GetPriorDegradation() map[string]float64 {
	out := degradation.DefaultPriors()
	for compound, rate := range c.PriorDegradation {
		out[compound] = rate
	}
	return out
}

// GetOutlierThresholdPercent returns the outlier_threshold_percent value or the default.
func (c *PaceConfig) GetOutlierThresholdPercent() float64 {
	if c.OutlierThresholdPercent == nil {
		return 107
	}
	return *c.OutlierThresholdPercent
}

// GetMinLongRunLaps returns the min_long_run_laps value or the default.
func (c *PaceConfig) GetMinLongRunLaps() int {
	if c.MinLongRunLaps == nil {
		return 6
	}
	return *c.MinLongRunLaps
}

// GetRoster returns the configured roster or the default one.
func (c *PaceConfig) GetRoster() Roster {
	if c.Roster == nil || len(c.Roster.Pairings) == 0 {
		return DefaultRoster()
	}
	return *c.Roster
}

// FuelModel builds the fuel model from the configuration.
func (c *PaceConfig) FuelModel() fuel.Model {
	return fuel.Model{
		StartKg:      c.GetStartFuelKg(),
		BurnKgPerLap: c.GetFuelBurnKgPerLap(),
		EffectPerKg:  c.GetFuelEffectPerKg(),
		FloorKg:      c.GetFuelFloorKg(),
	}
}

// EvolutionOptions builds the track evolution options.
func (c *PaceConfig) EvolutionOptions() evolution.Options {
	return evolution.Options{
		Window:              c.GetEvolutionWindow(),
		RepresentativeRatio: c.GetEvolutionRepresentativePercent() / 100,
		MinLapsPerWindow:    c.GetMinLapsPerWindow(),
		MinWindows:          c.GetMinWindows(),
		MaxRate:             c.GetMaxEvolutionRate(),
	}
}

// DegradationOptions builds the degradation estimator options.
func (c *PaceConfig) DegradationOptions() degradation.Options {
	return degradation.Options{
		MinLaps:      c.GetMinLapsForDegradation(),
		MinSlope:     c.GetMinDegradationSlope(),
		MaxSlope:     c.GetMaxDegradationSlope(),
		Priors:       c.GetPriorDegradation(),
		GapThreshold: c.GetStintGap(),
	}
}

// CorrectionOptions builds the composer options with every correction
// enabled.
func (c *PaceConfig) CorrectionOptions() correction.Options {
	return correction.Options{
		GapThreshold: c.GetStintGap(),
		Fuel:         c.FuelModel(),
		Degradation:  c.DegradationOptions(),
	}
}
