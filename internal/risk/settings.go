// Package risk holds the process-wide risk settings: a global section
// with defaults plus per-symbol partial overrides. The store is the
// single owner of this state; concurrent get/save/delete calls are
// serialized behind one mutex.
package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"cryptoTradeDesk/internal/ports"
)

// Defaults applied to any unset global field.
const (
	DefaultMaxRiskPerTrade = 2.0
	DefaultMaxPositions    = 5
	DefaultDailyLossLimit  = 5.0
	DefaultAutoStopLoss    = true
)

// GlobalSettings is the always-present global risk section.
type GlobalSettings struct {
	MaxRiskPerTrade float64 `json:"maxRiskPerTrade"`
	MaxPositions    int     `json:"maxPositions"`
	DailyLossLimit  float64 `json:"dailyLossLimit"`
	AutoStopLoss    bool    `json:"autoStopLoss"`
}

// SymbolOverride is a partial override of the global fields for one
// symbol. Nil fields inherit the global value.
type SymbolOverride struct {
	MaxRiskPerTrade *float64 `json:"maxRiskPerTrade,omitempty"`
	MaxPositions    *int     `json:"maxPositions,omitempty"`
	DailyLossLimit  *float64 `json:"dailyLossLimit,omitempty"`
	AutoStopLoss    *bool    `json:"autoStopLoss,omitempty"`
}

// Settings is the full view returned by Get.
type Settings struct {
	Global  GlobalSettings            `json:"global"`
	Symbols map[string]SymbolOverride `json:"symbols"`
}

// DefaultGlobal returns the global section with every field at its
// default.
func DefaultGlobal() GlobalSettings {
	return GlobalSettings{
		MaxRiskPerTrade: DefaultMaxRiskPerTrade,
		MaxPositions:    DefaultMaxPositions,
		DailyLossLimit:  DefaultDailyLossLimit,
		AutoStopLoss:    DefaultAutoStopLoss,
	}
}

// Store owns the risk settings state. Durability is the caller's
// responsibility; the store only guarantees consistent in-process reads
// and single-writer updates.
type Store struct {
	mu      sync.Mutex
	global  GlobalSettings
	symbols map[string]SymbolOverride
	logger  ports.Logger
}

// NewStore creates a store seeded with the given global section. Zero
// numeric fields in the seed fall back to defaults so the global section
// is always fully populated.
func NewStore(seed GlobalSettings, logger ports.Logger) (*Store, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for risk settings store")
	}
	if seed.MaxRiskPerTrade <= 0 {
		seed.MaxRiskPerTrade = DefaultMaxRiskPerTrade
	}
	if seed.MaxPositions <= 0 {
		seed.MaxPositions = DefaultMaxPositions
	}
	if seed.DailyLossLimit <= 0 {
		seed.DailyLossLimit = DefaultDailyLossLimit
	}
	return &Store{
		global:  seed,
		symbols: make(map[string]SymbolOverride),
		logger:  logger,
	}, nil
}

// Get returns the global settings plus a copy of the per-symbol override
// map. Callers never see internal references.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	symbols := make(map[string]SymbolOverride, len(s.symbols))
	for k, v := range s.symbols {
		symbols[k] = v
	}
	return Settings{Global: s.global, Symbols: symbols}
}

// EffectiveFor returns the global section with any override for symbol
// applied on top.
func (s *Store) EffectiveFor(symbol string) GlobalSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	effective := s.global
	ov, ok := s.symbols[symbol]
	if !ok {
		return effective
	}
	if ov.MaxRiskPerTrade != nil {
		effective.MaxRiskPerTrade = *ov.MaxRiskPerTrade
	}
	if ov.MaxPositions != nil {
		effective.MaxPositions = *ov.MaxPositions
	}
	if ov.DailyLossLimit != nil {
		effective.DailyLossLimit = *ov.DailyLossLimit
	}
	if ov.AutoStopLoss != nil {
		effective.AutoStopLoss = *ov.AutoStopLoss
	}
	return effective
}

// Save replaces the risk settings. The global section is required;
// numeric fields arrive as arbitrary JSON values (numbers or strings)
// and are coerced with fallback to defaults on parse failure. The
// symbols map replaces the prior override map wholesale.
func (s *Store) Save(ctx context.Context, global map[string]interface{}, symbols map[string]SymbolOverride) error {
	if global == nil {
		return fmt.Errorf("%w: global risk settings are required", ports.ErrValidation)
	}

	next := GlobalSettings{
		MaxRiskPerTrade: coerceFloat(global["maxRiskPerTrade"], DefaultMaxRiskPerTrade),
		MaxPositions:    coerceInt(global["maxPositions"], DefaultMaxPositions),
		DailyLossLimit:  coerceFloat(global["dailyLossLimit"], DefaultDailyLossLimit),
		AutoStopLoss:    coerceBool(global["autoStopLoss"], DefaultAutoStopLoss),
	}

	replacement := make(map[string]SymbolOverride, len(symbols))
	for k, v := range symbols {
		replacement[k] = v
	}

	s.mu.Lock()
	s.global = next
	s.symbols = replacement
	s.mu.Unlock()

	s.logger.Info(ctx, "Risk settings saved", map[string]interface{}{
		"maxRiskPerTrade": next.MaxRiskPerTrade,
		"maxPositions":    next.MaxPositions,
		"dailyLossLimit":  next.DailyLossLimit,
		"autoStopLoss":    next.AutoStopLoss,
		"symbolOverrides": len(replacement),
	})
	return nil
}

// DeleteSymbol removes the override for symbol. Removing a symbol that
// was never set is an idempotent no-op; ErrNotFound is returned only
// when the override section itself is absent.
func (s *Store) DeleteSymbol(ctx context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.symbols == nil {
		return fmt.Errorf("%w: no symbol risk settings configured", ports.ErrNotFound)
	}
	if _, ok := s.symbols[symbol]; ok {
		delete(s.symbols, symbol)
		s.logger.Info(ctx, "Symbol risk override removed", map[string]interface{}{"symbol": symbol})
	}
	return nil
}

// --- Coercion helpers ---

func coerceFloat(v interface{}, defaultValue float64) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return defaultValue
		}
		return f
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return defaultValue
		}
		return f
	default:
		return defaultValue
	}
}

func coerceInt(v interface{}, defaultValue int) int {
	switch val := v.(type) {
	case int:
		return val
	case float64:
		return int(val)
	case json.Number:
		i, err := val.Int64()
		if err != nil {
			return defaultValue
		}
		return int(i)
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return defaultValue
		}
		return i
	default:
		return defaultValue
	}
}

func coerceBool(v interface{}, defaultValue bool) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return defaultValue
		}
		return b
	default:
		return defaultValue
	}
}
