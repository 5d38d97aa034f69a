// Package ies implements the iterative ensemble smoother update core: a
// persistent per-chain iteration state, four inter-convertible inversion
// modes, a step-length schedule, and the InitUpdate/UpdateA orchestration
// that moves an ensemble of parameters toward a set of observations across
// successive iterations.
package ies

import (
	"math"

	"github.com/equinor/ies-update/internal/ierr"
	"github.com/equinor/ies-update/inversion"
	"github.com/equinor/ies-update/trunc"
)

// ShapeError, MaskError, ConfigError, NumericalError and StateError are the
// five error kinds this module returns. They are defined in package ierr so
// that internal packages can construct them without importing this package;
// these are type aliases for the public names in spec.
type (
	ShapeError     = ierr.ShapeError
	MaskError      = ierr.MaskError
	ConfigError    = ierr.ConfigError
	NumericalError = ierr.NumericalError
	StateError     = ierr.StateError
)

// Config holds the tunables for one IES iteration chain: the inversion
// mode, the SVD truncation, the step-length schedule, the AA-projection
// flag, and an optional log sink.
type Config struct {
	Inversion       inversion.Mode
	Truncation      trunc.Value
	MaxStepLength   float64
	MinStepLength   float64
	DecayStepLength float64
	UseProjection   bool
	Debug           bool

	Logger LogSink
}

// NewConfig returns a Config with ERT's shipped defaults: exact inversion,
// 0.99 energy-fraction truncation, AA-projection enabled, and no logging.
func NewConfig() *Config {
	return &Config{
		Inversion:       inversion.Exact,
		Truncation:      trunc.Fraction(0.99),
		MaxStepLength:   0.6,
		MinStepLength:   0.3,
		DecayStepLength: 2.5,
		UseProjection:   true,
		Logger:          NopLogSink{},
	}
}

// Validate reports a ConfigError describing the first out-of-range field it finds.
func (c *Config) Validate() error {
	if c.MaxStepLength < c.MinStepLength {
		return &ierr.ConfigError{Op: "Config.Validate", Msg: "IES_MAX_STEPLENGTH must be >= IES_MIN_STEPLENGTH"}
	}
	if c.MinStepLength <= 0 {
		return &ierr.ConfigError{Op: "Config.Validate", Msg: "IES_MIN_STEPLENGTH must be > 0"}
	}
	if c.DecayStepLength <= 1 {
		return &ierr.ConfigError{Op: "Config.Validate", Msg: "IES_DEC_STEPLENGTH must be > 1"}
	}
	if err := c.Truncation.Validate(); err != nil {
		return &ierr.ConfigError{Op: "Config.Validate", Msg: err.Error()}
	}
	return nil
}

// StepLength returns the convex-combination weight gamma for iter, which
// starts at 1:
//
//	gamma = gamma_min + (gamma_max - gamma_min) * 2^(-(iter-1)/(decay-1))
func (c *Config) StepLength(iter int) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if iter < 1 {
		return 0, &ierr.ConfigError{Op: "Config.StepLength", Msg: "iter must be >= 1"}
	}
	g := c.MinStepLength + (c.MaxStepLength-c.MinStepLength)*math.Pow(2, -(float64(iter-1))/(c.DecayStepLength-1))
	return g, nil
}
