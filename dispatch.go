package ies

import (
	"fmt"

	"github.com/equinor/ies-update/internal/ierr"
	"github.com/equinor/ies-update/inversion"
	"github.com/equinor/ies-update/trunc"
)

// Recognized configuration keys, matching the C dispatch table's string
// names one for one.
const (
	KeySubspaceDimension = "ENKF_SUBSPACE_DIMENSION"
	KeyTruncation        = "ENKF_TRUNCATION"
	KeyMaxStepLength     = "IES_MAX_STEPLENGTH"
	KeyMinStepLength     = "IES_MIN_STEPLENGTH"
	KeyDecayStepLength   = "IES_DEC_STEPLENGTH"
	KeyIter              = "ITER"
	KeyInversion         = "IES_INVERSION"
	KeyAAProjection      = "IES_AAPROJECTION"
	KeyLogFile           = "IES_LOGFILE"
	KeyDebug             = "IES_DEBUG"
)

// Options is a bit set describing which optional behaviours are active,
// mirroring the dispatch table's get_options() entry.
type Options uint32

// Recognized Options bits.
const (
	OptAAProjection Options = 1 << iota
	OptHasLogFile
)

// HasVar reports whether key is a recognized configuration key.
func (s *State) HasVar(key string) bool {
	switch key {
	case KeySubspaceDimension, KeyTruncation, KeyMaxStepLength, KeyMinStepLength,
		KeyDecayStepLength, KeyIter, KeyInversion, KeyAAProjection, KeyLogFile, KeyDebug:
		return true
	default:
		return false
	}
}

// GetOptions reports which optional behaviours are currently enabled.
func (s *State) GetOptions() Options {
	var o Options
	if s.Config.UseProjection {
		o |= OptAAProjection
	}
	if _, ok := s.Config.Logger.(*FileLogSink); ok {
		o |= OptHasLogFile
	}
	return o
}

// SetInt implements the dispatch table's set_int entry.
func (s *State) SetInt(key string, v int) error {
	switch key {
	case KeySubspaceDimension:
		s.Config.Truncation = trunc.Dimension(v)
		return nil
	case KeyInversion:
		mode, err := inversion.FromInt(v)
		if err != nil {
			return err
		}
		s.Config.Inversion = mode
		return nil
	case KeyIter:
		s.data.IterationNr = v
		return nil
	default:
		return unrecognizedKey("SetInt", key)
	}
}

// GetInt implements the dispatch table's get_int entry.
func (s *State) GetInt(key string) (int, error) {
	switch key {
	case KeySubspaceDimension:
		return s.Config.Truncation.AsDimension(), nil
	case KeyInversion:
		return int(s.Config.Inversion), nil
	case KeyIter:
		return s.data.IterationNr, nil
	default:
		return 0, unrecognizedKey("GetInt", key)
	}
}

// SetDouble implements the dispatch table's set_double entry.
func (s *State) SetDouble(key string, v float64) error {
	switch key {
	case KeyTruncation:
		s.Config.Truncation = trunc.Fraction(v)
		return nil
	case KeyMaxStepLength:
		s.Config.MaxStepLength = v
		return nil
	case KeyMinStepLength:
		s.Config.MinStepLength = v
		return nil
	case KeyDecayStepLength:
		s.Config.DecayStepLength = v
		return nil
	default:
		return unrecognizedKey("SetDouble", key)
	}
}

// GetDouble implements the dispatch table's get_double entry. Querying
// ENKF_TRUNCATION while a dimension is set (or vice versa, via GetInt)
// returns the -1 sentinel rather than a stale or zero value.
func (s *State) GetDouble(key string) (float64, error) {
	switch key {
	case KeyTruncation:
		return s.Config.Truncation.AsFraction(), nil
	case KeyMaxStepLength:
		return s.Config.MaxStepLength, nil
	case KeyMinStepLength:
		return s.Config.MinStepLength, nil
	case KeyDecayStepLength:
		return s.Config.DecayStepLength, nil
	default:
		return 0, unrecognizedKey("GetDouble", key)
	}
}

// SetBool implements the dispatch table's set_bool entry.
func (s *State) SetBool(key string, v bool) error {
	switch key {
	case KeyAAProjection:
		s.Config.UseProjection = v
		return nil
	case KeyDebug:
		s.Config.Debug = v
		if v && s.Config.Logger != nil {
			_ = s.Config.Logger.LogUpdate(LogRecord{ID: s.ID, Message: "IES_DEBUG is accepted but has no effect"})
		}
		return nil
	default:
		return unrecognizedKey("SetBool", key)
	}
}

// GetBool implements the dispatch table's get_bool entry.
func (s *State) GetBool(key string) (bool, error) {
	switch key {
	case KeyAAProjection:
		return s.Config.UseProjection, nil
	case KeyDebug:
		return s.Config.Debug, nil
	default:
		return false, unrecognizedKey("GetBool", key)
	}
}

// SetString implements the dispatch table's set_string entry.
func (s *State) SetString(key, v string) error {
	switch key {
	case KeyLogFile:
		sink, err := NewFileLogSink(v)
		if err != nil {
			return &ierr.ConfigError{Op: "SetString", Msg: err.Error()}
		}
		s.Config.Logger = sink
		return nil
	default:
		return unrecognizedKey("SetString", key)
	}
}

// GetPtr implements the dispatch table's get_ptr entry: the only
// pointer-typed value this module exposes is the configured log sink.
func (s *State) GetPtr(key string) (any, error) {
	switch key {
	case KeyLogFile:
		return s.Config.Logger, nil
	default:
		return nil, unrecognizedKey("GetPtr", key)
	}
}

func unrecognizedKey(op, key string) error {
	return &ierr.ConfigError{Op: op, Msg: fmt.Sprintf("unrecognized or wrong-typed key %q", key)}
}
