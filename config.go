// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfkit

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/foliumkit/pdfkit/logger"
)

// ParsingMode selects how a Reader responds to a malformed xref offset.
type ParsingMode string

const (
	// Strict aborts Open on a malformed xref entry or trailer, per §7.
	// Recorded object offsets are not checked at Open. It is the default
	// and is what every invariant and scenario in the spec is tested against.
	Strict ParsingMode = "strict"

	// BestEffort additionally attempts a small, then growing, window scan
	// to repair an entry of a hybrid file's /XRefStm cross-reference stream
	// whose recorded offset does not point at "id gen obj" (see
	// Reader.scanForObjectAt). Entries of the classic xref table itself are
	// not checked. It never changes Strict's behavior.
	BestEffort ParsingMode = "best-effort"
)

// Config controls Reader and Batch behavior. Construct one with
// NewDefaultConfig and validate it with Validate before use.
type Config struct {
	// MaxConcurrentDocuments bounds how many files Batch.Open opens at once.
	MaxConcurrentDocuments int `validate:"min=1,max=32"`

	// ParsingMode selects Strict (default) or BestEffort xref repair.
	ParsingMode ParsingMode `validate:"oneof=strict best-effort"`

	// MaxRetries bounds the repair window's doubling in BestEffort mode.
	MaxRetries int `validate:"min=0,max=3"`

	// WorkerTimeout is the per-document deadline Batch.Open applies.
	WorkerTimeout time.Duration `validate:"required"`

	// DebugOn mirrors the package-level DebugOn toggle for verbose
	// scan/repair diagnostics.
	DebugOn bool

	// Logger, if non-nil, is installed globally via logger.SetLogger.
	Logger logger.LogFunc
}

// NewDefaultConfig returns a Config with Strict parsing and conservative
// concurrency bounds.
func NewDefaultConfig() *Config {
	return &Config{
		MaxConcurrentDocuments: 4,
		ParsingMode:            Strict,
		MaxRetries:             3,
		WorkerTimeout:          10 * time.Second,
		DebugOn:                false,
	}
}

// Validate checks cfg against its struct tags, returning a
// validator.ValidationErrors on failure.
func (cfg *Config) Validate() error {
	logger.Debug("validating config", true)
	if cfg.Logger != nil {
		logger.SetLogger(cfg.Logger)
	}
	DebugOn = cfg.DebugOn
	return validator.New().Struct(cfg)
}
