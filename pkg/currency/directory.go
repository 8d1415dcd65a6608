// Package currency holds the read-only directory of valid currency codes.
package currency

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
)

// CodeSource lists the currency codes the rate provider supports.
type CodeSource interface {
	SupportedCodes(ctx context.Context) ([]string, error)
}

// Directory is an immutable set of valid currency codes, built once at
// startup and shared by reference. Lookups are case-insensitive.
type Directory struct {
	codes map[string]struct{}
}

// LoadConfig controls the bounded retry around the startup fetch.
type LoadConfig struct {
	// Attempts is the total number of tries. Defaults to 4.
	Attempts uint
	// Delay is the base delay between tries, doubled each attempt.
	// Defaults to 2s.
	Delay time.Duration
}

// Load fetches the supported-code set from the provider, retrying with
// bounded backoff. The process cannot record expenses correctly without the
// directory, so a final failure is returned to the caller to abort startup.
func Load(ctx context.Context, src CodeSource, cfg LoadConfig, logger *slog.Logger) (*Directory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 4
	}
	if cfg.Delay == 0 {
		cfg.Delay = 2 * time.Second
	}

	var codes []string
	err := retry.Do(
		func() error {
			var err error
			codes, err = src.SupportedCodes(ctx)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(cfg.Attempts),
		retry.Delay(cfg.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("fetching supported currency codes failed, retrying",
				"attempt", n+1,
				"error", err,
			)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("loading currency directory: %w", err)
	}

	dir := NewDirectory(codes)
	logger.Info("currency directory loaded", "codes", dir.Len())
	return dir, nil
}

// NewDirectory builds a directory from a list of codes. Codes are uppercased.
func NewDirectory(codes []string) *Directory {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		set[code] = struct{}{}
	}
	return &Directory{codes: set}
}

// IsValid reports whether code is a supported currency, case-insensitively.
func (d *Directory) IsValid(code string) bool {
	_, ok := d.codes[strings.ToUpper(code)]
	return ok
}

// Len returns the number of codes in the directory.
func (d *Directory) Len() int {
	return len(d.codes)
}
