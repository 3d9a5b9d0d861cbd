package container

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/internal/options"
	"github.com/arloliu/dwgkit/internal/pagecache"
)

// Config holds the settings shared by Read, Open and Write.
type Config struct {
	logger          *slog.Logger
	notifier        diag.Notifier
	keepUnknown     bool
	strictChecksums bool
	cache           *pagecache.Cache
	codePage        uint16
	version         format.Version
	maintenance     uint8
	maintenanceSet  bool
}

// Option configures a Config.
type Option = options.Option[*Config]

func newConfig(opts []Option) (*Config, error) {
	cfg := &Config{logger: slog.New(slog.DiscardHandler)}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) collector() *diag.Collector {
	return diag.NewCollector(c.notifier, c.logger)
}

// WithLogger sends every diagnostic to logger at the level of its severity.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithNotifier calls fn for every diagnostic as soon as it is recorded.
func WithNotifier(fn diag.Notifier) Option {
	return options.NoError(func(c *Config) {
		c.notifier = fn
	})
}

// WithKeepUnknown keeps records of unsupported types in the document. They are written back
// unchanged when the output version equals the input version.
func WithKeepUnknown(keep bool) Option {
	return options.NoError(func(c *Config) {
		c.keepUnknown = keep
	})
}

// WithStrictChecksums turns checksum mismatches on the file header and mandatory sections
// into errors. By default they are reported as integrity diagnostics.
func WithStrictChecksums(strict bool) Option {
	return options.NoError(func(c *Config) {
		c.strictChecksums = strict
	})
}

// WithPageCache keeps up to size decompressed pages in an adaptive replacement cache.
// Zero selects pagecache.DefaultSize.
func WithPageCache(size int) Option {
	return options.New(func(c *Config) error {
		if size < 0 {
			return fmt.Errorf("%w: page cache size %d", errs.ErrInvalidOption, size)
		}
		cache, err := pagecache.New(size)
		if err != nil {
			return err
		}
		c.cache = cache

		return nil
	})
}

// WithCodePage overrides the code page used for text. On read it replaces the value stored in
// the file header; on write it replaces Document.CodePage.
func WithCodePage(codePage uint16) Option {
	return options.NoError(func(c *Config) {
		c.codePage = codePage
	})
}

// WithVersion writes the document as version instead of Document.Version.
func WithVersion(version format.Version) Option {
	return options.New(func(c *Config) error {
		if !version.Writable() {
			return fmt.Errorf("%w: %w: %s", errs.ErrInvalidOption, errs.ErrVersionNotWritable, version)
		}
		c.version = version

		return nil
	})
}

// WithMaintenanceVersion sets the maintenance release byte of the written file header.
func WithMaintenanceVersion(maintenance uint8) Option {
	return options.NoError(func(c *Config) {
		c.maintenance = maintenance
		c.maintenanceSet = true
	})
}
