package prep

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

var ErrInvalidConfig = errors.New("invalid config")

// Run settings. Values can come from a TOML file; command line flags set
// explicitly take precedence.
type Config struct {
	DupCost         int    `toml:"dup_cost"`
	LossCost        int    `toml:"loss_cost"`
	Limit           Limit  `toml:"limit"`
	PreserveDupSpec bool   `toml:"preserve_dup_spec"`
	Separator       string `toml:"separator"`
	NProcs          int    `toml:"nprocs"` // 0 uses every available processor
	Format          Format `toml:"format"`
}

func DefaultConfig() Config {
	return Config{
		DupCost:   1,
		LossCost:  1,
		Limit:     1,
		Separator: DefaultSeparator,
		Format:    Newick,
	}
}

// Reads a TOML config file on top of the defaults. Unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading config file: %w", err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("%w, %s: %s", ErrInvalidConfig, path, err.Error())
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("%w, unknown keys in %s: %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

func (cfg Config) Validate() error {
	switch {
	case cfg.DupCost < 0:
		return fmt.Errorf("%w, dup_cost %d is negative", ErrInvalidConfig, cfg.DupCost)
	case cfg.LossCost < 0:
		return fmt.Errorf("%w, loss_cost %d is negative", ErrInvalidConfig, cfg.LossCost)
	case cfg.Limit < 1:
		return fmt.Errorf("%w, limit %d is %w", ErrInvalidConfig, cfg.Limit, ErrTypeOutRange)
	case cfg.NProcs < 0:
		return fmt.Errorf("%w, nprocs %d is %w", ErrInvalidConfig, cfg.NProcs, ErrTypeOutRange)
	}
	return nil
}

// Max number of co-optimal super gene trees to report (at least 1)
type Limit int

func (l *Limit) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("limit %q is not an integer", s)
	}
	if n < 1 {
		return fmt.Errorf("limit %d is %w", n, ErrTypeOutRange)
	}
	*l = Limit(n)
	return nil
}

func (l Limit) String() string {
	return strconv.Itoa(int(l))
}

func (f *Format) UnmarshalText(text []byte) error {
	return f.Set(string(text))
}
