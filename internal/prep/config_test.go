package prep

import (
	"errors"
	"flag"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfig(t *testing.T) {
	testCases := []struct {
		name        string
		file        string
		expected    Config
		expectedErr error
	}{
		{
			name: "full",
			file: "testdata/config.toml",
			expected: Config{
				DupCost:         2,
				LossCost:        3,
				Limit:           4,
				PreserveDupSpec: true,
				Separator:       "_",
				NProcs:          2,
				Format:          Nexus,
			},
		},
		{
			name:        "unknown key",
			file:        "testdata/unknown-key.toml",
			expectedErr: ErrInvalidConfig,
		},
		{
			name:        "limit out of range",
			file:        "testdata/bad-limit.toml",
			expectedErr: ErrTypeOutRange,
		},
		{
			name:        "bad format",
			file:        "testdata/bad-format.toml",
			expectedErr: ErrInvalidConfig,
		},
		{
			name: "missing keys keep defaults",
			file: "testdata/partial.toml",
			expected: Config{
				DupCost:   1,
				LossCost:  1,
				Limit:     2,
				Separator: DefaultSeparator,
				NProcs:    0,
				Format:    Newick,
			},
		},
		{
			name:     "empty file keeps defaults",
			file:     "testdata/empty.nwk",
			expected: DefaultConfig(),
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := LoadConfig(test.file)
			if !errors.Is(err, test.expectedErr) {
				t.Fatalf("unexpected error %v (expected %v)", err, test.expectedErr)
			}
			if err != nil {
				t.Logf("%s", err)
				return
			}
			if diff := cmp.Diff(test.expected, cfg); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLimitFlag(t *testing.T) {
	testCases := []struct {
		args        []string
		expected    Limit
		expectError bool
	}{
		{args: []string{}, expected: 1},
		{args: []string{"-l", "7"}, expected: 7},
		{args: []string{"-l", "0"}, expectError: true},
		{args: []string{"-l", "many"}, expectError: true},
	}
	for _, test := range testCases {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		limit := DefaultConfig().Limit
		fs.Var(&limit, "l", "limit")
		err := fs.Parse(test.args)
		if (err != nil) != test.expectError {
			t.Errorf("%v: unexpected error %v", test.args, err)
			continue
		}
		if err == nil && limit != test.expected {
			t.Errorf("%v: limit %d != expected %d", test.args, limit, test.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	cfg.DupCost = -1
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("negative dup cost accepted (%v)", err)
	}
	cfg = DefaultConfig()
	cfg.NProcs = -1
	if err := cfg.Validate(); !errors.Is(err, ErrTypeOutRange) {
		t.Errorf("negative processes accepted (%v)", err)
	}
}
