// Package authority sets up a tallying session: it reads the configuration,
// creates or loads the threshold key, connects the trustees and runs
// protocols on all of them.
package authority

import (
	"bytes"
	"io/ioutil"
	"time"

	"github.com/BurntSushi/toml"
	"go.dedis.ch/onet/v3/cfgpath"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
	"go.dedis.ch/ordinos/primes"
)

// Duration is a time.Duration written as a string like "2m" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds the parameters of a session.
type Config struct {
	// KeyBits is the size of the Paillier modulus.
	KeyBits   int
	Shares    int
	Threshold int
	// DataDir holds the cache file with primes and protocol randomness.
	DataDir string
	// Timeout bounds every protocol run.
	Timeout Duration
	// PrimePool is the number of safe primes kept per size.
	PrimePool int
	Debug     int
}

// DefaultConfig returns a configuration for a quick local session.
func DefaultConfig() *Config {
	return &Config{
		KeyBits:   64,
		Shares:    2,
		Threshold: 2,
		DataDir:   cfgpath.GetDataPath("ordinos"),
		Timeout:   Duration{2 * time.Minute},
		PrimePool: primes.DefaultPoolSize,
	}
}

// LoadConfig reads a TOML file. Missing fields keep their default values.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, xerrors.Errorf("reading %s: %v", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return xerrors.Errorf("encoding config: %v", err)
	}
	return ioutil.WriteFile(path, buf.Bytes(), 0600)
}

// Validate checks the key parameters.
func (c *Config) Validate() error {
	if c.Threshold < 2 {
		return ordinos.Invalid("threshold %d is smaller than 2", c.Threshold)
	}
	if c.Shares < c.Threshold {
		return ordinos.Invalid("%d shares for threshold %d", c.Shares, c.Threshold)
	}
	if c.KeyBits < 32 || c.KeyBits%2 != 0 {
		return ordinos.Invalid("key size %d must be even and at least 32", c.KeyBits)
	}
	if c.DataDir == "" {
		return ordinos.Invalid("no data directory")
	}
	if c.Timeout.Duration < 0 {
		return ordinos.Invalid("negative timeout")
	}
	return nil
}
