package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// settings configures one traffic run.
type settings struct {
	Seed         int64
	Count        int
	DataWidth    int
	RAMSize      uint64
	Backpressure bool
	Record       string
	Trace        string
	Monitor      bool
	MonitorPort  int
	Browser      bool
	Verbose      bool
}

func defaultSettings() settings {
	return settings{
		Seed:      1,
		Count:     100,
		DataWidth: 32,
		RAMSize:   64 * 1024,
	}
}

func (s settings) validate() error {
	if s.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", s.Count)
	}

	if s.DataWidth < 8 || s.DataWidth > 64 || s.DataWidth%8 != 0 {
		return fmt.Errorf(
			"data width must be a multiple of 8 between 8 and 64, got %d",
			s.DataWidth)
	}

	if s.RAMSize < uint64(s.DataWidth/8) {
		return fmt.Errorf("RAM of %d bytes cannot hold one beat", s.RAMSize)
	}

	return nil
}

// loadEnvFile reads .env files into the environment. A missing file is not
// an error. Variables that are already set win.
func loadEnvFile(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// settingsFromCommand merges the flags of cmd with the OBI_* environment
// variables. A flag given on the command line overrides the variable.
func settingsFromCommand(cmd *cobra.Command) (settings, error) {
	s := defaultSettings()
	flags := cmd.Flags()

	var errs []error
	pick := func(flag, env string, apply func(string) error) {
		value, fromEnv := os.LookupEnv(env)
		if flags.Changed(flag) || !fromEnv {
			value = flags.Lookup(flag).Value.String()
		}

		if err := apply(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", flag, err))
		}
	}

	pick("seed", "OBI_SEED", func(v string) (err error) {
		s.Seed, err = strconv.ParseInt(v, 0, 64)
		return err
	})
	pick("count", "OBI_COUNT", func(v string) (err error) {
		s.Count, err = strconv.Atoi(v)
		return err
	})
	pick("data-width", "OBI_DATA_WIDTH", func(v string) (err error) {
		s.DataWidth, err = strconv.Atoi(v)
		return err
	})
	pick("ram-size", "OBI_RAM_SIZE", func(v string) (err error) {
		s.RAMSize, err = strconv.ParseUint(v, 0, 64)
		return err
	})
	pick("backpressure", "OBI_BACKPRESSURE", func(v string) (err error) {
		s.Backpressure, err = strconv.ParseBool(v)
		return err
	})
	pick("record", "OBI_RECORD", func(v string) error {
		s.Record = v
		return nil
	})
	pick("trace", "OBI_TRACE", func(v string) error {
		s.Trace = v
		return nil
	})
	pick("monitor", "OBI_MONITOR", func(v string) (err error) {
		s.Monitor, err = strconv.ParseBool(v)
		return err
	})
	pick("monitor-port", "OBI_MONITOR_PORT", func(v string) (err error) {
		s.MonitorPort, err = strconv.Atoi(v)
		return err
	})
	pick("browser", "OBI_BROWSER", func(v string) (err error) {
		s.Browser, err = strconv.ParseBool(v)
		return err
	})
	pick("verbose", "OBI_VERBOSE", func(v string) (err error) {
		s.Verbose, err = strconv.ParseBool(v)
		return err
	})

	if err := errors.Join(errs...); err != nil {
		return s, err
	}

	return s, s.validate()
}
