package main

import (
	"io"
	"time"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	envFile string
	verbose bool
}

// serveFlags holds all flags for the serve command.
// Zero values mean "not set" and leave the config untouched.
type serveFlags struct {
	common      commonFlags
	addr        string
	baseURL     string
	storageDir  string
	workers     int
	timeout     time.Duration
	logLevel    string
	printConfig bool
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	common commonFlags
	json   bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.envFile, "env-file", "", "dotenv file to load (default: .env if present)")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string, stderr io.Writer) (*serveFlags, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &serveFlags{}

	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (e.g. :5000)")
	fs.StringVar(&f.baseURL, "base-url", "", "public origin used in file URLs")
	fs.StringVarP(&f.storageDir, "storage-dir", "o", "", "artifact directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "browser pool size (0 = auto)")
	fs.DurationVarP(&f.timeout, "timeout", "t", 0, "render timeout (e.g. 30s, 2m)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective config and exit")
	addCommonFlags(fs, &f.common)

	fs.Usage = func() { printServeUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, usageError("serve takes no arguments, got %q", fs.Args())
	}
	return f, nil
}

// parseDoctorFlags parses doctor command flags.
func parseDoctorFlags(args []string, stderr io.Writer) (*doctorFlags, error) {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &doctorFlags{}

	fs.BoolVar(&f.json, "json", false, "output results as JSON")
	addCommonFlags(fs, &f.common)

	fs.Usage = func() { printDoctorUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}
