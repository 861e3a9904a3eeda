package config

import (
	"flag"
	"os"
	"strings"
	"time"
)

// filterArgs returns only the allowed flags (and their values) from args, so
// each parsing stage can run its own FlagSet without tripping over flags it
// does not know about (including `go test` flags).
//
// Supported forms: "-f value" and "-f=value".
func filterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}
	return filtered
}

// jsonConfigFlag extracts the config file path given via -c or -config.
// Only these flags are inspected; everything else is ignored.
func jsonConfigFlag() string {
	var path string

	args := filterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(args)

	return path
}

// parseFlags overlays Config fields from command-line flags.
//
//	-a string   base URL of the BriefPulse API
//	-d string   SQLite DSN for the local store
//	-i int      online check interval in seconds
func parseFlags(cfg *Config) error {
	args := filterArgs(os.Args[1:], []string{"-a", "-d", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the BriefPulse API")
	fs.StringVar(&cfg.StoreDSN, "d", cfg.StoreDSN, "SQLite DSN for the local store")
	interval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.OnlineCheckInterval = time.Duration(*interval) * time.Second
	return nil
}
