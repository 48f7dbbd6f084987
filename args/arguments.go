package args

import (
	"errors"
	"fmt"
	"net"
	"portsniffer/types"
	"portsniffer/utils"
	"strconv"
	"strings"
	"time"
)

const defaultWorkers = 4

var (
	// ErrHelpRequested is not a failure, callers print usage and stop.
	ErrHelpRequested    = errors.New("help requested")
	ErrArgumentCount    = errors.New("invalid number of arguments")
	ErrThreadCountParse = errors.New("failed to parse thread number")
	ErrAddressParse     = errors.New("not a valid IPADDR; must be IPv4 or IPv6")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrInvalidEnv       = errors.New("invalid environment setting")
)

// Resolve turns the raw process arguments (program name first) into a scan
// configuration. Accepted forms are `<prog> <ip>` and `<prog> -j <n> <ip>`;
// -h or --help anywhere wins over everything else.
func Resolve(raw_args []string) (types.ScanConfig, error) {
	if utils.ContainsAny(raw_args, "-h", "--help") {
		return types.ScanConfig{}, ErrHelpRequested
	}

	if err := checkCount(raw_args); err != nil {
		return types.ScanConfig{}, err
	}

	if raw_args[1] == "-j" && len(raw_args) == 4 {
		workers, err := parseWorkers(raw_args[2])
		if err != nil {
			return types.ScanConfig{}, err
		}

		host, err := parseHost(raw_args[3])
		if err != nil {
			return types.ScanConfig{}, err
		}

		return types.ScanConfig{Host: host, Workers: workers, Mode: types.TCP}, nil
	}

	if host, err := parseHost(raw_args[1]); err == nil {
		return types.ScanConfig{Host: host, Workers: defaultWorkers, Mode: types.TCP}, nil
	}

	return types.ScanConfig{}, ErrInvalidArguments
}

func checkCount(raw_args []string) error {
	switch {
	case len(raw_args) < 2:
		return fmt.Errorf("%w: too few arguments", ErrArgumentCount)
	case len(raw_args) > 4:
		return fmt.Errorf("%w: too many arguments", ErrArgumentCount)
	}
	return nil
}

func parseWorkers(raw_workers string) (int, error) {
	n, err := strconv.ParseUint(raw_workers, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrThreadCountParse, raw_workers)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: thread number must be positive", ErrThreadCountParse)
	}
	return int(n), nil
}

func parseHost(raw_host string) (net.IP, error) {
	ip := net.ParseIP(raw_host)
	if ip == nil {
		return nil, fmt.Errorf("%w: %q", ErrAddressParse, raw_host)
	}
	return ip, nil
}

// ApplyEnv overlays the optional SNIFFER_* settings on cfg. getenv is
// usually os.Getenv.
func ApplyEnv(cfg types.ScanConfig, getenv func(string) string) (types.ScanConfig, error) {
	if raw_timeout := strings.TrimSpace(getenv("SNIFFER_TIMEOUT")); raw_timeout != "" {
		timeout, err := time.ParseDuration(raw_timeout)
		if err != nil || timeout < 0 {
			return cfg, fmt.Errorf("%w: SNIFFER_TIMEOUT=%q", ErrInvalidEnv, raw_timeout)
		}
		cfg.Timeout = timeout
	}

	mode, err := checkScanMode(getenv("SNIFFER_MODE"))
	if err != nil {
		return cfg, err
	}
	cfg.Mode = mode

	cfg.Iface = strings.TrimSpace(getenv("SNIFFER_IFACE"))

	return cfg, nil
}

func checkScanMode(raw_mode string) (types.ScanMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw_mode)) {
	case "", "tcp":
		return types.TCP, nil
	case "syn":
		return types.SYN, nil
	default:
		return types.TCP, fmt.Errorf("%w: SNIFFER_MODE=%q", ErrInvalidEnv, raw_mode)
	}
}
