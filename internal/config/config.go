// Package config loads the daemon's main configuration file and its
// per-GPIO directory into an immutable Config record, per spec §6.
//
// The file format is a bespoke `key = value` syntax (leading `#` comments,
// blank lines ignored, some keys repeatable). It is parsed by a small
// hand-rolled scanner rather than a general-purpose ini/toml/yaml library:
// those libraries model repeated keys as a single overwritten scalar or a
// typed list keyed by schema, not an ordered append-only multi-map driven
// purely by key name -- which is exactly what the action_* keys need.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mygpiod/mygpiod/internal/errkind"
	"github.com/mygpiod/mygpiod/internal/gpio"
	"github.com/mygpiod/mygpiod/internal/logging"
)

// Config is the immutable, fully-parsed configuration for one daemon run.
type Config struct {
	Chip       string
	LogLevel   logging.Level
	Syslog     bool
	GPIODir    string
	Socket     string
	IdleTimout int // seconds, validated to [10,120]

	Inputs  []*gpio.InputLine
	Outputs []*gpio.OutputLine
}

// rawPairs is an ordered multi-map: each key maps to every value it was
// assigned, in file order. Plain (non-repeatable) keys use the last value.
type rawPairs struct {
	order []string
	vals  map[string][]string
}

func newRawPairs() *rawPairs {
	return &rawPairs{vals: make(map[string][]string)}
}

func (r *rawPairs) add(key, val string) {
	if _, ok := r.vals[key]; !ok {
		r.order = append(r.order, key)
	}
	r.vals[key] = append(r.vals[key], val)
}

func (r *rawPairs) last(key string) (string, bool) {
	vs := r.vals[key]
	if len(vs) == 0 {
		return "", false
	}
	return vs[len(vs)-1], true
}

func (r *rawPairs) all(key string) []string {
	return r.vals[key]
}

// parseKV scans a `key = value` file: '#' comments, blank lines ignored.
func parseKV(r io.Reader) (*rawPairs, error) {
	out := newRawPairs()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		i := strings.Index(text, "=")
		if i < 0 {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration,
				fmt.Sprintf("line %d: missing '=': %q", line, text))
		}
		key := strings.TrimSpace(text[:i])
		val := strings.TrimSpace(text[i+1:])
		if key == "" {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration,
				fmt.Sprintf("line %d: empty key", line))
		}
		out.add(key, val)
	}
	if err := sc.Err(); err != nil {
		return nil, errkind.Wrapf(errkind.ErrInvalidConfiguration, "scan config", err)
	}
	return out, nil
}

// Load reads the main config file at path, then the per-GPIO directory it
// names, and produces a fully validated Config.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errkind.Wrapf(errkind.ErrInvalidConfiguration, "open main config", err)
	}
	defer f.Close()

	kv, err := parseKV(f)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Chip:       "/dev/gpiochip0",
		LogLevel:   logging.LevelNotice,
		Syslog:     false,
		GPIODir:    "/etc/mygpiod/conf.d",
		Socket:     "/run/mygpiod/mygpiod.sock",
		IdleTimout: 60,
	}

	if v, ok := kv.last("chip"); ok {
		cfg.Chip = v
	}
	if v, ok := kv.last("loglevel"); ok {
		lvl, err := logging.ParseLevel(v)
		if err != nil {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration, "loglevel: "+err.Error())
		}
		cfg.LogLevel = lvl
	}
	if v, ok := kv.last("syslog"); ok {
		b, err := parseBool(v)
		if err != nil {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration, "syslog: "+err.Error())
		}
		cfg.Syslog = b
	}
	if v, ok := kv.last("gpio_dir"); ok {
		cfg.GPIODir = v
	}
	if v, ok := kv.last("socket"); ok {
		if len(v) >= 108 {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration, "socket path too long")
		}
		cfg.Socket = v
	}
	if v, ok := kv.last("timeout"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 10 || n > 120 {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration,
				fmt.Sprintf("timeout %q out of range [10,120]", v))
		}
		cfg.IdleTimout = n
	}

	inputs, outputs, err := loadGPIODir(cfg.GPIODir)
	if err != nil {
		return nil, err
	}
	cfg.Inputs = inputs
	cfg.Outputs = outputs

	return cfg, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", s)
	}
}

// loadGPIODir walks dir for `<number>.in` and `<number>.out` files, parsing
// each into an InputLine or OutputLine. Entries are returned in numeric
// line-number order, which is the order §4.H's gpiolist must preserve.
func loadGPIODir(dir string) ([]*gpio.InputLine, []*gpio.OutputLine, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, errkind.Wrapf(errkind.ErrInvalidConfiguration, "read gpio_dir", err)
	}

	type found struct {
		num int
		out bool
		path string
	}
	var all []found
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		var isOut bool
		var numPart string
		switch {
		case strings.HasSuffix(name, ".in"):
			numPart = strings.TrimSuffix(name, ".in")
		case strings.HasSuffix(name, ".out"):
			numPart = strings.TrimSuffix(name, ".out")
			isOut = true
		default:
			continue
		}
		n, err := strconv.Atoi(numPart)
		if err != nil {
			continue
		}
		all = append(all, found{num: n, out: isOut, path: filepath.Join(dir, name)})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].num < all[j].num })

	var inputs []*gpio.InputLine
	var outputs []*gpio.OutputLine
	for _, f := range all {
		file, err := os.Open(f.path)
		if err != nil {
			return nil, nil, errkind.Wrapf(errkind.ErrInvalidConfiguration, "open "+f.path, err)
		}
		kv, err := parseKV(file)
		file.Close()
		if err != nil {
			return nil, nil, err
		}
		if f.out {
			o, err := parseOutput(f.num, kv)
			if err != nil {
				return nil, nil, err
			}
			outputs = append(outputs, o)
		} else {
			in, err := parseInput(f.num, kv)
			if err != nil {
				return nil, nil, err
			}
			inputs = append(inputs, in)
		}
	}
	return inputs, outputs, nil
}
