package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// iniLexer covers the data_sets.ini dialect: [sections], key = value
// lines and ;/# comments. A value runs to the end of its line.
var iniLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `[#;][^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Header", Pattern: `\[[^\]\n]*\]`},
	{Name: "Key", Pattern: `[A-Za-z_][A-Za-z0-9_.\-]*`},
	{Name: "Value", Pattern: `[=:][^\n]*`},
})

type iniFile struct {
	Globals  []*iniEntry   `parser:"@@*"`
	Sections []*iniSection `parser:"@@*"`
}

type iniSection struct {
	Header  string      `parser:"@Header"`
	Entries []*iniEntry `parser:"@@*"`
}

type iniEntry struct {
	Key   string `parser:"@Key"`
	Value string `parser:"@Value"`
}

var iniParser = participle.MustBuild[iniFile](
	participle.Lexer(iniLexer),
	participle.Elide("Comment", "Whitespace"),
)

const (
	iniDefaultSection  = "DEFAULT"
	iniSettingsSection = "settings"
)

func (s *iniSection) name() string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s.Header, "["), "]"))
}

func (e *iniEntry) key() string {
	return strings.ToLower(e.Key)
}

func (e *iniEntry) value() string {
	return strings.TrimSpace(e.Value[1:])
}

// applyINI merges an INI document into cfg. Every section other than
// DEFAULT and settings is a dataset.
func applyINI(cfg *Config, filename, src string) error {
	doc, err := iniParser.ParseString(filename, src)
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", filename, err)
	}

	defaults := map[string]string{}
	for _, e := range doc.Globals {
		defaults[e.key()] = e.value()
	}

	for _, sec := range doc.Sections {
		switch name := sec.name(); {
		case name == iniDefaultSection:
			for _, e := range sec.Entries {
				defaults[e.key()] = e.value()
			}
		case strings.EqualFold(name, iniSettingsSection):
			for _, e := range sec.Entries {
				if err := applySetting(cfg, e.key(), e.value()); err != nil {
					return fmt.Errorf("config: %s: %w", filename, err)
				}
			}
		default:
			ds := Dataset{Name: name}
			expr, ok := defaults["temps"]
			for _, e := range sec.Entries {
				if e.key() == "temps" {
					expr, ok = e.value(), true
				}
			}
			if ok {
				temps, err := ParseTemps(expr)
				if err != nil {
					return fmt.Errorf("config: %s: [%s]: %w", filename, name, err)
				}
				ds.Temps = temps
			}
			cfg.Datasets = append(cfg.Datasets, ds)
		}
	}
	return nil
}

func applySetting(cfg *Config, key, value string) error {
	switch key {
	case "output":
		cfg.OutputDir = value
	case "library":
		cfg.Library = value
	case "log_file":
		cfg.LogFile = value
	case "executable":
		cfg.Simulator.Executable = value
	case "args":
		cfg.Simulator.Args = strings.Fields(value)
	case "concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("concurrency: %w", err)
		}
		cfg.Simulator.Concurrency = n
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Simulator.Timeout = d
	case "launch_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("launch_interval: %w", err)
		}
		cfg.Simulator.LaunchInterval = d
	case "default_temps":
		temps, err := ParseTemps(value)
		if err != nil {
			return err
		}
		cfg.DefaultTemps = temps
	case "arrangements":
		cfg.Arrangements = splitList(value)
	case "max_cells":
		var cells []int
		for _, f := range splitList(value) {
			n, err := strconv.Atoi(f)
			if err != nil {
				return fmt.Errorf("max_cells: %w", err)
			}
			cells = append(cells, n)
		}
		cfg.MaxCells = cells
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
