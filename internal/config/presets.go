package config

import "sort"

// Presets are known ways of launching LTspiceXVII. The netlist path is
// always appended after Args.
var Presets = map[string]SimulatorConfig{
	"windows": {
		Executable: DefaultExecutable,
		Args:       []string{"-Run"},
	},
	"batch": {
		Executable: DefaultExecutable,
		Args:       []string{"-b"},
	},
	"wine": {
		Executable: "wine",
		Args:       []string{`C:\Program Files\LTC\LTspiceXVII\XVIIx64.exe`, "-b"},
	},
	"macos": {
		Executable: "/Applications/LTspice.app/Contents/MacOS/LTspice",
		Args:       []string{"-b"},
	},
}

func GetPreset(name string) *SimulatorConfig {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	p.Args = append([]string(nil), p.Args...)
	return &p
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset replaces the executable and arguments, keeping scheduling
// settings. It reports false for an unknown preset.
func (c *Config) ApplyPreset(name string) bool {
	p := GetPreset(name)
	if p == nil {
		return false
	}
	c.Simulator.Executable = p.Executable
	c.Simulator.Args = p.Args
	return true
}
