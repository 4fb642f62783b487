package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Output tree: {output}/{full}-{shade}/Temp{T}/{rows}x{cols}/*.cir

const tempDirPrefix = "Temp"

// DirName is the dataset directory name, normalised from the voltages.
func (d Dataset) DirName() string {
	return fmt.Sprintf("%d-%d", d.FullVoltage, d.ShadeVoltage)
}

func TempDirName(temp int) string {
	return tempDirPrefix + strconv.Itoa(temp)
}

// ParseTempDirName reads the temperature from a "Temp27" directory name.
func ParseTempDirName(name string) (int, bool) {
	if !strings.HasPrefix(name, tempDirPrefix) {
		return 0, false
	}
	t, err := strconv.Atoi(strings.TrimPrefix(name, tempDirPrefix))
	if err != nil {
		return 0, false
	}
	return t, true
}

func (c *Config) DatasetDir(d Dataset) string {
	return filepath.Join(c.OutputDir, d.DirName())
}

func (c *Config) ArrangementDir(d Dataset, temp int, arrangement string) string {
	return filepath.Join(c.DatasetDir(d), TempDirName(temp), arrangement)
}

// DataDir holds analysis CSV output.
func (c *Config) DataDir() string {
	return filepath.Join(c.OutputDir, "Data")
}
