package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settings struct {
	Output  string        `yaml:"output"`
	Threads int           `yaml:"threads"`
	Limit   time.Duration `yaml:"limit"`
}

func TestLoadYAML(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "datagen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: data.bin\nlimit: 90m\n"), 0644))

	var s = settings{Threads: 6}
	require.NoError(t, LoadYAML(path, &s))
	assert.Equal(t, settings{Output: "data.bin", Threads: 6, Limit: 90 * time.Minute}, s)
}

func TestLoadYAMLUnknownKey(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("treads: 4\n"), 0644))
	var s settings
	assert.Error(t, LoadYAML(path, &s))
}

func TestLoadYAMLEmpty(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	var s = settings{Threads: 2}
	require.NoError(t, LoadYAML(path, &s))
	assert.Equal(t, 2, s.Threads)
}

func TestFlagValue(t *testing.T) {
	assert.Equal(t, "a.yaml", FlagValue([]string{"-threads", "4", "-config", "a.yaml"}, "config"))
	assert.Equal(t, "b.yaml", FlagValue([]string{"--config=b.yaml"}, "config"))
	assert.Equal(t, "", FlagValue([]string{"config", "c.yaml"}, "config"))
	assert.Equal(t, "", FlagValue([]string{"--", "-config", "d.yaml"}, "config"))
}
