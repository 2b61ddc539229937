package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCmd_SetGetUnset(t *testing.T) {
	env := setupTestServices(t, nil)

	out, err := execute(t, "config", "set", "drive.page_size", "200")
	require.NoError(t, err)
	assert.Equal(t, "drive.page_size = 200\n", out)
	assert.Equal(t, 200, env.config.GetInt("drive.page_size"))

	out, err = execute(t, "config", "get", "drive.page_size")
	require.NoError(t, err)
	assert.Equal(t, "200\n", out)

	out, err = execute(t, "config", "unset", "drive.page_size")
	require.NoError(t, err)
	assert.Equal(t, "Unset drive.page_size\n", out)

	_, err = execute(t, "config", "get", "drive.page_size")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not set")
}

func TestConfigCmd_SetParsesValues(t *testing.T) {
	env := setupTestServices(t, nil)

	_, err := execute(t, "config", "set", "drive.supports_all_drives", "true")
	require.NoError(t, err)
	_, err = execute(t, "config", "set", "ratelimit.drive_rps", "2.5")
	require.NoError(t, err)
	_, err = execute(t, "config", "set", "output", "json")
	require.NoError(t, err)

	assert.True(t, env.config.GetBool("drive.supports_all_drives"))
	assert.InDelta(t, 2.5, env.config.GetFloat("ratelimit.drive_rps"), 0.001)
	assert.Equal(t, "json", env.config.GetString("output"))
}

func TestConfigCmd_ListTSV(t *testing.T) {
	env := setupTestServices(t, nil)
	require.NoError(t, env.config.Set("sheets.write_batch_cells", int64(5000)))
	require.NoError(t, env.config.Set("drive.page_size", int64(100)))

	out, err := execute(t, "config", "list", "-o", "tsv")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, []string{
		"KEY\tVALUE",
		"drive.page_size\t100",
		"sheets.write_batch_cells\t5000",
	}, lines)
}

func TestConfigCmd_ListJSON(t *testing.T) {
	env := setupTestServices(t, nil)
	require.NoError(t, env.config.Set("output", "tsv"))

	out, err := execute(t, "config", "list", "-o", "json")

	require.NoError(t, err)
	assert.JSONEq(t, `{"output": "tsv"}`, out)
}

func TestConfigCmd_Path(t *testing.T) {
	setupTestServices(t, nil)

	out, err := execute(t, "config", "path")

	require.NoError(t, err)
	assert.Equal(t, ":memory:\n", out)
}
