package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alokkulkarni/connect-relay/internal/model/tool"
)

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOCALE", "en_GB")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	return out.String(), err
}

func TestToolCommandReadsEventFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tool":"get_account_balance","arguments":{}}`), 0o600))

	out, err := runRoot(t, "", "tool", "--event", path)
	require.NoError(t, err)

	var resp tool.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, tool.StatusSuccess, resp.Status)
	assert.Equal(t, "GBP", resp.Currency)
}

func TestToolCommandReadsStdin(t *testing.T) {
	out, err := runRoot(t, `{"tool":"unknown_tool"}`, "tool")
	require.NoError(t, err)

	var resp tool.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, tool.StatusError, resp.Status)
}

func TestToolCommandRejectsMalformedEvent(t *testing.T) {
	_, err := runRoot(t, `{"tool":`, "tool")
	assert.ErrorContains(t, err, "decode event")
}
