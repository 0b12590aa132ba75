package remote

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolcall/toolerr"
)

// stdioServerEnv makes the test binary serve newTestServer over stdio
// instead of running tests.
const stdioServerEnv = "TOOLCALL_STDIO_SERVER"

func TestMain(m *testing.M) {
	if os.Getenv(stdioServerEnv) == "1" {
		if err := newTestServer().Run(context.Background(), &mcp.StdioTransport{}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func stdioFixture(t *testing.T) StdioDescriptor {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	return StdioDescriptor{
		Name:    "fixture",
		Command: exe,
		Args:    []string{"-test.run=^$"},
		Env:     map[string]string{stdioServerEnv: "1"},
	}
}

func TestDefaultTransports_Stdio(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a child process")
	}
	c := New(WithHostCapabilities(Capabilities{Subprocess: true}), WithCallTimeout(30*time.Second))
	d := stdioFixture(t)

	tools, err := c.ListTools(context.Background(), d)
	require.NoError(t, err)
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "echo")

	res, err := c.CallTool(context.Background(), d, "echo", map[string]any{"text": "over stdio"})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	assert.Equal(t, "over stdio", res.Content[0].Text)
}

func TestDefaultTransports_StdioCancel(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a child process")
	}
	c := New(WithHostCapabilities(Capabilities{Subprocess: true}), WithCallTimeout(30*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	go func() {
		time.Sleep(500 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.CallTool(ctx, stdioFixture(t), "slow", nil)
	requireKind(t, err, toolerr.KindCancelled)
	assert.Less(t, time.Since(start), 4*time.Second, "cancelled call must return before the tool finishes")
}
