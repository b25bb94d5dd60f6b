package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/toolrelay/toolrelay/internal/cli"
	"github.com/toolrelay/toolrelay/internal/config"
)

// credentialEnv lists the variables that would bind a provider; tests clear
// them so the host environment cannot leak in.
var credentialEnv = []string{
	config.EnvSerpAPIKey, config.EnvGoogleSearchKey, config.EnvGoogleSearchCX,
	config.EnvDatabaseURL, config.EnvGCPProjectID,
	config.EnvHubSpotToken, config.EnvSalesforceToken, config.EnvSalesforceDomain,
	config.EnvClearbitKey, config.EnvPeopleDataLabsKey,
	config.EnvGoogleCalendarCreds, config.EnvOutlookAccessToken,
	config.EnvTwilioAccountSID, config.EnvTwilioAuthToken,
	config.EnvSendGridKey, config.EnvMailgunKey, config.EnvMailgunDomain,
	config.EnvStripeKey, config.EnvNotionKey, config.EnvGoogleDriveKey, config.EnvGoogleDriveCreds,
	config.EnvElasticsearchEnabled, config.EnvLinkedInAccessToken, config.EnvLinkedInAuthorURN,
	config.EnvTwitterBearerToken, config.EnvAnthropicAPIKey,
}

// useConfig isolates a test from the host environment and points it at a
// config file holding content.
func useConfig(t *testing.T, content string) {
	t.Helper()
	for _, k := range credentialEnv {
		t.Setenv(k, "")
	}
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	path := filepath.Join(t.TempDir(), "toolrelay.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvConfigFile, path)
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := cli.NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestToolsJSON(t *testing.T) {
	useConfig(t, `{}`)
	out, err := execute(t, "", "tools", "--json")
	if err != nil {
		t.Fatalf("tools: %v", err)
	}
	var descs []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(out), &descs); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(descs) != 10 || descs[0].Name != "web_search" {
		t.Errorf("descriptors = %+v", descs)
	}
}

func TestToolsTable(t *testing.T) {
	useConfig(t, `{"serpapi_key": "serp"}`)
	out, err := execute(t, "", "tools")
	if err != nil {
		t.Fatalf("tools: %v", err)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "web_search ") && !strings.Contains(line, "true") {
			t.Errorf("web_search should be configured: %q", line)
		}
		if strings.HasPrefix(line, "stripe_operation ") && !strings.Contains(line, "false") {
			t.Errorf("stripe_operation should not be configured: %q", line)
		}
	}
}

func TestCall(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		args     []string
		code     int
		contains string
	}{
		{
			name:     "not configured",
			config:   `{}`,
			args:     []string{"call", "web_search", `{"query":"acme corp"}`},
			code:     1,
			contains: `"error_kind": "not_configured"`,
		},
		{
			name:     "unknown tool",
			config:   `{}`,
			args:     []string{"call", "launch_rockets"},
			code:     1,
			contains: `"error_kind": "unknown_tool"`,
		},
		{
			name:   "bad arguments",
			config: `{}`,
			args:   []string{"call", "web_search", `[1]`},
			code:   2,
		},
		{
			name:     "sqlite query",
			config:   `{"database_url": "sqlite://:memory:"}`,
			args:     []string{"call", "database_query", `{"query":"SELECT 1 AS one"}`},
			contains: `"row_count": 1`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useConfig(t, tt.config)
			out, err := execute(t, "", tt.args...)

			var exitErr *cli.ExitError
			switch {
			case tt.code == 0 && err != nil:
				t.Fatalf("call: %v\n%s", err, out)
			case tt.code != 0 && (!errors.As(err, &exitErr) || exitErr.Code != tt.code):
				t.Fatalf("err = %v, want exit code %d", err, tt.code)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("output missing %q:\n%s", tt.contains, out)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	useConfig(t, `{"stripe_key": "sk_test"}`)
	out, err := execute(t, "", "check", "--probe=false")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 of 10 tools configured") {
		t.Errorf("output:\n%s", out)
	}
}

func TestCheckReportsBrokenProvider(t *testing.T) {
	useConfig(t, `{"database_url": "mysql://root@localhost/app"}`)
	out, err := execute(t, "", "check")
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("err = %v, want exit code 1", err)
	}
	if !strings.Contains(out, "unsupported database scheme") {
		t.Errorf("output:\n%s", out)
	}
}

func TestStdio(t *testing.T) {
	useConfig(t, `{}`)
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	root := cli.NewRootCmd("test")
	root.SetIn(inR)
	root.SetOut(outW)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"stdio"})
	done := make(chan error, 1)
	go func() {
		done <- root.Execute()
		outW.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client := mcp.NewClient(&mcp.Implementation{Name: "cli-test", Version: "test"}, nil)
	cs, err := client.Connect(ctx, &mcp.IOTransport{Reader: outR, Writer: inW}, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if info := cs.InitializeResult().ServerInfo; info.Name != "toolrelay" || info.Version != "test" {
		t.Errorf("server info = %+v", info)
	}

	res, err := cs.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	if len(names) != 10 || !slices.Contains(names, "web_search") {
		t.Errorf("tools = %v", names)
	}

	cs.Close()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("stdio did not exit after the client disconnected")
	}
}
