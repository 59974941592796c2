package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/hecrelay/common/logging"
	"github.com/telhawk-systems/hecrelay/internal/client"
	"github.com/telhawk-systems/hecrelay/internal/config"
	"github.com/telhawk-systems/hecrelay/internal/forwarder/forwardertest"
)

func TestCommandsRegistered(t *testing.T) {
	expected := map[string]bool{"serve": false, "send": false, "seed": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := expected[c.Name()]; ok {
			expected[c.Name()] = true
		}
	}
	for name, found := range expected {
		assert.True(t, found, "expected command %q to be registered", name)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	assert.True(t, strings.HasPrefix(buf.String(), "hecrelay "+Version))
}

func TestParseTypes(t *testing.T) {
	assert.Equal(t, []string{"syslog", "snmp"}, parseTypes(" syslog, ,snmp "))
	assert.Nil(t, parseTypes(""))
}

func TestReadBatchFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"sourcetype":"syslog","raw":"x"}]`), 0o600))
	data, err := readBatchFile(nil, jsonPath)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"sourcetype":"syslog","raw":"x"}]`, string(data))

	yamlPath := filepath.Join(dir, "batch.yaml")
	yamlBody := `
- host: 10.0.0.1
  vip: 10.0.0.2
  sourcetype: snmp
  destinationPort: 1162
  raw:
    data: trap
`
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlBody), 0o600))
	data, err = readBatchFile(nil, yamlPath)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"host":"10.0.0.1","vip":"10.0.0.2","sourcetype":"snmp","destinationPort":1162,"raw":{"data":"trap"}}]`, string(data))

	data, err = readBatchFile(strings.NewReader(`{"raw":"stdin"}`), "-")
	require.NoError(t, err)
	assert.Equal(t, `{"raw":"stdin"}`, string(data))

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`[{`), 0o600))
	_, err = readBatchFile(nil, badPath)
	assert.Error(t, err)

	_, err = readBatchFile(nil, filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:                 0,
			ReadTimeout:          5 * time.Second,
			WriteTimeout:         5 * time.Second,
			IdleTimeout:          5 * time.Second,
			MaxBodyBytes:         1 << 20,
			MaxDecompressedBytes: 1 << 20,
		},
		Auth:      config.AuthConfig{Token: "s3cret"},
		Forwarder: config.ForwarderConfig{TTL: 64},
		Logging:   config.LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestNewServer_EndToEnd(t *testing.T) {
	rec := &forwardertest.Recorder{}
	srv := newServer(testConfig(), logging.Discard(), rec, nil)
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	relay := client.NewRelayClient(ts.URL)
	batch := []map[string]any{
		{"host": "10.0.0.1", "vip": "10.0.0.2", "sourcetype": "syslog", "raw": "hello"},
		{"host": "10.0.0.1", "vip": "10.0.0.2", "sourcetype": "snmp", "raw": map[string]string{"data": "abc"}},
		{"host": "10.0.0.1", "vip": "10.0.0.2", "sourcetype": "unknown", "raw": "x"},
	}

	for _, compress := range []bool{false, true} {
		resp, err := relay.SendBatch(t.Context(), "s3cret", batch, compress)
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, 2, resp.Succeeded)
		assert.Equal(t, 1, resp.Skipped)
	}

	pkts := rec.Packets()
	require.Len(t, pkts, 4)
	assert.Equal(t, uint16(514), pkts[0].DstPort)
	assert.Equal(t, uint16(162), pkts[1].DstPort)
	assert.Equal(t, "abc", string(pkts[1].Payload))
	assert.Equal(t, pkts[0].Payload, pkts[2].Payload)
}

func TestNewServer_RejectsBadToken(t *testing.T) {
	rec := &forwardertest.Recorder{}
	srv := newServer(testConfig(), logging.Discard(), rec, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`[]`))
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Unauthorized", body["error"])
	assert.Zero(t, rec.Len())
}
