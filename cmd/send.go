package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/hecrelay/internal/client"
	"github.com/telhawk-systems/hecrelay/internal/models"
	"github.com/telhawk-systems/hecrelay/pkg/output"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Post a batch file to a relay",
	Long: `Reads a batch of events and posts it to a relay. JSON files are sent as is;
.yaml and .yml files are converted to a JSON array first. Use "-" to read
JSON from stdin.`,
	Example: `  hecrelay send --token s3cret --file events.json
  hecrelay send --token s3cret --file events.yaml --gzip
  cat events.json | hecrelay send --token s3cret --file -`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().String("url", "http://localhost:8080", "Relay URL")
	sendCmd.Flags().StringP("token", "t", "", "Relay bearer token")
	sendCmd.Flags().StringP("file", "f", "", "Batch file (JSON or YAML)")
	sendCmd.Flags().Bool("gzip", false, "gzip-compress the request body")
	sendCmd.Flags().Bool("json", false, "Print the relay response as JSON")
}

func runSend(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	token, _ := cmd.Flags().GetString("token")
	file, _ := cmd.Flags().GetString("file")
	compress, _ := cmd.Flags().GetBool("gzip")
	asJSON, _ := cmd.Flags().GetBool("json")

	if token == "" {
		return fmt.Errorf("relay token is required (use --token)")
	}
	if file == "" {
		return fmt.Errorf("batch file is required (use --file)")
	}

	body, err := readBatchFile(cmd.InOrStdin(), file)
	if err != nil {
		return err
	}

	resp, err := client.NewRelayClient(url).Post(cmd.Context(), token, body, compress)
	if err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	if asJSON {
		return output.JSON(resp)
	}
	printReport(resp.DispatchReport)
	return nil
}

// readBatchFile returns the batch as JSON bytes.
func readBatchFile(stdin io.Reader, path string) ([]byte, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlToJSON(data)
	default:
		if !json.Valid(data) {
			return nil, fmt.Errorf("batch %s is not valid JSON", path)
		}
		return data, nil
	}
}

func yamlToJSON(data []byte) ([]byte, error) {
	var events []map[string]any
	if err := yaml.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse YAML batch: %w", err)
	}
	out, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("convert YAML batch: %w", err)
	}
	return out, nil
}

func printReport(r models.DispatchReport) {
	tbl := output.NewTable([]string{"OUTCOME", "EVENTS"})
	tbl.AddRow("succeeded", strconv.Itoa(r.Succeeded))
	tbl.AddRow("skipped", strconv.Itoa(r.Skipped))
	tbl.AddRow("failed", strconv.Itoa(r.Failed))
	tbl.AddRow("cancelled", strconv.Itoa(r.Cancelled))
	tbl.Render()

	switch {
	case r.Total == r.Succeeded:
		output.Success("%d of %d events forwarded", r.Succeeded, r.Total)
	case r.Succeeded == 0:
		output.Error("0 of %d events forwarded", r.Total)
	default:
		output.Warn("%d of %d events forwarded", r.Succeeded, r.Total)
	}
}
