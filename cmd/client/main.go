package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"git.canoozie.net/riddling/graphdir/pkg/common"
	"git.canoozie.net/riddling/graphdir/pkg/query"
	"git.canoozie.net/riddling/graphdir/pkg/server"
)

var (
	serverAddr string
	graphName  string
	timeout    time.Duration

	rootCmd = &cobra.Command{
		Use:           "graphdir",
		Short:         "Command line client for graphdir",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	execCmd = &cobra.Command{
		Use:   "exec [command]",
		Short: "Execute a GraphLang batch; reads stdin when no command is given",
		RunE:  runExec,
	}

	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove every node and edge from the graph",
		Args:  cobra.NoArgs,
		RunE:  runClear,
	}

	dropCmd = &cobra.Command{
		Use:   "drop",
		Short: "Delete the graph and everything stored for it",
		Args:  cobra.NoArgs,
		RunE:  runDrop,
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List graphs known to the server",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	parseCmd = &cobra.Command{
		Use:   "parse [command]",
		Short: "Parse a batch locally and print its statements in canonical form",
		RunE:  runParse,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverAddr, "server", "s", "http://localhost:8080", "Server base URL")
	rootCmd.PersistentFlags().StringVarP(&graphName, "graph", "g", common.DefaultGraphID, "Graph to address")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	rootCmd.AddCommand(execCmd, clearCmd, dropCmd, listCmd, parseCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "graphdir: %v\n", err)
		os.Exit(1)
	}
}

// commandText joins args, or reads the batch from in when there are none
func commandText(args []string, in io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read command: %w", err)
	}
	return string(data), nil
}

func runExec(cmd *cobra.Command, args []string) error {
	text, err := commandText(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	body, err := json.Marshal(server.CommandRequest{Command: text})
	if err != nil {
		return err
	}

	resp, err := send(cmd.Context(), http.MethodPost, graphPath("command"), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}

	if header := resp.Header.Get(server.SequenceHeader); header != "" {
		seq, err := common.ParseUint64(header)
		if err != nil {
			return fmt.Errorf("invalid %s header %q: %w", server.SequenceHeader, header, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "graph %s at batch %d\n", graphName, seq)
	}
	return printJSON(cmd.OutOrStdout(), resp.Body)
}

func runClear(cmd *cobra.Command, args []string) error {
	return deleteRequest(cmd, graphPath("clear"), "cleared")
}

func runDrop(cmd *cobra.Command, args []string) error {
	return deleteRequest(cmd, graphPath(""), "dropped")
}

func deleteRequest(cmd *cobra.Command, path, verb string) error {
	resp, err := send(cmd.Context(), http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "graph %s %s\n", graphName, verb)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	resp, err := send(cmd.Context(), http.MethodGet, "/directory", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}

	var listed struct {
		Graphs []string `json:"graphs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	for _, id := range listed.Graphs {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	text, err := commandText(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	commands, err := query.Parse(text)
	if err != nil {
		return err
	}
	for _, c := range commands {
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", c.Kind(), c)
	}
	return nil
}

func graphPath(suffix string) string {
	path := "/directory/" + url.PathEscape(graphName)
	if suffix != "" {
		path += "/" + suffix
	}
	return path
}

func send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	// The body is read by the caller, so cancel once it is closed.
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(serverAddr, "/")+path, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("request failed: %w", err)
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

// checkResponse turns an error response into an error
func checkResponse(resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}

	var body server.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return fmt.Errorf("%s (%s)", body.Error, body.Status)
}

func printJSON(w io.Writer, r io.Reader) error {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}
