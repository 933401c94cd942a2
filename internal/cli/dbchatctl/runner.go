package dbchatctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

type Options struct {
	BaseURL    string
	APIKey     string
	SessionID  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

type client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

type turn struct {
	Index   int    `json:"index"`
	Role    string `json:"role"`
	Content string `json:"content"`
	Payload *struct {
		Mode      string `json:"mode"`
		Summary   string `json:"summary"`
		ChartType string `json:"chart_type"`
		Table     *struct {
			Columns []string   `json:"columns"`
			Rows    [][]string `json:"rows"`
		} `json:"table"`
	} `json:"payload"`
}

type schemaResponse struct {
	Schema  string   `json:"schema"`
	Dialect string   `json:"dialect"`
	Tables  []string `json:"tables"`
	Columns map[string][]struct {
		Name     string `json:"name"`
		DataType string `json:"data_type"`
	} `json:"columns"`
	Relationships []struct {
		ChildTable    string   `json:"child_table"`
		ChildColumns  []string `json:"child_columns"`
		ParentTable   string   `json:"parent_table"`
		ParentColumns []string `json:"parent_columns"`
	} `json:"relationships"`
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("dbchatctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "dbchat API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	sessionID := fs.String("session", defaults.SessionID, "session id for ask/history (ask creates one when empty)")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 3*time.Minute), "HTTP timeout (e.g. 90s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	httpClient := defaults.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: *timeout}
	}
	c := &client{http: httpClient, baseURL: strings.TrimRight(*baseURL, "/"), apiKey: strings.TrimSpace(*apiKey)}

	command := strings.TrimSpace(fs.Arg(0))
	rest := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))

	var err error
	switch command {
	case "health":
		err = c.printJSON(ctx, stdout, http.MethodGet, "/v1/health", nil)
	case "ready":
		err = c.printJSON(ctx, stdout, http.MethodGet, "/v1/ready", nil)
	case "session":
		var id string
		id, err = c.createSession(ctx)
		if err == nil {
			_, _ = fmt.Fprintln(stdout, id)
		}
	case "ask":
		if rest == "" {
			_, _ = fmt.Fprintln(stderr, "ask requires a question")
			return 2
		}
		err = c.ask(ctx, stdout, stderr, strings.TrimSpace(*sessionID), rest)
	case "history":
		if strings.TrimSpace(*sessionID) == "" {
			_, _ = fmt.Fprintln(stderr, "history requires -session")
			return 2
		}
		err = c.history(ctx, stdout, strings.TrimSpace(*sessionID))
	case "schema":
		err = c.schema(ctx, stdout)
	case "translate":
		if rest == "" {
			_, _ = fmt.Fprintln(stderr, "translate requires a prompt")
			return 2
		}
		err = c.translate(ctx, stdout, rest)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func (c *client) createSession(ctx context.Context) (string, error) {
	var created struct {
		SessionID string `json:"session_id"`
	}
	if err := c.call(ctx, http.MethodPost, "/v1/sessions", nil, &created); err != nil {
		return "", err
	}
	return created.SessionID, nil
}

func (c *client) ask(ctx context.Context, stdout, stderr io.Writer, sessionID, question string) error {
	if sessionID == "" {
		id, err := c.createSession(ctx)
		if err != nil {
			return err
		}
		sessionID = id
		_, _ = fmt.Fprintf(stderr, "session: %s\n", sessionID)
	}

	var reply turn
	if err := c.call(ctx, http.MethodPost, "/v1/sessions/"+sessionID+"/turns", map[string]string{"question": question}, &reply); err != nil {
		return err
	}
	printTurn(stdout, c.baseURL, sessionID, reply)
	return nil
}

func (c *client) history(ctx context.Context, stdout io.Writer, sessionID string) error {
	var body struct {
		Turns []turn `json:"turns"`
	}
	if err := c.call(ctx, http.MethodGet, "/v1/sessions/"+sessionID+"/turns", nil, &body); err != nil {
		return err
	}
	for _, t := range body.Turns {
		if t.Role == "user" {
			_, _ = fmt.Fprintf(stdout, "> %s\n", t.Content)
			continue
		}
		printTurn(stdout, c.baseURL, sessionID, t)
	}
	return nil
}

func (c *client) schema(ctx context.Context, stdout io.Writer) error {
	var body schemaResponse
	if err := c.call(ctx, http.MethodGet, "/v1/schema", nil, &body); err != nil {
		return err
	}
	if len(body.Tables) == 0 {
		_, _ = fmt.Fprintln(stdout, "No schema available.")
		return nil
	}
	_, _ = fmt.Fprintf(stdout, "Schema %s (%s)\n", body.Schema, body.Dialect)
	for _, table := range body.Tables {
		_, _ = fmt.Fprintf(stdout, "\n%s\n", table)
		rows := make([][]string, 0, len(body.Columns[table]))
		for _, column := range body.Columns[table] {
			rows = append(rows, []string{column.Name, column.DataType})
		}
		renderTable(stdout, []string{"Column", "Type"}, rows)
	}
	if len(body.Relationships) > 0 {
		_, _ = fmt.Fprintln(stdout, "\nRelationships")
		for _, rel := range body.Relationships {
			_, _ = fmt.Fprintf(stdout, "  %s(%s) -> %s(%s)\n",
				rel.ChildTable, strings.Join(rel.ChildColumns, ", "),
				rel.ParentTable, strings.Join(rel.ParentColumns, ", "))
		}
	}
	return nil
}

func (c *client) translate(ctx context.Context, stdout io.Writer, prompt string) error {
	var body struct {
		SQL string `json:"sql"`
	}
	if err := c.call(ctx, http.MethodPost, "/v1/sql/translate", map[string]string{"prompt": prompt}, &body); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, body.SQL)
	return nil
}

func (c *client) printJSON(ctx context.Context, stdout io.Writer, method, path string, payload any) error {
	code, body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if code >= 400 {
		return fmt.Errorf("http %d: %s", code, strings.TrimSpace(string(body)))
	}
	if pretty, ok := prettyJSON(body); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return nil
	}
	if len(body) > 0 {
		_, _ = fmt.Fprintln(stdout, string(body))
	}
	return nil
}

// call sends payload as JSON and decodes a successful response into out.
func (c *client) call(ctx context.Context, method, path string, payload, out any) error {
	code, body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if code >= 400 {
		var apiErr struct {
			Code    string `json:"error_code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
			return fmt.Errorf("http %d %s: %s", code, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("http %d: %s", code, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func printTurn(w io.Writer, baseURL, sessionID string, t turn) {
	if t.Payload == nil {
		_, _ = fmt.Fprintln(w, t.Content)
		return
	}
	if t.Payload.Summary != "" {
		_, _ = fmt.Fprintln(w, t.Payload.Summary)
	}
	if t.Payload.Table != nil {
		renderTable(w, t.Payload.Table.Columns, t.Payload.Table.Rows)
	}
	if t.Payload.Mode == "chart" {
		_, _ = fmt.Fprintf(w, "%s chart: %s/v1/sessions/%s/turns/%d/chart\n", t.Payload.ChartType, baseURL, sessionID, t.Index)
	}
}

func renderTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader(header)
	table.AppendBulk(rows)
	table.Render()
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: dbchatctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health               GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  session              create a chat session and print its id")
	_, _ = fmt.Fprintln(w, "  ask <question>       ask a question (uses -session or creates one)")
	_, _ = fmt.Fprintln(w, "  history              print the turns of -session")
	_, _ = fmt.Fprintln(w, "  schema               print tables, columns and foreign keys")
	_, _ = fmt.Fprintln(w, "  translate <prompt>   print the SQL planned for a prompt")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
