package primitive

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// fetchTimeout bounds how long fetch waits for a response.
const fetchTimeout = 30 * time.Second

// Fetch implements fetch: a single HTTP round-trip. Success is any 2xx
// status; anything else is reported as a failure carrying the body.
type Fetch struct {
	Client *http.Client
}

func (Fetch) Name() string        { return "fetch" }
func (Fetch) Description() string { return "Fetch a URL over HTTP." }

type fetchArgs struct {
	URL    string `json:"url" jsonschema:"required,description=URL to fetch"`
	Method string `json:"method,omitempty" jsonschema:"description=HTTP method, default GET"`
	Body   string `json:"body,omitempty" jsonschema:"description=Request body"`
}

func (Fetch) Schema() map[string]any { return schemaFor(fetchArgs{}) }

func (f Fetch) Execute(ctx context.Context, args map[string]any, _ Env) (Result, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return failf("url is required"), nil
	}
	method, _ := args["method"].(string)
	if method == "" {
		method = http.MethodGet
	}
	body, _ := args["body"].(string)

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, strings.NewReader(body))
	if err != nil {
		return failf("invalid request: %v", err), nil
	}

	resp, err := client.Do(req)
	if err != nil {
		return fail(err), nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(err), nil
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !success {
		return Result{
			Output:  string(data),
			Success: false,
			Error:   resp.Status,
		}, nil
	}
	return ok(string(data)), nil
}
