// Package gerrit is a minimal client for the Gerrit REST API, covering the
// change query used to find changes awaiting an automated check.
package gerrit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// xssiPrefix guards every Gerrit JSON response.
const xssiPrefix = ")]}'"

// ErrNoCurrentRevision is returned when a change lacks its current revision.
var ErrNoCurrentRevision = errors.New("change has no current revision")

// Change is one entry of a change query response.
type Change struct {
	ID              string              `json:"id"`
	Project         string              `json:"project"`
	Branch          string              `json:"branch"`
	ChangeID        string              `json:"change_id"`
	Subject         string              `json:"subject"`
	Number          int                 `json:"_number"`
	CurrentRevision string              `json:"current_revision"`
	Revisions       map[string]Revision `json:"revisions"`
}

// Revision is a patch set of a change.
type Revision struct {
	Ref    string `json:"ref"`
	Number int    `json:"_number"`
}

// Current returns the change's current revision.
func (c Change) Current() (Revision, error) {
	rev, ok := c.Revisions[c.CurrentRevision]
	if !ok || c.CurrentRevision == "" {
		return Revision{}, fmt.Errorf("%s: %w", c.ChangeID, ErrNoCurrentRevision)
	}
	return rev, nil
}

// BuildQuery renders the search for open, verified, mergeable changes on
// branch of project.
func BuildQuery(project, branch string) string {
	return strings.Join([]string{
		"status:open",
		"p:" + project,
		"label:Verified=1",
		"is:mergeable",
		"branch:" + branch,
	}, "+")
}

// Client talks to one Gerrit host over its authenticated (/a/) endpoints.
type Client struct {
	BaseURL    string
	Username   string
	Password   string
	HTTPClient *http.Client
}

// NewClient returns a client for https://host using HTTP basic auth.
// A host that already carries a scheme is used as the base URL unchanged.
func NewClient(host, username, password string) *Client {
	base := host
	if !strings.Contains(host, "://") {
		base = "https://" + host
	}
	return &Client{
		BaseURL:    base,
		Username:   username,
		Password:   password,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// QueryChanges runs query (already in Gerrit's '+'-joined form) and returns
// matching changes with their current revision populated.
func (c *Client) QueryChanges(ctx context.Context, query string) ([]Change, error) {
	url := strings.TrimRight(c.BaseURL, "/") + "/a/changes/?q=" + query + "&o=CURRENT_REVISION"
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var changes []Change
	if err := json.Unmarshal(body, &changes); err != nil {
		return nil, fmt.Errorf("decode changes: %w", err)
	}
	return changes, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.Username != "" || c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
	req.Header.Set("Accept", "application/json")

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gerrit request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gerrit response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("gerrit returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return StripXSSI(body), nil
}

// StripXSSI removes Gerrit's anti-XSSI guard line if present.
func StripXSSI(body []byte) []byte {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if rest, ok := bytes.CutPrefix(trimmed, []byte(xssiPrefix)); ok {
		return rest
	}
	return body
}
