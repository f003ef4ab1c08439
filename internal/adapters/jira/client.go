/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HamedShams/release-pulse/internal/config"
	"github.com/HamedShams/release-pulse/internal/domain"
	"github.com/rs/zerolog"
)

// Client talks to a Jira-compatible tracker over its REST search API. The
// rest of the system only depends on the narrow Tracker contract: fetch the
// ticket set for a release and trigger a refresh.
type Client struct {
	baseURL string
	token   string
	basic   string
	user    string
	pass    string
	project string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.JiraBaseURL,
		token:   cfg.JiraPAT,
		basic:   cfg.JiraBasicAuth,
		user:    cfg.JiraUsername,
		pass:    cfg.JiraPassword,
		project: cfg.JiraProject,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		log:     log,
	}
}

// FetchTicketsForRelease pages through the tracker's search results for
// fixVersion = releaseID and maps them to the domain ticket shape.
func (c *Client) FetchTicketsForRelease(ctx context.Context, releaseID string) ([]domain.Ticket, error) {
	jql := fmt.Sprintf("project=%s AND fixVersion=%q", c.project, releaseID)
	var out []domain.Ticket
	startAt := 0
	for {
		page, err := c.search(ctx, jql, startAt, 50)
		if err != nil {
			return nil, err
		}
		arr, _ := page["issues"].([]any)
		if len(arr) == 0 {
			break
		}
		for _, it := range arr {
			im, _ := it.(map[string]any)
			if im == nil {
				continue
			}
			if t := mapIssue(im, releaseID); t != nil {
				out = append(out, *t)
			}
		}
		if len(arr) < 50 {
			break
		}
		startAt += 50
	}
	return out, nil
}

// Refresh asks the tracker to re-index the release's tickets. Jira has no
// such call; a cheap bounded search doubles as a connectivity check.
func (c *Client) Refresh(ctx context.Context, releaseID string) error {
	jql := fmt.Sprintf("project=%s AND fixVersion=%q", c.project, releaseID)
	_, err := c.search(ctx, jql, 0, 1)
	return err
}

func (c *Client) search(ctx context.Context, jql string, startAt, max int) (map[string]any, error) {
	q := url.Values{}
	q.Set("jql", jql)
	q.Set("startAt", fmt.Sprint(startAt))
	q.Set("maxResults", fmt.Sprint(max))
	q.Set("fields", "summary,status,assignee,priority,issuetype,reporter,created,updated")
	u := c.apiURL("/rest/api/2/search", q)
	return c.doJSON(ctx, http.MethodGet, u)
}

func (c *Client) apiURL(path string, q url.Values) string {
	base := strings.TrimRight(c.baseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := base + path
	if len(q) > 0 {
		u = u + "?" + q.Encode()
	}
	return u
}

func (c *Client) doJSON(ctx context.Context, method, u string) (map[string]any, error) {
	if c.baseURL == "" {
		return nil, errors.New("jira: empty baseURL")
	}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, u, nil)
		if err != nil {
			return nil, err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		} else if c.user != "" && c.pass != "" {
			req.SetBasicAuth(c.user, c.pass)
		} else if c.basic != "" {
			req.Header.Set("Authorization", "Basic "+c.basic)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, rerr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case rerr != nil:
				lastErr = rerr
			case resp.StatusCode >= 300:
				lastErr = fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
				// only 429 and 5xx are worth retrying
				if resp.StatusCode != 429 && resp.StatusCode < 500 {
					return nil, lastErr
				}
			default:
				var out map[string]any
				if err := json.Unmarshal(body, &out); err != nil {
					return nil, err
				}
				return out, nil
			}
		}
		time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
	}
	return nil, lastErr
}

func mapIssue(im map[string]any, releaseID string) *domain.Ticket {
	key := toStr(im["key"])
	if key == "" {
		return nil
	}
	fields, _ := im["fields"].(map[string]any)
	t := domain.Ticket{Key: key, ReleaseID: releaseID}
	t.Summary = toStr(fields["summary"])
	if st, ok := fields["status"].(map[string]any); ok {
		t.Status = toStr(st["name"])
	}
	if pr, ok := fields["priority"].(map[string]any); ok {
		t.Priority = toStr(pr["name"])
	}
	if it, ok := fields["issuetype"].(map[string]any); ok {
		t.IssueType = toStr(it["name"])
	}
	if as, ok := fields["assignee"].(map[string]any); ok {
		if name := toStr(as["displayName"]); name != "" {
			t.Assignee = &name
		}
	}
	if rp, ok := fields["reporter"].(map[string]any); ok {
		if name := toStr(rp["displayName"]); name != "" {
			t.Reporter = &name
		}
	}
	t.CreatedDate = parseTimeUTC(fields["created"])
	t.UpdatedDate = parseTimeUTC(fields["updated"])
	if raw, err := json.Marshal(im); err == nil {
		t.Raw = raw
	}
	return &t
}

func toStr(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func parseTimeUTC(v any) *time.Time {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05-0700"}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			tt := t.UTC()
			return &tt
		}
	}
	return nil
}
