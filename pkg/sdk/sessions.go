package statutefinder

import (
	"context"
	"net/http"
)

// StartSession opens an interactive session. A non-empty query retrieves the first options.
func (c *Client) StartSession(ctx context.Context, query string) (Session, error) {
	req := struct {
		Query string `json:"query,omitempty"`
	}{Query: query}
	var sess Session
	_, err := c.do(ctx, call{op: "session_start", method: http.MethodPost, path: "/v1/sessions", body: req}, &sess)
	return sess, err
}

// Session fetches the current state of a session.
func (c *Client) Session(ctx context.Context, id string) (Session, error) {
	var sess Session
	_, err := c.do(ctx, call{op: "session_get", method: http.MethodGet, path: sessionPath(id)}, &sess)
	return sess, err
}

// EndSession discards a session.
func (c *Client) EndSession(ctx context.Context, id string) error {
	_, err := c.do(ctx, call{op: "session_end", method: http.MethodDelete, path: sessionPath(id)}, nil)
	return err
}

// Act applies one action to a session. Value carries the query, option change,
// statute name or citation the action needs.
func (c *Client) Act(ctx context.Context, id string, action Action, value string) (Reply, error) {
	req := struct {
		Action Action `json:"action"`
		Value  string `json:"value,omitempty"`
	}{Action: action, Value: value}
	var reply Reply
	_, err := c.do(ctx, call{op: "session_action", method: http.MethodPost, path: sessionPath(id) + "/actions", body: req}, &reply)
	return reply, err
}

func sessionPath(id string) string {
	return "/v1/sessions/" + id
}
