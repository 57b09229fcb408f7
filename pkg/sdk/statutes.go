package statutefinder

import (
	"context"
	"net/http"
	"net/url"
)

// Lookup returns the catalog rows for an exact statute name.
func (c *Client) Lookup(ctx context.Context, name string) ([]Statute, error) {
	var resp struct {
		Items []Statute `json:"items"`
	}
	_, err := c.do(ctx, call{
		op: "lookup", method: http.MethodGet, path: "/v1/statutes",
		query: url.Values{"name": {name}},
	}, &resp)
	return resp.Items, err
}

// Options returns the topN statute names most similar to query.
// topN <= 0 uses the server default.
func (c *Client) Options(ctx context.Context, query string, topN int) ([]ScoredStatute, error) {
	req := struct {
		Query string `json:"query"`
		TopN  int    `json:"top_n,omitempty"`
	}{Query: query, TopN: topN}
	var resp struct {
		Items []ScoredStatute `json:"items"`
	}
	_, err := c.do(ctx, call{op: "options", method: http.MethodPost, path: "/v1/statutes/options", body: req}, &resp)
	return resp.Items, err
}

// Narrow runs a batched narrowing over the catalog or the given candidates.
// The result carries the model calls and tokens the server spent.
func (c *Client) Narrow(ctx context.Context, req NarrowRequest) (NarrowResult, error) {
	var res NarrowResult
	h, err := c.do(ctx, call{op: "narrow", method: http.MethodPost, path: "/v1/statutes/narrow", body: req}, &res)
	if err != nil {
		return NarrowResult{}, err
	}
	res.Usage = usageFromHeader(h)
	return res, nil
}

// Choose picks a single statute among candidates.
func (c *Client) Choose(ctx context.Context, query string, candidates []string, p Params) (string, error) {
	req := struct {
		Query      string   `json:"query"`
		Candidates []string `json:"candidates"`
		Params
	}{Query: query, Candidates: candidates, Params: p}
	var resp struct {
		Choice string `json:"choice"`
	}
	_, err := c.do(ctx, call{op: "choose", method: http.MethodPost, path: "/v1/statutes/choose", body: req}, &resp)
	return resp.Choice, err
}

// Rerank orders a shortlist by relevance. Entries the model leaves out are dropped.
func (c *Client) Rerank(ctx context.Context, query string, shortlist []string, p Params) ([]string, error) {
	req := struct {
		Query     string   `json:"query"`
		Shortlist []string `json:"shortlist"`
		Params
	}{Query: query, Shortlist: shortlist, Params: p}
	var resp struct {
		Items []string `json:"items"`
	}
	_, err := c.do(ctx, call{op: "rerank", method: http.MethodPost, path: "/v1/statutes/rerank", body: req}, &resp)
	return resp.Items, err
}

// RankSections blends similarity and model relevance over the sections of one act.
func (c *Client) RankSections(ctx context.Context, req SectionsRequest) ([]SectionScore, error) {
	var resp struct {
		Items []SectionScore `json:"items"`
	}
	_, err := c.do(ctx, call{op: "rank_sections", method: http.MethodPost, path: "/v1/sections/rank", body: req}, &resp)
	return resp.Items, err
}
