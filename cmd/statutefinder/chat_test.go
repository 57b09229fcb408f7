package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kailas-cloud/statutefinder/internal/usecase/session"
)

func TestParseChatLine(t *testing.T) {
	tests := []struct {
		line   string
		action session.Action
		value  string
		ok     bool
	}{
		{"my landlord kept my deposit", session.ActionNewSearch, "my landlord kept my deposit", true},
		{"/options", session.ActionChooseFromOptions, "", true},
		{"/recommend", session.ActionRecommendOption, "", true},
		{"/rerank", session.ActionChangeOptions, "rerank", true},
		{"/more", session.ActionChangeOptions, "get_more", true},
		{"/statute Evidence Act", session.ActionChooseStatute, "Evidence Act", true},
		{"/cite RSBC 1996, c. 124", session.ActionChooseCitation, "RSBC 1996, c. 124", true},
		{"/load   Family Law Act ", session.ActionLoadByName, "Family Law Act", true},
		{"/sections", session.ActionViewSections, "order_by_relevance", true},
		{"/more-sections", session.ActionViewSections, "see_more", true},
		{"/recommend-section", session.ActionViewSections, "recommend", true},
		{"/statute", "", "", false},
		{"/dance", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := parseChatLine(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Action != tt.action || got.Value != tt.value {
				t.Errorf("got %+v, want %s %q", got, tt.action, tt.value)
			}
		})
	}
}

func TestPrintReply(t *testing.T) {
	var buf bytes.Buffer
	newChatStyles(&buf).printReply(&buf, session.Reply{
		Message:        "Choose a citation",
		Options:        []string{"Evidence Act"},
		Sections:       []string{"38 Return of security deposit"},
		Recommendation: "Evidence Act",
		Citations:      []string{"RSBC 1996, c. 124"},
	})

	got := buf.String()
	if strings.Contains(got, "\x1b[") {
		t.Errorf("non-terminal output should be unstyled: %q", got)
	}
	for _, want := range []string{"Choose a citation", " 1. Evidence Act", "recommended: Evidence Act", "  - RSBC 1996, c. 124", "  s. 38 Return of security deposit"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestDefinitionSections(t *testing.T) {
	doc, err := loadAct("../../internal/document/testdata/act.xml")
	if err != nil {
		t.Fatalf("load act: %v", err)
	}
	if got := definitionSections(doc.Definitions()); got != "1" {
		t.Errorf("expected definitions in section 1, got %q", got)
	}
}
