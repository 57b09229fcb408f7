package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/statutefinder/internal/usecase/session"
)

const chatHelp = `Type a question to search. Commands:
  /options            show the current options
  /recommend          let the model recommend one option
  /rerank             reorder options by relevance
  /more               retrieve further options
  /statute <name>     choose a statute and list its citations
  /cite <citation>    choose a citation
  /load <name>        load a statute by exact name
  /sections           rank the chosen statute's sections for the question
  /more-sections      show the next page of sections
  /recommend-section  name the most relevant section
  /quit               leave`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive statute search session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup("cli")
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.sessions.Start(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer a.sessions.End(sess.ID)

		out := cmd.OutOrStdout()
		st := newChatStyles(out)
		fmt.Fprintln(out, st.help.Render(chatHelp))

		in := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "> ")
			if !in.Scan() {
				return in.Err()
			}
			line := strings.TrimSpace(in.Text())
			if line == "" {
				continue
			}
			if line == "/quit" {
				return nil
			}

			c, ok := parseChatLine(line)
			if !ok {
				fmt.Fprintln(out, st.help.Render(chatHelp))
				continue
			}
			reply, err := a.sessions.Dispatch(cmd.Context(), sess.ID, c)
			if err != nil {
				fmt.Fprintln(out, st.err.Render("error: "+err.Error()))
				continue
			}
			st.printReply(out, reply)
		}
	},
}

func parseChatLine(line string) (session.Command, bool) {
	if !strings.HasPrefix(line, "/") {
		return session.Command{Action: session.ActionNewSearch, Value: line}, true
	}
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch verb {
	case "/options":
		return session.Command{Action: session.ActionChooseFromOptions}, true
	case "/recommend":
		return session.Command{Action: session.ActionRecommendOption}, true
	case "/rerank":
		return session.Command{Action: session.ActionChangeOptions, Value: string(session.ChangeRerank)}, true
	case "/more":
		return session.Command{Action: session.ActionChangeOptions, Value: string(session.ChangeGetMore)}, true
	case "/statute":
		return session.Command{Action: session.ActionChooseStatute, Value: arg}, arg != ""
	case "/cite":
		return session.Command{Action: session.ActionChooseCitation, Value: arg}, arg != ""
	case "/load":
		return session.Command{Action: session.ActionLoadByName, Value: arg}, arg != ""
	case "/sections":
		return session.Command{Action: session.ActionViewSections, Value: string(session.SectionsOrderByRelevance)}, true
	case "/more-sections":
		return session.Command{Action: session.ActionViewSections, Value: string(session.SectionsSeeMore)}, true
	case "/recommend-section":
		return session.Command{Action: session.ActionViewSections, Value: string(session.SectionsRecommend)}, true
	default:
		return session.Command{}, false
	}
}

// chatStyles renders through out's own renderer, so piped output carries no escape codes.
type chatStyles struct {
	help, message, option, recommended, citation, err lipgloss.Style
}

func newChatStyles(out io.Writer) chatStyles {
	r := lipgloss.NewRenderer(out)
	return chatStyles{
		help:        r.NewStyle().Faint(true),
		message:     r.NewStyle().Bold(true),
		option:      r.NewStyle().Foreground(lipgloss.Color("252")),
		recommended: r.NewStyle().Bold(true).Foreground(lipgloss.Color("40")),
		citation:    r.NewStyle().Foreground(lipgloss.Color("244")),
		err:         r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func (st chatStyles) printReply(out io.Writer, r session.Reply) {
	if r.Message != "" {
		fmt.Fprintln(out, st.message.Render(r.Message))
	}
	for i, o := range r.Options {
		fmt.Fprintln(out, st.option.Render(fmt.Sprintf("%2d. %s", i+1, o)))
	}
	for _, sec := range r.Sections {
		fmt.Fprintln(out, st.option.Render("  s. "+sec))
	}
	if r.Recommendation != "" {
		fmt.Fprintln(out, st.recommended.Render("recommended: "+r.Recommendation))
	}
	for _, c := range r.Citations {
		fmt.Fprintln(out, st.citation.Render("  - "+c))
	}
}
