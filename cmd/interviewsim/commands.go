package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/api"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/config"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/interview"
)

// --- sources ---

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available knowledge sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/sources")
		if err != nil {
			return err
		}
		var names []string
		if err := decodeJSON(resp, &names); err != nil {
			return err
		}
		if len(names) == 0 {
			printWarning("No sources yet. Add one with: interviewsim upload <file.pdf>")
			return nil
		}
		for _, n := range names {
			fmt.Fprintln(stdout, n)
		}
		return nil
	},
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload a PDF and select it as the knowledge source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !strings.EqualFold(filepath.Ext(args[0]), ".pdf") {
			return interview.ErrNotPDF
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		printStep("Uploading and indexing %s", args[0])
		resp, err := client.upload(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		var r api.SourceResponse
		if err := decodeJSON(resp, &r); err != nil {
			return err
		}
		printSuccess("%s", r.Message)
		return nil
	},
}

// --- select ---

var selectCmd = &cobra.Command{
	Use:   "select <source>",
	Short: "Select a knowledge source for the interview",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		printStep("Indexing %s", args[0])
		resp, err := client.post(cmd.Context(), "/api/select_source", api.SourceSelection{SourceName: args[0]})
		if err != nil {
			return err
		}
		var r api.SourceResponse
		if err := decodeJSON(resp, &r); err != nil {
			return err
		}
		printSuccess("%s", r.Message)
		return nil
	},
}

// --- question ---

var questionCmd = &cobra.Command{
	Use:   "question",
	Short: "Generate an interview question about the selected source",
	RunE: func(cmd *cobra.Command, args []string) error {
		grounded, _ := cmd.Flags().GetBool("grounded")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		path := "/api/generate_question"
		if grounded {
			path += "?mode=" + string(interview.ModeGrounded)
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}
		var r api.QuestionResponse
		if err := decodeJSON(resp, &r); err != nil {
			return err
		}
		printHeading("Question")
		fmt.Fprint(stdout, renderMarkdown(r.Question))
		return nil
	},
}

func init() {
	questionCmd.Flags().Bool("grounded", false, "ground the question in retrieved passages")
}

// --- answer ---

var answerCmd = &cobra.Command{
	Use:   "answer <text>",
	Short: "Submit an answer to the current question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/submit_answer", api.AnswerRequest{Answer: strings.Join(args, " ")})
		if err != nil {
			return err
		}
		var r api.AnswerResponse
		if err := decodeJSON(resp, &r); err != nil {
			return err
		}
		printEvaluation(r)
		return nil
	},
}

func printEvaluation(r api.AnswerResponse) {
	scoreColor := green
	if r.Score == interview.ScoreUnavailable {
		scoreColor = yellow
	}
	fmt.Fprintf(stdout, "%s %s\n", bold.Sprint("Score:"), scoreColor.Sprint(r.Score))
	printHeading("Feedback")
	fmt.Fprint(stdout, renderMarkdown(r.Feedback))
	printHeading("Reference answer")
	fmt.Fprint(stdout, renderMarkdown(r.ReferenceAnswer))
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question answered from the selected source",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showSources, _ := cmd.Flags().GetBool("passages")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/ask", api.AskRequest{Question: strings.Join(args, " ")})
		if err != nil {
			return err
		}
		var r api.AskResponse
		if err := decodeJSON(resp, &r); err != nil {
			return err
		}
		fmt.Fprint(stdout, renderMarkdown(r.Answer))
		if showSources {
			for _, p := range r.Passages {
				fmt.Fprintf(stdout, "%s %s\n", cyan.Sprintf("[%s p.%d]", p.Source, p.Page), p.Text)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("passages", false, "print the passages the answer was drawn from")
}

// --- session ---

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the current interview session",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/session")
		if err != nil {
			return err
		}
		var snap interview.Snapshot
		if err := decodeJSON(resp, &snap); err != nil {
			return err
		}
		printSnapshot(snap)
		return nil
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the current session and release its index",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/api/session")
		if err != nil {
			return err
		}
		var r api.StatusResponse
		if err := decodeJSON(resp, &r); err != nil {
			return err
		}
		printSuccess("%s", r.Message)
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionEndCmd)
}

func printSnapshot(snap interview.Snapshot) {
	printStatus("Session", "%s", snap.ID)
	printStatus("State", "%s", snap.State)
	if snap.Source != "" {
		printStatus("Source", "%s (%d passages)", snap.Source, snap.Passages)
	}
	if snap.Question != "" {
		printStatus("Question", "%s", snap.Question)
	}
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			line := fmt.Sprintf("  %s = %s", bold.Sprint(k.Key), k.Value)
			if k.Origin != config.OriginDefault {
				line += yellow.Sprintf(" (%s)", k.Origin)
			}
			fmt.Fprintln(stdout, line)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
