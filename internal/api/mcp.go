package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/interview"
)

// MCPDeps holds dependencies for the MCP server. All tools act on Session.
type MCPDeps struct {
	Service *interview.Service
	Session *interview.Session
}

// NewMCPServer creates an MCP server exposing the interview flow as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"interviewsim",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions("Interview practice over your own PDFs: select a source, generate a question, submit an answer to be scored."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_sources",
			mcp.WithDescription("List the knowledge sources (PDF files) available for interviews."),
		),
		mcpListSources(deps),
	)

	s.AddTool(
		mcp.NewTool("select_source",
			mcp.WithDescription("Index a knowledge source and make it the active source."),
			mcp.WithString("source_name", mcp.Description("Source name, the PDF file name without extension"), mcp.Required()),
		),
		mcpSelectSource(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_question",
			mcp.WithDescription("Generate an interview question about the active source."),
			mcp.WithString("mode", mcp.Description("quick (default) or grounded in retrieved passages")),
		),
		mcpGenerateQuestion(deps),
	)

	s.AddTool(
		mcp.NewTool("submit_answer",
			mcp.WithDescription("Submit an answer to the current question and get a score, feedback and reference answer."),
			mcp.WithString("answer", mcp.Description("Your answer"), mcp.Required()),
		),
		mcpSubmitAnswer(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_source",
			mcp.WithDescription("Ask a free-form question answered from the active source."),
			mcp.WithString("question", mcp.Description("Question to answer"), mcp.Required()),
		),
		mcpAskSource(deps),
	)

	return s
}

func mcpListSources(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, err := deps.Service.ListSources(ctx)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(names)
	}
}

func mcpSelectSource(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("source_name")
		if err != nil {
			return mcpError("source_name is required"), nil
		}
		msg, err := deps.Service.SelectSource(ctx, deps.Session, name)
		if err != nil {
			return mcpError(failureMessage("Error loading source: ", err)), nil
		}
		return mcpText(msg), nil
	}
}

func mcpGenerateQuestion(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		mode, err := interview.ParseMode(req.GetString("mode", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}
		q, err := deps.Service.GenerateQuestion(ctx, deps.Session, mode)
		if err != nil {
			return mcpError(failureMessage("Error generating question: ", err)), nil
		}
		return mcpText(q), nil
	}
}

func mcpSubmitAnswer(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		answer, err := req.RequireString("answer")
		if err != nil {
			return mcpError("answer is required"), nil
		}
		eval, err := deps.Service.SubmitAnswer(ctx, deps.Session, answer)
		if err != nil {
			return mcpError(failureMessage("Error evaluating answer: ", err)), nil
		}
		return mcpJSON(eval)
	}
}

func mcpAskSource(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		ans, err := deps.Service.Ask(ctx, deps.Session, question)
		if err != nil {
			return mcpError(failureMessage("Error answering question: ", err)), nil
		}
		passages := make([]PassageResponse, len(ans.Passages))
		for i, p := range ans.Passages {
			passages[i] = PassageResponse{ID: p.ID, Source: p.Source, Page: p.Page, Text: p.Text}
		}
		return mcpJSON(AskResponse{Answer: ans.Text, Passages: passages, Success: true, Message: "Question answered successfully"})
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
