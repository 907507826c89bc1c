// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes LifeONE records to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"

	"github.com/starford/lifeone/internal/assistant"
	"github.com/starford/lifeone/internal/calendar"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/parser"
	"github.com/starford/lifeone/internal/store"
)

// ContractURI names the response contract resource.
const ContractURI = "lifeone://response-contract"

// Server wraps the MCP server with LifeONE tools.
type Server struct {
	mcp *server.MCPServer
	st  *store.State
}

// New creates a new MCP server with all tools registered.
func New(st *store.State, version string) *Server {
	s := &Server{st: st}

	s.mcp = server.NewMCPServer(
		"LifeONE",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_schedule",
		mcp.WithDescription("List calendar events, optionally limited to one month."),
		mcp.WithString("month", mcp.Description("Month as YYYY-MM (empty for all)")),
	), s.listSchedule)

	s.mcp.AddTool(mcp.NewTool("search_contacts",
		mcp.WithDescription("Search contacts by name or phone digits."),
		mcp.WithString("query", mcp.Description("Name substring or phone digits (empty for all)")),
	), s.searchContacts)

	s.mcp.AddTool(mcp.NewTool("add_expense",
		mcp.WithDescription("Record an expense or income in the ledger."),
		mcp.WithString("item", mcp.Required(), mcp.Description("What the money was spent on")),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Positive amount in KRW")),
		mcp.WithString("type", mcp.Description("expense (default) or income")),
		mcp.WithString("category", mcp.Description("Spending category, e.g. 식비")),
		mcp.WithString("date", mcp.Description("YYYY-MM-DD; defaults to today in Seoul")),
	), s.addExpense)

	s.mcp.AddTool(mcp.NewTool("list_expenses",
		mcp.WithDescription("List ledger entries and totals within an inclusive date range."),
		mcp.WithString("from", mcp.Description("Start date YYYY-MM-DD")),
		mcp.WithString("to", mcp.Description("End date YYYY-MM-DD")),
	), s.listExpenses)

	s.mcp.AddTool(mcp.NewTool("add_diary",
		mcp.WithDescription("Create a diary entry from Markdown. Optional YAML frontmatter "+
			"(date, group, checklist) and '- [ ] task' lines become checklist items."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Entry text in Markdown")),
	), s.addDiary)

	s.mcp.AddTool(mcp.NewTool("get_holidays",
		mcp.WithDescription("List Korean public holidays of a month."),
		mcp.WithNumber("year", mcp.Required(), mcp.Description("Four-digit year")),
		mcp.WithNumber("month", mcp.Required(), mcp.Description("Month 1-12")),
	), s.getHolidays)

	s.mcp.AddTool(mcp.NewTool("get_dday",
		mcp.WithDescription("Count the days from today (Seoul) to a date, as D-n / D-DAY / D+n."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Target date YYYY-MM-DD")),
	), s.getDday)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "AI Response Contract",
			mcp.WithResourceDescription("JSON shape the assistant must answer in."),
			mcp.WithMIMEType("application/json"),
		),
		s.readContract,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) now() time.Time { return s.st.Now()() }

func (s *Server) listSchedule(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.st.ListSchedule(req.GetString("month", "")))
}

func (s *Server) searchContacts(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list := s.st.ListContacts(req.GetString("query", ""))
	// Phone numbers are stored as digits; show them the way people write them.
	for i := range list {
		list[i].Phone = models.FormatPhone(list[i].Phone)
	}
	return jsonResult(list)
}

func (s *Server) addExpense(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	item, err := req.RequireString("item")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := req.RequireFloat("amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.st.AddExpense(models.Expense{
		Item:     item,
		Amount:   decimal.NewFromFloat(amount),
		Type:     req.GetString("type", models.TypeExpense),
		Category: req.GetString("category", ""),
		Date:     req.GetString("date", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(e)
}

func (s *Server) listExpenses(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, to := req.GetString("from", ""), req.GetString("to", "")
	for _, d := range []string{from, to} {
		if _, err := calendar.ParseDate(d); d != "" && err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid date %q: want YYYY-MM-DD", d)), nil
		}
	}
	return jsonResult(map[string]any{
		"expenses": s.st.ListExpenses(from, to),
		"stats":    s.st.ExpenseStats(from, to),
	})
}

func (s *Server) addDiary(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	md, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := parser.Parse([]byte(md))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry := res.DiaryEntry()
	entry.ID = ""
	d, err := s.st.AddDiary(entry)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) getHolidays(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	year, err := req.RequireInt("year")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	month, err := req.RequireInt("month")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list, err := calendar.MonthHolidays(year, time.Month(month))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (s *Server) getDday(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	norm, ok := calendar.NormalizeDate(date, s.now())
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("invalid date %q", date)), nil
	}
	d, err := calendar.CountDday(norm, s.now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(d.Text), nil
}

func (s *Server) readContract(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "application/json",
			Text:     assistant.Contract(),
		},
	}, nil
}
