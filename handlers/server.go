// ABOUTME: MCP server assembly
// ABOUTME: Registers every CRM tool, resource and prompt on one mcp.Server
package handlers

import (
	"database/sql"

	"github.com/harperreed/salescrm/coach"
	"github.com/harperreed/salescrm/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// Version is reported to MCP clients during initialization.
const Version = "0.2.0"

// NewServer builds the MCP server. analyzer may be nil.
func NewServer(database *sql.DB, analyzer *coach.Analyzer, log zerolog.Logger) *mcp.Server {
	companyHandlers := NewCompanyHandlers(database)
	contactHandlers := NewContactHandlers(database)
	dealHandlers := NewDealHandlers(database, log)
	insightHandlers := NewInsightHandlers(database, analyzer)
	queryHandlers := NewQueryHandlers(database)
	vizHandlers := NewVizHandlers(database)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "salescrm",
		Version: Version,
	}, nil)

	// Companies and contacts
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_company",
		Description: "Add a new company to the CRM",
	}, companyHandlers.AddCompany)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_companies",
		Description: "Search for companies by name or domain, with their open and won deal values",
	}, companyHandlers.FindCompanies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_company",
		Description: "Delete a company that has no deals",
	}, companyHandlers.DeleteCompany)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_contact",
		Description: "Add a new contact, optionally at a company looked up or created by name",
	}, contactHandlers.AddContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_contacts",
		Description: "Search for contacts by name, email, or company",
	}, contactHandlers.FindContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_contact",
		Description: "Update an existing contact's information",
	}, contactHandlers.UpdateContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_contact",
		Description: "Delete a contact; deals and activities keep their history without the link",
	}, contactHandlers.DeleteContact)

	// Activities
	mcp.AddTool(server, &mcp.Tool{
		Name:        "log_activity",
		Description: "Log a call, email, meeting, note or task against a deal, contact or company",
	}, contactHandlers.LogActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task activity as completed",
	}, contactHandlers.CompleteTask)

	// Deals and pipeline
	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a new deal (stages: " + models.StageNames() + ")",
	}, dealHandlers.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_deal",
		Description: "Update fields on an existing deal; only the fields given are changed",
	}, dealHandlers.UpdateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_deal",
		Description: "Move a deal to another pipeline stage",
	}, dealHandlers.MoveDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_deals",
		Description: "List deals, optionally filtered by stage, company or contact",
	}, dealHandlers.ListDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_deal",
		Description: "Delete a deal and its conversations; activities stay in the timeline without the link",
	}, dealHandlers.DeleteDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_summary",
		Description: "Per-stage deal counts and values with conversion rate and average deal size",
	}, dealHandlers.PipelineSummary)

	// Conversations and coaching
	mcp.AddTool(server, &mcp.Tool{
		Name:        "log_conversation",
		Description: "Store a conversation transcript against a deal",
	}, insightHandlers.LogConversation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_conversation",
		Description: "Analyze a stored conversation with the language model and save the result",
	}, insightHandlers.AnalyzeConversation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "coach_deal",
		Description: "Get coaching advice for a deal based on its history",
	}, insightHandlers.CoachDeal)

	// Query and visualization
	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_crm",
		Description: "Universal query tool for flexible filtering across all CRM entity types (contact, company, deal, activity)",
	}, queryHandlers.QueryCRM)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Generate a GraphViz DOT graph of the pipeline or of one company",
	}, vizHandlers.GenerateGraph)

	NewResourceHandlers(database).Register(server)
	NewPromptHandlers(database).Register(server)

	return server
}
