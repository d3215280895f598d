// Package tool holds the tool catalog exposed to the specialists and the
// owner-scoped gateway that executes tool calls against the stores.
package tool

import (
	"github.com/cloudwego/eino/schema"

	contractx "github.com/scribadev/scriba/agent/contract"
)

const (
	ToolDocumentCreate  = "document.create"
	ToolTemplateFill    = "template.fill"
	ToolTemplateInspect = "template.inspect"
	ToolTemplateList    = "template.list"
	ToolDocumentQuery   = "document.query"
	ToolDocumentRead    = "document.read"
	ToolSheetAppendRow  = "sheet.append_row"
	ToolMathEvaluate    = "math.evaluate"
)

// InfosForAgent returns the tool schemas an agent is allowed to call.
func InfosForAgent(agentType contractx.AgentType) []*schema.ToolInfo {
	switch agentType {
	case contractx.AgentTypeEditor:
		return []*schema.ToolInfo{
			{
				Name: ToolTemplateList,
				Desc: "List the names of the available document templates.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
			},
			{
				Name: ToolTemplateInspect,
				Desc: "List the placeholder fields a named template expects.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"template_name": {Type: schema.String, Desc: "Template name", Required: true},
				}),
			},
			{
				Name: ToolTemplateFill,
				Desc: "Fill a named document template with field values and store the result.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"template_name": {Type: schema.String, Desc: "Template name", Required: true},
					"filename":      {Type: schema.String, Desc: "Output filename"},
					"fields": {
						Type:     schema.Object,
						Desc:     "Placeholder name to value map",
						Required: true,
					},
				}),
			},
			{
				Name: ToolDocumentCreate,
				Desc: "Create a new document from field values or a spreadsheet from rows.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"kind":     {Type: schema.String, Desc: "document or spreadsheet", Required: true},
					"filename": {Type: schema.String, Desc: "Output filename"},
					"fields":   {Type: schema.Object, Desc: "Heading to value map for a document"},
					"rows": {
						Type: schema.Array,
						Desc: "Row objects for a spreadsheet",
						ElemInfo: &schema.ParameterInfo{
							Type: schema.Object,
							Desc: "One row, column name to cell value",
						},
					},
				}),
			},
			{
				Name: ToolSheetAppendRow,
				Desc: "Append one row to an existing stored spreadsheet.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"artifact_id": {Type: schema.String, Desc: "Spreadsheet artifact id", Required: true},
					"row": {
						Type:     schema.Object,
						Desc:     "Column name to cell value",
						Required: true,
					},
				}),
			},
			{
				Name: ToolDocumentQuery,
				Desc: "List the user's stored documents, optionally filtered by filename substring.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"name_contains": {Type: schema.String, Desc: "Filename substring filter"},
				}),
			},
			mathToolInfo(),
		}
	case contractx.AgentTypeQA:
		return []*schema.ToolInfo{
			{
				Name: ToolDocumentQuery,
				Desc: "List the user's stored documents, optionally filtered by filename substring.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"name_contains": {Type: schema.String, Desc: "Filename substring filter"},
				}),
			},
			{
				Name: ToolDocumentRead,
				Desc: "Read the plain text of one of the user's stored documents.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"artifact_id": {Type: schema.String, Desc: "Artifact id", Required: true},
				}),
			},
			{
				Name: ToolTemplateList,
				Desc: "List the names of the available document templates.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
			},
			mathToolInfo(),
		}
	default:
		return nil
	}
}

// Allowed reports whether an agent may call the named tool.
func Allowed(agentType contractx.AgentType, tool string) bool {
	for _, info := range InfosForAgent(agentType) {
		if info.Name == tool {
			return true
		}
	}
	return false
}

func mathToolInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolMathEvaluate,
		Desc: "Evaluate a mathematical expression.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"expression": {Type: schema.String, Desc: "Expression to evaluate", Required: true},
		}),
	}
}
