// Package reports defines the built-in Domo reports and registers them in
// the global registry on import.
package reports

import (
	"fmt"

	"github.com/ajitpratap0/nebula-domo/pkg/connector/executor"
	"github.com/ajitpratap0/nebula-domo/pkg/connector/registry"
)

// Report names as selected by the user
const (
	Users             = "Users"
	Functions         = "Functions"
	Approvals         = "Approvals"
	ApprovalTemplates = "Approval Templates"
)

const approvalGraphQLEndpoint = "/synapse/approval/graphql"

func init() {
	for _, report := range All() {
		registry.MustRegisterReport(report)
	}
}

// All returns fresh definitions of every built-in report
func All() []*executor.ReportConfig {
	return []*executor.ReportConfig{
		UsersReport(),
		FunctionsReport(),
		ApprovalsReport(),
		ApprovalTemplatesReport(),
	}
}

// UsersReport pages through the identity search API
func UsersReport() *executor.ReportConfig {
	return &executor.ReportConfig{
		Name:        Users,
		Description: "All users, including deleted and support accounts, with profile attributes as columns",
		Mode:        executor.ModeOffset,
		Endpoint:    "/identity/v1/users/search?explain=false",
		Offset: &executor.OffsetConfig{
			Limit: executor.DefaultLimit,
			BuildRequest: func(offset, limit, _ int) interface{} {
				return map[string]interface{}{
					"showCount":      true,
					"includeDeleted": true,
					"onlyDeleted":    false,
					"includeSupport": true,
					"limit":          limit,
					"offset":         offset,
					"sort": map[string]interface{}{
						"field": "created",
						"order": "ASC",
					},
					"attributes": userAttributes,
				}
			},
			ItemsPath: "users",
			TotalPath: "count",
			Transform: liftUserAttributes,
		},
	}
}

// liftUserAttributes turns attributes [{key, values: [v]}] into top-level
// fields and drops the attributes array
func liftUserAttributes(items []interface{}, _ executor.Page) ([]interface{}, error) {
	for i, item := range items {
		user, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("user %d is not an object", i)
		}
		attrs, _ := user["attributes"].([]interface{})
		for _, a := range attrs {
			attr, ok := a.(map[string]interface{})
			if !ok {
				continue
			}
			key, ok := attr["key"].(string)
			if !ok {
				continue
			}
			var value interface{}
			if values, ok := attr["values"].([]interface{}); ok && len(values) > 0 {
				value = values[0]
			}
			user[key] = value
		}
		delete(user, "attributes")
	}
	return items, nil
}

// FunctionsReport pages through the Beast Mode function search API
func FunctionsReport() *executor.ReportConfig {
	return &executor.ReportConfig{
		Name:        Functions,
		Description: "Beast Mode and calculated field definitions",
		Mode:        executor.ModeOffset,
		Endpoint:    "/query/v1/functions/search",
		Offset: &executor.OffsetConfig{
			Limit: executor.DefaultLimit,
			BuildRequest: func(offset, limit, _ int) interface{} {
				return map[string]interface{}{
					"name":    "",
					"filters": []interface{}{},
					"sort": map[string]interface{}{
						"field":     "name",
						"ascending": true,
					},
					"limit":  limit,
					"offset": offset,
				}
			},
			ItemsPath: "results",
			TotalPath: "totalHits",
		},
	}
}

// ApprovalsReport walks approval requests with cursor pagination
func ApprovalsReport() *executor.ReportConfig {
	return &executor.ReportConfig{
		Name:        Approvals,
		Description: "Approval requests with their submitter and pending approver",
		Mode:        executor.ModeCursor,
		Endpoint:    approvalGraphQLEndpoint,
		Cursor: &executor.CursorConfig{
			BuildRequest: func(cursor string, _ int) interface{} {
				var after interface{}
				if cursor != "" {
					after = cursor
				}
				return map[string]interface{}{
					"operationName": "searchApprovalRequests",
					"variables": map[string]interface{}{
						"after":       after,
						"reverseSort": false,
					},
					"query": searchApprovalRequestsQuery,
				}
			},
			EdgesPath:    "data.workflowSearch.edges",
			PageInfoPath: "data.workflowSearch.pageInfo",
			Transform:    approvalRows,
		},
	}
}

// approvalRows keeps edge.node.approval and records the edge cursor in
// _edgeCursor. Edges without an approval are dropped.
func approvalRows(edges []interface{}, _ executor.Page) ([]interface{}, error) {
	out := make([]interface{}, 0, len(edges))
	for _, e := range edges {
		edge, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		node, ok := edge["node"].(map[string]interface{})
		if !ok {
			continue
		}
		approval, ok := node["approval"].(map[string]interface{})
		if !ok {
			continue
		}
		approval["_edgeCursor"] = edge["cursor"]
		out = append(out, approval)
	}
	return out, nil
}

// ApprovalTemplatesReport lists templates and fetches each one's full definition
func ApprovalTemplatesReport() *executor.ReportConfig {
	return &executor.ReportConfig{
		Name:        ApprovalTemplates,
		Description: "Approval templates with fields, approvers and workflow integration",
		Mode:        executor.ModeMultiFetch,
		Endpoint:    approvalGraphQLEndpoint,
		MultiFetch: &executor.MultiFetchConfig{
			BuildListRequest: func() interface{} {
				return map[string]interface{}{
					"operationName": "listTemplates",
					"query":         listTemplatesQuery,
				}
			},
			ListPath: "data.templates",
			BuildDetailRequest: func(item map[string]interface{}) interface{} {
				return map[string]interface{}{
					"operationName": "getTemplateForEdit",
					"variables":     map[string]interface{}{"id": item["id"]},
					"query":         getTemplateForEditQuery,
				}
			},
			DetailPath: "data.template",
			IDField:    "id",
		},
	}
}
