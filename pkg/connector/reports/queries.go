package reports

// GraphQL documents sent to the approval service.

const searchApprovalRequestsQuery = `query searchApprovalRequests($query: String, $after: ID, $reverseSort: Boolean) {
  workflowSearch(query: $query, type: "AC", after: $after, reverseSort: $reverseSort) {
    edges {
      cursor
      node {
        approval {
          id
          title
          templateID
          templateTitle
          status
          modifiedTime
          version
          providerName
          approvalChainIdx
          pendingApprover: pendingApproverEx {
            id
            type
            displayName
            ... on User { title avatarKey __typename }
            ... on Group { isDeleted __typename }
            __typename
          }
          submitter { id type displayName avatarKey isCurrentUser __typename }
          __typename
        }
        __typename
      }
      __typename
    }
    pageInfo { hasNextPage hasPreviousPage startCursor endCursor __typename }
    __typename
  }
}`

const listTemplatesQuery = `query listTemplates {
  templates { id title titleName __typename }
}`

const getTemplateForEditQuery = `query getTemplateForEdit($id: ID!) {
  template(id: $id) {
    id
    title
    titleName
    titlePlaceholder
    acknowledgment
    instructions
    description
    providerName
    isPublic
    chainIsLocked
    type
    isPublished
    observers { id type displayName avatarKey title ... on Group { userCount __typename } __typename }
    categories { id name __typename }
    owner { id displayName avatarKey __typename }
    fields {
      key type name data placeholder required isPrivate
      ... on SelectField { option multiselect datasource column order __typename }
      __typename
    }
    approvers {
      type originalType: type key
      ... on ApproverPerson { id: approverId approverId userDetails { id displayName title avatarKey isDeleted __typename } __typename }
      ... on ApproverGroup { id: approverId approverId groupDetails { id displayName userCount isDeleted __typename } __typename }
      ... on ApproverPlaceholder { placeholderText __typename }
      __typename
    }
    workflowIntegration {
      modelId modelVersion startName modelName
      parameterMapping { fields { field parameter required type __typename } __typename }
      __typename
    }
    __typename
  }
}`

// userAttributes are the profile attributes requested by the Users report
var userAttributes = []string{
	"id",
	"displayName",
	"department",
	"userName",
	"emailAddress",
	"phoneNumber",
	"deskPhoneNumber",
	"title",
	"timeZone",
	"hireDate",
	"modified",
	"created",
	"alternateEmail",
	"employeeLocation",
	"employeeNumber",
	"employeeId",
	"locale",
	"reportsTo",
	"isAnonymous",
	"isSystemUser",
	"isPending",
	"isActive",
	"invitorUserId",
	"lastActivity",
	"lastLogin",
	"avatarKey",
}
