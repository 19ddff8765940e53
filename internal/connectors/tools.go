// Package connectors implements the six thin static tools the server
// exposes alongside the dynamically generated ones: list_managed_apis,
// put_connection, list_connections, get_consent_link, list_dynamic_tools,
// and refresh_tools.
package connectors

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/azure-connectors/arm-mcp-server/internal/armclient"
	"github.com/azure-connectors/arm-mcp-server/internal/armcontext"
	"github.com/azure-connectors/arm-mcp-server/internal/auth"
	"github.com/azure-connectors/arm-mcp-server/internal/lifecycle"
	"github.com/azure-connectors/arm-mcp-server/internal/registrar"
	"github.com/azure-connectors/arm-mcp-server/internal/schemagen"
	"github.com/azure-connectors/arm-mcp-server/internal/toolregistry"
)

const (
	consentAPIVersion = "2018-07-01-preview"
)

// Tools holds the collaborators every static handler needs.
type Tools struct {
	Client      *armclient.Client
	Tokens      auth.TokenProvider
	Context     armcontext.Context
	Registry    *toolregistry.Registry
	Coordinator *lifecycle.Coordinator
}

// RegisterAll registers the six static tools against reg.
func (t *Tools) RegisterAll(reg registrar.Registrar) error {
	registrations := []struct {
		name        string
		description string
		schema      *schemagen.ParamSpecs
		handler     registrar.Handler
	}{
		{"list_managed_apis", "List the managed APIs (connectors) available in a location.", listManagedAPIsSchema(), t.listManagedAPIs},
		{"put_connection", "Create or update an API connection, then register its operations as tools.", putConnectionSchema(), t.putConnection},
		{"list_connections", "List the API connections in the target resource group.", schemagen.NewParamSpecs(), t.listConnections},
		{"get_consent_link", "Get an OAuth consent link for an API connection.", getConsentLinkSchema(), t.getConsentLink},
		{"list_dynamic_tools", "List the dynamically registered tools currently available.", schemagen.NewParamSpecs(), t.listDynamicTools},
		{"refresh_tools", "Re-scan connections and register any newly available operations.", schemagen.NewParamSpecs(), t.refreshTools},
	}
	for _, r := range registrations {
		if err := reg.Register(r.name, r.description, r.schema, r.handler); err != nil {
			return fmt.Errorf("connectors: registering %s: %w", r.name, err)
		}
	}
	return nil
}

func listManagedAPIsSchema() *schemagen.ParamSpecs {
	specs := schemagen.NewParamSpecs()
	specs.Set("location", schemagen.ParamSpec{Kind: schemagen.KindString, Description: "ARM location; defaults to the server's configured location."})
	specs.Set("microsoftOnly", schemagen.ParamSpec{Kind: schemagen.KindBoolean, Default: true, Description: "Restrict to first-party Microsoft connectors."})
	return specs
}

func putConnectionSchema() *schemagen.ParamSpecs {
	specs := schemagen.NewParamSpecs()
	specs.Set("connectionName", schemagen.ParamSpec{Kind: schemagen.KindString, Required: true})
	specs.Set("managedApiName", schemagen.ParamSpec{Kind: schemagen.KindString, Required: true})
	specs.Set("displayName", schemagen.ParamSpec{Kind: schemagen.KindString, Required: true})
	specs.Set("parameterValues", schemagen.ParamSpec{Kind: schemagen.KindObject, Description: "Connector-specific authorization parameters."})
	specs.Set("location", schemagen.ParamSpec{Kind: schemagen.KindString, Description: "ARM location; defaults to the server's configured location."})
	return specs
}

func getConsentLinkSchema() *schemagen.ParamSpecs {
	specs := schemagen.NewParamSpecs()
	specs.Set("connectionName", schemagen.ParamSpec{Kind: schemagen.KindString, Required: true})
	specs.Set("objectId", schemagen.ParamSpec{Kind: schemagen.KindString, Required: true})
	specs.Set("tenantId", schemagen.ParamSpec{Kind: schemagen.KindString, Default: "common"})
	return specs
}

func (t *Tools) acquireToken(ctx context.Context) (string, error) {
	return t.Tokens.Acquire(ctx)
}

func (t *Tools) listManagedAPIs(ctx context.Context, params map[string]interface{}) registrar.Result {
	location, _ := params["location"].(string)
	if location == "" {
		location = t.Context.Location
	}
	microsoftOnly := true
	if v, ok := params["microsoftOnly"].(bool); ok {
		microsoftOnly = v
	}

	token, err := t.acquireToken(ctx)
	if err != nil {
		return registrar.ErrorResult(err.Error())
	}
	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Web/locations/%s/managedApis", t.Context.SubscriptionID, location)
	result, err := t.Client.Do(ctx, "GET", path, token, armclient.Options{})
	if err != nil {
		return registrar.ErrorResult(err.Error())
	}

	apis := filterManagedAPIs(result, microsoftOnly)
	return textResult(apis)
}

// filterManagedAPIs keeps only first-party connectors when microsoftOnly is
// set, judged by properties.metadata.publisher being absent or "Microsoft":
// custom/ISV connectors are the only ones that populate this field with
// something else.
func filterManagedAPIs(result map[string]interface{}, microsoftOnly bool) []map[string]interface{} {
	value, _ := result["value"].([]interface{})
	out := make([]map[string]interface{}, 0, len(value))
	for _, item := range value {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if microsoftOnly && !isMicrosoftPublished(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func isMicrosoftPublished(api map[string]interface{}) bool {
	props, ok := api["properties"].(map[string]interface{})
	if !ok {
		return true
	}
	metadata, ok := props["metadata"].(map[string]interface{})
	if !ok {
		return true
	}
	publisher, ok := metadata["publisher"].(string)
	if !ok || publisher == "" {
		return true
	}
	return publisher == "Microsoft"
}

func (t *Tools) putConnection(ctx context.Context, params map[string]interface{}) registrar.Result {
	connectionName, _ := params["connectionName"].(string)
	managedApiName, _ := params["managedApiName"].(string)
	displayName, _ := params["displayName"].(string)
	location, _ := params["location"].(string)
	if location == "" {
		location = t.Context.Location
	}
	parameterValues, _ := params["parameterValues"].(map[string]interface{})

	token, err := t.acquireToken(ctx)
	if err != nil {
		return registrar.ErrorResult(err.Error())
	}

	apiID := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Web/locations/%s/managedApis/%s", t.Context.SubscriptionID, location, managedApiName)
	body := map[string]interface{}{
		"properties": map[string]interface{}{
			"displayName": displayName,
			"api":         map[string]interface{}{"id": apiID},
		},
	}
	if len(parameterValues) > 0 {
		body["properties"].(map[string]interface{})["parameterValues"] = parameterValues
	}

	path := fmt.Sprintf("%s/providers/Microsoft.Web/connections/%s", t.Context.ResourceGroupID(), connectionName)
	result, err := t.Client.Do(ctx, "PUT", path, token, armclient.Options{Body: body})
	if err != nil {
		return registrar.ErrorResult(err.Error())
	}

	conn := connectionInfoFromPutResult(result, managedApiName, displayName)
	response := map[string]interface{}{"connection": conn}

	if t.Coordinator != nil {
		tally, err := t.Coordinator.IncrementalRegister(ctx, conn)
		if err != nil {
			return registrar.ErrorResult(err.Error())
		}
		if tally.Registered > 0 {
			response["dynamicTools"] = map[string]interface{}{"registered": tally.Registered, "skipped": tally.Skipped}
		}
	}
	return textResult(response)
}

func connectionInfoFromPutResult(result map[string]interface{}, fallbackAPIName, fallbackDisplayName string) armcontext.ConnectionInfo {
	conn := armcontext.ConnectionInfo{
		APIName:     fallbackAPIName,
		DisplayName: fallbackDisplayName,
		Status:      armcontext.StatusUnknown,
	}
	if name, ok := result["name"].(string); ok {
		conn.Name = name
	}
	if id, ok := result["id"].(string); ok {
		conn.APIID = id
	}
	if props, ok := result["properties"].(map[string]interface{}); ok {
		if dn, ok := props["displayName"].(string); ok && dn != "" {
			conn.DisplayName = dn
		}
		if statuses, ok := props["statuses"].([]interface{}); ok && len(statuses) > 0 {
			if first, ok := statuses[0].(map[string]interface{}); ok {
				if s, ok := first["status"].(string); ok && s != "" {
					conn.Status = armcontext.ConnectionStatus(s)
				}
			}
		}
	}
	return conn
}

func (t *Tools) listConnections(ctx context.Context, _ map[string]interface{}) registrar.Result {
	token, err := t.acquireToken(ctx)
	if err != nil {
		return registrar.ErrorResult(err.Error())
	}
	path := fmt.Sprintf("%s/providers/Microsoft.Web/connections", t.Context.ResourceGroupID())
	result, err := t.Client.Do(ctx, "GET", path, token, armclient.Options{})
	if err != nil {
		return registrar.ErrorResult(err.Error())
	}
	return textResult(result)
}

func (t *Tools) getConsentLink(ctx context.Context, params map[string]interface{}) registrar.Result {
	connectionName, _ := params["connectionName"].(string)
	objectID, _ := params["objectId"].(string)
	tenantID, _ := params["tenantId"].(string)
	if tenantID == "" {
		tenantID = "common"
	}

	token, err := t.acquireToken(ctx)
	if err != nil {
		return registrar.ErrorResult(err.Error())
	}

	body := map[string]interface{}{
		"objectId": objectID,
		"tenantId": tenantID,
		"parameters": []map[string]interface{}{
			{"parameterName": "token", "redirectUrl": "http://localhost:8080"},
		},
	}
	path := fmt.Sprintf("%s/providers/Microsoft.Web/connections/%s/listConsentLinks", t.Context.ResourceGroupID(), connectionName)
	result, err := t.Client.Do(ctx, "POST", path, token, armclient.Options{APIVersion: consentAPIVersion, Body: body})
	if err != nil {
		return registrar.ErrorResult(err.Error())
	}
	return textResult(result)
}

func (t *Tools) listDynamicTools(_ context.Context, _ map[string]interface{}) registrar.Result {
	entries := t.Registry.Snapshot()
	summaries := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, map[string]interface{}{
			"name":        e.ToolName,
			"description": e.Description,
			"apiName":     e.Connection.APIName,
		})
	}
	return textResult(summaries)
}

func (t *Tools) refreshTools(ctx context.Context, _ map[string]interface{}) registrar.Result {
	if t.Coordinator == nil {
		return registrar.ErrorResult("refresh_tools: no lifecycle coordinator configured")
	}
	tally, err := t.Coordinator.Refresh(ctx)
	if err != nil {
		return registrar.ErrorResult(err.Error())
	}
	return registrar.TextResult(tally.String())
}

func textResult(v interface{}) registrar.Result {
	encoded, err := json.Marshal(v)
	if err != nil {
		return registrar.ErrorResult(err.Error())
	}
	return registrar.TextResult(string(encoded))
}
