package connectors

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/azure-connectors/arm-mcp-server/internal/armclient"
	"github.com/azure-connectors/arm-mcp-server/internal/armcontext"
	"github.com/azure-connectors/arm-mcp-server/internal/lifecycle"
	"github.com/azure-connectors/arm-mcp-server/internal/registrar"
	"github.com/azure-connectors/arm-mcp-server/internal/toolregistry"
)

type stubTokenProvider struct{ token string }

func (s stubTokenProvider) Acquire(ctx context.Context) (string, error) { return s.token, nil }

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newJSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTools(t *testing.T, rt roundTripFunc) *Tools {
	t.Helper()
	client := armclient.New()
	client.UseTransportForTesting(rt)
	return &Tools{
		Client:   client,
		Tokens:   stubTokenProvider{token: "test-token"},
		Context:  armcontext.Context{SubscriptionID: "s", ResourceGroup: "rg", Location: "westus"},
		Registry: toolregistry.New(),
	}
}

func TestListManagedAPIsFiltersThirdParty(t *testing.T) {
	const body = `{
      "value": [
        {"name": "office365", "properties": {}},
        {"name": "customConnector", "properties": {"metadata": {"publisher": "Contoso"}}}
      ]
    }`
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return newJSONResponse(200, body), nil
	})
	tools := newTools(t, rt)

	res := tools.listManagedAPIs(context.Background(), map[string]interface{}{})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Text)
	}
	var apis []map[string]interface{}
	if err := json.Unmarshal([]byte(res.Text), &apis); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(apis) != 1 || apis[0]["name"] != "office365" {
		t.Fatalf("expected only office365 to survive the microsoftOnly filter, got %+v", apis)
	}
}

func TestListManagedAPIsMicrosoftOnlyFalseKeepsAll(t *testing.T) {
	const body = `{
      "value": [
        {"name": "office365", "properties": {}},
        {"name": "customConnector", "properties": {"metadata": {"publisher": "Contoso"}}}
      ]
    }`
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return newJSONResponse(200, body), nil
	})
	tools := newTools(t, rt)

	res := tools.listManagedAPIs(context.Background(), map[string]interface{}{"microsoftOnly": false})
	var apis []map[string]interface{}
	_ = json.Unmarshal([]byte(res.Text), &apis)
	if len(apis) != 2 {
		t.Fatalf("expected both connectors when microsoftOnly is false, got %+v", apis)
	}
}

func TestPutConnectionTriggersIncrementalRegistration(t *testing.T) {
	const putResponse = `{
      "name": "slack",
      "properties": {"displayName": "My Slack", "statuses": [{"status": "Connected"}]}
    }`
	const managedAPIDoc = `{
      "properties": {
        "swagger": {
          "swagger": "2.0",
          "paths": {
            "/{connectionId}/postMessage": {
              "post": {"operationId": "PostMessage", "parameters": [], "responses": {}}
            }
          }
        }
      }
    }`
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Method == http.MethodPut:
			return newJSONResponse(200, putResponse), nil
		case strings.Contains(req.URL.Path, "managedApis"):
			return newJSONResponse(200, managedAPIDoc), nil
		default:
			return newJSONResponse(404, "{}"), nil
		}
	})
	registry := toolregistry.New()
	tools := newTools(t, rt)
	tools.Registry = registry
	tools.Coordinator = &lifecycle.Coordinator{
		Client: tools.Client, Tokens: tools.Tokens, Registry: registry,
		Cache: toolregistry.NewSchemaCache(), Tools: registrar.NewServer(), Context: tools.Context,
	}

	res := tools.putConnection(context.Background(), map[string]interface{}{
		"connectionName": "slack", "managedApiName": "slack", "displayName": "My Slack",
	})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Text)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(res.Text), &decoded); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if _, ok := decoded["dynamicTools"]; !ok {
		t.Fatalf("expected dynamicTools summary on first PUT, got %+v", decoded)
	}
	if !registry.HasPrefix("slack") {
		t.Fatal("expected slack tools to be registered")
	}
}

func TestListDynamicToolsReturnsSnapshot(t *testing.T) {
	registry := toolregistry.New()
	_ = registry.Put("slack_post_message", toolregistry.Entry{
		Description: "[My Slack] Post a message",
		Connection:  armcontext.ConnectionInfo{APIName: "slack"},
	})
	tools := &Tools{Registry: registry}
	res := tools.listDynamicTools(context.Background(), nil)
	var summaries []map[string]interface{}
	if err := json.Unmarshal([]byte(res.Text), &summaries); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(summaries) != 1 || summaries[0]["name"] != "slack_post_message" {
		t.Fatalf("unexpected snapshot: %+v", summaries)
	}
}

func TestRefreshToolsWithoutCoordinatorReturnsError(t *testing.T) {
	tools := &Tools{}
	res := tools.refreshTools(context.Background(), nil)
	if !res.IsError {
		t.Fatal("expected error result when no coordinator is configured")
	}
}
