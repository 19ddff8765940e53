package lifecycle

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/azure-connectors/arm-mcp-server/internal/armclient"
	"github.com/azure-connectors/arm-mcp-server/internal/armcontext"
	"github.com/azure-connectors/arm-mcp-server/internal/registrar"
	"github.com/azure-connectors/arm-mcp-server/internal/toolregistry"
)

type stubTokenProvider struct{ token string }

func (s stubTokenProvider) Acquire(ctx context.Context) (string, error) { return s.token, nil }

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       noOpReadCloser{strings.NewReader(body)},
		Header:     make(http.Header),
	}
}

type noOpReadCloser struct{ *strings.Reader }

func (noOpReadCloser) Close() error { return nil }

const slackConnectionsList = `{
  "value": [
    {
      "name": "slack",
      "id": "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Web/connections/slack",
      "properties": {
        "displayName": "My Slack",
        "statuses": [{"status": "Connected"}],
        "api": {"name": "slack"}
      }
    }
  ]
}`

const slackManagedAPIDoc = `{
  "properties": {
    "swagger": {
      "swagger": "2.0",
      "paths": {
        "/{connectionId}/postMessage": {
          "post": {
            "operationId": "PostMessage",
            "summary": "Post a message",
            "parameters": [
              {"name": "connectionId", "in": "path", "required": true, "type": "string"},
              {"name": "body", "in": "body", "schema": {"$ref": "#/definitions/PostMessageRequest"}}
            ],
            "responses": {}
          }
        }
      },
      "definitions": {
        "PostMessageRequest": {
          "type": "object",
          "required": ["Text"],
          "properties": {"Text": {"type": "string"}}
        }
      }
    }
  }
}`

func newTestCoordinator(t *testing.T, rt roundTripFunc) (*Coordinator, *toolregistry.Registry, *registrar.Server) {
	t.Helper()
	client := armclient.New()
	client.UseTransportForTesting(rt)
	registry := toolregistry.New()
	tools := registrar.NewServer()
	co := &Coordinator{
		Client:   client,
		Tokens:   stubTokenProvider{token: "test-token"},
		Registry: registry,
		Cache:    toolregistry.NewSchemaCache(),
		Tools:    tools,
		Context:  armcontext.Context{SubscriptionID: "s", ResourceGroup: "rg", Location: "westus"},
	}
	return co, registry, tools
}

func TestStartupScanRegistersOperationsForEachConnection(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(req.URL.Path, "/connections") && req.Method == http.MethodGet:
			return jsonResponse(200, slackConnectionsList), nil
		case strings.Contains(req.URL.Path, "/managedApis/slack"):
			return jsonResponse(200, slackManagedAPIDoc), nil
		default:
			return jsonResponse(404, "{}"), nil
		}
	})
	co, registry, _ := newTestCoordinator(t, rt)

	tally, err := co.StartupScan(context.Background())
	if err != nil {
		t.Fatalf("StartupScan failed: %v", err)
	}
	if tally.Registered != 1 || tally.Errors != 0 {
		t.Fatalf("unexpected tally: %+v", tally)
	}
	if !registry.HasPrefix("slack") {
		t.Fatal("expected slack_ prefixed tool in registry")
	}
}

func TestIncrementalRegisterShortCircuitsOnSecondCall(t *testing.T) {
	fetches := 0
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if strings.Contains(req.URL.Path, "/managedApis/slack") {
			fetches++
			return jsonResponse(200, slackManagedAPIDoc), nil
		}
		return jsonResponse(404, "{}"), nil
	})
	co, _, tools := newTestCoordinator(t, rt)

	conn := armcontext.ConnectionInfo{Name: "slack", APIName: "slack", DisplayName: "My Slack", Status: armcontext.StatusConnected}

	notifications := 0
	tools.OnListChanged(func() { notifications++ })

	first, err := co.IncrementalRegister(context.Background(), conn)
	if err != nil {
		t.Fatalf("first IncrementalRegister failed: %v", err)
	}
	if first.Registered == 0 {
		t.Fatalf("expected net-positive registration on first call, got %+v", first)
	}
	if notifications != 1 {
		t.Fatalf("expected exactly one notification after first call, got %d", notifications)
	}

	second, err := co.IncrementalRegister(context.Background(), conn)
	if err != nil {
		t.Fatalf("second IncrementalRegister failed: %v", err)
	}
	if second.Registered != 0 || second.Skipped != 0 || second.Errors != 0 {
		t.Fatalf("expected all-zero tally on short-circuit, got %+v", second)
	}
	if notifications != 1 {
		t.Fatalf("expected no additional notification on short-circuit, got %d", notifications)
	}
	if fetches != 1 {
		t.Fatalf("expected the Swagger document to be fetched only once, got %d", fetches)
	}
}

func TestRegisterForConnectionContainsFailuresAcrossConnections(t *testing.T) {
	const twoConnections = `{
      "value": [
        {"name": "bad", "properties": {"displayName": "Bad", "statuses": [{"status": "Connected"}], "api": {"name": "bad"}}},
        {"name": "slack", "properties": {"displayName": "My Slack", "statuses": [{"status": "Connected"}], "api": {"name": "slack"}}}
      ]
    }`
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(req.URL.Path, "/connections") && req.Method == http.MethodGet:
			return jsonResponse(200, twoConnections), nil
		case strings.Contains(req.URL.Path, "/managedApis/bad"):
			return jsonResponse(500, "{}"), nil
		case strings.Contains(req.URL.Path, "/managedApis/slack"):
			return jsonResponse(200, slackManagedAPIDoc), nil
		default:
			return jsonResponse(404, "{}"), nil
		}
	})
	co, registry, _ := newTestCoordinator(t, rt)

	tally, err := co.StartupScan(context.Background())
	if err != nil {
		t.Fatalf("StartupScan failed: %v", err)
	}
	if tally.Registered != 1 {
		t.Fatalf("expected the good connection to still register, got %+v", tally)
	}
	if tally.Errors == 0 {
		t.Fatalf("expected the bad connection's fetch failure to be tallied, got %+v", tally)
	}
	if !registry.HasPrefix("slack") {
		t.Fatal("expected slack to have registered despite bad's failure")
	}
}

func TestRefreshClearsCacheButNotRegistry(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(req.URL.Path, "/connections") && req.Method == http.MethodGet:
			return jsonResponse(200, slackConnectionsList), nil
		case strings.Contains(req.URL.Path, "/managedApis/slack"):
			return jsonResponse(200, slackManagedAPIDoc), nil
		default:
			return jsonResponse(404, "{}"), nil
		}
	})
	co, registry, _ := newTestCoordinator(t, rt)

	if _, err := co.StartupScan(context.Background()); err != nil {
		t.Fatalf("initial scan failed: %v", err)
	}
	sizeBefore := registry.Len()

	if _, err := co.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if registry.Len() != sizeBefore {
		t.Fatalf("expected refresh to leave registry size unchanged (collisions skip), got %d want %d", registry.Len(), sizeBefore)
	}
	if co.Cache.Len() == 0 {
		t.Fatal("expected refresh to have re-populated the cache after clearing it")
	}
}
