// Package lifecycle implements component F: the startup scan, incremental
// registration on a new connection, and the cache-only refresh, each of
// which compiles connections into tools by chaining the ARM pipeline, the
// OpenAPI parser/filter/schema-generator, and the tool registry.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/azure-connectors/arm-mcp-server/internal/armclient"
	"github.com/azure-connectors/arm-mcp-server/internal/armcontext"
	"github.com/azure-connectors/arm-mcp-server/internal/auth"
	"github.com/azure-connectors/arm-mcp-server/internal/invoke"
	"github.com/azure-connectors/arm-mcp-server/internal/registrar"
	"github.com/azure-connectors/arm-mcp-server/internal/schemagen"
	"github.com/azure-connectors/arm-mcp-server/internal/swagger"
	"github.com/azure-connectors/arm-mcp-server/internal/toolregistry"
)

// Tally is the {registered, skipped, errors} count every entry point
// returns.
type Tally struct {
	Registered int
	Skipped    int
	Errors     int
}

func (t Tally) String() string {
	return fmt.Sprintf("registered=%d skipped=%d errors=%d", t.Registered, t.Skipped, t.Errors)
}

// Coordinator owns no state of its own beyond its collaborators: the
// registry and cache it compiles into are injected, per the design note
// that they're unavoidable process singletons exposed behind narrow
// interfaces.
type Coordinator struct {
	Client   *armclient.Client
	Tokens   auth.TokenProvider
	Registry *toolregistry.Registry
	Cache    *toolregistry.SchemaCache
	Tools    registrar.Registrar
	Context  armcontext.Context
}

// StartupScan lists every connection in the target resource group and
// compiles each one's operations into tools. Per-connection failures are
// contained: one bad connection never aborts the scan.
func (co *Coordinator) StartupScan(ctx context.Context) (Tally, error) {
	token, err := co.Tokens.Acquire(ctx)
	if err != nil {
		return Tally{}, fmt.Errorf("lifecycle: acquiring token: %w", err)
	}

	connectionsPath := fmt.Sprintf("%s/providers/Microsoft.Web/connections", co.Context.ResourceGroupID())
	result, err := co.Client.Do(ctx, "GET", connectionsPath, token, armclient.Options{})
	if err != nil {
		return Tally{}, fmt.Errorf("lifecycle: listing connections: %w", err)
	}

	connections := parseConnections(result)
	var total Tally
	for _, conn := range connections {
		t := co.registerForConnection(ctx, conn, token)
		total.Registered += t.Registered
		total.Skipped += t.Skipped
		total.Errors += t.Errors
	}
	return total, nil
}

// IncrementalRegister is called from put_connection after a successful PUT.
// If the API is already represented in the registry it short-circuits with
// an all-zero tally; otherwise it compiles just this connection's API and
// emits notifications/tools/list_changed exactly once on net-positive
// registration.
func (co *Coordinator) IncrementalRegister(ctx context.Context, conn armcontext.ConnectionInfo) (Tally, error) {
	if co.Registry.HasPrefix(conn.APIName) {
		return Tally{}, nil
	}
	token, err := co.Tokens.Acquire(ctx)
	if err != nil {
		return Tally{}, fmt.Errorf("lifecycle: acquiring token: %w", err)
	}
	t := co.registerForConnection(ctx, conn, token)
	if t.Registered > 0 {
		co.Tools.NotifyListChanged()
	}
	return t, nil
}

// Refresh clears the schema cache only — by design the registry is never
// cleared, so refresh is additive: already-registered APIs short-circuit by
// name collision, and newly appeared APIs register their operations.
func (co *Coordinator) Refresh(ctx context.Context) (Tally, error) {
	co.Cache.CacheClear()
	return co.StartupScan(ctx)
}

func (co *Coordinator) registerForConnection(ctx context.Context, conn armcontext.ConnectionInfo, token string) Tally {
	var t Tally
	rawDoc, err := co.fetchManagedAPIDoc(ctx, conn, token)
	if err != nil {
		log.Printf("lifecycle: fetching managed API document for %s: %v", conn.APIName, err)
		t.Errors++
		return t
	}
	if rawDoc == nil {
		log.Printf("lifecycle: %s has no embedded Swagger document, skipping", conn.APIName)
		return t
	}
	co.Cache.CachePut(conn.APIName, rawDoc)

	ops, err := swagger.Parse(rawDoc, conn.APIName)
	if err != nil {
		log.Printf("lifecycle: parsing Swagger for %s: %v", conn.APIName, err)
		return t // SchemaError: skip this API, the scan continues.
	}
	ops = swagger.Filter(ops)

	for _, op := range ops {
		name := toolregistry.BuildToolName(conn.APIName, op.OperationID)
		description := toolregistry.BuildDescription(conn.DisplayName, op.SummaryOrDescription(), string(conn.Status))
		specs := schemagen.Generate(op)

		entry := toolregistry.Entry{Description: description, InputSchema: specs, Connection: conn, Operation: op}
		if err := co.Registry.Put(name, entry); err != nil {
			t.Skipped++
			continue
		}
		if co.Tools != nil {
			if err := co.Tools.Register(name, description, specs, co.dynamicHandler(conn, op)); err != nil {
				t.Skipped++
				continue
			}
		}
		t.Registered++
	}
	return t
}

// fetchManagedAPIDoc fetches the managed-API document (serving it from
// cache when present) and extracts the embedded Swagger document as raw
// bytes, ready for swagger.Parse.
func (co *Coordinator) fetchManagedAPIDoc(ctx context.Context, conn armcontext.ConnectionInfo, token string) ([]byte, error) {
	if cached, ok := co.Cache.CacheGet(conn.APIName); ok {
		return cached, nil
	}

	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Web/locations/%s/managedApis/%s", co.Context.SubscriptionID, co.Context.Location, conn.APIName)
	result, err := co.Client.Do(ctx, "GET", path, token, armclient.Options{Query: map[string]string{"export": "true"}})
	if err != nil {
		return nil, err
	}
	return extractSwagger(result)
}

// extractSwagger pulls properties.swagger out of a decoded managed-API ARM
// response and re-encodes it as raw bytes for the parser. It returns nil,
// nil (not an error) when no embedded Swagger is present.
func extractSwagger(result map[string]interface{}) ([]byte, error) {
	props, ok := result["properties"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	swaggerDoc, ok := props["swagger"]
	if !ok {
		return nil, nil
	}
	return json.Marshal(swaggerDoc)
}

// parseConnections projects a decoded ARM connections-list response into
// ConnectionInfo values, skipping any entry that fails the non-empty
// name/apiName invariant.
func parseConnections(result map[string]interface{}) []armcontext.ConnectionInfo {
	raw, ok := result["value"].([]interface{})
	if !ok {
		return nil
	}
	var out []armcontext.ConnectionInfo
	for _, item := range raw {
		conn, ok := connectionFromARM(item)
		if ok && conn.Valid() {
			out = append(out, conn)
		}
	}
	return out
}

func connectionFromARM(item interface{}) (armcontext.ConnectionInfo, bool) {
	m, ok := item.(map[string]interface{})
	if !ok {
		return armcontext.ConnectionInfo{}, false
	}
	conn := armcontext.ConnectionInfo{
		Name:  stringField(m, "name"),
		APIID: stringField(m, "id"),
	}
	props, _ := m["properties"].(map[string]interface{})
	if props != nil {
		conn.DisplayName = stringField(props, "displayName")
		if status := statusFromProperties(props); status != "" {
			conn.Status = status
		}
		if api, ok := props["api"].(map[string]interface{}); ok {
			conn.APIName = stringField(api, "name")
		}
	}
	return conn, true
}

// statusFromProperties reads the first element of properties.statuses[],
// which is how ARM actually represents connection status (a list of
// {status} objects rather than a scalar field).
func statusFromProperties(props map[string]interface{}) armcontext.ConnectionStatus {
	statuses, ok := props["statuses"].([]interface{})
	if !ok || len(statuses) == 0 {
		return ""
	}
	first, ok := statuses[0].(map[string]interface{})
	if !ok {
		return ""
	}
	return armcontext.ConnectionStatus(stringField(first, "status"))
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// dynamicHandler closes over the connection and operation to build the
// registrar.Handler for one generated tool: translate params into a
// dynamicInvoke envelope, POST it, and unwrap the result.
func (co *Coordinator) dynamicHandler(conn armcontext.ConnectionInfo, op swagger.ParsedOperation) registrar.Handler {
	return func(ctx context.Context, params map[string]interface{}) registrar.Result {
		envelope, err := invoke.Translate(conn, op, params)
		if err != nil {
			return registrar.ErrorResult(err.Error())
		}

		token, err := co.Tokens.Acquire(ctx)
		if err != nil {
			return registrar.ErrorResult(fmt.Sprintf("Error invoking %s/%s: %s", conn.APIName, op.OperationID, err))
		}

		invokePath := fmt.Sprintf("%s/providers/Microsoft.Web/connections/%s/dynamicInvoke", co.Context.ResourceGroupID(), conn.Name)
		result, err := co.Client.Do(ctx, "POST", invokePath, token, armclient.Options{Body: envelope})
		if err != nil {
			return registrar.ErrorResult(fmt.Sprintf("Error invoking %s/%s: %s", conn.APIName, op.OperationID, err))
		}

		extracted := invoke.ExtractResult(result)
		text, err := json.Marshal(extracted)
		if err != nil {
			return registrar.ErrorResult(fmt.Sprintf("Error invoking %s/%s: %s", conn.APIName, op.OperationID, err))
		}
		return registrar.TextResult(string(text))
	}
}
