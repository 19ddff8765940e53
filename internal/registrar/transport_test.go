package registrar

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/azure-connectors/arm-mcp-server/internal/schemagen"
)

func TestStdioTransportInitializeAdvertisesListChanged(t *testing.T) {
	s := NewServer()
	var out bytes.Buffer
	in := strings.NewReader(`{"id":1,"method":"initialize"}` + "\n")
	transport := NewStdioTransport(s, in, &out)

	if err := transport.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	caps := resp["result"].(map[string]interface{})["capabilities"].(map[string]interface{})
	tools := caps["tools"].(map[string]interface{})
	if tools["listChanged"] != true {
		t.Fatalf("expected tools.listChanged=true, got %+v", tools)
	}
}

func TestStdioTransportToolsCallRoundTrip(t *testing.T) {
	s := NewServer()
	specs := schemagen.NewParamSpecs()
	specs.Set("Subject", schemagen.ParamSpec{Kind: schemagen.KindString, Required: true})
	_ = s.Register("send_email", "[Mailbox] Send an email", specs, func(ctx context.Context, params map[string]interface{}) Result {
		return TextResult("sent: " + params["Subject"].(string))
	})

	var out bytes.Buffer
	reqLine := `{"id":2,"method":"tools/call","params":{"name":"send_email","arguments":{"Subject":"Hello"}}}` + "\n"
	transport := NewStdioTransport(s, strings.NewReader(reqLine), &out)

	if err := transport.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	result := resp["result"].(map[string]interface{})
	content := result["content"].([]interface{})
	first := content[0].(map[string]interface{})
	if first["text"] != "sent: Hello" {
		t.Fatalf("unexpected content: %+v", first)
	}
}

func TestStdioTransportListChangedNotificationIsWritten(t *testing.T) {
	s := NewServer()
	var out bytes.Buffer
	_ = NewStdioTransport(s, strings.NewReader(""), &out)

	s.NotifyListChanged()

	if !strings.Contains(out.String(), "notifications/tools/list_changed") {
		t.Fatalf("expected notification line to be written, got %q", out.String())
	}
}
