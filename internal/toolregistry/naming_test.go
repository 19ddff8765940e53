package toolregistry

import "testing"

func TestToSnakeCaseKnownExamples(t *testing.T) {
	cases := map[string]string{
		"SendEmail":          "send_email",
		"GetAllTeams":        "get_all_teams",
		"V4CalendarPostItem": "v4_calendar_post_item",
	}
	for in, want := range cases {
		if got := toSnakeCase(in); got != want {
			t.Fatalf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildToolNameComposesApiAndSnakeCase(t *testing.T) {
	got := buildToolName("office365", "SendEmail")
	if got != "office365_send_email" {
		t.Fatalf("unexpected tool name: %q", got)
	}
}

func TestBuildToolNameTruncatesTo64(t *testing.T) {
	longOp := "ThisIsAVeryLongOperationIdentifierThatShouldPushThePrefixedNameOverTheLimit"
	got := buildToolName("office365", longOp)
	if len(got) != 64 {
		t.Fatalf("expected truncation to 64 chars, got length %d (%q)", len(got), got)
	}
}

func TestBuildDescriptionAppendsUnauthenticatedSuffix(t *testing.T) {
	connected := buildDescription("My Mailbox", "Send an email", "Connected")
	if connected != "[My Mailbox] Send an email" {
		t.Fatalf("unexpected description for connected status: %q", connected)
	}
	unauth := buildDescription("My Mailbox", "Send an email", "Error")
	want := "[My Mailbox] Send an email ⚠️ Connection not authenticated"
	if unauth != want {
		t.Fatalf("unexpected description for error status: got %q want %q", unauth, want)
	}
}
