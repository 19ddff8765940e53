package swagger

import "testing"

func TestFilterDropsInternalTriggerAndSubscriptions(t *testing.T) {
	ops := []ParsedOperation{
		{OperationID: "Internal", Visibility: VisibilityInternal},
		{OperationID: "Trigger", IsTrigger: true},
		{OperationID: "SubscriptionHook", Path: "/{connectionId}/$subscriptions/1"},
		{OperationID: "Keep"},
	}
	out := Filter(ops)
	if len(out) != 1 || out[0].OperationID != "Keep" {
		t.Fatalf("expected only Keep to survive, got %+v", out)
	}
}

func TestFamilyDedupKeepsMaxRevision(t *testing.T) {
	ops := []ParsedOperation{
		{OperationID: "DeleteMessage", Deprecated: true, APIAnnotation: &APIAnnotation{Family: "DeleteMessage", Revision: 1}},
		{OperationID: "DeleteMessageV2", APIAnnotation: &APIAnnotation{Family: "DeleteMessage", Revision: 2}},
	}
	out := Filter(ops)
	if len(out) != 1 || out[0].OperationID != "DeleteMessageV2" {
		t.Fatalf("expected only DeleteMessageV2 to survive, got %+v", out)
	}
}

func TestFamilyDedupTieKeepsFirstSeen(t *testing.T) {
	ops := []ParsedOperation{
		{OperationID: "First", APIAnnotation: &APIAnnotation{Family: "F", Revision: 1}},
		{OperationID: "Second", APIAnnotation: &APIAnnotation{Family: "F", Revision: 1}},
	}
	out := Filter(ops)
	if len(out) != 1 || out[0].OperationID != "First" {
		t.Fatalf("expected tie to keep first seen, got %+v", out)
	}
}

func TestNonFamilyDeprecatedDropped(t *testing.T) {
	ops := []ParsedOperation{
		{OperationID: "OldNoFamily", Deprecated: true},
		{OperationID: "CurrentNoFamily"},
	}
	out := Filter(ops)
	if len(out) != 1 || out[0].OperationID != "CurrentNoFamily" {
		t.Fatalf("expected only non-deprecated to survive, got %+v", out)
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	ops := []ParsedOperation{
		{OperationID: "A"},
		{OperationID: "B", Visibility: VisibilityInternal},
		{OperationID: "C"},
		{OperationID: "D"},
	}
	out := Filter(ops)
	if len(out) != 3 || out[0].OperationID != "A" || out[1].OperationID != "C" || out[2].OperationID != "D" {
		t.Fatalf("unexpected order: %+v", out)
	}
}
