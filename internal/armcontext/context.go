// Package armcontext holds the process-wide ARM coordinates every other
// component is parameterized by.
package armcontext

import "fmt"

// Context is the process-wide {subscriptionId, resourceGroup, location}
// tuple. It never changes after the process starts.
type Context struct {
	SubscriptionID string
	ResourceGroup  string
	Location       string
}

// ResourceGroupID returns the ARM resource id of the target resource group.
func (c Context) ResourceGroupID() string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s", c.SubscriptionID, c.ResourceGroup)
}

// ConnectionStatus is the lifecycle state of an ARM connection resource.
type ConnectionStatus string

const (
	StatusConnected       ConnectionStatus = "Connected"
	StatusUnauthenticated ConnectionStatus = "Unauthenticated"
	StatusError           ConnectionStatus = "Error"
	StatusUnknown         ConnectionStatus = "Unknown"
)

// ConnectionInfo is derived from an ARM connection resource (kind
// Microsoft.Web/connections).
type ConnectionInfo struct {
	Name        string
	APIName     string
	DisplayName string
	Status      ConnectionStatus
	APIID       string
}

// Valid reports whether the connection info satisfies the invariant that
// apiName and name are both non-empty.
func (c ConnectionInfo) Valid() bool {
	return c.Name != "" && c.APIName != ""
}
