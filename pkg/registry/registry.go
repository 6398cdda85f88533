// Package registry maps logical resource types to the REST endpoints that
// serve them. The table is data-driven: adding a resource family is one
// entry, not a new code path.
//
// Two API surfaces are covered. ARM endpoints are addressed below a
// subscription or resource-group scope and carry an api-version query
// parameter; Graph endpoints live under a versioned path prefix and do not.
package registry

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/azurekid/blackcat-go/pkg/client"
)

// Surface identifies which API family an endpoint belongs to.
type Surface string

const (
	SurfaceARM   Surface = "arm"
	SurfaceGraph Surface = "graph"
)

// Template describes one resource family's endpoint.
type Template struct {
	// Path is the endpoint path with {placeholder} segments.
	Path string

	// APIVersion is sent as the api-version query parameter (ARM only).
	APIVersion string

	// Surface is the API family the path belongs to.
	Surface Surface

	// Paginated marks list endpoints that return results in pages.
	Paginated bool
}

// placeholders extracts the {name} parameters of a template path.
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z]+)\}`)

// templates is the resource-type table. Keys are the logical names callers
// use; values carry everything needed to build a request.
var templates = map[string]Template{
	"subscriptions": {
		Path:       "/subscriptions",
		APIVersion: "2022-12-01",
		Surface:    SurfaceARM,
		Paginated:  true,
	},
	"resourceGroups": {
		Path:       "/subscriptions/{subscriptionId}/resourcegroups",
		APIVersion: "2021-04-01",
		Surface:    SurfaceARM,
		Paginated:  true,
	},
	"resources": {
		Path:       "/subscriptions/{subscriptionId}/resources",
		APIVersion: "2021-04-01",
		Surface:    SurfaceARM,
		Paginated:  true,
	},
	"vaults": {
		Path:       "/subscriptions/{subscriptionId}/providers/Microsoft.KeyVault/vaults",
		APIVersion: "2023-07-01",
		Surface:    SurfaceARM,
		Paginated:  true,
	},
	"vaultSecrets": {
		Path:       "/subscriptions/{subscriptionId}/resourceGroups/{resourceGroup}/providers/Microsoft.KeyVault/vaults/{vaultName}/secrets",
		APIVersion: "2023-07-01",
		Surface:    SurfaceARM,
		Paginated:  true,
	},
	"storageAccounts": {
		Path:       "/subscriptions/{subscriptionId}/providers/Microsoft.Storage/storageAccounts",
		APIVersion: "2023-05-01",
		Surface:    SurfaceARM,
		Paginated:  true,
	},
	"virtualMachines": {
		Path:       "/subscriptions/{subscriptionId}/providers/Microsoft.Compute/virtualMachines",
		APIVersion: "2024-07-01",
		Surface:    SurfaceARM,
		Paginated:  true,
	},
	"networkSecurityGroups": {
		Path:       "/subscriptions/{subscriptionId}/providers/Microsoft.Network/networkSecurityGroups",
		APIVersion: "2024-01-01",
		Surface:    SurfaceARM,
		Paginated:  true,
	},
	"roleAssignments": {
		Path:       "/subscriptions/{subscriptionId}/providers/Microsoft.Authorization/roleAssignments",
		APIVersion: "2022-04-01",
		Surface:    SurfaceARM,
		Paginated:  true,
	},
	"roleDefinitions": {
		Path:       "/subscriptions/{subscriptionId}/providers/Microsoft.Authorization/roleDefinitions",
		APIVersion: "2022-04-01",
		Surface:    SurfaceARM,
		Paginated:  true,
	},
	"policyAssignments": {
		Path:       "/subscriptions/{subscriptionId}/providers/Microsoft.Authorization/policyAssignments",
		APIVersion: "2023-04-01",
		Surface:    SurfaceARM,
		Paginated:  true,
	},
	"users": {
		Path:      "/v1.0/users",
		Surface:   SurfaceGraph,
		Paginated: true,
	},
	"groups": {
		Path:      "/v1.0/groups",
		Surface:   SurfaceGraph,
		Paginated: true,
	},
	"servicePrincipals": {
		Path:      "/v1.0/servicePrincipals",
		Surface:   SurfaceGraph,
		Paginated: true,
	},
	"applications": {
		Path:      "/v1.0/applications",
		Surface:   SurfaceGraph,
		Paginated: true,
	},
	"directoryRoles": {
		Path:      "/v1.0/directoryRoles",
		Surface:   SurfaceGraph,
		Paginated: true,
	},
	"groupMembers": {
		Path:      "/v1.0/groups/{groupId}/members",
		Surface:   SurfaceGraph,
		Paginated: true,
	},
}

// Types returns the registered resource types, sorted.
func Types() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the template for a resource type.
func Lookup(resourceType string) (Template, bool) {
	tpl, ok := templates[resourceType]
	return tpl, ok
}

// Resolve expands a resource type into a request path and query. Every
// {placeholder} in the template must be present in params; extra params are
// rejected so typos surface instead of being dropped.
func Resolve(resourceType string, params map[string]string) (string, url.Values, error) {
	tpl, ok := templates[resourceType]
	if !ok {
		return "", nil, fmt.Errorf("unknown resource type %q", resourceType)
	}

	required := make(map[string]bool)
	for _, match := range placeholderPattern.FindAllStringSubmatch(tpl.Path, -1) {
		required[match[1]] = true
	}

	path := tpl.Path
	for name, value := range params {
		if !required[name] {
			return "", nil, fmt.Errorf("resource type %q does not take parameter %q", resourceType, name)
		}
		if value == "" {
			return "", nil, fmt.Errorf("parameter %q is empty", name)
		}
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}

	for name := range required {
		if _, ok := params[name]; !ok {
			return "", nil, fmt.Errorf("resource type %q requires parameter %q", resourceType, name)
		}
	}

	query := url.Values{}
	if tpl.APIVersion != "" {
		query.Set("api-version", tpl.APIVersion)
	}
	return path, query, nil
}

// Descriptor resolves a resource type straight into a request descriptor,
// ready for Client.Fetch.
func Descriptor(resourceType string, params map[string]string) (client.Descriptor, error) {
	path, query, err := Resolve(resourceType, params)
	if err != nil {
		return client.Descriptor{}, err
	}

	tpl := templates[resourceType]
	q := make(map[string]string, len(query))
	for name := range query {
		q[name] = query.Get(name)
	}

	return client.Descriptor{
		Endpoint:  path,
		Method:    "GET",
		Query:     q,
		Paginated: tpl.Paginated,
	}, nil
}
