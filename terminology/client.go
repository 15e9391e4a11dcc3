package terminology

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	txclient "github.com/gofhir/txclient"
	"github.com/gofhir/txclient/params"
	"github.com/gofhir/txclient/rest"
	"github.com/gofhir/txclient/valueset"
)

// Resource types served by a terminology server.
const (
	ResourceTypeValueSet   = "ValueSet"
	ResourceTypeCodeSystem = "CodeSystem"
	ResourceTypeConceptMap = "ConceptMap"
)

var allowedTypes = []string{ResourceTypeCodeSystem, ResourceTypeConceptMap, ResourceTypeValueSet}

// AllowedResourceTypes returns the resource types a Client accepts, sorted.
func AllowedResourceTypes() []string {
	return slices.Clone(allowedTypes)
}

// Client talks to one terminology server.
type Client struct {
	rest *rest.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...txclient.Option) (*Client, error) {
	rc, err := rest.New(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{rest: rc}, nil
}

// Wrap returns a Client over an existing REST client.
func Wrap(rc *rest.Client) *Client {
	return &Client{rest: rc}
}

// REST returns the underlying transport.
func (c *Client) REST() *rest.Client {
	return c.rest
}

// Resource returns the reference "{resourceType}/{id}". Types other than
// ValueSet, CodeSystem and ConceptMap fail with ErrResourceTypeNotAllowed.
func (c *Client) Resource(resourceType, id string) (string, error) {
	if err := checkType(resourceType); err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("terminology: %s reference requires an id", resourceType)
	}
	return resourceType + "/" + id, nil
}

// ValueSet returns a handle on the ValueSet with server id.
func (c *Client) ValueSet(id string) *valueset.Resource {
	return valueset.New(c.rest, id)
}

// ValueSetByURL returns a handle on the ValueSet with canonical url. The
// operations run at type level. version may be empty.
func (c *Client) ValueSetByURL(url, version string) *valueset.Resource {
	return valueset.ByURL(c.rest, url, version)
}

// Invoke POSTs in as Parameters to "{resourceType}[/{id}]/{operation}" and
// decodes the Parameters response. It serves operations without a dedicated
// handle, such as CodeSystem/$lookup or ConceptMap/$translate.
func (c *Client) Invoke(ctx context.Context, resourceType, id, operation string, in *params.Map) (*params.Map, error) {
	if err := checkType(resourceType); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(operation, "$") {
		operation = "$" + operation
	}

	path := resourceType + "/" + operation
	if id != "" {
		path = resourceType + "/" + id + "/" + operation
	}

	body, err := params.Marshal(in)
	if err != nil {
		return nil, err
	}
	raw, err := c.rest.Execute(ctx, path, http.MethodPost, body)
	if err != nil {
		return nil, err
	}

	var out params.Parameters
	if err := rest.Parse(raw, &out); err != nil {
		return nil, err
	}
	return params.Decode(&out)
}

func checkType(resourceType string) error {
	if slices.Contains(allowedTypes, resourceType) {
		return nil
	}
	return fmt.Errorf("%w: %q (allowed: %s)", txclient.ErrResourceTypeNotAllowed,
		resourceType, strings.Join(allowedTypes, ", "))
}
