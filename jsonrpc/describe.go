package jsonrpc

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-version"
)

// DescribeMethod is the builtin method returning the service description.
const DescribeMethod = "system.describe"

// ServiceDescriptionVersion is the "sdversion" reported by system.describe.
const ServiceDescriptionVersion = "1.0"

// ServiceDescription is the static metadata of a service.
type ServiceDescription struct {
	Name string
	// ID identifies the service, typically a URL.
	ID      string
	Summary string
	Version string
}

// Validate checks that Name and ID are set and that Version, if set, is a
// version number.
func (d ServiceDescription) Validate() error {
	var errs *multierror.Error
	if d.Name == "" {
		errs = multierror.Append(errs, fmt.Errorf("%w: name is required", ErrInvalidDescription))
	}
	if d.ID == "" {
		errs = multierror.Append(errs, fmt.Errorf("%w: id is required", ErrInvalidDescription))
	}
	if d.Version != "" {
		if _, err := version.NewVersion(d.Version); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%w: version: %v", ErrInvalidDescription, err))
		}
	}
	return errs.ErrorOrNil()
}

// Describe returns the system.describe result.
func (d ServiceDescription) Describe() map[string]any {
	desc := map[string]any{
		"sdversion": ServiceDescriptionVersion,
		"name":      d.Name,
		"id":        d.ID,
	}
	if d.Summary != "" {
		desc["summary"] = d.Summary
	}
	if d.Version != "" {
		desc["version"] = d.Version
	}
	return desc
}
