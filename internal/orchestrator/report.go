package orchestrator

import (
	"github.com/buildforever/farmctl/internal/config"
)

// CreatedResource is one successfully created resource in the final report.
// Creation success is independent of provisioning success: a resource whose
// install script later fails still appears here, with the failure in its
// status detail.
type CreatedResource struct {
	ID        int                    `json:"id"`
	Kind      config.ResourceKind    `json:"kind"`
	Name      string                 `json:"name"`
	Status    string                 `json:"status"`
	IPAddress string                 `json:"ip_address,omitempty"`
	Profile   config.ResourceProfile `json:"profile"`
	MediaRefs []string               `json:"media_refs,omitempty"`
}

// Report is the aggregated outcome of one run. Success means at least one
// resource was created; a partial farm is still a usable farm.
type Report struct {
	Success          bool              `json:"success"`
	Message          string            `json:"message"`
	Node             string            `json:"node"`
	CreatedResources []CreatedResource `json:"created_resources"`
	Errors           []string          `json:"errors"`
}
