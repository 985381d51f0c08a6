package proxmox

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/buildforever/farmctl/internal/fault"
)

// classify maps a request outcome onto the fault taxonomy. Transport errors
// become Connect faults, HTTP 401/403 become Auth faults, any other error
// status is surfaced with the response body.
func classify(path string, resp *resty.Response, err error) error {
	if err != nil {
		return fault.Newf(fault.Connect, "request %s failed: %v", path, err)
	}
	if resp == nil || !resp.IsError() {
		return nil
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fault.Newf(fault.Auth, "request %s rejected: %s", path, resp.Status())
	}
	return fmt.Errorf("request %s failed: %s: %s", path, resp.Status(), resp.String())
}
