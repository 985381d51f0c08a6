package handlers

import (
	"context"
	"fmt"
)

// Probe checks whether a control-plane API answers at host:port and prints
// a human-readable verdict. This is a pre-flight aid only; deployments do
// not run it implicitly.
func Probe(ctx context.Context, host string, port int) error {
	res, err := newProber().Endpoint(ctx, host, port)
	if err != nil {
		return fmt.Errorf("no control plane detected at %s:%d: %w", host, port, err)
	}

	switch {
	case res.AuthRequired:
		fmt.Printf("control plane at %s:%d is up (authentication required)\n", host, port)
	case res.Version != "":
		fmt.Printf("control plane at %s:%d is up, version %s\n", host, port, res.Version)
	default:
		fmt.Printf("control plane at %s:%d is up\n", host, port)
	}
	if res.InsecureTLS {
		fmt.Println("note: certificate verification failed; set tls_verify: false or install a trusted certificate")
	}
	return nil
}
