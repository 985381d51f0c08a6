// Package scripts renders the shell and PowerShell programs injected into
// provisioned resources: account creation, CI server installation, agent
// registration, and shared storage mounts.
package scripts

import (
	"bytes"
	"fmt"
	"text/template"
)

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		// Templates are compiled at init and fed plain structs; execution
		// cannot fail at runtime.
		panic(fmt.Sprintf("scripts: render %s: %v", t.Name(), err))
	}
	return buf.String()
}
