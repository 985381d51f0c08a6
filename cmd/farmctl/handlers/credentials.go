package handlers

import (
	"fmt"

	"github.com/buildforever/farmctl/internal/fault"
	"github.com/buildforever/farmctl/internal/store"
)

// AddCredential saves a control-plane credential set.
func AddCredential(cred store.Credential, asDefault bool) error {
	if cred.Password == "" && (cred.TokenName == "" || cred.TokenSecret == "") {
		return fault.Newf(fault.Validation, "provide --password or both --token-name and --token-secret")
	}

	s, err := openStore(defaultStorePath)
	if err != nil {
		return err
	}
	if err := s.SaveCredential(cred, asDefault); err != nil {
		return err
	}
	fmt.Printf("Saved credential %q\n", cred.Name)
	return nil
}

// ListCredentials prints all saved credentials with secrets redacted.
func ListCredentials() error {
	s, err := openStore(defaultStorePath)
	if err != nil {
		return err
	}
	creds, err := s.ListCredentials()
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		fmt.Println("No saved credentials.")
		return nil
	}
	for _, c := range creds {
		marker := " "
		if c.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %-20s %s@%s:%d\n", marker, c.Name, c.User, c.Host, c.Port)
	}
	return nil
}

// DeleteCredential removes a saved credential set.
func DeleteCredential(name string) error {
	s, err := openStore(defaultStorePath)
	if err != nil {
		return err
	}
	if err := s.DeleteCredential(name); err != nil {
		return err
	}
	fmt.Printf("Deleted credential %q\n", name)
	return nil
}

// SetDefaultCredential marks a saved credential set as the default.
func SetDefaultCredential(name string) error {
	s, err := openStore(defaultStorePath)
	if err != nil {
		return err
	}
	cred, err := s.GetCredential(name)
	if err != nil {
		return err
	}
	if err := s.SaveCredential(cred, true); err != nil {
		return err
	}
	fmt.Printf("%q is now the default credential\n", name)
	return nil
}
