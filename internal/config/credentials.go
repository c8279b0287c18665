package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Environment variables overriding the config file's credentials.
const (
	accessKeyEnv = "EXPSYNC_ACCESS_KEY"
	secretKeyEnv = "EXPSYNC_SECRET_KEY"
)

// CredentialInputError reports that interactive credential entry hit end
// of input before both values were supplied.
type CredentialInputError struct {
	Err error
}

func (e *CredentialInputError) Error() string {
	return fmt.Sprintf("credential input ended unexpectedly: %v", e.Err)
}

func (e *CredentialInputError) Unwrap() error { return e.Err }

// ResolveCredentials returns the access and secret key for this run:
// environment variables when set, otherwise the config file's values.
// The result is an explicit pair handed to the storage client constructor;
// nothing credential-shaped lives in process-global state.
func (c *Config) ResolveCredentials() (access, secret string) {
	access = c.Storage.AccessKey
	secret = c.Storage.SecretKey
	if v := os.Getenv(accessKeyEnv); v != "" {
		access = v
	}
	if v := os.Getenv(secretKeyEnv); v != "" {
		secret = v
	}
	return access, secret
}

// PromptCredentials interactively reads an access key (echoed) and secret
// key (hidden) from in, writing prompts to out. End of input at either
// prompt yields a CredentialInputError.
func PromptCredentials(in *os.File, out io.Writer) (access, secret string, err error) {
	fmt.Fprint(out, "Access key: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil {
		return "", "", &CredentialInputError{Err: err}
	}
	access = strings.TrimSpace(line)

	fmt.Fprint(out, "Secret key: ")
	raw, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", "", &CredentialInputError{Err: err}
	}
	secret = strings.TrimSpace(string(raw))

	return access, secret, nil
}
