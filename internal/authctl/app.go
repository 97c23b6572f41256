// Package authctl implements a small operator CLI for a running AuthKeeper
// server: it registers accounts and rotates passwords over the HTTP API,
// prompting for secrets without echo.
package authctl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

type App struct {
	baseURL string
	client  *http.Client
	in      io.Reader
	reader  *bufio.Reader
	out     io.Writer
}

func NewApp(baseURL string) *App {
	return &App{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		in:      os.Stdin,
		out:     os.Stdout,
	}
}

// Run dispatches a single subcommand.
func (a *App) Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: authctl [register|passwd|history]")
	}

	switch args[0] {
	case "register":
		return a.Register()
	case "passwd":
		return a.ChangePassword()
	case "history":
		return a.History()
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// Register creates an account from prompted credentials.
func (a *App) Register() error {
	email, err := a.promptLine("Email: ")
	if err != nil {
		return err
	}
	password, err := a.promptPassword("Password: ")
	if err != nil {
		return err
	}

	var resp struct {
		Email string `json:"email"`
	}
	if err := a.postJSON("/api/register", map[string]string{
		"email":    email,
		"password": string(password),
	}, &resp); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "registered %s\n", resp.Email)
	return nil
}

// ChangePassword logs in with the current password and rotates it.
func (a *App) ChangePassword() error {
	email, access, err := a.login()
	if err != nil {
		return err
	}

	newPassword, err := a.promptPassword("New password: ")
	if err != nil {
		return err
	}

	req, err := a.newRequest(http.MethodPut, "/api/user/password", map[string]string{
		"new_password": string(newPassword),
	})
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+access)

	if err := a.do(req, nil); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "password updated for %s\n", email)
	return nil
}

// History prints the account's login audit trail.
func (a *App) History() error {
	_, access, err := a.login()
	if err != nil {
		return err
	}

	req, err := a.newRequest(http.MethodGet, "/api/user/history", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+access)

	var events []struct {
		ClientDescriptor string    `json:"client_descriptor"`
		OccurredAt       time.Time `json:"occurred_at"`
	}
	if err := a.do(req, &events); err != nil {
		return err
	}

	for _, e := range events {
		fmt.Fprintf(a.out, "%s\t%s\n", e.OccurredAt.Format(time.RFC3339), e.ClientDescriptor)
	}
	return nil
}

func (a *App) login() (email, accessToken string, err error) {
	email, err = a.promptLine("Email: ")
	if err != nil {
		return "", "", err
	}
	password, err := a.promptPassword("Password: ")
	if err != nil {
		return "", "", err
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := a.postJSON("/api/login", map[string]string{
		"email":    email,
		"password": string(password),
	}, &resp); err != nil {
		return "", "", err
	}

	return email, resp.AccessToken, nil
}

func (a *App) newRequest(method, path string, body any) (*http.Request, error) {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, a.baseURL+path, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (a *App) postJSON(path string, body, out any) error {
	req, err := a.newRequest(http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return a.do(req, out)
}

func (a *App) do(req *http.Request, out any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("server: %s", apiErr.Error)
		}
		return fmt.Errorf("server: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
