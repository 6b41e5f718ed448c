// Command session_probe exercises the session lifecycle against a running
// instance: register, login, an authorized request, logout, and finally a
// replay of the revoked credentials. It exits non-zero when any step deviates
// from the contract, which makes it usable as a deploy gate.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

type step struct {
	Name     string
	Expected int
	Actual   int
	Duration time.Duration
	Err      error
}

func (s step) ok() bool {
	return s.Err == nil && s.Actual == s.Expected
}

type probe struct {
	client *http.Client
	base   string

	accessHeader  string
	refreshCookie *http.Cookie
}

func main() {
	var (
		base     string
		password string
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&password, "password", "probe-Passw0rd", "password for the throwaway account")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	email := fmt.Sprintf("probe+%d@stocknest.dev", time.Now().UnixNano())

	p := &probe{
		client: &http.Client{Timeout: timeout},
		base:   strings.TrimRight(base, "/"),
	}

	steps := []step{
		p.register(email, password),
		p.login(email, password),
		p.authorizedRequest("authorized request", http.StatusOK),
		p.logout(),
		p.authorizedRequest("replay after logout", http.StatusUnauthorized),
	}

	printReport(steps)

	for _, s := range steps {
		if !s.ok() {
			os.Exit(1)
		}
	}
}

func (p *probe) register(email, password string) step {
	body, _ := json.Marshal(map[string]string{
		"firstName": "Probe",
		"lastName":  "Account",
		"email":     email,
		"password":  password,
	})
	return p.do("register", http.MethodPost, "/session/register", body, http.StatusCreated, nil)
}

func (p *probe) login(email, password string) step {
	body, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	return p.do("login", http.MethodPost, "/session/login", body, http.StatusOK, func(resp *http.Response) error {
		p.accessHeader = resp.Header.Get("Authorization")
		if p.accessHeader == "" {
			return fmt.Errorf("login response carries no Authorization header")
		}
		for _, c := range resp.Cookies() {
			if c.Name == "refresh" {
				p.refreshCookie = c
			}
		}
		if p.refreshCookie == nil {
			return fmt.Errorf("login response carries no refresh cookie")
		}
		return nil
	})
}

func (p *probe) authorizedRequest(name string, expected int) step {
	return p.do(name, http.MethodGet, "/users/me", nil, expected, nil)
}

func (p *probe) logout() step {
	return p.do("logout", http.MethodDelete, "/session/logout", nil, http.StatusNoContent, nil)
}

func (p *probe) do(name, method, path string, body []byte, expected int, inspect func(*http.Response) error) step {
	s := step{Name: name, Expected: expected}

	req, err := http.NewRequest(method, p.base+path, bytes.NewReader(body))
	if err != nil {
		s.Err = err
		return s
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.accessHeader != "" {
		req.Header.Set("Authorization", p.accessHeader)
	}
	if p.refreshCookie != nil {
		req.AddCookie(p.refreshCookie)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	s.Duration = time.Since(start)
	if err != nil {
		s.Err = err
		return s
	}
	defer resp.Body.Close()

	s.Actual = resp.StatusCode
	if inspect != nil {
		s.Err = inspect(resp)
	}
	return s
}

func printReport(steps []step) {
	fmt.Println("Session Probe Report")
	fmt.Println("====================")
	for _, s := range steps {
		status := "OK"
		if !s.ok() {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s\n", status, s.Name)
		fmt.Printf("  Status: %d (want %d) in %s\n", s.Actual, s.Expected, s.Duration)
		if s.Err != nil {
			fmt.Printf("  Error: %v\n", s.Err)
		}
	}
}
