package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
	"github.com/google/uuid"

	"github.com/opsdeck/opsdeck/pkg/model"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte
	authToken    string
	instance     *ServerInstance   // per-scenario server, when a step starts one
	agentKeys    map[string]string // server name -> agent key
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{
		tc:        tc,
		agentKeys: make(map[string]string),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		if s.instance != nil {
			s.instance.Stop()
			s.instance = nil
		}
		return ctx, nil
	})

	// Background steps
	sc.Step(`^an opsdeck server is running$`, s.anOpsdeckServerIsRunning)
	sc.Step(`^an opsdeck server trusting proxies "([^"]*)" is running$`, s.anOpsdeckServerTrustingProxiesIsRunning)
	sc.Step(`^a user "([^"]*)" with password "([^"]*)" and role "([^"]*)" exists$`, s.aUserExists)
	sc.Step(`^the user "([^"]*)" is disabled$`, s.theUserIsDisabled)
	sc.Step(`^I am logged in as "([^"]*)" with password "([^"]*)"$`, s.iAmLoggedInAs)

	// Authentication steps
	sc.Step(`^I log in as "([^"]*)" with password "([^"]*)"$`, s.iLogInAs)
	sc.Step(`^I use the session token "([^"]*)"$`, s.iUseTheSessionToken)
	sc.Step(`^I request my identity$`, s.iRequestMyIdentity)
	sc.Step(`^I request my identity from forwarded address "([^"]*)"$`, s.iRequestMyIdentityFromForwardedAddress)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^I should receive a session token$`, s.iShouldReceiveASessionToken)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.theResponseFieldShouldBe)
	sc.Step(`^the response body should contain "([^"]*)"$`, s.theResponseBodyShouldContain)
	sc.Step(`^the response body should not contain "([^"]*)"$`, s.theResponseBodyShouldNotContain)

	// Status steps
	sc.Step(`^I request the API status$`, s.iRequestTheAPIStatus)

	// Fleet steps
	sc.Step(`^a server "([^"]*)" with host "([^"]*)" exists$`, s.aServerExists)
	sc.Step(`^I create a server named "([^"]*)" with host "([^"]*)"$`, s.iCreateAServer)
	sc.Step(`^I list the servers$`, s.iListTheServers)
	sc.Step(`^the server list should include "([^"]*)"$`, s.theServerListShouldInclude)
	sc.Step(`^I delete the server "([^"]*)"$`, s.iDeleteTheServer)
	sc.Step(`^the server "([^"]*)" should not exist$`, s.theServerShouldNotExist)
	sc.Step(`^the server "([^"]*)" should have status "([^"]*)"$`, s.theServerShouldHaveStatus)

	// Credential steps
	sc.Step(`^a credential "([^"]*)" with secret "([^"]*)" exists$`, s.aCredentialExists)
	sc.Step(`^I create a credential named "([^"]*)" with secret "([^"]*)"$`, s.iCreateACredential)
	sc.Step(`^I list the credentials$`, s.iListTheCredentials)
	sc.Step(`^I reveal the credential "([^"]*)"$`, s.iRevealTheCredential)
	sc.Step(`^the revealed secret should be "([^"]*)"$`, s.theRevealedSecretShouldBe)
	sc.Step(`^the stored secret for "([^"]*)" should not contain "([^"]*)"$`, s.theStoredSecretShouldNotContain)

	// User management steps
	sc.Step(`^I create a user "([^"]*)" with password "([^"]*)" and role "([^"]*)" via the API$`, s.iCreateAUserViaTheAPI)
	sc.Step(`^the user "([^"]*)" should exist$`, s.theUserShouldExist)

	s.registerAgentSteps(sc)
}

// apiURL builds a request URL against the scenario's server: the shared
// suite server unless the scenario started its own instance.
func (s *StepsContext) apiURL(path string) string {
	if s.instance != nil {
		return s.instance.ServerURL + path
	}
	return s.tc.ServerURL + path
}

// send executes the request and captures response and body for later steps
func (s *StepsContext) send(req *http.Request) error {
	var err error
	s.response, err = s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}

	s.responseBody, err = io.ReadAll(s.response.Body)
	_ = s.response.Body.Close()
	return err
}

// Background steps

func (s *StepsContext) anOpsdeckServerIsRunning() error {
	// Server is already running via TestContext
	return nil
}

func (s *StepsContext) anOpsdeckServerTrustingProxiesIsRunning(proxies string) error {
	cfg := ServerConfig{TrustedProxies: strings.Split(proxies, ",")}
	instance, err := StartServer(s.tc, s.tc.DatabaseURL, cfg)
	if err != nil {
		return err
	}
	s.instance = instance
	return nil
}

func (s *StepsContext) aUserExists(username, password, role string) error {
	user := &model.User{Username: username, Role: role, Active: true}
	if err := user.SetPassword(password); err != nil {
		return err
	}

	return s.tc.DB.Exec(`
		INSERT INTO users (username, password_hash, role, active) VALUES (?, ?, ?, TRUE)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role, active = TRUE
	`, username, user.PasswordHash, role).Error
}

func (s *StepsContext) theUserIsDisabled(username string) error {
	return s.tc.DB.Exec(`UPDATE users SET active = FALSE WHERE username = ?`, username).Error
}

func (s *StepsContext) iAmLoggedInAs(username, password string) error {
	if err := s.iLogInAs(username, password); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusOK {
		return fmt.Errorf("login as %s failed with status %d: %s", username, s.response.StatusCode, string(s.responseBody))
	}
	return s.iShouldReceiveASessionToken()
}

// Authentication steps

func (s *StepsContext) iLogInAs(username, password string) error {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", s.apiURL("/api/auth/login"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if err := s.send(req); err != nil {
		return err
	}

	// If successful, extract token for subsequent steps
	if s.response.StatusCode == http.StatusOK {
		var login struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(s.responseBody, &login); err == nil {
			s.authToken = login.Token
		}
	}

	return nil
}

func (s *StepsContext) iUseTheSessionToken(tok string) error {
	s.authToken = tok
	return nil
}

func (s *StepsContext) iRequestMyIdentity() error {
	return s.requestIdentity("")
}

func (s *StepsContext) iRequestMyIdentityFromForwardedAddress(forwardedFor string) error {
	return s.requestIdentity(forwardedFor)
}

func (s *StepsContext) requestIdentity(forwardedFor string) error {
	req, err := http.NewRequest("GET", s.apiURL("/api/auth/whoami"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.authToken)
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	return s.send(req)
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(expectedStatus int) error {
	if s.response.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d: %s", expectedStatus, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) iShouldReceiveASessionToken() error {
	var login struct {
		Token     string          `json:"token"`
		ExpiresAt string          `json:"expires_at"`
		User      json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(s.responseBody, &login); err != nil {
		return fmt.Errorf("failed to parse login response: %w", err)
	}

	if login.Token == "" {
		return fmt.Errorf("missing 'token' field in response")
	}
	if login.ExpiresAt == "" {
		return fmt.Errorf("missing 'expires_at' field in response")
	}
	if len(login.User) == 0 {
		return fmt.Errorf("missing 'user' field in response")
	}

	s.authToken = login.Token
	return nil
}

func (s *StepsContext) theResponseFieldShouldBe(field, expected string) error {
	var result map[string]interface{}
	if err := json.Unmarshal(s.responseBody, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	value, ok := result[field]
	if !ok {
		return fmt.Errorf("field %q not found in response: %s", field, string(s.responseBody))
	}

	actual := fmt.Sprintf("%v", value)
	if actual != expected {
		return fmt.Errorf("expected field %q to be %q, got %q", field, expected, actual)
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldContain(expected string) error {
	if !strings.Contains(string(s.responseBody), expected) {
		return fmt.Errorf("expected body to contain %q, got %q", expected, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldNotContain(unexpected string) error {
	if strings.Contains(string(s.responseBody), unexpected) {
		return fmt.Errorf("body should not contain %q, got %q", unexpected, string(s.responseBody))
	}
	return nil
}

// Status steps

func (s *StepsContext) iRequestTheAPIStatus() error {
	req, err := http.NewRequest("GET", s.apiURL("/api/status"), nil)
	if err != nil {
		return err
	}
	return s.send(req)
}

// Fleet steps

func (s *StepsContext) aServerExists(name, host string) error {
	// Replace rather than upsert so the generated agent key is fresh
	if err := s.tc.DB.Where("name = ?", name).Delete(&model.Server{}).Error; err != nil {
		return err
	}

	srv := &model.Server{Name: name, Host: host, SSHUser: "root"}
	if err := s.tc.DB.Create(srv).Error; err != nil {
		return err
	}

	s.agentKeys[name] = srv.AgentKey
	return nil
}

func (s *StepsContext) iCreateAServer(name, host string) error {
	body, err := json.Marshal(map[string]string{"name": name, "host": host})
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", s.apiURL("/api/servers"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.authToken)
	return s.send(req)
}

func (s *StepsContext) iListTheServers() error {
	req, err := http.NewRequest("GET", s.apiURL("/api/servers"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.authToken)
	return s.send(req)
}

func (s *StepsContext) theServerListShouldInclude(name string) error {
	var servers []map[string]interface{}
	if err := json.Unmarshal(s.responseBody, &servers); err != nil {
		return fmt.Errorf("failed to parse server list: %w", err)
	}

	for _, srv := range servers {
		if srv["name"] == name {
			return nil
		}
	}
	return fmt.Errorf("server %q not found in list", name)
}

func (s *StepsContext) iDeleteTheServer(name string) error {
	id, err := s.serverID(name)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("DELETE", s.apiURL(fmt.Sprintf("/api/servers/%d", id)), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.authToken)
	return s.send(req)
}

func (s *StepsContext) theServerShouldNotExist(name string) error {
	var count int64
	if err := s.tc.DB.Raw(`SELECT COUNT(*) FROM servers WHERE name = ?`, name).Scan(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("server %q should not exist but does", name)
	}
	return nil
}

func (s *StepsContext) theServerShouldHaveStatus(name, status string) error {
	var actual string
	if err := s.tc.DB.Raw(`SELECT status FROM servers WHERE name = ?`, name).Scan(&actual).Error; err != nil {
		return err
	}
	if actual != status {
		return fmt.Errorf("expected server %q to have status %q, got %q", name, status, actual)
	}
	return nil
}

func (s *StepsContext) serverID(name string) (uint, error) {
	var id uint
	if err := s.tc.DB.Raw(`SELECT id FROM servers WHERE name = ?`, name).Scan(&id).Error; err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("server %q not found", name)
	}
	return id, nil
}

// Credential steps

func (s *StepsContext) aCredentialExists(name, secret string) error {
	if err := s.tc.DB.Where("name = ?", name).Delete(&model.Credential{}).Error; err != nil {
		return err
	}

	cred := &model.Credential{
		UID:      uuid.New().String(),
		Name:     name,
		Kind:     model.CredentialPassword,
		Username: "svc",
		Secret:   []byte(secret),
	}
	return s.tc.DB.Create(cred).Error
}

func (s *StepsContext) iCreateACredential(name, secret string) error {
	body, err := json.Marshal(map[string]string{
		"name":   name,
		"kind":   model.CredentialPassword,
		"secret": secret,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", s.apiURL("/api/credentials"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.authToken)
	return s.send(req)
}

func (s *StepsContext) iListTheCredentials() error {
	req, err := http.NewRequest("GET", s.apiURL("/api/credentials"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.authToken)
	return s.send(req)
}

func (s *StepsContext) iRevealTheCredential(name string) error {
	var id uint
	if err := s.tc.DB.Raw(`SELECT id FROM credentials WHERE name = ?`, name).Scan(&id).Error; err != nil {
		return err
	}
	if id == 0 {
		return fmt.Errorf("credential %q not found", name)
	}

	req, err := http.NewRequest("GET", s.apiURL(fmt.Sprintf("/api/credentials/%d/value", id)), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.authToken)
	return s.send(req)
}

func (s *StepsContext) theRevealedSecretShouldBe(expected string) error {
	var value struct {
		Secret string `json:"secret"`
	}
	if err := json.Unmarshal(s.responseBody, &value); err != nil {
		return fmt.Errorf("failed to parse reveal response: %w", err)
	}
	if value.Secret != expected {
		return fmt.Errorf("expected secret %q, got %q", expected, value.Secret)
	}
	return nil
}

func (s *StepsContext) theStoredSecretShouldNotContain(name, plaintext string) error {
	var stored []byte
	if err := s.tc.DB.Raw(`SELECT secret FROM credentials WHERE name = ?`, name).Scan(&stored).Error; err != nil {
		return err
	}

	if len(stored) == 0 {
		return fmt.Errorf("no stored secret for credential %q", name)
	}
	if bytes.Contains(stored, []byte(plaintext)) {
		return fmt.Errorf("stored secret for %q contains the plaintext value", name)
	}
	return nil
}

// User management steps

func (s *StepsContext) iCreateAUserViaTheAPI(username, password, role string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
		"role":     role,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", s.apiURL("/api/users"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.authToken)
	return s.send(req)
}

func (s *StepsContext) theUserShouldExist(username string) error {
	var count int64
	if err := s.tc.DB.Raw(`SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("user %q does not exist", username)
	}
	return nil
}
