// Package signin drives an unauthenticated web session through the
// Graph Explorer interactive sign-in flow to recover an access token.
//
// The flow is a sequence of named transitions over an explicit state
// enum. Most transitions are best-effort: a missing UI affordance means
// "assume this step is already done" rather than failure. Only the
// exhaustion of every acquisition strategy, or losing the application
// window, aborts the run.
package signin

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/sirupsen/logrus"

	"github.com/avh/meetfetch/internal/browser"
	"github.com/avh/meetfetch/internal/token"
)

// DefaultExplorerURL is the application that issues tokens for the
// signed-in user.
const DefaultExplorerURL = "https://developer.microsoft.com/en-us/graph/graph-explorer"

var (
	// ErrTokenAcquisitionFailed is returned after every acquisition
	// strategy has been exhausted.
	ErrTokenAcquisitionFailed = errors.New("failed to obtain access token from graph explorer")
	// ErrGraphWindowNotFound is returned when the application window
	// cannot be located among the open windows.
	ErrGraphWindowNotFound = errors.New("graph explorer window not found")
)

// UI affordance locators. These track the identity provider's and Graph
// Explorer's current markup and are inherently best-effort against
// redesigns.
const (
	signInButtonCSS = "#root > div > div > div.___1cj2dat.f22iagw.f122n59.f1869bpl.f4ey0zi.ff2sm71.f1db7c0c.febqm8h > div.___cnp5r70.f22iagw.f122n59.f1l02sjl.f1immsc2.f1q8lukm > button:nth-child(10)"

	usernameFieldName = "loginfmt"
	passwordFieldName = "passwd"
	confirmButtonID   = "idSIButton9"
	pushApprovalCSS   = "button.auth-button.positive"
	staySignedInID    = "idBtn_Back"

	runQueryButtonXPath = "//*[@id='main-content']/div[2]/div/div[4]/button"

	loginWindowTitle    = "Sign in"
	explorerWindowTitle = "Graph Explorer"
)

// accessTokenLocators are tried in priority order; the first clickable
// match wins.
var accessTokenLocators = []locator{
	{browser.ByXPath, `//*[@id="request-area"]/div[1]/div[1]/div/button[4]`},
	{browser.ByXPath, "//button[contains(., 'Access token')]"},
	{browser.ByCSS, "button[aria-label='Access token']"},
}

type locator struct {
	by    string
	value string
}

// State identifies where the machine is in the sign-in flow.
type State int

const (
	StateStart State = iota
	StateCheckExistingSession
	StateNeedsSignIn
	StateAccountOrCredentialPrompt
	StateSecondFactor
	StatePostLoginSettle
	StateVerifyGraphWindow
	StateTriggerTokenIssuance
	StateAuthenticated
	StateFailed
)

// outcome is the tri-state result of a single transition.
type outcome int

const (
	outcomeDone outcome = iota
	outcomeSkipped
	outcomeAbandoned
)

// Outcome values reported for diagnostics. "abandoned" is distinct from
// "reused-session" so a failed interactive login is not mistaken for a
// session that never needed one.
const (
	OutcomeReusedSession = "reused-session"
	OutcomeSignedIn      = "signed-in"
	OutcomeAbandoned     = "abandoned"
)

// Credentials are the interactive sign-in inputs, consumed only by the
// credential-prompt transitions.
type Credentials struct {
	Username string `env:"MS_USERNAME"`
	Password string `env:"MS_PASSWORD"`
}

// CredentialsFromEnv reads MS_USERNAME and MS_PASSWORD.
func CredentialsFromEnv() (Credentials, error) {
	var creds Credentials
	if err := env.Parse(&creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse credential environment: %w", err)
	}
	creds.Username = strings.TrimSpace(creds.Username)
	creds.Password = strings.TrimSpace(creds.Password)
	return creds, nil
}

// Waits holds the per-phase timeout budgets. Every wait in the flow is
// bounded by one of these.
type Waits struct {
	PageLoad        time.Duration
	ExistingSession time.Duration
	SignInButton    time.Duration
	LoginPageLoad   time.Duration
	UsernameField   time.Duration
	PasswordField   time.Duration
	ConfirmButton   time.Duration
	PushApproval    time.Duration
	StaySignedIn    time.Duration
	RunQueryButton  time.Duration
	IssuanceButton  time.Duration
	RunQueryClick   time.Duration
	PostLoginPoll   time.Duration
	AbandonPoll     time.Duration
	FinalPoll       time.Duration
	IssuancePoll    time.Duration

	SettleShort        time.Duration
	SettleTilePrompt   time.Duration
	SettleSecondFactor time.Duration
	SettleBeforeStay   time.Duration
	SettleAfterRun     time.Duration
	SettleFinal        time.Duration
}

// DefaultWaits returns the production timeout budgets.
func DefaultWaits() Waits {
	return Waits{
		PageLoad:        30 * time.Second,
		ExistingSession: 10 * time.Second,
		SignInButton:    5 * time.Second,
		LoginPageLoad:   20 * time.Second,
		UsernameField:   8 * time.Second,
		PasswordField:   8 * time.Second,
		ConfirmButton:   6 * time.Second,
		PushApproval:    10 * time.Second,
		StaySignedIn:    10 * time.Second,
		RunQueryButton:  30 * time.Second,
		IssuanceButton:  6 * time.Second,
		RunQueryClick:   8 * time.Second,
		PostLoginPoll:   60 * time.Second,
		AbandonPoll:     20 * time.Second,
		FinalPoll:       20 * time.Second,
		IssuancePoll:    20 * time.Second,

		SettleShort:        2 * time.Second,
		SettleTilePrompt:   time.Second,
		SettleSecondFactor: 10 * time.Second,
		SettleBeforeStay:   5 * time.Second,
		SettleAfterRun:     2 * time.Second,
		SettleFinal:        5 * time.Second,
	}
}

// Machine drives one exclusive browser session through the sign-in flow.
type Machine struct {
	Session     browser.Session
	Creds       Credentials
	ExplorerURL string
	Waits       Waits
	Log         *logrus.Entry

	// Outcome records how the credential was obtained, for diagnostics.
	Outcome string

	sleep        func(time.Duration)
	state        State
	passwordUsed bool
}

// New creates a machine with default waits.
func New(session browser.Session, creds Credentials, log *logrus.Entry) *Machine {
	return &Machine{
		Session:     session,
		Creds:       creds,
		ExplorerURL: DefaultExplorerURL,
		Waits:       DefaultWaits(),
		Log:         log,
		sleep:       time.Sleep,
	}
}

// State returns the machine's current state.
func (m *Machine) State() State {
	return m.state
}

// Acquire runs the acquisition strategies in order: existing-session
// storage scan, full interactive sign-in, UI-driven token issuance, and
// finally an on-page scan. It fails only when all four yield nothing or
// the application window is lost.
func (m *Machine) Acquire() (string, error) {
	m.state = StateCheckExistingSession

	if err := m.Session.Navigate(m.ExplorerURL); err != nil {
		return "", fmt.Errorf("failed to open graph explorer: %w", err)
	}
	if _, err := m.Session.WaitPresent(browser.ByTag, "body", m.Waits.PageLoad); err != nil {
		m.Log.WithError(err).Warn("graph explorer page did not settle")
	}
	m.Log.Info("graph explorer loaded")

	tok := token.Wait(m.Session, m.Waits.ExistingSession)
	if tok != "" {
		m.Log.Info("using existing session")
		m.Outcome = OutcomeReusedSession
	} else {
		tok = m.interactiveSignIn()
	}

	m.state = StateVerifyGraphWindow
	if !m.switchToWindowTitled(explorerWindowTitle) {
		m.state = StateFailed
		m.Log.Error("graph explorer window not found")
		return "", ErrGraphWindowNotFound
	}

	if _, err := m.Session.WaitPresent(browser.ByXPath, runQueryButtonXPath, m.Waits.RunQueryButton); err != nil {
		m.Log.WithError(err).Warn("timed out waiting for run query button")
		if tok == "" {
			m.state = StateFailed
			return "", ErrGraphWindowNotFound
		}
		m.Log.Info("proceeding with cached access token")
	}
	m.sleep(m.Waits.SettleFinal)

	if tok == "" {
		tok = token.Wait(m.Session, m.Waits.FinalPoll)
	}
	if tok == "" {
		m.state = StateTriggerTokenIssuance
		m.Log.Info("triggering token request from graph explorer ui")
		m.triggerTokenIssuance()
		tok = token.Wait(m.Session, m.Waits.IssuancePoll)
	}
	if tok == "" {
		tok = token.FromPage(m.Session)
	}
	if tok == "" {
		m.state = StateFailed
		return "", ErrTokenAcquisitionFailed
	}

	m.state = StateAuthenticated
	if m.Outcome == "" {
		m.Outcome = OutcomeSignedIn
	}
	return tok, nil
}

// interactiveSignIn walks the sign-in UI. It returns whatever token it
// recovered, possibly none; abandonment is never fatal here.
func (m *Machine) interactiveSignIn() string {
	m.state = StateNeedsSignIn

	button, err := m.Session.WaitClickable(browser.ByCSS, signInButtonCSS, m.Waits.SignInButton)
	if err != nil {
		m.Log.Info("sign in button not found, assuming session is already active")
		return ""
	}
	if err := button.Click(); err != nil {
		m.Log.WithError(err).Warn("failed to click sign in button")
		return ""
	}
	m.sleep(m.Waits.SettleShort)

	if m.Creds.Username == "" || m.Creds.Password == "" {
		m.Log.Warn("missing MS_USERNAME or MS_PASSWORD for sign-in")
	}

	if m.locateLoginWindow() == outcomeAbandoned {
		return m.abandonLogin("login window not found")
	}

	m.state = StateAccountOrCredentialPrompt
	if m.submitIdentity() == outcomeAbandoned {
		return m.abandonLogin("username prompt could not be completed")
	}
	if m.submitPassword() == outcomeAbandoned {
		return m.abandonLogin("password required but not configured")
	}
	m.confirmSignIn()

	m.state = StateSecondFactor
	m.approveSecondFactor()

	m.state = StatePostLoginSettle
	return m.settleAfterLogin()
}

// abandonLogin reverts a failed interactive attempt to session reuse.
// The attempt is recorded as abandoned so diagnostics can tell it apart
// from a run that never needed to sign in.
func (m *Machine) abandonLogin(reason string) string {
	m.Outcome = OutcomeAbandoned
	m.Log.WithField("reason", reason).Warn("sign-in attempted and abandoned, reverting to session reuse")

	m.switchToFirstWindow()
	tok := token.Wait(m.Session, m.Waits.AbandonPoll)
	if tok != "" {
		m.Log.Info("recovered access token from existing session")
	} else {
		m.Log.Warn("no access token found after abandoning sign-in")
	}
	return tok
}

// locateLoginWindow finds the newly-opened login window by title.
func (m *Machine) locateLoginWindow() outcome {
	if !m.switchToWindowTitled(loginWindowTitle) {
		return outcomeAbandoned
	}
	if _, err := m.Session.WaitPresent(browser.ByTag, "body", m.Waits.LoginPageLoad); err != nil {
		m.Log.WithError(err).Warn("login page did not settle")
	}
	return outcomeDone
}

// submitIdentity fills the username field, or falls back to clicking a
// previously-seen account tile when the field never appears.
func (m *Machine) submitIdentity() outcome {
	field, err := m.Session.WaitPresent(browser.ByName, usernameFieldName, m.Waits.UsernameField)
	if err != nil {
		m.sleep(m.Waits.SettleTilePrompt)
		if m.selectAccountTile() {
			m.Log.Info("selected existing account tile")
			return outcomeSkipped
		}
		m.Log.Warn("username field not found, skipping login and reusing session")
		return outcomeAbandoned
	}

	if m.Creds.Username == "" {
		m.Log.Warn("username required but MS_USERNAME is empty")
		return outcomeAbandoned
	}
	if err := field.SendKeys(m.Creds.Username); err != nil {
		m.Log.WithError(err).Warn("failed to enter username")
		return outcomeAbandoned
	}
	if err := field.SendKeys(browser.EnterKey); err != nil {
		m.Log.WithError(err).Warn("failed to submit username")
		return outcomeAbandoned
	}
	return outcomeDone
}

// selectAccountTile clicks a tile matching the configured username,
// skipping the "use another account" tile, with generic tile locators as
// a fallback.
func (m *Machine) selectAccountTile() bool {
	var locators []locator
	if username := m.Creds.Username; username != "" {
		safe := strings.ToLower(username)
		locators = append(locators,
			locator{browser.ByXPath, "//div[@role='button'][.//*[contains(translate(text(), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), '" + safe + "')]]"},
			locator{browser.ByXPath, "//*[contains(text(), '" + username + "')]/ancestor::div[@role='button'][1]"},
		)
	}
	locators = append(locators,
		locator{browser.ByCSS, "div[data-test-id='accountTile']"},
		locator{browser.ByCSS, "div[data-test-id='tile']"},
		locator{browser.ByCSS, "#tilesHolder div[role='button']"},
		locator{browser.ByCSS, "#tilesHolder div[role='listitem']"},
		locator{browser.ByCSS, "div[role='option']"},
	)

	for _, loc := range locators {
		elements, err := m.Session.FindElements(loc.by, loc.value)
		if err != nil || len(elements) == 0 {
			continue
		}
		for _, el := range elements {
			text, _ := el.Text()
			if strings.Contains(strings.ToLower(strings.TrimSpace(text)), "use another account") {
				continue
			}
			if el.Click() == nil {
				return true
			}
		}
	}
	return false
}

// submitPassword fills the password field when one appears. Absence of
// the field is not an error; some tenants go straight to a second
// factor.
func (m *Machine) submitPassword() outcome {
	field, err := m.Session.WaitPresent(browser.ByName, passwordFieldName, m.Waits.PasswordField)
	if err != nil {
		return outcomeSkipped
	}

	if m.Creds.Password == "" {
		m.Log.Warn("password required but MS_PASSWORD is empty")
		return outcomeAbandoned
	}
	if err := field.SendKeys(m.Creds.Password); err != nil {
		m.Log.WithError(err).Warn("failed to enter password")
		return outcomeAbandoned
	}
	if err := field.SendKeys(browser.EnterKey); err != nil {
		m.Log.WithError(err).Warn("failed to submit password")
		return outcomeAbandoned
	}
	m.passwordUsed = true
	return outcomeDone
}

// confirmSignIn clicks the confirm button shown after the password or
// after account tile selection. Best effort.
func (m *Machine) confirmSignIn() outcome {
	m.sleep(m.Waits.SettleShort)
	button, err := m.Session.WaitClickable(browser.ByID, confirmButtonID, m.Waits.ConfirmButton)
	if err != nil {
		if m.passwordUsed {
			m.Log.WithError(err).Warn("sign in button after password not found")
		}
		return outcomeSkipped
	}
	if err := button.Click(); err != nil {
		m.Log.WithError(err).Warn("failed to click sign in confirmation")
		return outcomeSkipped
	}
	if m.passwordUsed {
		m.Log.Info("clicked sign-in button after password")
	} else {
		m.Log.Info("clicked continue button after account selection")
	}
	return outcomeDone
}

// approveSecondFactor clicks the push-notification approval affordance
// and dismisses the "stay signed in" prompt. Both are best effort.
func (m *Machine) approveSecondFactor() {
	button, err := m.Session.WaitClickable(browser.ByCSS, pushApprovalCSS, m.Waits.PushApproval)
	if err != nil {
		m.Log.Info("push approval button not found, continuing")
	} else if err := button.Click(); err != nil {
		m.Log.WithError(err).Warn("failed to click push approval button")
	} else {
		m.sleep(m.Waits.SettleSecondFactor)
	}

	m.sleep(m.Waits.SettleBeforeStay)
	stay, err := m.Session.WaitClickable(browser.ByID, staySignedInID, m.Waits.StaySignedIn)
	if err == nil {
		if err := stay.Click(); err != nil {
			m.Log.WithError(err).Warn("failed to dismiss stay signed in prompt")
		}
	}
}

// settleAfterLogin relocates the application window and polls for the
// freshly issued token.
func (m *Machine) settleAfterLogin() string {
	if !m.switchToWindowTitled(explorerWindowTitle) {
		if err := m.Session.Navigate(m.ExplorerURL); err != nil {
			m.Log.WithError(err).Warn("failed to navigate back to graph explorer")
		}
		if _, err := m.Session.WaitPresent(browser.ByTag, "body", m.Waits.LoginPageLoad); err != nil {
			m.Log.WithError(err).Warn("graph explorer page did not settle after sign-in")
		}
	}

	m.Log.Info("waiting for access token after sign-in")
	tok := token.Wait(m.Session, m.Waits.PostLoginPoll)
	if tok != "" {
		m.Log.Info("access token found after sign-in")
		m.Outcome = OutcomeSignedIn
	}
	return tok
}

// triggerTokenIssuance interacts with the explorer's own access-token UI
// and fires a query so a token lands in storage.
func (m *Machine) triggerTokenIssuance() {
	for _, loc := range accessTokenLocators {
		button, err := m.Session.WaitClickable(loc.by, loc.value, m.Waits.IssuanceButton)
		if err != nil {
			continue
		}
		if err := button.Click(); err != nil {
			continue
		}
		m.sleep(m.Waits.SettleTilePrompt)
		break
	}

	button, err := m.Session.WaitClickable(browser.ByXPath, runQueryButtonXPath, m.Waits.RunQueryClick)
	if err != nil {
		return
	}
	if err := button.Click(); err != nil {
		m.Log.WithError(err).Warn("failed to click run query button")
		return
	}
	m.sleep(m.Waits.SettleAfterRun)
}

// switchToWindowTitled scans all open windows and switches to the first
// whose title contains the given string.
func (m *Machine) switchToWindowTitled(title string) bool {
	handles, err := m.Session.WindowHandles()
	if err != nil {
		m.Log.WithError(err).Warn("failed to enumerate windows")
		return false
	}
	for _, handle := range handles {
		if err := m.Session.SwitchWindow(handle); err != nil {
			continue
		}
		current, err := m.Session.Title()
		if err != nil {
			continue
		}
		if strings.Contains(current, title) {
			return true
		}
	}
	return false
}

func (m *Machine) switchToFirstWindow() {
	handles, err := m.Session.WindowHandles()
	if err != nil || len(handles) == 0 {
		return
	}
	if err := m.Session.SwitchWindow(handles[0]); err != nil {
		m.Log.WithError(err).Warn("failed to switch to original window")
	}
}
