// Package browser exposes a controllable web session as a narrow
// interface so the sign-in flow can be tested without a real browser.
package browser

import "time"

// Locator strategies, matching the WebDriver wire protocol values.
const (
	ByID    = "id"
	ByName  = "name"
	ByCSS   = "css selector"
	ByXPath = "xpath"
	ByTag   = "tag name"
)

// EnterKey is the WebDriver key code for Enter.
const EnterKey = ""

// Element is a located page element.
type Element interface {
	Click() error
	Text() (string, error)
	SendKeys(value string) error
}

// Session is the capability set required by the token extractor and the
// sign-in state machine.
type Session interface {
	Navigate(url string) error
	Title() (string, error)
	WindowHandles() ([]string, error)
	SwitchWindow(handle string) error
	WaitPresent(by, value string, timeout time.Duration) (Element, error)
	WaitClickable(by, value string, timeout time.Duration) (Element, error)
	FindElements(by, value string) ([]Element, error)
	ExecuteScript(script string, args []interface{}) (interface{}, error)
	Quit() error
}
