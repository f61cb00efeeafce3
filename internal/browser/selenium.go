package browser

import (
	"fmt"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

const defaultDriverPort = 9515

// Options configures a real WebDriver-backed session.
type Options struct {
	// RemoteURL points at an already-running WebDriver endpoint (e.g.
	// safaridriver). When empty, a local chromedriver is started.
	RemoteURL string
	// DriverPath is the chromedriver binary. Defaults to "chromedriver"
	// on PATH.
	DriverPath string
	// ProfileDir reuses an existing Chrome profile so an authenticated
	// session can be picked up without interactive sign-in.
	ProfileDir string
	Headless   bool
}

type seleniumSession struct {
	wd      selenium.WebDriver
	service *selenium.Service
}

// NewSession starts a browser and returns it as a Session. The caller
// must Quit the session on every exit path.
func NewSession(opts Options) (Session, error) {
	caps := selenium.Capabilities{"browserName": "chrome"}

	args := []string{"--start-maximized"}
	if opts.ProfileDir != "" {
		args = append(args, "--user-data-dir="+opts.ProfileDir, "--profile-directory=Default")
	}
	if opts.Headless {
		args = append(args,
			"--headless=new",
			"--window-size=1280,900",
			"--disable-gpu",
			"--no-first-run",
			"--no-default-browser-check",
		)
	}
	caps.AddChrome(chrome.Capabilities{Args: args})

	if opts.RemoteURL != "" {
		wd, err := selenium.NewRemote(caps, opts.RemoteURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to webdriver at %s: %w", opts.RemoteURL, err)
		}
		return &seleniumSession{wd: wd}, nil
	}

	driverPath := opts.DriverPath
	if driverPath == "" {
		driverPath = "chromedriver"
	}

	service, err := selenium.NewChromeDriverService(driverPath, defaultDriverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to start chromedriver: %w", err)
	}

	wd, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d/wd/hub", defaultDriverPort))
	if err != nil {
		service.Stop()
		return nil, fmt.Errorf("failed to create browser session: %w", err)
	}

	return &seleniumSession{wd: wd, service: service}, nil
}

func (s *seleniumSession) Navigate(url string) error {
	return s.wd.Get(url)
}

func (s *seleniumSession) Title() (string, error) {
	return s.wd.Title()
}

func (s *seleniumSession) WindowHandles() ([]string, error) {
	return s.wd.WindowHandles()
}

func (s *seleniumSession) SwitchWindow(handle string) error {
	return s.wd.SwitchWindow(handle)
}

func (s *seleniumSession) WaitPresent(by, value string, timeout time.Duration) (Element, error) {
	err := s.wd.WaitWithTimeout(func(wd selenium.WebDriver) (bool, error) {
		if _, err := wd.FindElement(by, value); err != nil {
			return false, nil
		}
		return true, nil
	}, timeout)
	if err != nil {
		return nil, fmt.Errorf("element %s=%q not present: %w", by, value, err)
	}
	return s.wd.FindElement(by, value)
}

func (s *seleniumSession) WaitClickable(by, value string, timeout time.Duration) (Element, error) {
	err := s.wd.WaitWithTimeout(func(wd selenium.WebDriver) (bool, error) {
		el, err := wd.FindElement(by, value)
		if err != nil {
			return false, nil
		}
		displayed, err := el.IsDisplayed()
		if err != nil || !displayed {
			return false, nil
		}
		enabled, err := el.IsEnabled()
		if err != nil || !enabled {
			return false, nil
		}
		return true, nil
	}, timeout)
	if err != nil {
		return nil, fmt.Errorf("element %s=%q not clickable: %w", by, value, err)
	}
	return s.wd.FindElement(by, value)
}

func (s *seleniumSession) FindElements(by, value string) ([]Element, error) {
	found, err := s.wd.FindElements(by, value)
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(found))
	for _, el := range found {
		elements = append(elements, el)
	}
	return elements, nil
}

func (s *seleniumSession) ExecuteScript(script string, args []interface{}) (interface{}, error) {
	return s.wd.ExecuteScript(script, args)
}

func (s *seleniumSession) Quit() error {
	err := s.wd.Quit()
	if s.service != nil {
		s.service.Stop()
	}
	return err
}
