package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/avh/meetfetch/internal/browser"
	"github.com/avh/meetfetch/internal/dateparse"
	"github.com/avh/meetfetch/internal/output"
	"github.com/avh/meetfetch/internal/report"
	"github.com/avh/meetfetch/internal/signin"
	"github.com/avh/meetfetch/internal/timewin"
	"github.com/avh/meetfetch/libgraph"
)

var (
	configMgr *libgraph.ConfigManager
	log       *logrus.Entry
	rootCmd   = &cobra.Command{
		Use:   "meetfetch",
		Short: "Monthly calendar meeting reports from Microsoft Graph",
		Long: `meetfetch fetches a month of calendar events from Microsoft Graph,
optionally enriches them with online-meeting attendance, and writes a
JSON report to stdout.

The Graph access token is acquired by driving a real browser through
Graph Explorer sign-in, or with the device code flow when an app
registration is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() {
	// All diagnostics go to stderr; stdout carries only the report.
	logrus.SetOutput(os.Stderr)
	log = logrus.NewEntry(logrus.StandardLogger())

	var err error
	configMgr, err = libgraph.NewConfigManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config manager: %v\n", err)
		os.Exit(1)
	}

	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a month of meetings and write the report",
	Long: `Fetch the signed-in user's calendar events for one month, normalize
them, and print the report as JSON. Attendance enrichment and CSV, ICS,
and SQLite exports are optional.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := configMgr.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		month, _ := cmd.Flags().GetString("month")
		monthOf, _ := cmd.Flags().GetString("month-of")
		tz, _ := cmd.Flags().GetString("tz")
		csvPath, _ := cmd.Flags().GetString("csv")
		icsPath, _ := cmd.Flags().GetString("ics")
		sqlitePath, _ := cmd.Flags().GetString("sqlite")
		attendance, _ := cmd.Flags().GetBool("attendance")
		includeBody, _ := cmd.Flags().GetBool("include-body")
		deviceCode, _ := cmd.Flags().GetBool("device-code")

		if month != "" && monthOf != "" {
			return fmt.Errorf("--month and --month-of are mutually exclusive")
		}

		now := time.Now()
		if monthOf != "" {
			month, err = dateparse.MonthOf(monthOf, now)
			if err != nil {
				return err
			}
		}

		window, err := timewin.ResolveWindow(month, now)
		if err != nil {
			return err
		}

		if tz == "" {
			tz = config.Timezone
		}
		zone := timewin.ResolveTimezone(tz, time.UTC)

		ctx := context.Background()
		token, err := acquireToken(ctx, cmd, config, deviceCode)
		if err != nil {
			return err
		}

		client := libgraph.NewClient(ctx, token, tz)
		events := client.FetchEvents(ctx, client.EventsQueryURL(window, 200, includeBody))
		log.WithFields(logrus.Fields{
			"month":  window.Key,
			"events": len(events),
		}).Info("fetched events")

		opts := report.Options{
			Zone:        zone,
			IncludeBody: includeBody,
			Log:         log,
		}
		if attendance {
			opts.Enrich = func(joinURL string) *libgraph.Attendance {
				return client.FetchAttendance(ctx, joinURL)
			}
		}

		rep := report.Build(window.Key, events, opts)

		if csvPath != "" {
			if err := rep.WriteCSV(csvPath); err != nil {
				return err
			}
			log.WithField("path", csvPath).Info("wrote CSV export")
		}
		if icsPath != "" {
			if err := rep.WriteICS(icsPath); err != nil {
				return err
			}
			log.WithField("path", icsPath).Info("wrote ICS export")
		}
		if sqlitePath != "" {
			if err := rep.WriteSQLite(sqlitePath); err != nil {
				return err
			}
			log.WithField("path", sqlitePath).Info("wrote SQLite export")
		}

		return output.WriteJSON(os.Stdout, rep)
	},
}

// acquireToken obtains a Graph bearer token, either through the device
// code flow or by driving a browser through Graph Explorer sign-in.
func acquireToken(ctx context.Context, cmd *cobra.Command, config *libgraph.Config, deviceCode bool) (string, error) {
	if deviceCode {
		auth, err := libgraph.NewAuthenticator(config)
		if err != nil {
			return "", err
		}
		return auth.AcquireToken(ctx)
	}

	browserName, _ := cmd.Flags().GetString("browser")
	if browserName == "" {
		browserName = config.Browser
	}
	if browserName != "chrome" {
		return "", fmt.Errorf("unsupported browser %q: only chrome is supported", browserName)
	}

	webdriverURL, _ := cmd.Flags().GetString("webdriver-url")
	chromedriver, _ := cmd.Flags().GetString("chromedriver")
	profileDir, _ := cmd.Flags().GetString("profile-dir")
	headless, _ := cmd.Flags().GetBool("headless")

	creds, err := signin.CredentialsFromEnv()
	if err != nil {
		return "", err
	}

	session, err := browser.NewSession(browser.Options{
		RemoteURL:  webdriverURL,
		DriverPath: chromedriver,
		ProfileDir: profileDir,
		Headless:   headless,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start browser: %w", err)
	}
	defer session.Quit()

	machine := signin.New(session, creds, log)
	if config.ExplorerURL != "" {
		machine.ExplorerURL = config.ExplorerURL
	}

	token, err := machine.Acquire()
	if err != nil {
		return "", err
	}

	log.WithField("outcome", machine.Outcome).Info("acquired access token")
	return token, nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the device code flow",
	Long:  `Authenticate against Microsoft Entra ID using the device code flow and prime the token cache`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := configMgr.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		auth, err := libgraph.NewAuthenticator(config)
		if err != nil {
			return err
		}

		if _, err := auth.AcquireToken(context.Background()); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}

		fmt.Println("Successfully authenticated!")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the signed-in user",
	Long:  `Acquire a token with the device code flow and display the signed-in user's profile`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := configMgr.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		auth, err := libgraph.NewAuthenticator(config)
		if err != nil {
			return err
		}

		ctx := context.Background()
		token, err := auth.AcquireToken(ctx)
		if err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}

		me, err := libgraph.NewClient(ctx, token, config.Timezone).GetMe(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Signed in as: %v (%v)\n", me["displayName"], me["userPrincipalName"])
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify meetfetch configuration`,
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set configuration values",
	Long:  `Set configuration values like tenant ID, client ID, timezone, and explorer URL`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := configMgr.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		tenantID, _ := cmd.Flags().GetString("tenant-id")
		clientID, _ := cmd.Flags().GetString("client-id")
		timezone, _ := cmd.Flags().GetString("timezone")
		explorerURL, _ := cmd.Flags().GetString("explorer-url")

		if tenantID != "" {
			config.TenantID = tenantID
		}
		if clientID != "" {
			config.ClientID = clientID
		}
		if timezone != "" {
			config.Timezone = timezone
		}
		if explorerURL != "" {
			config.ExplorerURL = explorerURL
		}

		if err := configMgr.Save(config); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Println("Configuration saved successfully!")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display current configuration settings`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := configMgr.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		fmt.Printf("Tenant ID: %s\n", config.TenantID)
		fmt.Printf("Client ID: %s\n", config.ClientID)
		fmt.Printf("Scopes: %v\n", config.Scopes)
		fmt.Printf("Timezone: %s\n", config.Timezone)
		fmt.Printf("Browser: %s\n", config.Browser)
		fmt.Printf("Explorer URL: %s\n", config.ExplorerURL)

		return nil
	},
}

func init() {
	fetchCmd.Flags().String("month", "", "Month to fetch in YYYY-MM form (default: current month)")
	fetchCmd.Flags().String("month-of", "", "Resolve the month from a date expression, e.g. 'last month' or '2025-03-15'")
	fetchCmd.Flags().String("tz", "", "Output timezone, IANA name or Windows display name (default: configured timezone)")
	fetchCmd.Flags().String("csv", "", "Also write the report to a CSV file at this path")
	fetchCmd.Flags().String("ics", "", "Also write the meetings to an iCalendar file at this path")
	fetchCmd.Flags().String("sqlite", "", "Also append the meetings to a SQLite database at this path")
	fetchCmd.Flags().Bool("attendance", false, "Enrich online meetings with attendance reports")
	fetchCmd.Flags().Bool("include-body", false, "Include event bodies, converted to Markdown")
	fetchCmd.Flags().Bool("device-code", false, "Acquire the token with the device code flow instead of a browser")
	fetchCmd.Flags().String("browser", "", "Browser to drive for sign-in (default: configured browser)")
	fetchCmd.Flags().String("webdriver-url", "", "Connect to a running WebDriver endpoint instead of starting chromedriver")
	fetchCmd.Flags().String("chromedriver", "", "Path to the chromedriver binary")
	fetchCmd.Flags().String("profile-dir", "", "Chrome profile directory to reuse an authenticated session")
	fetchCmd.Flags().Bool("headless", false, "Run the browser headless")

	configSetCmd.Flags().String("tenant-id", "", "Microsoft Entra tenant ID")
	configSetCmd.Flags().String("client-id", "", "Microsoft Entra client ID")
	configSetCmd.Flags().String("timezone", "", "Default output timezone")
	configSetCmd.Flags().String("explorer-url", "", "Graph Explorer URL override")

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
}

func main() {
	cobra.OnInitialize(func() {
		if verbose, _ := rootCmd.PersistentFlags().GetBool("verbose"); verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
