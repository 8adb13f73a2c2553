package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/hr-console/modules/hrm/infrastructure/rest"
	"github.com/iota-uz/hr-console/pkg/configuration"
	"github.com/iota-uz/hr-console/pkg/logging"
)

const defaultSubjectHeader = "X-Authz-Subject"

type rootOptions struct {
	apiURL        string
	token         string
	subject       string
	subjectHeader string
	timeout       time.Duration
	verbose       bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "kpi-editor",
		Short:         "Inspect, validate and edit position KPI allocations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api", "", "Console API base URL (default: HRM_API_BASE_URL)")
	flags.StringVar(&opts.token, "token", "", "Bearer token (default: HRM_API_TOKEN)")
	flags.StringVar(&opts.subject, "subject", "", "Authorization subject sent to the API, e.g. user:alice")
	flags.StringVar(&opts.subjectHeader, "subject-header", defaultSubjectHeader, "Header carrying --subject")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout of a single API request")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log API traffic to stderr")

	cmd.AddCommand(newShowCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(newEditCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	return cmd
}

func (o *rootOptions) logger(cmd *cobra.Command) *logrus.Entry {
	level := logrus.WarnLevel
	if o.verbose {
		level = logrus.DebugLevel
	}
	l := logging.ConsoleLogger(level)
	l.SetOutput(cmd.ErrOrStderr())
	return logrus.NewEntry(l).WithField("app", "kpi-editor")
}

// client falls back to the environment configuration only when --api is
// not given.
func (o *rootOptions) client(cmd *cobra.Command) (*rest.Client, error) {
	base, token := strings.TrimSpace(o.apiURL), o.token
	if base == "" {
		conf := configuration.Use()
		base = conf.HRM.APIBaseURL
		if token == "" {
			token = conf.HRM.APIToken
		}
	}
	if base == "" {
		return nil, withCode(exitUsage, fmt.Errorf("--api is required"))
	}
	if o.timeout <= 0 {
		return nil, withCode(exitUsage, fmt.Errorf("--timeout must be positive"))
	}
	return rest.NewClient(base,
		rest.WithHTTPClient(&http.Client{Timeout: o.timeout}),
		rest.WithToken(token),
		rest.WithSubject(o.subjectHeader, o.subject),
		rest.WithLogger(o.logger(cmd)),
	), nil
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
