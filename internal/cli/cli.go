package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/zkparallel/internal/app"
	"github.com/specialistvlad/zkparallel/internal/config"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// usageError marks bad invocations, which exit with code 2.
func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// globalFlags are shared by every command.
type globalFlags struct {
	configPaths []string
	logLevel    string
	logFormat   string
	logFile     string
	concurrency int
	offload     string
}

// validate normalizes and checks the flags.
func (f *globalFlags) validate() error {
	f.logFormat = strings.ToLower(f.logFormat)
	if f.logFormat != "text" && f.logFormat != "json" {
		return usageError("invalid log-format: must be 'text' or 'json'")
	}

	f.logLevel = strings.ToLower(f.logLevel)
	switch f.logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	return nil
}

// env is what every command needs to build an App.
type env struct {
	flags  globalFlags
	loader config.Loader
	errW   io.Writer
}

// newApp builds the application. The app panics on critical configuration
// errors; the panic is turned into an error here.
func (e *env) newApp(logW io.Writer) (a *app.App, err error) {
	cfg, err := app.NewConfig(app.Config{
		ConfigPaths: e.flags.configPaths,
		LogFormat:   e.flags.logFormat,
		LogLevel:    e.flags.logLevel,
		LogFile:     e.flags.logFile,
		Concurrency: e.flags.concurrency,
		Offload:     e.flags.offload,
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}

	defer func() {
		if r := recover(); r != nil {
			a = nil
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()
	return app.NewApp(logW, cfg, e.loader), nil
}

// NewRootCommand builds the command tree. Results are written to the
// command's output; logs go to errW.
func NewRootCommand(loader config.Loader, errW io.Writer) *cobra.Command {
	e := &env{loader: loader, errW: errW}

	root := &cobra.Command{
		Use:   "zkparallel",
		Short: "Run interdependent zero-knowledge circuits under bounded concurrency",
		Long: `zkparallel proves and verifies a graph of zero-knowledge circuits.

Circuits run locally, are verified one by one against their on-chain
verifier contracts, or are submitted together to a batch verifier. Circuits,
artifacts, the chain endpoint and relays are declared in HCL files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.flags.validate()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Message: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringSliceVarP(&e.flags.configPaths, "config", "c", nil, "Path to an .hcl file or a directory of .hcl files. Repeatable.")
	pf.StringVar(&e.flags.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&e.flags.logFormat, "log-format", "json", "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&e.flags.logFile, "log-file", "", "Also write logs to this file, rotated by size.")
	pf.IntVarP(&e.flags.concurrency, "concurrency", "j", 0, "Number of circuits proved at once. 0 uses the configured value.")
	pf.StringVar(&e.flags.offload, "offload", "", "Where proofs run: 'none', 'goroutine' or 'process'. Empty uses the configured value.")

	root.AddCommand(
		newRunCommand(e),
		newOrderCommand(e),
		newGraphCommand(e),
		newServeCommand(e),
		newDeploymentsCommand(e),
		newWorkerCommand(e),
	)
	return root
}

// Execute runs the command line args, writing results to outW and logs to
// errW.
func Execute(loader config.Loader, args []string, outW, errW io.Writer) error {
	root := NewRootCommand(loader, errW)
	root.SetArgs(args)
	root.SetOut(outW)
	root.SetErr(errW)
	err := root.Execute()

	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) && isUsageError(err) {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	return err
}

// isUsageError recognizes the argument errors cobra reports without going
// through the flag error function.
func isUsageError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "accepts ") ||
		strings.HasPrefix(msg, "requires ")
}
