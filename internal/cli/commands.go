package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/zkparallel/internal/circuit"
	"github.com/specialistvlad/zkparallel/internal/orchestrator"
	"github.com/specialistvlad/zkparallel/internal/task"
	"github.com/spf13/cobra"
)

func newRunCommand(e *env) *cobra.Command {
	var (
		modeName string
		onChain  bool
		batch    bool
		chained  bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "run [circuit...]",
		Short: "Prove and verify circuits",
		Long: `Prove and verify the given circuits, or the default selection when none
are given. The command exits non-zero unless every circuit verified.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := runMode(modeName, onChain, batch, chained)
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}

			a, err := e.newApp(e.errW)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			req := orchestrator.Request{IDs: args, Mode: mode}
			if !asJSON {
				req.OnEvent = func(ev task.Event) {
					if ev.Kind == task.EventLog {
						fmt.Fprintln(out, formatLogLine(ev))
					}
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			report, err := a.Run(ctx, req)
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else if err := renderReport(out, report); err != nil {
				return err
			}

			if !report.AllOK() {
				return &ExitError{Code: 1, Message: fmt.Sprintf("%d/%d circuits verified", report.Summary.OK, report.Summary.Total)}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&modeName, "mode", "m", "", "Execution mode: 'local', 'chained', 'onchain' or 'batch'. Empty uses the configured mode.")
	cmd.Flags().BoolVar(&onChain, "onchain", false, "Verify each proof on-chain.")
	cmd.Flags().BoolVar(&batch, "batch", false, "Verify all proofs in one batch call. Requires --onchain.")
	cmd.Flags().BoolVar(&chained, "chained", false, "Feed each circuit the outputs of its predecessors.")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON.")
	cmd.MarkFlagsMutuallyExclusive("mode", "onchain")
	cmd.MarkFlagsMutuallyExclusive("mode", "chained")
	return cmd
}

// runMode resolves --mode and the mode flags. Empty means the configured mode.
func runMode(name string, onChain, batch, chained bool) (orchestrator.Mode, error) {
	if name != "" {
		return orchestrator.ParseMode(name)
	}
	if onChain || batch || chained {
		return orchestrator.NewMode(onChain, batch, chained)
	}
	return "", nil
}

func newOrderCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "order [circuit...]",
		Short: "Print the execution order",
		Long: `Print the order circuits run in: all circuits when none are given,
otherwise the given circuits and everything they depend on.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.newApp(e.errW)
			if err != nil {
				return err
			}
			defer a.Close()

			var order []string
			if len(args) == 0 {
				order, err = circuit.ResolveOrder(a.Graph())
			} else {
				order, err = circuit.WithDependencies(a.Graph(), args)
			}
			if err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			out := cmd.OutOrStdout()
			for i, id := range order {
				fmt.Fprintf(out, "%d. %s\n", i+1, id)
			}
			return nil
		},
	}
}

func newGraphCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Describe the circuit dependency graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.newApp(e.errW)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprint(out, circuit.Describe(a.Graph()))
			fmt.Fprintln(out)
			return renderCircuits(out, a.Graph())
		},
	}
}

func newServeCommand(e *env) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.newApp(e.errW)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on.")
	return cmd
}

func newDeploymentsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "deployments",
		Short: "Check that every deployed verifier has code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.newApp(e.errW)
			if err != nil {
				return err
			}
			defer a.Close()

			statuses, err := a.Deployments(cmd.Context())
			if err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			deployed, err := renderDeployments(cmd.OutOrStdout(), statuses)
			if err != nil {
				return err
			}
			if deployed != len(statuses) {
				return &ExitError{Code: 1, Message: fmt.Sprintf("%d/%d contracts have no code", len(statuses)-deployed, len(statuses))}
			}
			return nil
		},
	}
}

// newWorkerCommand serves the worker protocol on stdin and stdout. It is
// started by the process offload mode, not by users.
func newWorkerCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Short:  "Serve proof requests on stdin and stdout",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol, so logs must not go there.
			e.flags.offload = "none"
			a, err := e.newApp(e.errW)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.ServeWorker(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
