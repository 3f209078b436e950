package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cognicore/bayesnet/internal/logging"
	"github.com/cognicore/bayesnet/pkg/bayesnet"
	"github.com/cognicore/bayesnet/pkg/bayesnet/config"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/metrics"
	"github.com/cognicore/bayesnet/pkg/bayesnet/query"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store/memstore"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store/sqlite"
)

type options struct {
	configPath  string
	dbPath      string
	networkPath string
	logLevel    string
	exec        string
	metricsAddr string
	seed        uint64
	seedSet     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "bayes-cli",
		Short: "Query discrete Bayesian networks",
		Long: `bayes-cli reads commands from stdin, one per line:

` + query.Usage,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.seedSet = cmd.Flags().Changed("seed")
			ctx := cmd.Context()

			sess, cleanup, err := buildSession(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			if opts.exec != "" {
				_, err := executeCommand(ctx, sess, opts.exec, cmd.OutOrStdout())
				return err
			}
			return runLoop(ctx, sess, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Configuration file (YAML)")
	flags.StringVar(&opts.dbPath, "db", "", "SQLite database for networks and query history (overrides config)")
	flags.StringVar(&opts.networkPath, "network", "", "Network file to load at startup")
	flags.StringVar(&opts.logLevel, "log-level", "", "Logging level (debug, info, warn, error)")
	flags.Uint64Var(&opts.seed, "seed", 0, "Sampler seed, 0 for nondeterministic (overrides config)")
	rootCmd.Flags().StringVar(&opts.exec, "exec", "", "Run a single command and exit")
	rootCmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	rootCmd.AddCommand(newHistoryCmd(opts), newNetworksCmd(opts))
	return rootCmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	var (
		network string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.seedSet = cmd.Flags().Changed("seed")
			sess, cleanup, err := buildSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := sess.History(cmd.Context(), network, limit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().StringVar(&network, "for", "", "Only show queries against this network")
	cmd.Flags().IntVar(&limit, "limit", store.DefaultRunLimit, "Maximum number of queries to show")
	return cmd
}

func newNetworksCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List stored networks",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.seedSet = cmd.Flags().Changed("seed")
			sess, cleanup, err := buildSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			recs, err := sess.Networks(cmd.Context())
			if err != nil {
				return err
			}
			printNetworks(cmd.OutOrStdout(), recs)
			return nil
		},
	}
}

// runLoop executes commands from in until quit or end of input. Command
// errors are printed and do not stop the loop.
func runLoop(ctx context.Context, sess *bayesnet.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		quit, err := executeCommand(ctx, sess, line, out)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

// executeCommand runs one command line and writes its output to out.
func executeCommand(ctx context.Context, sess *bayesnet.Session, line string, out io.Writer) (bool, error) {
	cmd, err := query.ParseCommand(line)
	if err != nil {
		return false, err
	}

	switch cmd.Verb {
	case query.VerbQuit:
		return true, nil

	case query.VerbHelp:
		fmt.Fprintln(out, query.Usage)

	case query.VerbLoad:
		_, err = sess.Load(ctx, cmd.Arg)

	case query.VerbUse:
		_, err = sess.Use(ctx, cmd.Arg)

	case query.VerbNetworks:
		var recs []store.NetworkRecord
		if recs, err = sess.Networks(ctx); err == nil {
			printNetworks(out, recs)
		}

	case query.VerbXQuery, query.VerbRQuery, query.VerbGQuery:
		method, perr := inference.ParseMethod(string(cmd.Verb))
		if perr != nil {
			return false, perr
		}
		r, qerr := sess.Query(ctx, method, cmd.Arg)
		if qerr != nil {
			return false, qerr
		}
		fmt.Fprintln(out, r.Line())

	case query.VerbCompare:
		var cmp bayesnet.Comparison
		if cmp, err = sess.Compare(ctx, cmd.Arg); err == nil {
			printComparison(out, cmp)
		}

	case query.VerbHistory:
		limit := store.DefaultRunLimit
		if cmd.Arg != "" {
			if limit, err = strconv.Atoi(cmd.Arg); err != nil || limit <= 0 {
				return false, fmt.Errorf("history: invalid count %q", cmd.Arg)
			}
		}
		var runs []store.Run
		if runs, err = sess.History(ctx, "", limit); err == nil {
			printRuns(out, runs)
		}
	}
	return false, err
}

func printComparison(out io.Writer, cmp bayesnet.Comparison) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range cmp.Reports {
		if dev, ok := cmp.Deviation[r.Method]; ok {
			fmt.Fprintf(tw, "%s\t%s\tmax deviation %.4f\n", r.Method, r.Line(), dev)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t\n", r.Method, r.Line())
		}
	}
	tw.Flush()
}

func printNetworks(out io.Writer, recs []store.NetworkRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(out, "no networks loaded")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, n := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d variables\t%s\n", n.Name, n.Format, n.Variables, n.LoadedAt.Format(time.RFC3339))
	}
	tw.Flush()
}

func printRuns(out io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "no queries yet")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range runs {
		result := formatProbs(r.Probs)
		if r.Error != "" {
			result = "error: " + r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Network, r.Method, r.Query, result, r.Elapsed.Round(time.Microsecond))
	}
	tw.Flush()
}

func formatProbs(probs []float64) string {
	parts := make([]string, len(probs))
	for i, p := range probs {
		parts[i] = strconv.FormatFloat(p, 'f', 4, 64)
	}
	return strings.Join(parts, " ")
}

// buildSession wires configuration, logging, storage and metrics into a
// Session. Flags take precedence over the configuration file.
func buildSession(ctx context.Context, opts *options, logOut io.Writer) (*bayesnet.Session, func(), error) {
	loader := config.Loader{
		ConfigPath:  opts.configPath,
		NetworkPath: opts.networkPath,
	}
	components, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}

	cfg := components.Config
	if opts.dbPath != "" {
		cfg.Store.Driver = config.DriverSQLite
		cfg.Store.Path = opts.dbPath
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.seedSet {
		cfg.Sampling.Seed = opts.seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, nil, err
	}

	var st store.Store
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		st, err = sqlite.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
	default:
		st = memstore.New()
	}

	reg := prometheus.NewRegistry()
	sess, err := bayesnet.New(bayesnet.Options{
		Store:   st,
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(reg),
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	if components.Network != nil {
		if err := sess.Add(ctx, components.Network); err != nil {
			sess.Close()
			return nil, nil, err
		}
	}

	stopMetrics := serveMetrics(opts.metricsAddr, reg, logger)
	cleanup := func() {
		stopMetrics()
		sess.Close()
	}
	return sess, cleanup, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger logrus.FieldLogger) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()
	logger.WithField("addr", addr).Info("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
