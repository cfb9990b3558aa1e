package main

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	lcs "github.com/gofhir/labcodeset"
	"github.com/gofhir/labcodeset/engine"
	"github.com/gofhir/labcodeset/fhirclient"
	"github.com/gofhir/labcodeset/output"
	"github.com/gofhir/labcodeset/pkg/issue"
	"github.com/gofhir/labcodeset/pkg/logger"
	"github.com/gofhir/labcodeset/terminology"
)

func newTransformCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Generate the FHIR release files of a publication",
		Example: `  labcodeset-fhir transform -f labcodeset.xml -l 2.72 -e https://terminology.example.org/fhir -o release
  LABCODESET_CLIENT_SECRET=... labcodeset-fhir transform --config labcodeset.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := newViper(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runTransform(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (yaml, json or toml)")
	defineFlags(cmd.Flags())
	return cmd
}

// runTransform wires the collaborators, runs the transform and writes the
// release files. It writes nothing when the run fails.
func runTransform(ctx context.Context, cfg *Config, stdout, stderr io.Writer) error {
	log, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}

	col := issue.NewCollector(logger.Component(log, "diagnostics"))
	metrics := lcs.NewMetrics()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	clientOpts := []fhirclient.ClientOption{
		fhirclient.WithHTTPClient(httpClient),
		fhirclient.WithUserAgent("labcodeset-fhir/" + lcs.Version),
	}
	if cfg.useToken() {
		ts := fhirclient.NewTokenSource(httpClient, cfg.TokenEndpoint, cfg.ClientID, cfg.ClientSecret)
		clientOpts = append(clientOpts, fhirclient.WithTokenSource(ts))
	}
	client := fhirclient.NewClient(cfg.FhirEndpoint, clientOpts...)

	cacheOpts := []terminology.CacheOption{
		terminology.WithIssues(col),
		terminology.WithRecorder(metrics),
		terminology.WithLogger(logger.Component(log, "lookup")),
	}
	if cfg.RedisURL != "" {
		store, err := terminology.OpenRedisStore(ctx, cfg.RedisURL,
			terminology.WithPrefix(cfg.RedisPrefix),
			terminology.WithTTL(cfg.RedisTTL),
		)
		if err != nil {
			return err
		}
		defer store.Close()
		cacheOpts = append(cacheOpts, terminology.WithStore(store))
	}
	lookup := terminology.NewLookupCache(client, cacheOpts...)
	units := fhirclient.NewCommonUnitsFetcher(httpClient, cfg.CommonUnitsURL)

	t := engine.New(lookup, units,
		lcs.WithParallelGenerators(cfg.Parallel),
		lcs.WithPrefetchWorkers(cfg.PrefetchWorkers),
		lcs.WithGeneratorTimeout(cfg.GeneratorTimeout),
		lcs.WithLogger(log),
		lcs.WithIssues(col),
		lcs.WithMetrics(metrics),
	)

	result, runErr := t.RunFile(ctx, cfg.LabcodesetFile, cfg.LoincVersion)
	defer writeMetrics(log, metrics, cfg.MetricsFile)
	if runErr != nil {
		if result != nil {
			log.Warn().Strs("completed", result.Completed).Int("resources", len(result.Resources)).
				Msg("no release files written")
		}
		return runErr
	}

	w := output.NewWriter(cfg.OutputDir, output.WithLogger(logger.Component(log, "output")))
	paths, err := w.WriteAll(result.Resources, result.Bundle, result.Version)
	if err != nil {
		return err
	}

	display, props := lookup.Stats()
	log.Debug().
		Int64("remote_calls", lookup.RemoteCalls()).
		Uint64("display_hits", display.Hits).
		Uint64("property_hits", props.Hits).
		Msg("lookup cache")

	printSummary(stdout, result, paths)
	return nil
}

func newLogger(cfg *Config, w io.Writer) (zerolog.Logger, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), err
	}
	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		return zerolog.Nop(), err
	}
	return logger.New(w, level, format), nil
}

func writeMetrics(log zerolog.Logger, m *lcs.Metrics, path string) {
	if path == "" {
		return
	}
	if err := m.WriteToTextfile(path); err != nil {
		log.Error().Err(err).Str("file", path).Msg("failed to write metrics")
		return
	}
	log.Debug().Str("file", path).Msg("wrote metrics")
}
