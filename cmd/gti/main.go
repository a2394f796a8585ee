package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	ex "gti/data/extensions"
	"gti/data/files"
	dm "gti/data/models"
	r "gti/data/repos"
	"gti/service/config"
	c "gti/service/core"
	"gti/service/export"
)

const usage = `usage:
  gti compute -prices prices.csv -weights weights.csv [-settings settings.yaml] [-start 2006-01-02] [-end 2006-01-02] [-out result.csv|result.xlsx] [-json]
  gti import  -prices prices.csv [-weights weights.csv]
`

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "compute":
		err = runCompute(os.Args[2:], os.Stdout, logger)
	case "import":
		err = runImport(os.Args[2:], logger)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error().Err(err).Msg(os.Args[1] + " failed")
		os.Exit(1)
	}
}

func runCompute(args []string, out io.Writer, logger zerolog.Logger) error {
	fl := flag.NewFlagSet("compute", flag.ContinueOnError)
	pricesPath := fl.String("prices", "", "price table csv, date column then one column per symbol")
	weightsPath := fl.String("weights", "", "weight table csv, symbol,weight,positive[,full_name]")
	settingsPath := fl.String("settings", "", "engine settings yaml, defaults when omitted")
	start := fl.String("start", "", "first date to include")
	end := fl.String("end", "", "last date to include")
	outPath := fl.String("out", "", "write the result to a .csv or .xlsx file")
	asJSON := fl.Bool("json", false, "print the full result as json")
	if err := fl.Parse(args); err != nil {
		return err
	}
	if *pricesPath == "" || *weightsPath == "" {
		return fmt.Errorf("both -prices and -weights are required")
	}

	prices, err := files.LoadPricesFile(*pricesPath)
	if err != nil {
		return err
	}
	weights, err := files.LoadWeightsFile(*weightsPath)
	if err != nil {
		return err
	}

	settings := c.DefaultSettings()
	if *settingsPath != "" {
		if settings, err = config.LoadSettingsFile(*settingsPath); err != nil {
			return err
		}
	}

	from, to, err := parseBounds(*start, *end)
	if err != nil {
		return err
	}
	prices = prices.Between(from, to)

	logger.Info().Int("rows", prices.Len()).Int("instruments", len(weights)).Msg("computing index")
	res, err := c.ComputeIndex(prices, weights, settings)
	if err != nil {
		return err
	}
	for _, e := range res.Diagnostics.Excluded {
		logger.Warn().Str("symbol", e.Symbol).Str("reason", e.Reason).Msg("instrument excluded")
	}

	if *outPath != "" {
		if err := export.WriteFile(*outPath, res); err != nil {
			return err
		}
		logger.Info().Str("path", *outPath).Msg("wrote result")
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(c.BuildIndexResponse("", res))
	}
	printSummary(out, res)
	return nil
}

func runImport(args []string, logger zerolog.Logger) error {
	fl := flag.NewFlagSet("import", flag.ContinueOnError)
	pricesPath := fl.String("prices", "", "price table csv to load into the database")
	weightsPath := fl.String("weights", "", "optional weight table csv, its full names are stored as instrument metadata")
	if err := fl.Parse(args); err != nil {
		return err
	}
	if *pricesPath == "" {
		return fmt.Errorf("-prices is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	prices, err := files.LoadPricesFile(*pricesPath)
	if err != nil {
		return err
	}

	names := map[string]string{}
	if *weightsPath != "" {
		weights, err := files.LoadWeightsFile(*weightsPath)
		if err != nil {
			return err
		}
		for _, w := range ex.FilterMultiple(weights, func(w dm.WeightEntry) bool { return w.FullName.Valid }) {
			names[w.Symbol] = w.FullName.String
		}
	}

	pg, err := r.GetPostgresConnection(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		return err
	}
	defer pg.Close()

	n, err := pg.ImportPriceTable(ctx, prices, names)
	if err != nil {
		return err
	}

	logger.Info().Int64("observations", n).Int("instruments", len(prices.Symbols)).Msg("imported prices")

	if !cfg.CacheEnabled() {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer client.Close()
	return clearResultCache(ctx, client, logger)
}

// clearResultCache drops results computed before the import, the prices are already
// committed so a failure here only leaves stale entries until their ttl runs out
func clearResultCache(ctx context.Context, client *redis.Client, logger zerolog.Logger) error {
	if _, err := c.NewResultCache(client, 0, logger).Clear(ctx); err != nil {
		return fmt.Errorf("prices imported but cached results were not cleared: %w", err)
	}
	return nil
}

func parseBounds(start, end string) (from, to time.Time, err error) {
	if start != "" {
		if from, err = ex.ParseShort(start); err != nil {
			return from, to, fmt.Errorf("invalid -start: %w", err)
		}
	}
	if end != "" {
		if to, err = ex.ParseShort(end); err != nil {
			return from, to, fmt.Errorf("invalid -end: %w", err)
		}
	}
	return from, to, nil
}

func printSummary(out io.Writer, res *c.IndexResult) {
	if !res.Latest.Valid {
		fmt.Fprintln(out, "no index points, every instrument was excluded")
		return
	}

	fmt.Fprintf(out, "latest  %s (%s)\n", decimal.NewFromFloat(res.Latest.Float64).StringFixed(2), res.Band)
	fmt.Fprintf(out, "points  %d, %s to %s\n", len(res.Points),
		ex.FmtShort(res.Points[0].Timestamp), ex.FmtShort(res.Points[len(res.Points)-1].Timestamp))
	fmt.Fprintf(out, "active  %v, total weight %s\n", res.Diagnostics.ActiveSymbols,
		decimal.NewFromFloat(res.Diagnostics.TotalWeight).String())
	if res.Diagnostics.PenalizedPeriods > 0 {
		fmt.Fprintf(out, "penalty %d periods below %s\n", res.Diagnostics.PenalizedPeriods,
			decimal.NewFromFloat(res.Diagnostics.PenaltyThreshold.Float64).StringFixed(6))
	}
	if res.Stats.MaxDrawdown.Valid {
		fmt.Fprintf(out, "max drawdown %s%%\n", decimal.NewFromFloat(res.Stats.MaxDrawdown.Float64*100).StringFixed(2))
	}
}
