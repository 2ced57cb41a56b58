package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata"

	"raindrop-charts/src/config"
	datasource "raindrop-charts/src/data_source"
	"raindrop-charts/src/data_source/file"
	"raindrop-charts/src/helpers"
	"raindrop-charts/src/interfaces"
	"raindrop-charts/src/logger"
	"raindrop-charts/src/models"
	"raindrop-charts/src/server"
	"raindrop-charts/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional .env file loaded before the config")
	ticker := flag.String("ticker", "", "build one chart for this ticker, print it as JSON and exit")
	company := flag.String("company", "", "like -ticker, by company name")
	date := flag.String("date", "", "trading date YYYY-MM-DD (default: previous trading day)")
	bin := flag.Int("bin", 0, "bin width in minutes (default from config)")
	interval := flag.String("interval", "", "bar interval (default from config)")
	saveBars := flag.String("save-bars", "", "with -ticker: also write the fetched bars as parquet into this dir")
	var margin *float64
	flag.Func("margin", "color margin (default from config)", func(v string) error {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		margin = &m
		return nil
	})
	flag.Parse()

	// 2. Load config
	if err := config.LoadEnvFile(*envPath); err != nil {
		fmt.Printf("Error loading env file: %v\n", err)
		os.Exit(1)
	}
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	oneShot := *ticker != "" || *company != ""
	logOutput := conf.LogOutput
	if oneShot && (logOutput == "" || logOutput == "stdout") {
		// stdout carries the chart JSON
		logOutput = "stderr"
	}
	if err := logger.Configure(logger.Options{
		Level:  conf.LogLevel,
		Format: conf.LogFormat,
		Output: logOutput,
		MaxAge: conf.LogMaxAge,
	}); err != nil {
		fmt.Printf("Error configuring logger: %v\n", err)
		os.Exit(1)
	}
	appLogger := logger.NewLogger(conf.Name)
	appLogger.Info("Memory limit set to: %d MB", helpers.ApplyMemoryLimit())

	// 4. Setup Components
	scheduler := utils.NewMarketScheduler(logger.NewLogger("MarketScheduler"))
	networkManager := setupNetwork(conf.MConfig)
	multiSource, err := setupDataSources(conf.MConfig, scheduler, networkManager, appLogger)
	if err != nil {
		os.Exit(1)
	}
	facade := setupAnalysis(conf.MConfig, multiSource, scheduler)
	catalog := setupCatalog(conf, appLogger)

	// 5. One-shot mode
	if oneShot {
		query := server.ChartQuery{
			Ticker:   *ticker,
			Company:  *company,
			Date:     *date,
			Bin:      *bin,
			Margin:   margin,
			Interval: *interval,
		}
		resolver := &server.Resolver{
			Chart:     conf.Chart,
			Interval:  conf.DataSource.Interval,
			Catalog:   catalog,
			Scheduler: scheduler,
		}
		if err := runOnce(resolver, facade, multiSource, query, *saveBars, appLogger); err != nil {
			appLogger.Error("%v", err)
			os.Exit(1)
		}
		return
	}

	// 6. Start Servers
	srv := server.NewFastAPIServer(conf.MConfig, facade, catalog, scheduler, logger.NewLogger("FastAPIServer"))
	stop := startServers(srv, facade, multiSource, conf, *configPath, networkManager, scheduler, appLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stop(ctx)
	appLogger.Info("Shutdown complete.")
}

// -----------------------------------------------------------------------------

// runOnce builds a single chart and writes it to stdout.
func runOnce(
	resolver *server.Resolver,
	facade interfaces.IChartService,
	multiSource *datasource.MultiSourceManager,
	query server.ChartQuery,
	saveDir string,
	appLogger *logger.Logger,
) error {
	req, _, err := resolver.Resolve(query)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if saveDir != "" {
		bars, err := multiSource.FetchBars(ctx, models.MBarRequest{Symbol: req.Symbol, Start: req.Start, End: req.End, Interval: req.Interval})
		if err != nil {
			return err
		}
		archive := file.NewFileSource(models.MSourceConfig{Name: "export", Type: "file", Dir: saveDir, Format: "parquet"}, resolver.Scheduler)
		if err := archive.WriteBars(req.Symbol, bars); err != nil {
			return err
		}
		appLogger.Info("Wrote %d bars to %s", len(bars), archive.Path(req.Symbol))
	}

	resp, err := facade.BuildChart(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
