// Command report runs the sales pipeline once from the command line
// and prints KPIs and the forecast, optionally saving the filtered
// subset as CSV or xlsx.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"salespulse/internal/app"
	"salespulse/internal/config"
	"salespulse/internal/exporter"
	"salespulse/internal/infrastructure"
	"salespulse/internal/sales"
	"salespulse/internal/services"
)

func main() {
	dataset := flag.String("dataset", "", "dataset file (defaults to the configured path)")
	region := flag.String("region", "", "region to filter on (required)")
	products := flag.String("products", "", "comma-separated products (required)")
	start := flag.String("start", "", "range start, YYYY-MM-DD (defaults to the dataset minimum)")
	end := flag.String("end", "", "range end, YYYY-MM-DD (defaults to the dataset maximum)")
	granularity := flag.String("granularity", "monthly", "trend granularity: daily, weekly, or monthly")
	horizon := flag.Int("horizon", 0, "forecast horizon in months (defaults to the configured value)")
	exportFormat := flag.String("export", "", "save the filtered subset as csv or xlsx")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail("loading configuration", err)
	}
	if *dataset != "" {
		cfg.Dataset.File = *dataset
	}

	cfg.Logging.Output = "stdout"
	cfg.Logging.Level = "warn"
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fail("initializing logger", err)
	}

	paths, err := config.GetPaths(cfg.Dataset.File)
	if err != nil {
		fail("resolving paths", err)
	}

	store, err := app.LoadStore(cfg.Dataset, paths)
	if err != nil {
		fail("loading dataset", err)
	}

	criteria, err := buildCriteria(store, *region, *products, *start, *end, *granularity)
	if err != nil {
		fail("invalid arguments", err)
	}

	svc := services.NewDashboardService(store, cfg.Dashboard, nil, logger)

	ctx := context.Background()
	snapshot, err := svc.Compute(ctx, criteria, *horizon)
	if err != nil {
		if err == sales.ErrEmptySelection {
			fmt.Println("No records match the selection.")
			os.Exit(0)
		}
		fail("running pipeline", err)
	}

	printReport(snapshot, store)

	if *exportFormat != "" {
		format, err := exporter.ParseFormat(*exportFormat)
		if err != nil {
			fail("invalid export format", err)
		}
		fw := exporter.NewFileWriter(paths)
		path, err := fw.Save(criteria.Region, snapshot.Subset, format)
		if err != nil {
			fail("saving export", err)
		}
		fmt.Printf("\nExport saved to %s\n", path)

		forecastPath, err := fw.SaveForecast(criteria.Region, snapshot.Forecast)
		if err != nil {
			fail("saving forecast", err)
		}
		fmt.Printf("Forecast saved to %s\n", forecastPath)
	}
}

func buildCriteria(store *sales.Store, region, products, start, end, granularity string) (sales.FilterCriteria, error) {
	var criteria sales.FilterCriteria

	if region == "" {
		return criteria, fmt.Errorf("-region is required (available: %s)", strings.Join(store.Regions(), ", "))
	}

	var productList []string
	for _, p := range strings.Split(products, ",") {
		if p = strings.TrimSpace(p); p != "" {
			productList = append(productList, p)
		}
	}
	if len(productList) == 0 {
		return criteria, fmt.Errorf("-products is required (available: %s)", strings.Join(store.Products(), ", "))
	}

	minDate, maxDate := store.DateRange()
	startDate, endDate := minDate, maxDate
	var err error
	if start != "" {
		if startDate, err = time.Parse("2006-01-02", start); err != nil {
			return criteria, fmt.Errorf("invalid -start: %w", err)
		}
	}
	if end != "" {
		if endDate, err = time.Parse("2006-01-02", end); err != nil {
			return criteria, fmt.Errorf("invalid -end: %w", err)
		}
	}

	g, err := sales.ParseGranularity(granularity)
	if err != nil {
		return criteria, err
	}

	return sales.FilterCriteria{
		Region:      region,
		Products:    productList,
		Start:       startDate.UTC(),
		End:         endDate.UTC(),
		Granularity: g,
	}, nil
}

func printReport(snapshot *sales.Snapshot, store *sales.Store) {
	fmt.Printf("Region: %s  Products: %s  Range: %s to %s\n",
		snapshot.Criteria.Region,
		strings.Join(snapshot.Criteria.Products, ", "),
		snapshot.Criteria.Start.Format("2006-01-02"),
		snapshot.Criteria.End.Format("2006-01-02"))
	fmt.Printf("Matched %d of %d records (%d dropped at load)\n\n",
		len(snapshot.Subset), store.Len(), store.Dropped())

	fmt.Println("Product KPIs:")
	for _, kpi := range snapshot.KPIs {
		fmt.Printf("  %-20s total=%.2f  avg=%.2f  max=%.2f  (n=%d)\n",
			kpi.Product, kpi.Total, kpi.Average, kpi.Max, kpi.Count)
	}

	fmt.Println("\nForecast:")
	if snapshot.Forecast.Insufficient {
		fmt.Printf("  Not enough monthly history (%d points, need %d); showing trend only.\n",
			len(snapshot.Forecast.Actual), sales.MinForecastSamples)
		for _, p := range snapshot.Forecast.Actual {
			fmt.Printf("  %s  %.2f\n", p.Date.Format("2006-01"), p.Value)
		}
		return
	}

	lastActual := snapshot.Forecast.Actual[len(snapshot.Forecast.Actual)-1].Date
	for i, p := range snapshot.Forecast.Predicted {
		if !p.Date.After(lastActual) {
			continue
		}
		lower := snapshot.Forecast.Lower[i].Value
		upper := snapshot.Forecast.Upper[i].Value
		fmt.Printf("  %s  %.2f  [%.2f, %.2f]\n",
			p.Date.Format("2006-01"), p.Value, lower, upper)
	}
}

func fail(what string, err error) {
	slog.Error(what, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
