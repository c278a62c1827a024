package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"jobflow/internal/app"
	"jobflow/internal/config"
	"jobflow/internal/repository"
	"jobflow/internal/scraper"
)

func main() {
	source := flag.String("source", "all", "job board to scrape: cutshort, topstartups or all")
	pages := flag.Int("pages", 2, "listing pages per paginated board")
	workers := flag.Int("workers", 4, "concurrent database writers")
	rps := flag.Float64("rps", 10, "database writes per second, 0 for unlimited")
	headless := flag.Bool("headless", false, "render pages in headless Chrome")
	flag.Parse()

	logger := log.Default()
	app.LoadDotenv(logger)

	sources, err := selectSources(*source)
	if err != nil {
		log.Fatalf("%v", err)
	}

	cfg, err := config.LoadScraper()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := app.NewContainer(ctx, cfg, "jobflow-scraper", logger)
	if err != nil {
		log.Fatalf("failed to init container: %v", err)
	}
	defer func() {
		_ = c.Close()
	}()

	var fetcher scraper.Fetcher = scraper.NewCollyFetcher()
	if *headless {
		fetcher = scraper.NewHeadlessFetcher()
	}

	runner := scraper.NewRunner(fetcher, repository.NewPostgresJobRepository(c.DB), logger,
		scraper.WithWorkers(*workers),
		scraper.WithRateLimit(*rps),
	)

	failed := 0
	for _, src := range sources {
		if _, err := runner.Run(ctx, src, *pages); err != nil {
			logger.Printf("[Scraper] source=%s failed: %v", src.Name, err)
			failed++
		}
	}
	if failed == len(sources) {
		_ = c.Close()
		stop()
		os.Exit(1)
	}
}

func selectSources(name string) ([]scraper.Source, error) {
	if strings.EqualFold(strings.TrimSpace(name), "all") {
		return []scraper.Source{scraper.Cutshort(), scraper.TopStartups()}, nil
	}
	src, ok := scraper.SourceByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown source %q (want cutshort, topstartups or all)", name)
	}
	return []scraper.Source{src}, nil
}
