package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sitelens/sitelens/analyze"
	"github.com/sitelens/sitelens/cache"
	"github.com/sitelens/sitelens/config"
	"github.com/sitelens/sitelens/export"
	"github.com/sitelens/sitelens/log"
	"github.com/sitelens/sitelens/report"
	"github.com/sitelens/sitelens/scrape"
	"github.com/sitelens/sitelens/slack"
	"github.com/sitelens/sitelens/store"
	"github.com/sitelens/sitelens/util"
)

// MainPreviewLen bounds the content preview shown on the surface; the full
// content is always in the exports.
const MainPreviewLen = 1000

var (
	configPath = flag.String("config", "config.yaml", "Path to the YAML configuration file.")
	urlFlag    = flag.String("url", "", "Scrape and analyze a single URL, write exports to the data dir, and exit. Without it the Slack bot runs.")
	linksFlag  = flag.Bool("links", false, "Also scrape links discovered on the page (one-shot mode).")
	maxLinks   = flag.Int("max-links", slack.DefaultMaxLinks, "Maximum number of discovered links to scrape (1-10).")
)

type app struct {
	log      zerolog.Logger
	scraper  *scrape.Scraper
	analyzer *analyze.Client
	provider string
	cache    cache.Cache
	store    store.ExportStore
}

func main() {
	flag.Parse()

	logger := log.NewLogger("main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := os.MkdirAll(cfg.DataDir, os.ModePerm); err != nil {
		logger.Fatal().Err(err).Str("dataDir", cfg.DataDir).Msg("Failed to create data directory")
	}

	logger.Info().Str("dataDir", cfg.DataDir).Str("provider", cfg.Provider).Msg("Starting sitelens")

	ctx := context.Background()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize model provider")
	}

	browser := scrape.NewChromeBrowser(scrape.ChromeOptions{
		UserAgent:  cfg.Browser.UserAgent,
		ChromePath: cfg.Browser.ChromePath,
	})

	a := &app{
		log:      logger,
		scraper:  scrape.NewScraper(browser, cfg.ScrapeOptions()),
		analyzer: analyze.NewClient(provider),
		provider: provider.Name(),
		store:    store.NewFileStore(cfg.DataDir),
	}

	if cfg.CachePath != "" {
		boltCache, err := cache.NewBoltCache(os.ExpandEnv(cfg.CachePath))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to open analysis cache")
		}
		defer boltCache.Close()
		a.cache = boltCache
	}

	if *urlFlag != "" {
		if err := a.runOnce(ctx, *urlFlag, *linksFlag, clampLinks(*maxLinks)); err != nil {
			var analysisErr *analyze.AnalysisError
			if errors.As(err, &analysisErr) {
				logger.Fatal().Err(err).Msg("Analysis failed")
			}
			logger.Fatal().Err(err).Msg("Scrape failed")
		}
		return
	}

	if !cfg.HasSlack() {
		logger.Fatal().Msg("No -url given and Slack tokens are not configured, nothing to do")
	}

	handler := slack.NewSlackHandler(cfg.SlackAppToken, cfg.SlackBotToken)
	go handler.Start()

	for cmd := range handler.Commands() {
		a.handleCommand(ctx, handler, cmd)
	}
}

func newProvider(ctx context.Context, cfg *config.Config) (analyze.Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return analyze.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	default:
		return analyze.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	}
}

func clampLinks(n int) int {
	if n < 1 {
		return 1
	}
	if n > slack.MaxLinksBound {
		return slack.MaxLinksBound
	}
	return n
}

// scrapeAndAnalyze runs the full pipeline. A nil result means the scrape
// itself failed; a non-nil result with a non-nil error means the scrape
// succeeded and only the analysis failed.
func (a *app) scrapeAndAnalyze(ctx context.Context, url string, extractLinks bool, maxLinks int) (*scrape.Result, string, error) {
	result, err := a.scraper.Scrape(ctx, url, extractLinks, maxLinks)
	if err != nil {
		return nil, "", err
	}

	if a.cache != nil {
		if analysis, ok := a.cache.Get(url); ok {
			a.log.Info().Str("url", url).Msg("Analysis cache hit")
			return result, analysis, nil
		}
	}

	analysis, err := a.analyzer.Analyze(ctx, result.MainContent)
	if err != nil {
		return result, "", err
	}

	if a.cache != nil && analysis != "" {
		if err := a.cache.Put(url, analysis); err != nil {
			a.log.Error().Err(err).Msg("Failed to cache analysis")
		}
	}

	return result, analysis, nil
}

// runOnce handles one-shot mode: scrape, print, export. An analysis failure
// is reported but does not discard the scraped content.
func (a *app) runOnce(ctx context.Context, url string, extractLinks bool, maxLinks int) error {
	result, analysis, err := a.scrapeAndAnalyze(ctx, url, extractLinks, maxLinks)
	if result == nil {
		return err
	}
	if err != nil {
		a.log.Error().Err(err).Msg("Analysis failed, exporting scrape data only")
	}

	fmt.Println("Main content preview:")
	fmt.Println(util.Truncate(result.MainContent, MainPreviewLen))

	if analysis != "" {
		fmt.Println("\nDesign analysis:")
		fmt.Println(analysis)
	}

	for _, page := range result.Links {
		if page.Err != nil {
			a.log.Warn().Str("link", page.URL).Err(page.Err).Msg("Linked page not included")
		}
	}

	files, exportErr := a.buildExports(result, analysis)
	if exportErr != nil {
		return exportErr
	}

	for _, file := range files {
		if storeErr := a.store.Store(file.name, bytes.NewReader(file.content)); storeErr != nil {
			return storeErr
		}
		a.log.Info().Str("path", a.store.Path(file.name)).Str("size", util.FormatBytes(int64(len(file.content)))).Msg("Export written")
	}

	return err
}

// handleCommand handles one Slack scrape command end to end.
func (a *app) handleCommand(ctx context.Context, handler *slack.SlackHandler, cmd slack.Command) {
	thread := cmd.ThreadTS

	if err := handler.PostMessage(cmd.ChannelID, &thread, fmt.Sprintf("Scraping %s ...", cmd.URL)); err != nil {
		a.log.Error().Err(err).Msg("Failed to post progress message")
	}

	result, analysis, err := a.scrapeAndAnalyze(ctx, cmd.URL, cmd.ExtractLinks, cmd.MaxLinks)
	if result == nil {
		a.log.Error().Err(err).Str("url", cmd.URL).Msg("Scrape failed")
		handler.PostEphemeral(cmd.ChannelID, cmd.UserID, fmt.Sprintf("Failed to scrape %s: %s", cmd.URL, err))
		return
	}

	var reply strings.Builder
	reply.WriteString("*Main content preview*\n```")
	reply.WriteString(util.Truncate(result.MainContent, MainPreviewLen))
	reply.WriteString("```\n")

	if err != nil {
		a.log.Error().Err(err).Str("url", cmd.URL).Msg("Analysis failed")
		reply.WriteString(fmt.Sprintf("\nAnalysis failed: %s\n", err))
	} else if analysis != "" {
		reply.WriteString("\n*Design analysis*\n")
		reply.WriteString(analysis)
		reply.WriteString("\n")
	}

	for _, page := range result.Links {
		if page.Err != nil {
			reply.WriteString(fmt.Sprintf("\nSkipped %s: %s\n", page.URL, page.Err))
			continue
		}
		reply.WriteString(fmt.Sprintf("\n*%s*\n```%s```\n", page.URL, page.Content))
	}

	if postErr := handler.PostMessage(cmd.ChannelID, &thread, reply.String()); postErr != nil {
		a.log.Error().Err(postErr).Msg("Failed to post scrape results")
	}

	files, exportErr := a.buildExports(result, analysis)
	if exportErr != nil {
		a.log.Error().Err(exportErr).Msg("Failed to build exports")
		return
	}

	eg := errgroup.Group{}
	eg.SetLimit(4)

	for _, file := range files {
		eg.Go(func() error {
			return handler.UploadFile(cmd.ChannelID, thread, file.name, file.content)
		})
	}

	if uploadErr := eg.Wait(); uploadErr != nil {
		a.log.Error().Err(uploadErr).Msg("Failed to upload exports")
		handler.PostEphemeral(cmd.ChannelID, cmd.UserID, uploadErr.Error())
	}
}

type exportFile struct {
	name    string
	content []byte
}

// buildExports renders the JSON document, the linked-pages CSV (when links
// were scraped), and the Markdown report.
func (a *app) buildExports(result *scrape.Result, analysis string) ([]exportFile, error) {
	rpt := report.New(result, analysis, a.provider)

	mdName, mdContent, err := rpt.ToMarkdown()
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(mdName, ".md")

	jsonData, err := export.JSON(result, analysis)
	if err != nil {
		return nil, err
	}

	files := []exportFile{
		{name: base + ".json", content: jsonData},
		{name: mdName, content: []byte(mdContent)},
	}

	if successes := result.Successes(); len(successes) > 0 {
		csvData, err := export.CSV(successes)
		if err != nil {
			return nil, err
		}
		files = append(files, exportFile{name: base + "-links.csv", content: csvData})
	}

	return files, nil
}
