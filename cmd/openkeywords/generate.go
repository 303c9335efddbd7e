package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"openkeywords/internal/application"
	"openkeywords/internal/config"
	"openkeywords/internal/domain/model"
	"openkeywords/internal/infra/logging"
	"openkeywords/internal/usecase"
)

type generateFlags struct {
	requestFile  string
	output       string
	format       string
	noClustering bool
	req          model.KeywordRequest
	minScore     int
}

func newGenerateCmd() *cobra.Command {
	return bindGenerate(&generateFlags{})
}

func bindGenerate(f *generateFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the keyword pipeline once and write the export",
		Example: `  openkeywords generate --company "Acme" --url acme.io --count 100 -o keywords.csv
  openkeywords generate --request acme.yaml --research -o keywords.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.requestFile, "request", "", "YAML file with a full keyword request; flags override its fields")
	fl.StringVarP(&f.output, "output", "o", "", "output file (.json, .csv or .xlsx); stdout when empty")
	fl.StringVar(&f.format, "format", "", "export format when it cannot be inferred from --output")

	fl.StringVar(&f.req.CompanyName, "company", "", "company name")
	fl.StringVar(&f.req.CompanyURL, "url", "", "company website")
	fl.StringVar(&f.req.Industry, "industry", "", "industry")
	fl.StringVar(&f.req.Description, "description", "", "company description")
	fl.StringSliceVar(&f.req.Services, "services", nil, "services offered")
	fl.StringSliceVar(&f.req.Products, "products", nil, "products offered")
	fl.StringVar(&f.req.TargetAudience, "audience", "", "target audience")
	fl.StringVar(&f.req.TargetLocation, "location", "", "target location")
	fl.StringSliceVar(&f.req.Competitors, "competitors", nil, "competitor domains")
	fl.IntVarP(&f.req.TargetCount, "count", "n", 0, "number of keywords to return (default 50)")
	fl.IntVar(&f.req.ClusterCount, "clusters", 0, "number of clusters (default 6)")
	fl.IntVar(&f.minScore, "min-score", 0, "minimum company-fit score (default 40)")
	fl.StringVar(&f.req.Language, "language", "", "keyword language (default english)")
	fl.StringVar(&f.req.Region, "region", "", "two letter region code (default us)")
	fl.BoolVar(&f.req.EnableResearch, "research", false, "mine Reddit, Quora and forums for keywords")
	fl.BoolVar(&f.req.ResearchFocus, "research-focus", false, "keep only long-tail research style keywords")
	fl.BoolVar(&f.req.EnableVolumeLookup, "volumes", false, "look up search volumes via SE Ranking")
	fl.BoolVar(&f.req.AnalyzeCompanyFirst, "analyze", false, "analyze the company before generating")
	fl.BoolVar(&f.noClustering, "no-clustering", false, "skip semantic clustering")
	return cmd
}

func runGenerate(cmd *cobra.Command, f *generateFlags) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	dev, _ := cmd.Flags().GetBool("dev")
	cfg, err := config.LoadConfig(cfgPath, dev)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	// progress goes to stderr so stdout stays a clean export
	logger := logging.NewWriter(os.Stderr, cfg.Log, cfg.Runtime.Dev)

	req, err := f.request(cmd)
	if err != nil {
		return err
	}
	format, err := f.exportFormat()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := application.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	result, err := svc.Generator.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	logger.Info().
		Int("keywords", len(result.Keywords)).
		Int("clusters", len(result.Clusters)).
		Float64("seconds", result.ProcessingTimeSeconds).
		Msg("generation finished")

	return writeExport(cmd.OutOrStdout(), f.output, format, result)
}

func (f *generateFlags) request(cmd *cobra.Command) (model.KeywordRequest, error) {
	req := f.req.Clone()
	if f.requestFile != "" {
		b, err := os.ReadFile(f.requestFile)
		if err != nil {
			return req, err
		}
		var base model.KeywordRequest
		if err := yaml.Unmarshal(b, &base); err != nil {
			return req, fmt.Errorf("parse %s: %w", f.requestFile, err)
		}
		req = overlay(base, req, cmd)
	}
	if cmd.Flags().Changed("min-score") {
		s := f.minScore
		req.MinScore = &s
	}
	if f.noClustering {
		off := false
		req.EnableClustering = &off
	}
	if strings.TrimSpace(req.CompanyName) == "" {
		return req, fmt.Errorf("--company or a request file with company_name is required")
	}
	return req, nil
}

// overlay copies every explicitly set flag onto base.
func overlay(base, flags model.KeywordRequest, cmd *cobra.Command) model.KeywordRequest {
	set := cmd.Flags().Changed
	str := func(dst *string, src, name string) {
		if set(name) {
			*dst = src
		}
	}
	list := func(dst *[]string, src []string, name string) {
		if set(name) {
			*dst = src
		}
	}
	flag := func(dst *bool, src bool, name string) {
		if set(name) {
			*dst = src
		}
	}
	str(&base.CompanyName, flags.CompanyName, "company")
	str(&base.CompanyURL, flags.CompanyURL, "url")
	str(&base.Industry, flags.Industry, "industry")
	str(&base.Description, flags.Description, "description")
	str(&base.TargetAudience, flags.TargetAudience, "audience")
	str(&base.TargetLocation, flags.TargetLocation, "location")
	str(&base.Language, flags.Language, "language")
	str(&base.Region, flags.Region, "region")
	list(&base.Services, flags.Services, "services")
	list(&base.Products, flags.Products, "products")
	list(&base.Competitors, flags.Competitors, "competitors")
	if set("count") {
		base.TargetCount = flags.TargetCount
	}
	if set("clusters") {
		base.ClusterCount = flags.ClusterCount
	}
	flag(&base.EnableResearch, flags.EnableResearch, "research")
	flag(&base.ResearchFocus, flags.ResearchFocus, "research-focus")
	flag(&base.EnableVolumeLookup, flags.EnableVolumeLookup, "volumes")
	flag(&base.AnalyzeCompanyFirst, flags.AnalyzeCompanyFirst, "analyze")
	return base
}

func (f *generateFlags) exportFormat() (usecase.ExportFormat, error) {
	if f.format != "" {
		return usecase.ParseExportFormat(f.format)
	}
	if ext := strings.TrimPrefix(filepath.Ext(f.output), "."); ext != "" {
		return usecase.ParseExportFormat(ext)
	}
	return usecase.FormatJSON, nil
}

func writeExport(stdout io.Writer, path string, format usecase.ExportFormat, result *model.GenerationResult) error {
	if path == "" {
		return usecase.Export(stdout, format, result)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)
	if err := usecase.Export(w, format, result); err != nil {
		_ = file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
