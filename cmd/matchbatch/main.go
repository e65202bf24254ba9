package main

// Match local resume files against a job description without starting the API:
//   go run ./cmd/matchbatch -jd jd.txt resumes/a.pdf resumes/b.docx

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"resume-matcher/internal/batch"
	"resume-matcher/internal/bootstrap"
	"resume-matcher/internal/documents"
	"resume-matcher/internal/shared/config"
)

func main() {
	cfg := config.Load()

	jdPath := flag.String("jd", "", "Path to job description file")
	outPath := flag.String("out", "", "Path to write JSON output (optional)")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	includeSkills := flag.Bool("skills", cfg.Matcher.IncludeSkills, "Include extracted skills in the output")
	flag.Parse()

	if strings.TrimSpace(*jdPath) == "" {
		exitErr("job description path is required")
	}
	jdBytes, err := os.ReadFile(*jdPath)
	if err != nil {
		exitErr(fmt.Sprintf("read job description: %v", err))
	}

	docs := make([]documents.Document, 0, flag.NArg())
	for _, path := range flag.Args() {
		content, err := os.ReadFile(path)
		if err != nil {
			exitErr(fmt.Sprintf("read resume: %v", err))
		}
		docs = append(docs, documents.New(filepath.Base(path), content))
	}

	if *provider != cfg.LLMProvider {
		cfg.LLMProvider = strings.ToLower(strings.TrimSpace(*provider))
		cfg.LLMAPIKey = config.APIKeyFor(cfg.LLMProvider)
	}
	cfg.LLMModel = *model
	// The CLI has no durable state to share between runs.
	cfg.BudgetScope = "batch"
	cfg.EventsBackend = "none"

	app, err := bootstrap.Build(cfg)
	if err != nil {
		exitErr(fmt.Sprintf("bootstrap: %v", err))
	}
	defer app.Close()

	res, err := app.Coordinator.Run(context.Background(), docs, string(jdBytes))
	if err != nil {
		app.Close()
		exitErr(err.Error())
	}

	raw, err := json.Marshal(batch.Present(res, *includeSkills))
	if err != nil {
		app.Close()
		exitErr(fmt.Sprintf("encode output: %v", err))
	}
	pretty, err := prettyJSON(raw)
	if err != nil {
		app.Close()
		exitErr(fmt.Sprintf("format json: %v", err))
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			app.Close()
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}

	if _, err := os.Stdout.Write(pretty); err != nil {
		app.Close()
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
	_, _ = os.Stdout.Write([]byte("\n"))
}

func prettyJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
