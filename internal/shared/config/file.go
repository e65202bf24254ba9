package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v4"
)

// fileConfig is the YAML layout of MATCH_CONFIG_FILE. Unset keys keep the current value.
type fileConfig struct {
	LLM struct {
		Provider       string `yaml:"provider"`
		Model          string `yaml:"model"`
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"llm"`
	Matcher struct {
		MaxDocuments      *int     `yaml:"max_documents"`
		Concurrency       *int     `yaml:"concurrency"`
		AllowedExtensions []string `yaml:"allowed_extensions"`
		IncludeSkills     *bool    `yaml:"include_skills"`
		FileBacked        *bool    `yaml:"file_backed_extraction"`
		SkillIndicators   []string `yaml:"skill_indicators"`
	} `yaml:"matcher"`
	Budget struct {
		Limit     *int   `yaml:"limit"`
		Scope     string `yaml:"scope"`
		LedgerKey string `yaml:"ledger_key"`
	} `yaml:"budget"`
}

// ApplyFile overlays the YAML file at path onto cfg.
func ApplyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return ApplyYAML(cfg, data)
}

// ApplyYAML overlays a YAML document onto cfg.
func ApplyYAML(cfg *Config, data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&cfg.LLMProvider, strings.ToLower(fc.LLM.Provider))
	setString(&cfg.LLMModel, fc.LLM.Model)
	setString(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	if fc.LLM.TimeoutSeconds > 0 {
		cfg.LLMTimeout = time.Duration(fc.LLM.TimeoutSeconds) * time.Second
	}

	if fc.Matcher.MaxDocuments != nil {
		cfg.Matcher.MaxDocuments = *fc.Matcher.MaxDocuments
	}
	if fc.Matcher.Concurrency != nil {
		cfg.Matcher.Concurrency = *fc.Matcher.Concurrency
	}
	if len(fc.Matcher.AllowedExtensions) > 0 {
		cfg.Matcher.AllowedExtensions = fc.Matcher.AllowedExtensions
	}
	if fc.Matcher.IncludeSkills != nil {
		cfg.Matcher.IncludeSkills = *fc.Matcher.IncludeSkills
	}
	if fc.Matcher.FileBacked != nil {
		cfg.Matcher.FileBacked = *fc.Matcher.FileBacked
	}
	if len(fc.Matcher.SkillIndicators) > 0 {
		cfg.Matcher.SkillIndicators = fc.Matcher.SkillIndicators
	}

	if fc.Budget.Limit != nil {
		cfg.BudgetLimit = *fc.Budget.Limit
	}
	setString(&cfg.BudgetScope, strings.ToLower(fc.Budget.Scope))
	setString(&cfg.BudgetLedgerKey, fc.Budget.LedgerKey)
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
