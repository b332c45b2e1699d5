// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from config.yaml, an optional .env file
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ssext/submission/internal/models"
)

// DataConfig points at the three independently sourced input tables.
type DataConfig struct {
	SenateRoster string
	HouseRoster  string
	Contacts     string
	Strategy     string
}

// PriorityConfig holds the explicit named lists, in submission order.
type PriorityConfig struct {
	Champions   []string
	Bridges     []string
	Gatekeepers []string
}

// Config holds all configuration for the submission engine.
type Config struct {
	Data DataConfig

	// Output
	OutputDir   string
	TrackerPath string

	// Campaign
	CampaignID    string
	FollowUpAfter time.Duration
	Workers       int

	// Message body bound, in characters
	MinLength int
	MaxLength int

	Sender   models.SenderProfile
	Priority PriorityConfig
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Data struct {
		SenateRoster string `yaml:"senate_roster"`
		HouseRoster  string `yaml:"house_roster"`
		Contacts     string `yaml:"contacts"`
		Strategy     string `yaml:"strategy"`
	} `yaml:"data"`
	Output struct {
		Dir     string `yaml:"dir"`
		Tracker string `yaml:"tracker"`
	} `yaml:"output"`
	Campaign struct {
		ID            string `yaml:"id"`
		Organization  string `yaml:"organization"`
		FollowUpAfter string `yaml:"follow_up_after"`
		Workers       int    `yaml:"workers"`
	} `yaml:"campaign"`
	Message struct {
		MinLength int `yaml:"min_length"`
		MaxLength int `yaml:"max_length"`
	} `yaml:"message"`
	Sender   models.SenderProfile `yaml:"sender"`
	Priority struct {
		Champions   []string `yaml:"champions"`
		Bridges     []string `yaml:"bridges"`
		Gatekeepers []string `yaml:"gatekeepers"`
	} `yaml:"priority"`
}

// Path resolves the config file location: the explicit flag value, then
// SUBMIT_CONFIG, then config.yaml in the working directory.
func Path(flagValue string) string {
	return firstNonEmpty(flagValue, os.Getenv("SUBMIT_CONFIG"), "config.yaml")
}

// Load reads configuration from path (with env var expansion) and environment
// variables. A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	// Relative data paths are resolved against the config file's directory.
	base := filepath.Dir(path)

	followUp := 14 * 24 * time.Hour
	if raw.Campaign.FollowUpAfter != "" {
		d, err := time.ParseDuration(raw.Campaign.FollowUpAfter)
		if err != nil {
			return nil, fmt.Errorf("campaign.follow_up_after: %w", err)
		}
		followUp = d
	}

	outputDir := resolve(base, firstNonEmpty(os.Getenv("SUBMIT_OUTPUT_DIR"), raw.Output.Dir, "generated_letters"))

	cfg := &Config{
		Data: DataConfig{
			SenateRoster: resolve(base, firstNonEmpty(raw.Data.SenateRoster, "data/senate_roster.csv")),
			HouseRoster:  resolve(base, firstNonEmpty(raw.Data.HouseRoster, "data/house_roster.csv")),
			Contacts:     resolve(base, firstNonEmpty(raw.Data.Contacts, "data/contacts.yaml")),
			Strategy:     resolve(base, firstNonEmpty(raw.Data.Strategy, "data/strategy.yaml")),
		},
		OutputDir:     outputDir,
		TrackerPath:   firstNonEmpty(resolve(base, raw.Output.Tracker), filepath.Join(outputDir, "submission_tracker.json")),
		CampaignID:    firstNonEmpty(raw.Campaign.ID, "SSExtAct2025"),
		FollowUpAfter: envOrDefaultDuration("SUBMIT_FOLLOW_UP_AFTER", followUp),
		Workers:       envOrDefaultInt("SUBMIT_WORKERS", positiveOr(raw.Campaign.Workers, 8)),
		MinLength:     positiveOr(raw.Message.MinLength, 1500),
		MaxLength:     positiveOr(raw.Message.MaxLength, 2000),
		Sender:        raw.Sender,
		Priority: PriorityConfig{
			Champions:   raw.Priority.Champions,
			Bridges:     raw.Priority.Bridges,
			Gatekeepers: raw.Priority.Gatekeepers,
		},
	}

	if cfg.Sender.Organization == "" {
		cfg.Sender.Organization = raw.Campaign.Organization
	}
	cfg.applySenderEnv()

	if cfg.MinLength > cfg.MaxLength {
		return nil, fmt.Errorf("message.min_length %d exceeds message.max_length %d", cfg.MinLength, cfg.MaxLength)
	}

	return cfg, nil
}

// applySenderEnv lets SENDER_<FIELD> variables override the YAML sender block,
// so the personal details never need to live in a committed file.
func (c *Config) applySenderEnv() {
	fields := []struct {
		key string
		dst *string
	}{
		{"SENDER_PREFIX", &c.Sender.Prefix},
		{"SENDER_FIRST_NAME", &c.Sender.FirstName},
		{"SENDER_LAST_NAME", &c.Sender.LastName},
		{"SENDER_EMAIL", &c.Sender.Email},
		{"SENDER_PHONE", &c.Sender.Phone},
		{"SENDER_ADDRESS_LINE_1", &c.Sender.Address1},
		{"SENDER_ADDRESS_LINE_2", &c.Sender.Address2},
		{"SENDER_CITY", &c.Sender.City},
		{"SENDER_STATE", &c.Sender.State},
		{"SENDER_ZIP_CODE", &c.Sender.Zip},
		{"SENDER_ZIP_PLUS_4", &c.Sender.Zip4},
		{"SENDER_ORGANIZATION", &c.Sender.Organization},
	}
	for _, f := range fields {
		*f.dst = envOrDefault(f.key, *f.dst)
	}
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
