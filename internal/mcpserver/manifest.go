package mcpserver

import (
	"encoding/json"
	"strconv"

	"github.com/panbanda/remark/pkg/config"
)

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	serverName     = "io.github.panbanda/remark"
	repositoryURL  = "https://github.com/panbanda/remark"
	imageName      = "ghcr.io/panbanda/remark"
)

// Manifest is the server.json document registries read to install remark
// as an MCP server.
type Manifest struct {
	Schema      string      `json:"$schema"`
	Name        string      `json:"name"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	WebsiteURL  string      `json:"websiteUrl,omitempty"`
	Repository  *Repository `json:"repository,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package describes one way of running the server.
type Package struct {
	RegistryType         string        `json:"registryType"`
	Identifier           string        `json:"identifier"`
	PackageArguments     []Argument    `json:"packageArguments,omitempty"`
	EnvironmentVariables []Environment `json:"environmentVariables,omitempty"`
	Transport            Transport     `json:"transport"`
}

type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// Environment documents a variable the server reads at startup.
type Environment struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Format      string `json:"format,omitempty"`
	Default     string `json:"default,omitempty"`
	IsRequired  bool   `json:"isRequired"`
}

type Transport struct {
	Type string `json:"type"`
}

// environment lists the REMARK_ variables that tune the server's default
// review policy. Tool arguments still override them per call.
func environment() []Environment {
	t := config.DefaultConfig().Thresholds
	return []Environment{
		{
			Name:        "REMARK_CONFIG",
			Description: "Path to a remark.toml, remark.yaml or remark.json file",
		},
		{
			Name:        config.EnvPrefix + "THRESHOLDS__MAX_BRANCHES",
			Description: "Flag functions with more branches than this",
			Format:      "number",
			Default:     strconv.Itoa(t.MaxBranches),
		},
		{
			Name:        config.EnvPrefix + "THRESHOLDS__MAX_DEPTH",
			Description: "Flag functions nested deeper than this",
			Format:      "number",
			Default:     strconv.Itoa(t.MaxDepth),
		},
		{
			Name:        config.EnvPrefix + "THRESHOLDS__MAX_LINES",
			Description: "Flag functions with more logical lines than this",
			Format:      "number",
			Default:     strconv.Itoa(t.MaxLines),
		},
	}
}

// GenerateManifest renders the manifest for version as indented JSON.
// An empty version renders as 0.0.0.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}

	m := Manifest{
		Schema:      manifestSchema,
		Name:        serverName,
		Title:       "remark",
		Description: "Flags complex Python functions that deserve an explanatory comment",
		Version:     version,
		WebsiteURL:  repositoryURL,
		Repository:  &Repository{URL: repositoryURL, Source: "github"},
		Packages: []Package{{
			RegistryType:         "oci",
			Identifier:           imageName + ":" + version,
			PackageArguments:     []Argument{{Type: "positional", Value: "mcp"}},
			EnvironmentVariables: environment(),
			Transport:            Transport{Type: "stdio"},
		}},
	}
	return json.MarshalIndent(m, "", "  ")
}
