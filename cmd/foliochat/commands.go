package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/lionelhu/foliochat/internal/api"
	"github.com/lionelhu/foliochat/internal/chat"
	"github.com/lionelhu/foliochat/internal/config"
	"github.com/lionelhu/foliochat/internal/history"
	"github.com/lionelhu/foliochat/internal/profile"
	"github.com/lionelhu/foliochat/internal/prompt"
	"github.com/lionelhu/foliochat/internal/repos"
	"github.com/lionelhu/foliochat/internal/storage"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the running server a question",
	Long: `Ask the running server a question.

Examples:
  foliochat ask "What are Lionel's strongest skills?"
  foliochat ask --history convo.json "And which of those projects are public?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		historyFile, _ := cmd.Flags().GetString("history")

		var msgs []history.Message
		if historyFile != "" {
			data, err := os.ReadFile(historyFile)
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}
			msgs = history.Decode(data)
		}
		msgs = append(msgs, history.Message{Role: history.RoleUser, Content: strings.Join(args, " ")})

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.sendChat(cmd.Context(), msgs)
		if err != nil {
			return err
		}
		printAnswer(cmd.OutOrStdout(), resp)
		return nil
	},
}

func init() {
	askCmd.Flags().String("history", "", "JSON file with earlier messages of the conversation")
}

func printAnswer(w io.Writer, resp chat.Response) {
	fmt.Fprintln(w, resp.Text)
	if len(resp.RepoLinks) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", colorize(styleBold, "Repositories"))
	for _, l := range resp.RepoLinks {
		fmt.Fprintf(w, "  %s  %s\n", l.Name, colorize(styleLink, l.URL))
	}
}

// --- prompt ---

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Inspect the system prompt",
}

var promptShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the system prompt built from the configured profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		p, err := profile.Load(cfg.Data.ProfilePath, cfg.Data.ResumePDF)
		if err != nil {
			return err
		}
		text, err := prompt.Build(p)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	promptCmd.AddCommand(promptShowCmd)
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect the resume profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the loaded profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		p, err := profile.Load(cfg.Data.ProfilePath, cfg.Data.ResumePDF)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

func init() {
	profileCmd.AddCommand(profileShowCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- repos ---

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Search and curate the repository catalog",
}

var reposSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Match a query against the running server's catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/repos?q="+url.QueryEscape(query))
		if err != nil {
			return err
		}

		var result struct {
			RepoLinks []repos.Link `json:"repoLinks"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printLinks(cmd.OutOrStdout(), result.RepoLinks)
		return nil
	},
}

func printLinks(w io.Writer, links []repos.Link) {
	if len(links) == 0 {
		fmt.Fprintln(w, "No matching repositories.")
		return
	}
	for i, l := range links {
		fmt.Fprintf(w, "%d. %s  %s\n", i+1, colorize(styleBold, l.Name), colorize(styleLink, l.URL))
	}
}

var reposListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		c, err := loadCatalog(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		printRepos(cmd.OutOrStdout(), c.Repos())
		return nil
	},
}

func printRepos(w io.Writer, rs []repos.Repo) {
	if len(rs) == 0 {
		fmt.Fprintln(w, "Catalog is empty.")
		return
	}
	for _, r := range rs {
		line := fmt.Sprintf("%s  %s  %s", colorize(styleStep, r.ID), colorize(styleBold, r.Name), r.URL)
		if len(r.Tags) > 0 {
			line += "  [" + strings.Join(r.Tags, ", ") + "]"
		}
		fmt.Fprintln(w, line)
	}
}

var reposImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the SQLite catalog with the contents of a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *storage.Store) error {
			n, err := importCatalog(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			printSuccess("Imported %d repositories from %s", n, args[0])
			return nil
		})
	},
}

func importCatalog(ctx context.Context, s *storage.Store, path string) (int, error) {
	c, err := repos.LoadFile(path)
	if err != nil {
		return 0, err
	}
	if err := s.ReplaceRepos(ctx, c.Repos()); err != nil {
		return 0, fmt.Errorf("importing catalog: %w", err)
	}
	return c.Len(), nil
}

var reposAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update one repository in the SQLite catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		name, _ := cmd.Flags().GetString("name")
		repoURL, _ := cmd.Flags().GetString("url")
		tagsStr, _ := cmd.Flags().GetString("tags")

		var tags []string
		if tagsStr != "" {
			tags = strings.Split(tagsStr, ",")
		}
		// NewCatalog validates the entry and assigns an ID when none is given.
		c, err := repos.NewCatalog([]repos.Repo{{ID: id, Name: name, URL: repoURL, Tags: tags}})
		if err != nil {
			return err
		}
		r := c.Repos()[0]

		return withStore(func(s *storage.Store) error {
			if err := s.UpsertRepo(cmd.Context(), r); err != nil {
				return err
			}
			printSuccess("Saved %s (%s)", r.Name, r.ID)
			return nil
		})
	},
}

var reposRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a repository from the SQLite catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *storage.Store) error {
			err := s.DeleteRepo(cmd.Context(), args[0])
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("no repository with id %q", args[0])
			}
			if err != nil {
				return err
			}
			printSuccess("Removed %s", args[0])
			return nil
		})
	},
}

func withStore(fn func(*storage.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Data.CatalogSource != config.CatalogFromSQLite {
		printWarning("data.catalog_source is %q; the server will not read this catalog until it is set to %q",
			cfg.Data.CatalogSource, config.CatalogFromSQLite)
	}
	s, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer s.Close()
	return fn(s)
}

func init() {
	reposAddCmd.Flags().String("id", "", "repository id (generated when empty)")
	reposAddCmd.Flags().String("name", "", "display name")
	reposAddCmd.Flags().String("url", "", "repository URL")
	reposAddCmd.Flags().String("tags", "", "comma-separated tags")

	reposCmd.AddCommand(reposSearchCmd)
	reposCmd.AddCommand(reposListCmd)
	reposCmd.AddCommand(reposImportCmd)
	reposCmd.AddCommand(reposAddCmd)
	reposCmd.AddCommand(reposRemoveCmd)
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log)

		ctx := cmd.Context()
		src, err := loadSources(ctx, cfg)
		if err != nil {
			return err
		}
		svc, err := buildService(ctx, cfg, src)
		if err != nil {
			return err
		}

		s := api.NewMCPServer(api.MCPDeps{
			Service: svc,
			Profile: src.profile,
			Catalog: src.catalog,
			Version: version,
		})
		return server.ServeStdio(s)
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(styleBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value, restoring its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret",
	Short: "Store the completion API key (read from stdin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := readSecret(cmd.InOrStdin())
		if err != nil {
			return err
		}
		if err := config.SetSecret(key); err != nil {
			return err
		}
		printSuccess("Stored completion API key")
		return nil
	},
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("empty secret")
	}
	return line, nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}
