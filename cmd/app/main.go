package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/folio/internal"
	pkgconfig "github.com/starford/folio/pkg/config"
)

// configPath returns the --config value or the per-user default.
func configPath(cmd *cli.Command) (string, error) {
	if p := cmd.String("config"); p != "" {
		return p, nil
	}
	return internal.DefaultConfigPath()
}

func loadConfig(cmd *cli.Command) (*internal.Config, string, error) {
	path, err := configPath(cmd)
	if err != nil {
		return nil, "", err
	}
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(path, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, path, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func use(_ context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return fmt.Errorf("usage: folio use <path>")
	}

	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.UseSite(dir); err != nil {
		return err
	}
	if err := pkgconfig.Save(path, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	ok := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Using %s (%s) at %s\n", ok("✓"), cfg.Site.Name, cfg.Site.Generator, cfg.Site.Path)
	fmt.Printf("  content: %s\n  config:  %s\n", cfg.ContentRoot(), path)
	return nil
}

func list(_ context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.List(internal.ListOptions{
		DraftsOnly: cmd.Bool("drafts"),
		Category:   cmd.String("category"),
		Query:      cmd.String("search"),
		JSON:       cmd.Bool("json"),
	}, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "folio",
		Usage:  "Browse and edit the frontmatter of a static site's Markdown posts",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "$XDG_CONFIG_HOME/folio/config.yaml",
				Sources:     cli.EnvVars("FOLIO_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "use",
				Usage:     "Point folio at a site directory and save it to the config",
				ArgsUsage: "<path>",
				Action:    use,
			},
			{
				Name:   "list",
				Usage:  "Print the site's posts, newest first",
				Action: list,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "drafts", Usage: "Only drafts"},
					&cli.StringFlag{Name: "category", Usage: "Only posts in this category"},
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Filter by title, body or category"},
					&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
