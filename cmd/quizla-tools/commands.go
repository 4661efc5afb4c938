package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"psp.com/quizla/backend/internal/config"
	"psp.com/quizla/backend/internal/sitemap"
)

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "quizla-tools",
		Short:         "Build-time tools for the Quizla site",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(newSitemapCmd(), newIndexCmd())
	return root
}

func newSitemapCmd() *cobra.Command {
	var (
		root    string
		baseURL string
		output  string
		combos  []string
	)
	cmd := &cobra.Command{
		Use:   "sitemap",
		Short: "Regenerate sitemap.xml from the category files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if baseURL == "" {
				baseURL = config.Default().Server.PublicURL
				if v := os.Getenv("QUIZLA_BASE_URL"); v != "" {
					baseURL = v
				}
			}
			if output == "" {
				output = filepath.Join(root, "sitemap.xml")
			}
			return runSitemap(cmd.OutOrStdout(), root, baseURL, output, combos, time.Now())
		},
	}
	cmd.Flags().StringVar(&root, "root", ".", "Site root containing data/ and data/kategori/")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public site URL (default $QUIZLA_BASE_URL or https://quizla.se)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <root>/sitemap.xml)")
	cmd.Flags().StringSliceVar(&combos, "combo", nil, "Combined link to include, keys joined with '-' (repeatable)")
	return cmd
}

func runSitemap(out io.Writer, root, baseURL, output string, combos []string, now time.Time) error {
	primary, err := sitemap.ScanPrimary(filepath.Join(root, "data"))
	if err != nil {
		return err
	}
	extended, err := sitemap.ScanExtended(filepath.Join(root, "data", "kategori"))
	if err != nil {
		return err
	}
	var keys [][]string
	for _, c := range combos {
		keys = append(keys, strings.Split(strings.TrimSpace(c), "-"))
	}

	body, err := sitemap.Generate(baseURL, primary, extended, keys, now)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, body, 0o644); err != nil {
		return fmt.Errorf("writing sitemap: %w", err)
	}
	fmt.Fprintf(out, "Wrote %s (%d primary, %d extended categories)\n", output, len(primary), len(extended))
	return nil
}

func newIndexCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rewrite index.json listing the extended category files",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := sitemap.WriteIndex(dir, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s with %d CSV files\n", filepath.Join(dir, "index.json"), len(m.CSVFiles))
			for _, f := range m.CSVFiles {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", f)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", filepath.Join("data", "kategori"), "Extended category directory")
	return cmd
}
