package main

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/japaniel/collodrill/pkg/analyze"
	"github.com/japaniel/collodrill/pkg/store"
	"github.com/japaniel/collodrill/pkg/studylist"
)

func newStudyListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "studylist",
		Short: "Manage the study lists that scope recommendations and drills",
	}
	cmd.AddCommand(newStudyListBuildCmd(a), newStudyListShowCmd(a), newStudyListListCmd(a))
	return cmd
}

func newStudyListBuildCmd(a *app) *cobra.Command {
	var pageURL, file string
	var tokens []string

	cmd := &cobra.Command{
		Use:   "build <name>",
		Short: "Build a study list from a web page, a file or explicit words",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]
			sources := 0
			for _, set := range []bool{pageURL != "", file != "", len(tokens) > 0} {
				if set {
					sources++
				}
			}
			if sources != 1 {
				return fmt.Errorf("give exactly one of --url, --file or --tokens")
			}

			var l *studylist.StudyList
			if len(tokens) > 0 {
				var err error
				if l, err = studylist.FromTokens(name, tokens, a.now()); err != nil {
					return err
				}
			} else {
				cat, err := store.LoadCatalog(ctx, a.store)
				if err != nil {
					return fmt.Errorf("load catalog: %w", err)
				}
				an, err := analyze.NewAnalyzer()
				if err != nil {
					return fmt.Errorf("create analyzer: %w", err)
				}

				switch {
				case pageURL != "":
					fmt.Fprintf(cmd.ErrOrStderr(), "Fetching %s...\n", pageURL)
					body, err := studylist.Fetch(ctx, nil, pageURL)
					if err != nil {
						return err
					}
					l, err = studylist.FromHTML(name, bytes.NewReader(body), pageURL, an, cat, a.now())
					if err != nil {
						return err
					}
				case isHTML(file):
					f, err := os.Open(file)
					if err != nil {
						return err
					}
					defer f.Close()
					l, err = studylist.FromHTML(name, f, fileURL(file), an, cat, a.now())
					if err != nil {
						return err
					}
				default:
					b, err := os.ReadFile(file)
					if err != nil {
						return err
					}
					if l, err = studylist.FromText(name, string(b), an, cat, a.now()); err != nil {
						return err
					}
				}
			}

			if l.Len() == 0 {
				return fmt.Errorf("no catalog words found for study list %q", name)
			}
			if err := a.store.PutStudyList(ctx, l); err != nil {
				return err
			}
			a.log.Info("study list saved", "name", l.Name, "tokens", l.Len(), "source", l.SourceURL)
			if a.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), l)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved study list %s with %d words.\n", l.Name, l.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "Web page to extract words from")
	cmd.Flags().StringVar(&file, "file", "", "HTML or plain text file to extract words from")
	cmd.Flags().StringSliceVar(&tokens, "tokens", nil, "Explicit comma-separated words")
	return cmd
}

func newStudyListShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the words of a study list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, ok, err := a.store.GetStudyList(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("study list %q not found", args[0])
			}
			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				return printJSON(out, l)
			}
			fmt.Fprintf(out, "%s (%d words)\n", l.Name, l.Len())
			if l.Title != "" {
				fmt.Fprintf(out, "Title: %s\n", l.Title)
			}
			if l.SourceURL != "" {
				fmt.Fprintf(out, "Source: %s\n", l.SourceURL)
			}
			fmt.Fprintln(out, strings.Join(l.Tokens, " "))
			return nil
		},
	}
}

func newStudyListListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the saved study lists",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lists, err := a.store.ListStudyLists(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				return printJSON(out, lists)
			}
			if len(lists) == 0 {
				fmt.Fprintln(out, "No study lists.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tWORDS\tCREATED\tTITLE")
			for _, l := range lists {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", l.Name, l.Len(), l.CreatedAt.Local().Format("2006-01-02"), l.Title)
			}
			return tw.Flush()
		},
	}
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}
