package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"voicereader/agent/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Validate or show a study catalog",
	Long: `Validate or show a study catalog.

A catalog is a YAML document:

  subjects:
    - id: s1
      title: Science (Class 10)
      keywords: [science, physics]
      chapters:
        - id: c1
          title: "Chapter 1: Chemical Reactions"
          keywords: [chapter 1, chapter one]
          content: ...
          summary: ...
          qa:
            - q: What is a balanced equation?
              a: ...`,
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check that a catalog file is well formed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(afero.NewOsFs(), args[0])
		if err != nil {
			return err
		}
		chapters := 0
		for _, sub := range cat.Subjects() {
			chapters += len(sub.Chapters)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d subjects, %d chapters\n", len(cat.Subjects()), chapters)
		return nil
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Print the catalog outline (the configured or embedded one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			cat *catalog.Catalog
			err error
		)
		if len(args) == 1 {
			cat, err = catalog.Load(afero.NewOsFs(), args[0])
		} else {
			cfg, cerr := loadConfig()
			if cerr != nil {
				return cerr
			}
			cat, err = loadCatalog(cfg)
		}
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), renderOutline(cat))
		return nil
	},
}

var (
	subjectStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FFFF"))
	chapterStyle = lipgloss.NewStyle().PaddingLeft(2)
	keywordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

func renderOutline(cat *catalog.Catalog) string {
	var b strings.Builder
	for _, sub := range cat.Subjects() {
		b.WriteString(subjectStyle.Render(fmt.Sprintf("%s  %s", sub.ID, sub.Title)))
		b.WriteString(" " + keywordStyle.Render("("+strings.Join(sub.Keywords, ", ")+")"))
		b.WriteString("\n")
		for _, ch := range sub.Chapters {
			line := fmt.Sprintf("%s  %s  %d Q&A", ch.ID, ch.Title, len(ch.QA))
			b.WriteString(chapterStyle.Render(line))
			b.WriteString(" " + keywordStyle.Render("("+strings.Join(ch.Keywords, ", ")+")"))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func init() {
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogShowCmd)
}
