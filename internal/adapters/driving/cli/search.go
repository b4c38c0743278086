package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

var (
	searchMode      string
	searchPage      int
	searchPageSize  int
	searchNormalize bool
	searchJSON      bool
	searchCategory  string

	autocompleteSize int
	autocompleteJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search every category",
	Long: `Runs a federated full-text query against every category index and
prints per-category results followed by the merged top ranking.

Loose mode favours recall with fuzzy phrase-prefix matching; strict mode
requires every word to match and boosts exact keyword hits.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationServices: servicesQuery},
	RunE:        runSearch,
}

var autocompleteCmd = &cobra.Command{
	Use:         "autocomplete [prefix]",
	Short:       "Suggest completions for a prefix",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationServices: servicesQuery},
	RunE:        runAutocomplete,
}

func init() {
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", string(domain.ModeLoose), "query mode: loose or strict")
	searchCmd.Flags().IntVar(&searchPage, "page", 0, "1-based page of the merged ranking")
	searchCmd.Flags().IntVar(&searchPageSize, "page-size", 0, "results per page of the merged ranking")
	searchCmd.Flags().BoolVar(&searchNormalize, "normalize", false, "add scores normalised to [0, 1]")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "comma-separated categories to search (default all)")
	rootCmd.AddCommand(searchCmd)

	autocompleteCmd.Flags().IntVarP(&autocompleteSize, "size", "n", domain.DefaultSuggestSize, "suggestions per field")
	autocompleteCmd.Flags().BoolVar(&autocompleteJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(autocompleteCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	mode, err := domain.ParseMode(searchMode)
	if err != nil {
		return err
	}
	var categories []domain.Category
	if searchCategory != "" {
		categories, err = domain.ParseCategories(strings.Split(searchCategory, ","))
		if err != nil {
			return err
		}
	}

	result, err := searchService.Search(cmd.Context(), domain.QueryRequest{
		Text:       args[0],
		Mode:       mode,
		Page:       searchPage,
		PageSize:   searchPageSize,
		Categories: categories,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchNormalize {
		result.Top = domain.NormalizeScores(result.Top, currentConfig().Query.MinScoreThreshold)
	}

	if searchJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	printResult(cmd, result)
	return nil
}

func runAutocomplete(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	result, err := searchService.Autocomplete(cmd.Context(), domain.AutocompleteRequest{
		Text: args[0],
		Size: autocompleteSize,
	})
	if err != nil {
		return fmt.Errorf("autocomplete failed: %w", err)
	}

	if autocompleteJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	printResult(cmd, result)
	return nil
}

func printResult(cmd *cobra.Command, result *domain.SearchResult) {
	if result.Total() == 0 {
		cmd.Println("No results found.")
		return
	}

	for _, c := range domain.Categories() {
		hits := result.ByCategory[c]
		if len(hits) == 0 {
			continue
		}
		cmd.Printf("%s (%d)\n", c, len(hits))
		for i := range hits {
			printHit(cmd, i+1, hits[i], false)
		}
		cmd.Println()
	}

	if len(result.Top) > 0 {
		cmd.Println("Top results:")
		for i := range result.Top {
			printHit(cmd, i+1, result.Top[i], true)
		}
	}
}

func printHit(cmd *cobra.Command, n int, h domain.Hit, withCategory bool) {
	label := h.Name
	if withCategory {
		label = fmt.Sprintf("%s [%s]", h.Name, h.Category)
	}
	if h.Normalized > 0 {
		cmd.Printf("  [%d] %s (%.2f, %.2f)\n", n, label, h.Score, h.Normalized)
	} else {
		cmd.Printf("  [%d] %s (%.2f)\n", n, label, h.Score)
	}
	for _, m := range h.Matches {
		cmd.Printf("      %s: %s\n", m.Field, strings.Join(strings.Fields(m.Content), " "))
	}
}
