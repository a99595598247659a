package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// --- books ---

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Manage the book catalog",
}

var booksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all books",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/books")
		if err != nil {
			return err
		}

		var books []struct {
			ID     int64  `json:"id"`
			Title  string `json:"title"`
			Author string `json:"author"`
			Year   *int   `json:"year"`
		}
		if err := decodeJSON(resp, &books); err != nil {
			return err
		}

		if len(books) == 0 {
			fmt.Println("No books in the catalog.")
			return nil
		}

		for _, b := range books {
			year := "—"
			if b.Year != nil {
				year = fmt.Sprintf("%d", *b.Year)
			}
			fmt.Printf("%s  %s by %s (%s)\n",
				colorize(colorCyan, fmt.Sprintf("#%d", b.ID)),
				colorize(colorBold, b.Title),
				b.Author,
				year,
			)
		}
		return nil
	},
}

var booksAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a book to the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		author, _ := cmd.Flags().GetString("author")

		if title == "" || author == "" {
			return fmt.Errorf("--title and --author are required")
		}

		req := map[string]any{
			"title":  title,
			"author": author,
		}
		if cmd.Flags().Changed("year") {
			year, _ := cmd.Flags().GetInt("year")
			req["year"] = year
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/books", req)
		if err != nil {
			return err
		}

		var book struct {
			ID int64 `json:"id"`
		}
		if err := decodeJSON(resp, &book); err != nil {
			return err
		}

		printSuccess("Added book #%d: %s", book.ID, title)
		return nil
	},
}

var booksRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/books/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("%s", result["message"])
		return nil
	},
}

func init() {
	booksAddCmd.Flags().String("title", "", "book title")
	booksAddCmd.Flags().String("author", "", "book author")
	booksAddCmd.Flags().Int("year", 0, "publication year")
	booksCmd.AddCommand(booksListCmd)
	booksCmd.AddCommand(booksAddCmd)
	booksCmd.AddCommand(booksRmCmd)
}

// --- embed ---

var embedCmd = &cobra.Command{
	Use:   "embed <pdf>...",
	Short: "Ingest PDF files into the vector index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunkSize, _ := cmd.Flags().GetInt("chunk-size")
		chunkOverlap, _ := cmd.Flags().GetInt("chunk-overlap")

		// The server reads the files itself, so paths must survive the
		// difference in working directories.
		paths := make([]string, len(args))
		for i, arg := range args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", arg, err)
			}
			paths[i] = abs
		}

		req := map[string]any{"paths": paths}
		if chunkSize > 0 {
			req["chunk_size"] = chunkSize
		}
		if chunkOverlap > 0 {
			req["chunk_overlap"] = chunkOverlap
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Embedding %d file(s)...", len(paths))
		resp, err := client.post(cmd.Context(), "/llm/embed-pdfs", req)
		if err != nil {
			return err
		}

		var result struct {
			EmbeddingModel string `json:"embedding_model"`
			IndexedChunks  int    `json:"indexed_chunks"`
			TotalChunks    int    `json:"total_chunks"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Indexed %d chunks with %s", result.IndexedChunks, result.EmbeddingModel)
		return nil
	},
}

func init() {
	embedCmd.Flags().Int("chunk-size", 0, "chunk size in characters (default: server setting)")
	embedCmd.Flags().Int("chunk-overlap", 0, "chunk overlap in characters (default: server setting)")
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Similarity search over ingested PDF chunks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/llm/vector-search", map[string]any{
			"query": query,
			"k":     limit,
		})
		if err != nil {
			return err
		}

		var result struct {
			Results []struct {
				Content string  `json:"content"`
				Source  string  `json:"source"`
				Page    int     `json:"page"`
				Score   float32 `json:"score"`
			} `json:"results"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		for i, r := range result.Results {
			fmt.Printf("\n%s [score: %.3f]\n", colorize(colorBold, fmt.Sprintf("Result %d", i+1)), r.Score)
			fmt.Printf("  %s p.%d\n", r.Source, r.Page)
			text := r.Content
			if len(text) > 500 {
				text = text[:500] + "..."
			}
			fmt.Printf("  %s\n", text)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("limit", 4, "maximum number of results")
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the ingested documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		system, _ := cmd.Flags().GetString("system")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/llm/retrieval-answer", map[string]any{
			"question": question,
			"system":   system,
			"k":        limit,
		})
		if err != nil {
			return err
		}

		var result struct {
			Answer  string `json:"answer"`
			Sources []struct {
				Source string  `json:"source"`
				Page   int     `json:"page"`
				Score  float32 `json:"score"`
			} `json:"sources"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Answer)
		for _, s := range result.Sources {
			fmt.Printf("  %s %s p.%d [%.3f]\n", colorize(colorCyan, "source:"), s.Source, s.Page, s.Score)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().String("system", "", "override the system prompt")
	askCmd.Flags().Int("limit", 0, "number of chunks to retrieve (default: server setting)")
}

// --- agent ---

var agentCmd = &cobra.Command{
	Use:   "agent <message>",
	Short: "Send a message to the tool-using agent",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		system, _ := cmd.Flags().GetString("system")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/llm/react-agent", map[string]any{
			"message": message,
			"system":  system,
		})
		if err != nil {
			return err
		}

		var result struct {
			Response   string `json:"response"`
			ToolEvents []struct {
				Tool   string `json:"tool"`
				Output string `json:"output"`
				Error  string `json:"error"`
			} `json:"tool_events"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for _, ev := range result.ToolEvents {
			if ev.Error != "" {
				printError("%s: %s", ev.Tool, ev.Error)
				continue
			}
			printStep("%s: %s", ev.Tool, ev.Output)
		}
		fmt.Println(result.Response)
		return nil
	},
}

func init() {
	agentCmd.Flags().String("system", "", "override the system prompt")
}
