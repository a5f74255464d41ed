package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sahilm/fuzzy"

	"github.com/user/waferchat/pkg/llm"
)

const maxSearchResults = 5

// builtinDocs are always part of the corpus and are returned when nothing
// else matches.
var builtinDocs = []string{
	"Cerebras Wafer-Scale Engine (WSE) is the largest chip ever built.",
	"CS-3 systems provide unprecedented AI compute performance.",
	"Linear scaling across millions of cores.",
}

// DocSearch ranks documentation paragraphs against a query.
type DocSearch struct {
	corpus []string
}

// NewDocSearch builds the corpus from the builtin facts and, when dir is
// set, every .md, .txt and .html file below it. HTML is converted to
// markdown before it is split into paragraphs.
func NewDocSearch(dir string) (*DocSearch, error) {
	corpus := append([]string(nil), builtinDocs...)
	if dir == "" {
		return &DocSearch{corpus: corpus}, nil
	}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		text, ok, err := loadDoc(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		if ok {
			corpus = append(corpus, paragraphs(text)...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("index docs: %w", err)
	}
	return &DocSearch{corpus: corpus}, nil
}

func (s *DocSearch) Name() string { return "search_documentation" }
func (s *DocSearch) Description() string {
	return "Search the technical documentation for a given query"
}
func (s *DocSearch) Schema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"query": map[string]any{"type": "string", "description": "The search query term"},
		},
		Required: []string{"query"},
	}
}

// Execute returns {query, results}. Each query word is fuzzy matched
// against the corpus and paragraphs are ranked by their summed score.
func (s *DocSearch) Execute(_ context.Context, args map[string]any) (llm.ToolResult, error) {
	query, _ := args["query"].(string)

	results := s.search(query)
	if len(results) == 0 {
		results = append([]string(nil), builtinDocs...)
	}
	out := make([]any, len(results))
	for i, r := range results {
		out[i] = r
	}
	return llm.PlainResult(map[string]any{"query": query, "results": out}), nil
}

func (s *DocSearch) search(query string) []string {
	scores := make(map[int]int)
	for _, word := range strings.Fields(query) {
		for _, m := range fuzzy.Find(word, s.corpus) {
			scores[m.Index] += m.Score + 1
		}
	}

	idx := make([]int, 0, len(scores))
	for i := range scores {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool {
		if scores[idx[a]] != scores[idx[b]] {
			return scores[idx[a]] > scores[idx[b]]
		}
		return idx[a] < idx[b]
	})
	if len(idx) > maxSearchResults {
		idx = idx[:maxSearchResults]
	}

	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = s.corpus[n]
	}
	return out
}

func loadDoc(path string) (string, bool, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".md" && ext != ".txt" && ext != ".html" && ext != ".htm" {
		return "", false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	if ext == ".html" || ext == ".htm" {
		md, err := htmltomarkdown.ConvertString(string(data))
		if err != nil {
			return "", false, fmt.Errorf("convert to markdown: %w", err)
		}
		return md, true, nil
	}
	return string(data), true, nil
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
