package searcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dshills/notesearch-mcp/internal/rerank"
	"github.com/dshills/notesearch-mcp/pkg/types"
)

const (
	// expandTimeout bounds the LLM expansion call; expansion is a
	// best-effort enrichment and must not stall the search
	expandTimeout = 5 * time.Second

	// maxExpansions caps the number of variants added per search
	maxExpansions = 4

	// prfTopDocs is how many top lexical hits feed pseudo-relevance feedback
	prfTopDocs = 5

	// prfTopTerms is how many feedback terms form the PRF variant
	prfTopTerms = 3

	expandTemperature = 0.3
	expandMaxTokens   = 200
)

const expandPrompt = `You expand search queries for a personal notes knowledge base.

Given the query below, produce 2-4 alternative search queries that capture different phrasings of the same intent. Use concrete keywords, not sentences. Keep each query to 2-6 words.

Reply with ONLY a JSON array of strings.

Query: %s`

// expandQuery produces non-original query variants: LLM rewrites plus a
// pseudo-relevance-feedback variant built from the top lexical hits.
// Always best-effort; returns nil when nothing useful can be generated.
func (o *Orchestrator) expandQuery(ctx context.Context, query string, lexicalHits []types.SearchResult) []string {
	variants := o.llmExpand(ctx, query)

	if cached, ok := o.caches.GetExpansion("prf", query); ok {
		for _, v := range cached {
			variants = appendVariant(variants, query, v)
		}
	} else if prf := prfExpand(query, lexicalHits); prf != "" {
		o.caches.SetExpansion("prf", query, []string{prf})
		variants = appendVariant(variants, query, prf)
	}

	if len(variants) > maxExpansions {
		variants = variants[:maxExpansions]
	}
	return variants
}

// llmExpand asks the oracle for query rewrites. Results go through the
// expansion cache; any oracle failure degrades to no variants.
func (o *Orchestrator) llmExpand(ctx context.Context, query string) []string {
	if o.cfg.Oracle == nil {
		return nil
	}

	if cached, ok := o.caches.GetExpansion("llm", query); ok {
		return cached
	}

	if !o.cfg.Oracle.Available(ctx) {
		return nil
	}

	expandCtx, cancel := context.WithTimeout(ctx, expandTimeout)
	defer cancel()

	reply, err := o.cfg.Oracle.Generate(expandCtx, fmt.Sprintf(expandPrompt, query), rerank.GenerateOptions{
		Temperature: expandTemperature,
		MaxTokens:   expandMaxTokens,
	})
	if err != nil {
		return nil
	}

	parsed, err := parseExpansionReply(reply)
	if err != nil {
		return nil
	}

	var variants []string
	for _, v := range parsed {
		variants = appendVariant(variants, query, v)
	}

	if len(variants) > 0 {
		o.caches.SetExpansion("llm", query, variants)
	}
	return variants
}

// appendVariant adds a cleaned variant, skipping blanks, duplicates,
// and echoes of the original query
func appendVariant(variants []string, query, candidate string) []string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || strings.EqualFold(candidate, query) {
		return variants
	}
	for _, existing := range variants {
		if strings.EqualFold(existing, candidate) {
			return variants
		}
	}
	return append(variants, candidate)
}

// parseExpansionReply parses the oracle reply into a string slice.
// Handles clean JSON arrays, markdown-fenced responses, and objects
// that wrap the array under a common key.
func parseExpansionReply(reply string) ([]string, error) {
	reply = strings.TrimSpace(reply)

	// Strip markdown code fences if present
	if strings.HasPrefix(reply, "```") {
		lines := strings.Split(reply, "\n")
		var cleaned []string
		inBlock := false
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inBlock = !inBlock
				continue
			}
			if inBlock {
				cleaned = append(cleaned, line)
			}
		}
		reply = strings.Join(cleaned, "\n")
	}

	var queries []string
	if err := json.Unmarshal([]byte(reply), &queries); err == nil {
		return queries, nil
	}

	// Some models wrap the array in an object
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(reply), &obj); err == nil {
		for _, key := range []string{"queries", "expansions", "results"} {
			if raw, ok := obj[key]; ok {
				if err := json.Unmarshal(raw, &queries); err == nil {
					return queries, nil
				}
			}
		}
	}

	return nil, fmt.Errorf("expansion reply is not a JSON string array")
}

// prfStopwords are too common to be useful feedback terms
var prfStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "was": true, "are": true, "were": true,
	"have": true, "has": true, "had": true, "not": true, "but": true,
	"about": true, "into": true, "when": true, "what": true, "where": true,
	"will": true, "its": true, "our": true, "their": true, "then": true,
	"than": true, "also": true, "been": true, "over": true, "under": true,
}

// prfExpand builds one pseudo-relevance-feedback variant: the most
// frequent content terms of the top lexical hits that don't already
// appear in the query. Returns "" when there is nothing to add.
func prfExpand(query string, hits []types.SearchResult) string {
	if len(hits) == 0 {
		return ""
	}
	if len(hits) > prfTopDocs {
		hits = hits[:prfTopDocs]
	}

	queryTerms := make(map[string]bool)
	for _, term := range tokenizeTerms(query) {
		queryTerms[term] = true
	}

	counts := make(map[string]int)
	order := make([]string, 0, 64)
	for _, hit := range hits {
		for _, term := range tokenizeTerms(hit.Title + " " + hit.Preview) {
			if queryTerms[term] || prfStopwords[term] {
				continue
			}
			if counts[term] == 0 {
				order = append(order, term)
			}
			counts[term]++
		}
	}
	if len(order) == 0 {
		return ""
	}

	// Highest frequency first; first-seen order breaks ties for
	// deterministic output
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	top := order
	if len(top) > prfTopTerms {
		top = top[:prfTopTerms]
	}

	// Terms that appear only once across the feedback docs carry no
	// consensus signal
	if counts[top[0]] < 2 {
		return ""
	}

	return strings.Join(top, " ")
}

// tokenizeTerms lowercases and splits text into content-bearing terms
func tokenizeTerms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}
