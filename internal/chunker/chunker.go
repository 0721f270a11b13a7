// Package chunker splits long article bodies into bounded, overlapping text
// windows and derives the embedding items for a catalog.
package chunker

import (
	"fmt"
	"strings"

	"github.com/helioscale/sdkdex/internal/catalog"
)

// Config bounds the chunking pipeline. The zero value is not usable; callers
// take defaults from the configuration layer.
type Config struct {
	Size            int // characters per chunk; <= 0 means one chunk per text
	Overlap         int // characters shared by consecutive chunks
	MaxChunksPerDoc int // hard cap per document; <= 0 means unlimited
	MaxItemChars    int // hard cap on any single embedded item's text
}

// String renders the config for cache-key derivation. Any change to a field
// must change the rendered form.
func (c Config) String() string {
	return fmt.Sprintf("size=%d,overlap=%d,maxchunks=%d,maxchars=%d",
		c.Size, c.Overlap, c.MaxChunksPerDoc, c.MaxItemChars)
}

// Normalize collapses runs of whitespace to single spaces and trims the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Chunk splits text into windows of size characters where consecutive windows
// share overlap characters. Whitespace is normalized first. A non-positive
// size returns the whole normalized text as one chunk. Overlap is clamped to
// [0, size-1]. Chunking stops once maxChunks chunks exist even if text
// remains.
func Chunk(text string, size, overlap, maxChunks int) []string {
	text = Normalize(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	step := size - overlap
	runes := []rune(text)
	var chunks []string
	for pos := 0; pos < len(runes); pos += step {
		if maxChunks > 0 && len(chunks) >= maxChunks {
			break
		}
		end := pos + size
		if end > len(runes) {
			end = len(runes)
		}
		if c := strings.TrimSpace(string(runes[pos:end])); c != "" {
			chunks = append(chunks, c)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Item is one unit of text to embed, traceable back to its catalog entry.
type Item struct {
	ID   string
	URI  string
	Text string
}

// Items derives the embedding items for the whole catalog. Doc entries with a
// body are chunked (item ids suffixed with the chunk index); everything else
// embeds its title, summary, and tags as a single item.
func Items(cat *catalog.Catalog, cfg Config) []Item {
	var items []Item
	for _, e := range cat.Entries() {
		if e.Type == catalog.TypeDoc && e.EmbedText != "" {
			chunks := Chunk(e.EmbedText, cfg.Size, cfg.Overlap, cfg.MaxChunksPerDoc)
			for i, c := range chunks {
				items = append(items, Item{
					ID:   fmt.Sprintf("%s#%d", e.ID, i),
					URI:  e.URI,
					Text: Truncate(c, cfg.MaxItemChars),
				})
			}
			continue
		}

		text := Normalize(e.Title + " " + e.Summary + " " + strings.Join(e.Tags, " "))
		if text == "" {
			continue
		}
		items = append(items, Item{
			ID:   e.ID,
			URI:  e.URI,
			Text: Truncate(text, cfg.MaxItemChars),
		})
	}
	return items
}

// Truncate bounds text to max characters. Non-positive max leaves the text
// unchanged.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
