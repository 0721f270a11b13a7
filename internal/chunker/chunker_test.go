package chunker

import (
	"strings"
	"testing"

	"github.com/helioscale/sdkdex/internal/catalog"
)

func TestChunk_CoversNormalizedText(t *testing.T) {
	text := "The quick   brown fox\n jumps over\tthe lazy dog. " +
		strings.Repeat("Lorem ipsum dolor sit amet. ", 20)
	size, overlap := 50, 10

	chunks := Chunk(text, size, overlap, 0)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	for i, c := range chunks {
		if len([]rune(c)) > size {
			t.Errorf("chunk %d exceeds size: %d > %d", i, len([]rune(c)), size)
		}
	}

	// Each chunk must equal its trimmed window over the normalized text,
	// and the windows together must reach the end of the text.
	step := size - overlap
	runes := []rune(Normalize(text))
	for i, c := range chunks {
		start := i * step
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if want := strings.TrimSpace(string(runes[start:end])); c != want {
			t.Errorf("chunk %d = %q, want window %q", i, c, want)
		}
	}
	if lastEnd := (len(chunks)-1)*step + size; lastEnd < len(runes) {
		t.Errorf("chunks stop at %d of %d normalized characters", lastEnd, len(runes))
	}
}

func TestChunk_MaxChunksStopsEarly(t *testing.T) {
	text := strings.Repeat("abcdefghij ", 100)
	chunks := Chunk(text, 20, 5, 3)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
}

func TestChunk_NonPositiveSizeIsSingleChunk(t *testing.T) {
	chunks := Chunk("  hello   world  ", 0, 10, 0)
	if len(chunks) != 1 || chunks[0] != "hello world" {
		t.Fatalf("got %v", chunks)
	}
}

func TestChunk_OverlapClamped(t *testing.T) {
	// Overlap >= size would never advance; it must clamp to size-1.
	chunks := Chunk(strings.Repeat("x", 50), 10, 99, 0)
	if len(chunks) == 0 {
		t.Fatal("expected chunks despite degenerate overlap")
	}
	for _, c := range chunks {
		if len(c) > 10 {
			t.Errorf("chunk %q exceeds size", c)
		}
	}
}

func TestChunk_EmptyText(t *testing.T) {
	if got := Chunk("   \t\n ", 10, 2, 0); got != nil {
		t.Fatalf("expected nil for blank text, got %v", got)
	}
}

func TestChunk_ShortSentenceOverlappingWindows(t *testing.T) {
	chunks := Chunk("The quick brown fox jumps over the lazy dog.", 20, 5, 10)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d: %v", len(chunks), chunks)
	}
	for _, c := range chunks {
		if len([]rune(c)) > 20 {
			t.Errorf("chunk %q exceeds 20 characters", c)
		}
	}
}

func TestItems_DocsChunkedSamplesFlat(t *testing.T) {
	cat, err := catalog.New([]catalog.Entry{
		{
			ID: "guide", URI: "doc://atlas/guide", Type: catalog.TypeDoc,
			Title: "Guide", EmbedText: strings.Repeat("words and more words. ", 30),
		},
		{
			ID: "snippet", URI: "sample://atlas/snippet", Type: catalog.TypeSample,
			Title: "Insert one", Summary: "Insert a document", Tags: []string{"crud", "insert"},
		},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	items := Items(cat, Config{Size: 100, Overlap: 10, MaxChunksPerDoc: 8, MaxItemChars: 500})

	var docItems, sampleItems []Item
	for _, it := range items {
		switch it.URI {
		case "doc://atlas/guide":
			docItems = append(docItems, it)
		case "sample://atlas/snippet":
			sampleItems = append(sampleItems, it)
		}
	}

	if len(docItems) < 2 {
		t.Fatalf("expected chunked doc items, got %d", len(docItems))
	}
	if docItems[0].ID != "guide#0" || docItems[1].ID != "guide#1" {
		t.Errorf("doc item ids not index-suffixed: %s, %s", docItems[0].ID, docItems[1].ID)
	}

	if len(sampleItems) != 1 {
		t.Fatalf("expected one sample item, got %d", len(sampleItems))
	}
	for _, want := range []string{"Insert one", "Insert a document", "crud", "insert"} {
		if !strings.Contains(sampleItems[0].Text, want) {
			t.Errorf("sample item text missing %q: %q", want, sampleItems[0].Text)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 3); got != "hel" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("hello", 0); got != "hello" {
		t.Errorf("Truncate with max 0 = %q", got)
	}
}
