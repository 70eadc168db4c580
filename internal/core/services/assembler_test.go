package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func chunk(source, content string, rank int) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			Content:  content,
			Metadata: map[string]any{domain.MetaSource: source},
		},
		Rank: rank,
	}
}

func retrieved(chunks ...domain.ScoredChunk) *domain.RetrievedSet {
	return &domain.RetrievedSet{Query: "q", Chunks: chunks}
}

func TestAssembler_GroupsBySource(t *testing.T) {
	a := &Assembler{budget: 6000, policy: domain.TruncateDropChunks}
	set := retrieved(
		chunk("a.pdf", "first a", 1),
		chunk("b.txt", "only b", 2),
		chunk("a.pdf", "second a", 3),
	)

	ctx := a.Assemble(set)

	want := "[Document: a.pdf | Chunk 1]\nfirst a" +
		"\n\n---\n\n[Document: a.pdf | Chunk 2]\nsecond a" +
		"\n\n---\n\n[Document: b.txt | Chunk 1]\nonly b"
	assert.Equal(t, want, ctx.Text)
	assert.Equal(t, 3, ctx.Included)
	assert.Zero(t, ctx.Dropped)
	assert.False(t, ctx.Truncated)
}

func TestAssembler_MissingSource(t *testing.T) {
	a := &Assembler{budget: 6000, policy: domain.TruncateCut}
	set := retrieved(domain.ScoredChunk{Chunk: domain.Chunk{Content: "x"}})

	assert.Equal(t, "[Document: Unknown | Chunk 1]\nx", a.Assemble(set).Text)
}

func TestAssembler_Empty(t *testing.T) {
	a := &Assembler{budget: 6000, policy: domain.TruncateDropChunks}

	ctx := a.Assemble(&domain.RetrievedSet{})

	assert.Empty(t, ctx.Text)
	assert.Zero(t, ctx.Included)
}

func TestAssembler_Cut(t *testing.T) {
	a := &Assembler{budget: 60, policy: domain.TruncateCut}
	set := retrieved(
		chunk("a.txt", strings.Repeat("x", 10), 1),
		chunk("b.txt", strings.Repeat("y", 10), 2),
		chunk("c.txt", strings.Repeat("z", 10), 3),
	)

	ctx := a.Assemble(set)

	assert.Equal(t, 60, utf8.RuneCountInString(ctx.Text))
	assert.True(t, strings.HasPrefix(ctx.Text, "[Document: a.txt | Chunk 1]\n"))
	assert.True(t, ctx.Truncated)
	assert.Equal(t, 2, ctx.Included, "second block starts inside the budget")
	assert.Equal(t, 1, ctx.Dropped)
}

func TestAssembler_DropChunks(t *testing.T) {
	block := len("[Document: a.txt | Chunk 1]\n") + 20
	a := &Assembler{budget: block*2 + len(BlockSeparator), policy: domain.TruncateDropChunks}
	set := retrieved(
		chunk("a.txt", strings.Repeat("x", 20), 1),
		chunk("b.txt", strings.Repeat("y", 20), 2),
		chunk("a.txt", strings.Repeat("z", 20), 3),
	)

	ctx := a.Assemble(set)

	assert.Equal(t, 2, ctx.Included)
	assert.Equal(t, 1, ctx.Dropped)
	assert.True(t, ctx.Truncated)
	assert.NotContains(t, ctx.Text, "zzz")
	assert.True(t, strings.HasSuffix(ctx.Text, strings.Repeat("y", 20)), "blocks are kept whole")
	assert.LessOrEqual(t, utf8.RuneCountInString(ctx.Text), a.budget)
}

func TestAssembler_DropChunks_StopsAtFirstMisfit(t *testing.T) {
	a := &Assembler{budget: 100, policy: domain.TruncateDropChunks}
	set := retrieved(
		chunk("a.txt", "short", 1),
		chunk("b.txt", strings.Repeat("y", 200), 2),
		chunk("c.txt", "tiny", 3),
	)

	ctx := a.Assemble(set)

	assert.Equal(t, "[Document: a.txt | Chunk 1]\nshort", ctx.Text)
	assert.Equal(t, 1, ctx.Included)
	assert.Equal(t, 2, ctx.Dropped)
}

func TestAssembler_DropChunks_TopChunkTooLarge(t *testing.T) {
	a := &Assembler{budget: 50, policy: domain.TruncateDropChunks}
	set := retrieved(
		chunk("a.txt", strings.Repeat("x", 200), 1),
		chunk("b.txt", "small", 2),
	)

	ctx := a.Assemble(set)

	assert.Equal(t, 50, utf8.RuneCountInString(ctx.Text))
	assert.True(t, strings.HasPrefix(ctx.Text, "[Document: a.txt | Chunk 1]\nxxx"))
	assert.Equal(t, 1, ctx.Included)
	assert.Equal(t, 1, ctx.Dropped)
	assert.True(t, ctx.Truncated)
}

func TestAssembler_BudgetCountsRunes(t *testing.T) {
	for _, policy := range []domain.TruncationPolicy{domain.TruncateCut, domain.TruncateDropChunks} {
		t.Run(string(policy), func(t *testing.T) {
			a := &Assembler{budget: 40, policy: policy}
			set := retrieved(chunk("ü.txt", strings.Repeat("é", 100), 1))

			ctx := a.Assemble(set)

			require.True(t, utf8.ValidString(ctx.Text))
			assert.Equal(t, 40, utf8.RuneCountInString(ctx.Text))
		})
	}
}

func TestNewAssembler_UsesSettings(t *testing.T) {
	f := newFixture()
	f.settings.Context.Budget = 123
	f.settings.Context.Truncation = domain.TruncateCut
	p, err := f.pipeline()
	require.NoError(t, err)

	a := NewAssembler(p)

	assert.Equal(t, 123, a.budget)
	assert.Equal(t, domain.TruncateCut, a.policy)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "hé", truncateRunes("héllo", 2))
	assert.Equal(t, "héllo", truncateRunes("héllo", 10))
	assert.Empty(t, truncateRunes("héllo", 0))
}
