package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docqa", "prompts"), store.Dir())
}

func TestNewPromptStore_NoIO(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")

	_, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "directory is created lazily")
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptRAGSystem)
	require.NoError(t, err)

	for _, f := range []string{"rag_system.txt", "rag_question.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected %s to exist", f)
	}
}

func TestPromptStore_Load_Defaults(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	system, err := store.Load(driven.PromptRAGSystem)
	require.NoError(t, err)
	assert.Contains(t, system, "IMPORTANT INSTRUCTIONS:")
	assert.Contains(t, system, "6. Format your answer clearly with proper structure")

	question, err := store.Load(driven.PromptRAGQuestion)
	require.NoError(t, err)
	rendered := fmt.Sprintf(question, "CTX", "Q?")
	assert.Equal(t, "Context from indexed documents:\n\nCTX\n\nQuestion: Q?\n\n"+
		"Provide a comprehensive answer based on the context above. "+
		"Cite specific documents when referencing information.", rendered)
}

func TestPromptStore_Load_CustomFileWins(t *testing.T) {
	dir := t.TempDir()
	custom := "Answer tersely.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rag_system.txt"), []byte(custom), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptRAGSystem)
	require.NoError(t, err)
	assert.Equal(t, "Answer tersely.", prompt)

	data, err := os.ReadFile(filepath.Join(dir, "rag_system.txt"))
	require.NoError(t, err)
	assert.Equal(t, custom, string(data), "existing files are not overwritten")
}

func TestPromptStore_Load_BlankFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rag_system.txt"), []byte("  \n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptRAGSystem)
	require.NoError(t, err)
	def, _ := DefaultPrompt(driven.PromptRAGSystem)
	assert.Equal(t, def, prompt)
}

func TestPromptStore_Load_Unknown(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nope")
	assert.Error(t, err)
}

func TestPromptStore_Reload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptRAGSystem)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "rag_system.txt"), []byte("edited"), 0600))

	cached, err := store.Load(driven.PromptRAGSystem)
	require.NoError(t, err)
	assert.NotEqual(t, "edited", cached, "served from cache until reload")

	store.Reload()
	fresh, err := store.Load(driven.PromptRAGSystem)
	require.NoError(t, err)
	assert.Equal(t, "edited", fresh)
}

func TestPromptStore_InitFailureUsesDefaults(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	store, err := NewPromptStore(filepath.Join(blocker, "prompts"))
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptRAGQuestion)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Question: %s")

	_, err = store.Load("missing")
	assert.Error(t, err)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := store.Load(driven.PromptRAGSystem)
			assert.NoError(t, err)
			assert.NotEmpty(t, p)
		}()
	}
	wg.Wait()
}
