package cursor_test

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rigup/internal/provider/cursor"
	"github.com/felixgeelhaar/rigup/internal/testutil/mocks"
)

const settingsPath = "/home/dev/.config/Cursor/User/settings.json"

func parseWritten(t *testing.T, fs *mocks.FileSystem) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(fs.Content(settingsPath), &out))
	return out
}

func TestApplyCreatesSettingsFile(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	merger := cursor.New(fs, settingsPath, nil)

	changes, err := merger.Apply(map[string]any{
		"editor.formatOnSave": true,
		"editor.fontSize":     14,
	})

	require.NoError(t, err)
	assert.Len(t, changes, 2)
	assert.True(t, fs.IsDir("/home/dev/.config/Cursor/User"))

	written := parseWritten(t, fs)
	assert.Equal(t, true, written["editor.formatOnSave"])
	assert.Equal(t, float64(14), written["editor.fontSize"])
}

func TestApplyPreservesUnknownKeys(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	fs.AddFileMode(settingsPath, []byte(`{"workbench.colorTheme": "Nord", "editor.fontSize": 12}`), 0o600)
	merger := cursor.New(fs, settingsPath, nil)

	changes, err := merger.Apply(map[string]any{"editor.fontSize": 14})

	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "editor.fontSize", changes[0].Key)
	assert.Equal(t, "12", changes[0].Old)
	assert.Equal(t, "14", changes[0].New)

	written := parseWritten(t, fs)
	assert.Equal(t, "Nord", written["workbench.colorTheme"])
	assert.Equal(t, float64(14), written["editor.fontSize"])

	mode, err := fs.Mode(settingsPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), mode, "existing file mode should be preserved")
}

func TestApplyDeepMergesNestedObjects(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	fs.AddFile(settingsPath, `{"[go]": {"editor.tabSize": 4, "editor.insertSpaces": false}}`)
	merger := cursor.New(fs, settingsPath, nil)

	changes, err := merger.Apply(map[string]any{
		"[go]": map[string]any{"editor.insertSpaces": true},
	})

	require.NoError(t, err)
	assert.Len(t, changes, 1)

	written := parseWritten(t, fs)
	goSection, ok := written["[go]"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(4), goSection["editor.tabSize"], "undeclared nested key should survive the merge")
	assert.Equal(t, true, goSection["editor.insertSpaces"])
}

func TestApplySkipsWhenSettingsMatch(t *testing.T) {
	t.Parallel()

	original := `{"editor.fontSize": 14, "editor.formatOnSave": true}`
	fs := mocks.NewFileSystem()
	fs.AddFile(settingsPath, original)
	merger := cursor.New(fs, settingsPath, nil)

	// YAML profiles carry 14 as int; the file holds JSON 14 as float64.
	changes, err := merger.Apply(map[string]any{
		"editor.fontSize":     14,
		"editor.formatOnSave": true,
	})

	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, original, string(fs.Content(settingsPath)), "matching settings should not be rewritten")
}

func TestApplyFailsOnCorruptSettings(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	fs.AddFile(settingsPath, `{"editor.fontSize": `)
	merger := cursor.New(fs, settingsPath, nil)

	changes, err := merger.Apply(map[string]any{"editor.fontSize": 14})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
	assert.Empty(t, changes)
	assert.Equal(t, `{"editor.fontSize": `, string(fs.Content(settingsPath)), "corrupt file must not be overwritten")
}

func TestApplyEmptySettingsIsNoop(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	merger := cursor.New(fs, settingsPath, nil)

	changes, err := merger.Apply(nil)

	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Empty(t, fs.Paths())
}
