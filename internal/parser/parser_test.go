package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/settle/internal/account"
)

func requireInputError(t *testing.T, err error, code string) *InputError {
	t.Helper()
	require.Error(t, err)
	ie, ok := err.(*InputError)
	require.True(t, ok, "want *InputError, got %T: %v", err, err)
	assert.Equal(t, code, ie.Code)
	return ie
}

func assertSampleBatch(t *testing.T, updates []account.Update) {
	t.Helper()
	require.Len(t, updates, 2)

	a := updates[0]
	assert.Equal(t, "A", a.ID)
	assert.Equal(t, "savings", a.Type)
	assert.True(t, a.Tokens.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, account.V(1), a.Version)
	assert.Equal(t, 50*time.Millisecond, a.CallbackTime)
	assert.Equal(t, "first", a.Data["note"])

	b := updates[1]
	assert.Equal(t, "B", b.ID)
	assert.True(t, b.Tokens.Equal(decimal.RequireFromString("2.5")))
	assert.False(t, b.Version.IsSet())
	assert.Equal(t, 20*time.Millisecond, b.CallbackTime)
}

func TestParseFile_JSON(t *testing.T) {
	updates, err := ParseFile("testdata/batch.json")
	require.NoError(t, err)
	assertSampleBatch(t, updates)
}

func TestParseFile_YAML(t *testing.T) {
	updates, err := ParseFile("testdata/batch.yaml")
	require.NoError(t, err)
	assertSampleBatch(t, updates)
}

func TestParseFile_NotFound(t *testing.T) {
	_, err := ParseFile("testdata/nope.json")
	ie := requireInputError(t, err, ErrCodeNotFound)
	assert.Equal(t, "testdata/nope.json", ie.Path)
	assert.True(t, IsInputError(err))
}

func TestParseFile_Malformed(t *testing.T) {
	_, err := ParseFile("testdata/malformed.json")
	ie := requireInputError(t, err, ErrCodeMalformed)
	assert.Equal(t, "testdata/malformed.json", ie.Path)
}

func TestParseFile_SchemaViolations(t *testing.T) {
	_, err := ParseFile("testdata/invalid.json")
	ie := requireInputError(t, err, ErrCodeSchema)
	assert.NotEmpty(t, ie.Details)
}

func TestParseFile_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.txt")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	_, err := ParseFile(path)
	requireInputError(t, err, ErrCodeUnsupported)
}

func TestParse_EmptyBatch(t *testing.T) {
	updates, err := Parse([]byte("[]"), FormatJSON, "empty.json")
	require.NoError(t, err)
	assert.NotNil(t, updates)
	assert.Empty(t, updates)

	updates, err = Parse([]byte(""), FormatYAML, "empty.yaml")
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestParse_NotAnArray(t *testing.T) {
	_, err := Parse([]byte(`{"id":"A"}`), FormatJSON, "obj.json")
	requireInputError(t, err, ErrCodeSchema)
}

func TestParse_MissingRequiredField(t *testing.T) {
	_, err := Parse([]byte(`[{"id":"A","accountType":"t","tokens":1}]`), FormatJSON, "x.json")
	requireInputError(t, err, ErrCodeSchema)
}

func TestParse_NegativeVersionRejected(t *testing.T) {
	_, err := Parse([]byte(`[{"id":"A","accountType":"t","tokens":1,"version":-1,"callbackTimeMs":1}]`), FormatJSON, "x.json")
	requireInputError(t, err, ErrCodeSchema)
}

func TestParse_MillisecondBounds(t *testing.T) {
	const batch = `[{"id":"A","accountType":"t","tokens":1,"%s":%s%s}]`
	const maxMs = "9223372036854"

	updates, err := Parse([]byte(fmt.Sprintf(batch, "callbackTimeMs", maxMs, "")), FormatJSON, "x.json")
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Positive(t, updates[0].CallbackTime)

	_, err = Parse([]byte(fmt.Sprintf(batch, "callbackTimeMs", "9223372036855", "")), FormatJSON, "x.json")
	requireInputError(t, err, ErrCodeSchema)

	_, err = Parse([]byte(fmt.Sprintf(batch, "callbackTimeMs", "1", `,"startTimeMs":9223372036855`)), FormatJSON, "x.json")
	requireInputError(t, err, ErrCodeSchema)
}

func TestParse_NormalizesKeys(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"
	src := []byte(`[
		{"id":"` + decomposed + `","accountType":"` + decomposed + `","tokens":1,"version":1,"callbackTimeMs":1},
		{"id":"` + composed + `","accountType":"t","tokens":2,"version":2,"callbackTimeMs":1}
	]`)
	updates, err := Parse(src, FormatJSON, "nfc.json")
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, composed, updates[0].ID)
	assert.Equal(t, updates[0].ID, updates[1].ID)
	assert.Equal(t, composed, updates[0].Type)
}

func TestFileSource_Load(t *testing.T) {
	src := FileSource{Path: "testdata/batch.json"}
	updates, err := src.Load(context.Background())
	require.NoError(t, err)
	assertSampleBatch(t, updates)
}

func TestFileSource_LoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FileSource{Path: "testdata/batch.json"}.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.json": FormatJSON,
		"a.JSON": FormatJSON,
		"a.yaml": FormatYAML,
		"a.yml":  FormatYAML,
	} {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
}

func TestInputError_Message(t *testing.T) {
	err := &InputError{Code: ErrCodeNotFound, Message: "input not found", Path: "x.json"}
	assert.Equal(t, "E101: input not found (path=x.json)", err.Error())
}
