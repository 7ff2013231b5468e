package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gchat.json")
	data := `[
		{"name": "spaces/A/messages/B.C", "text": "hello", "uri": "u1",
		 "sender": {"name": "users/1", "displayName": "Ada", "type": "HUMAN"},
		 "space": {"name": "spaces/A"}, "createTime": "2024-05-01T10:00:00Z",
		 "annotations": [], "argumentText": "hello"},
		{"text": "", "attachment": [{"contentName": "photo.png", "contentType": "image/png"}], "uri": "u2"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	msgs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, "Ada", msgs[0].Sender.DisplayName)
	assert.Equal(t, "photo.png", msgs[1].Attachment[0].ContentName)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrInputNotFound)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not": "an array"`), 0644))
	_, err = LoadFile(bad)
	assert.ErrorIs(t, err, ErrMalformedInput)

	obj := filepath.Join(dir, "object.json")
	require.NoError(t, os.WriteFile(obj, []byte(`{"text": "x"}`), 0644))
	_, err = LoadFile(obj)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	msgs := []RawMessage{
		{Name: "spaces/A/messages/B.C", FormattedText: "hi", Sender: &User{Name: "users/1"}},
		{Attachment: []Attachment{{ContentName: "a.png"}}},
	}

	require.NoError(t, WriteFile(path, msgs))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, msgs, loaded)

	require.NoError(t, WriteFile(path, nil))
	loaded, err = LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
