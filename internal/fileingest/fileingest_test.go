package fileingest

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptRule(t *testing.T) {
	rule := AcceptRule{MediaTypes: []string{"audio/mpeg"}, Extensions: []string{".mp3", ".wav"}}

	assert.True(t, rule.Accepts("audio/mpeg", "whatever.bin"))
	assert.True(t, rule.Accepts("AUDIO/MPEG; charset=binary", ""))
	assert.True(t, rule.Accepts("application/octet-stream", "Song.WAV"))
	assert.False(t, rule.Accepts("text/plain", "notes.txt"))
	assert.False(t, rule.Accepts("", ""))
}

func TestNormalizeMediaType(t *testing.T) {
	assert.Equal(t, "text/plain", NormalizeMediaType("Text/Plain; charset=utf-8"))
	assert.Equal(t, "", NormalizeMediaType(""))
	assert.Equal(t, "audio/x-weird", NormalizeMediaType("audio/x-weird;;;"))
}

func TestDetectMediaType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n%..."), 0o644))
	mt, err := DetectMediaType(path)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mt)
}

func TestUniqueName(t *testing.T) {
	a := UniqueName("upload", "Meeting.MP3")
	b := UniqueName("upload", "Meeting.MP3")
	assert.Regexp(t, regexp.MustCompile(`^upload-\d+-\d+\.mp3$`), a)
	assert.NotEqual(t, a, b)
}

func TestSaveUpload(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="audio"; filename="talk.wav"`)
	h.Set("Content-Type", "audio/wav")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("RIFF0000WAVE"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	fh := req.MultipartForm.File["audio"][0]

	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	meta, err := SaveUpload(fh, dir, "../escape.wav")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "escape.wav"), meta.Path)
	assert.Equal(t, "talk.wav", meta.Name)
	assert.Equal(t, int64(12), meta.Size)
	assert.Equal(t, "audio/wav", meta.DeclaredType)
	data, err := os.ReadFile(meta.Path)
	require.NoError(t, err)
	assert.Equal(t, "RIFF0000WAVE", string(data))
}
