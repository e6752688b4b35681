package zip

import (
	archivezip "archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchive(t *testing.T) {
	data := Archive([]Asset{
		{Filename: "a.png", Data: []byte("aaa")},
		{Filename: "b.png", Data: []byte("bbb")},
	})

	reader, err := archivezip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, reader.File, 2)

	rc, err := reader.File[0].Open()
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, []byte("aaa"), content)
}

func TestArchiveEmpty(t *testing.T) {
	data := Archive(nil)
	reader, err := archivezip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Empty(t, reader.File)
}
