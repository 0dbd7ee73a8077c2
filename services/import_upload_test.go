package services

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartFile(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestValidateImportUpload(t *testing.T) {
	csv := []byte("project_id;user_id;date;hours;phase;description\n1;1;01/03/2024;8;inicio;Revisión\n")

	assert.NoError(t, ValidateImportUpload(multipartFile(t, "horas.csv", csv)))
	assert.NoError(t, ValidateImportUpload(multipartFile(t, "HORAS.TXT", csv)))

	err := ValidateImportUpload(multipartFile(t, "horas.xlsx", csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CSV or TXT")

	err = ValidateImportUpload(multipartFile(t, "horas.csv", []byte{'P', 'K', 0, 3, 4}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a text file")

	err = ValidateImportUpload(multipartFile(t, "horas.csv", []byte{0xff, 0xfe, 'a'}))
	require.Error(t, err)
}

func TestCheckTextContent_CutRune(t *testing.T) {
	head := []byte(strings.Repeat("a", 10) + "ñ")
	assert.NoError(t, checkTextContent(head[:len(head)-1]))
}
