package xlsx

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
)

// FileFormatDescriptions provides descriptions of the file types that can
// be inspected.
var FileFormatDescriptions = map[string]string{
	"xls":  "Excel xls file",
	"xlsx": "Excel xlsx file",
	"zip":  "Unknown ZIP file",
	"":     "Unknown file type",
}

// oleSignature is the magic cookie of an OLE2 compound document, the
// container of legacy xls files.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// zipSignature is the magic cookie of ZIP archives.
var zipSignature = []byte("PK\x03\x04")

const peekSize = 8

// InspectFormat looks at the content at the supplied path, or at the bytes
// provided, and returns the file's type as a string, or an empty string if
// it cannot be determined. The return value can be looked up in
// FileFormatDescriptions for a human-readable name.
func InspectFormat(path string, content []byte) (string, error) {
	if content == nil {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()

		peek := make([]byte, peekSize)
		n, err := f.Read(peek)
		if err != nil && err != io.EOF {
			return "", err
		}
		content = peek[:n]

		if bytes.HasPrefix(content, zipSignature) {
			return inspectZipFile(path)
		}
	}

	if len(content) < peekSize {
		return "", nil
	}
	if bytes.HasPrefix(content, oleSignature) {
		return "xls", nil
	}
	if bytes.HasPrefix(content, zipSignature) {
		zf, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
		if err != nil {
			return "zip", nil
		}
		return classifyZip(zf), nil
	}
	return "", nil
}

func inspectZipFile(path string) (string, error) {
	zf, err := zip.OpenReader(path)
	if err != nil {
		return "zip", nil
	}
	defer zf.Close()
	return classifyZip(&zf.Reader), nil
}

func classifyZip(zf *zip.Reader) string {
	for _, f := range zf.File {
		if f.Name == "xl/workbook.xml" {
			return "xlsx"
		}
	}
	return "zip"
}
