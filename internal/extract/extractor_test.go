package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractPlain(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte("hello world"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes failed: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Number != 1 || pages[0].Text != "hello world" {
		t.Errorf("got page %+v", pages[0])
	}
}

func TestExtractPlainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte{0x68, 0x69, 0xff}, ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes failed: %v", err)
	}
	if pages[0].Text != "hi�" {
		t.Errorf("got %q", pages[0].Text)
	}
}

func TestExtractUnknownExtensionFallsBackToPlain(t *testing.T) {
	e := NewExtractor()
	pages, err := e.ExtractBytes([]byte("log line"), ".log")
	if err != nil {
		t.Fatalf("ExtractBytes failed: %v", err)
	}
	if pages[0].Text != "log line" {
		t.Errorf("got %q", pages[0].Text)
	}
}

func makeDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	docXML := `<w:document><w:body>` +
		`<w:p w:rsidR="00A"><w:r><w:t>Hello</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t xml:space="preserve">world</w:t></w:r></w:p>` +
		`</w:body></w:document>`

	e := NewExtractor()
	pages, err := e.ExtractBytes(makeDocx(t, docXML), ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes failed: %v", err)
	}
	if pages[0].Text != "Hello world" {
		t.Errorf("got %q", pages[0].Text)
	}
}

func TestExtractDOCXNotAZip(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("plain bytes"), ".docx"); err == nil {
		t.Fatal("expected error for non-zip docx")
	}
}

func TestExtractExcel(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "name"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B1", "value"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	e := NewExtractor()
	pages, err := e.ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes failed: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Text != "name\tvalue" {
		t.Errorf("got %q", pages[0].Text)
	}
}

func TestExtractFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	if err := os.WriteFile(path, []byte("# Title\n\nBody."), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	e := NewExtractor()
	pages, err := e.Extract(path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if pages[0].Text != "# Title\n\nBody." {
		t.Errorf("got %q", pages[0].Text)
	}
}

func TestSupported(t *testing.T) {
	for _, ext := range []string{".pdf", ".docx", ".xlsx", ".txt", ".md", ".PDF"} {
		if !Supported(ext) {
			t.Errorf("expected %s to be supported", ext)
		}
	}
	for _, ext := range []string{".exe", ".png", ""} {
		if Supported(ext) {
			t.Errorf("expected %s to be unsupported", ext)
		}
	}
}
