package formenc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Blob is a named, readable byte source for file-style form fields.
//
// Adding a *Blob anywhere in a parameter tree switches the built body to
// multipart/form-data; the blob becomes a file part carrying its filename.
//
// Example - upload from a path:
//
//	params := map[string]any{
//	    "purpose": "dispute_evidence",
//	    "file":    formenc.BlobFromFile("/tmp/receipt.pdf"),
//	}
//
// Example - upload from memory:
//
//	params := map[string]any{
//	    "file": formenc.BlobFromReader("export.csv", strings.NewReader(csvData)),
//	}
type Blob struct {
	filename string
	reader   io.Reader
}

// BlobFromFile returns a Blob backed by the file at path.
//
// The file is not touched until the body is encoded; it is opened then and
// closed as soon as its bytes have been written, on every exit path. The
// base name of the path becomes the part's filename.
func BlobFromFile(path string) *Blob {
	return &Blob{
		filename: filepath.Base(path),
		reader:   &lazyFileReader{path: path},
	}
}

// BlobFromReader returns a Blob that reads its bytes from r.
//
// The filename may be empty; unnamed blobs are sent under the placeholder
// filename "blob". The reader is consumed during encoding but never
// closed; the caller keeps ownership.
func BlobFromReader(filename string, r io.Reader) *Blob {
	return &Blob{filename: filename, reader: r}
}

// Filename returns the name the blob is sent under, or "blob" if none was
// given.
func (b *Blob) Filename() string {
	if b.filename == "" {
		return "blob"
	}
	return b.filename
}

// EncodeMultipart serializes flattened pairs into a multipart/form-data
// body delimited by the given boundary token.
//
// String values become plain form fields; *Blob values become file fields
// named after the blob. The content type is
// "multipart/form-data; boundary=<token>". Most callers want BuildContent,
// which generates a random boundary and picks the encoding automatically.
func (e *Encoder) EncodeMultipart(pairs []Pair, boundary string) (Content, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.SetBoundary(boundary); err != nil {
		return Content{}, fmt.Errorf("formenc: invalid boundary: %w", err)
	}

	for _, p := range pairs {
		var err error
		switch v := p.Value.(type) {
		case *Blob:
			err = writeFilePart(writer, p.Key, v)
		case string:
			err = writer.WriteField(p.Key, v)
		default:
			err = writer.WriteField(p.Key, stringifyValue(v))
		}
		if err != nil {
			e.metrics.recordError(context.Background(), "io")
			return Content{}, fmt.Errorf("formenc: writing part %q: %w", p.Key, err)
		}
	}

	// Close writes the terminating boundary delimiter.
	if err := writer.Close(); err != nil {
		return Content{}, fmt.Errorf("formenc: terminating body: %w", err)
	}

	content := Content{
		body:        buf.Bytes(),
		contentType: writer.FormDataContentType(),
	}
	e.finishBody(content, len(pairs), "multipart")
	return content, nil
}

// writeFilePart writes one file field, opening file-backed blobs for the
// duration of the write only.
func writeFilePart(w *multipart.Writer, key string, blob *Blob) error {
	part, err := w.CreateFormFile(key, blob.Filename())
	if err != nil {
		return err
	}

	reader := blob.reader
	if lazy, ok := reader.(*lazyFileReader); ok {
		f, err := os.Open(lazy.path)
		if err != nil {
			return err
		}
		defer f.Close()
		reader = f
	}
	if reader == nil {
		return nil
	}

	_, err = io.Copy(part, reader)
	return err
}

// lazyFileReader defers file opening until the body is encoded.
type lazyFileReader struct {
	path string
}

func (l *lazyFileReader) Read(_ []byte) (int, error) {
	// Never read directly; writeFilePart opens the real file.
	return 0, io.EOF
}
