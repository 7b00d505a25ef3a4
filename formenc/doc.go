// Package formenc builds HTTP request bodies from arbitrarily nested
// parameter maps.
//
// Nested maps and slices are flattened into ordered key/value pairs using
// bracket notation ("items[0][plan]"), then serialized as either
// application/x-www-form-urlencoded or multipart/form-data. The encoding is
// chosen automatically: a body containing only string values is URL-encoded,
// while a body containing at least one binary payload becomes multipart.
//
// # Quick Start
//
// Build a body and attach it to a request:
//
//	content, err := formenc.BuildContent(map[string]any{
//	    "amount": 234,
//	    "items": []any{
//	        map[string]any{"plan": "gold"},
//	        map[string]any{"plan": "silver"},
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//
//	req, _ := http.NewRequest(http.MethodPost, url, content.Reader())
//	req.Header.Set("Content-Type", content.ContentType())
//
// The example above produces the URL-encoded body
// "amount=234&items[0][plan]=gold&items[1][plan]=silver".
//
// # File Uploads
//
// Binary payloads are represented by Blob, a named readable byte source.
// Adding one anywhere in the parameter tree switches the whole body to
// multipart/form-data:
//
//	content, err := formenc.BuildContent(map[string]any{
//	    "purpose": "dispute_evidence",
//	    "file":    formenc.BlobFromFile("/tmp/receipt.pdf"),
//	})
//
// # Query Strings
//
// BuildQueryString flattens the same way but keeps only string values,
// silently dropping binary payloads (which are never valid in a URL):
//
//	qs, err := formenc.BuildQueryString(map[string]any{"limit": 10})
//	u := baseURL + "?" + qs
//
// # Flattening Rules
//
// The flattener is deterministic: map entries are visited in sorted key
// order, list elements in index order. nil values become empty strings,
// empty lists collapse to a single empty-string pair (URL encoding cannot
// represent an empty list), and keys that already carry bracket notation
// compose without double-wrapping ("bar[baz]" under "foo" becomes
// "foo[bar][baz]").
//
// # Configuration
//
// Package-level functions use a default Encoder. Construct your own to
// change the charset label, enable debug logging, or inject an
// OpenTelemetry meter provider:
//
//	enc := formenc.New(
//	    formenc.WithCharset("ISO-8859-1"),
//	    formenc.WithDebug(true),
//	)
//	content, err := enc.BuildContent(params)
package formenc
