package redact

// DocumentMasker walks a nested document (as produced by json.Unmarshal —
// map[string]any / []any / scalars) and redacts sensitive fields at any
// depth. Grounded in the teacher's KubernetesSecretMasker idiom: a
// structure-aware masker that recurses through a decoded document rather
// than operating on raw bytes, and is defensive — a malformed or
// unexpected shape is returned unchanged rather than causing a panic.
type DocumentMasker struct{}

// Mask returns a redacted copy of doc. Map keys matching the sensitive
// vocabulary have their values replaced; nested maps and slices are
// recursed into.
func (DocumentMasker) Mask(doc any) any {
	return maskValue(doc)
}

func maskValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if IsSensitiveColumn(k) {
				out[k] = RedactedValue
				continue
			}
			out[k] = maskValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = maskValue(inner)
		}
		return out
	default:
		return v
	}
}

// MaskSampleDocument redacts a MongoDB/Elasticsearch sample document
// before it is ever embedded in a SourceSchema — the schema-extraction
// boundary fix called for in spec.md's Design Notes.
func MaskSampleDocument(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	masked, _ := maskValue(doc).(map[string]any)
	return masked
}
