package textutil

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// TitleSimilarity compares two titles after normalization. Identical
// normalized keys score 1.0 even when tokenization would discard everything
// (very short titles).
func TitleSimilarity(a, b string) float64 {
	keyA, keyB := NormalizeKey(a), NormalizeKey(b)
	if keyA != "" && keyA == keyB {
		return 1.0
	}
	return CosineSimilarity(NewFingerprint(a), NewFingerprint(b))
}
