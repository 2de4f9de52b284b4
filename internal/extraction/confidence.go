package extraction

// capAt ceils a confidence score.
func capAt(v, ceiling float64) float64 {
	if v > ceiling {
		return ceiling
	}
	return v
}

// Clamp keeps a confidence score inside [0,1].
func Clamp(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// Completeness scores a field map by the fraction of non-empty values,
// penalizing very short transcripts. Used for reporting, not reconciliation.
func Completeness(fields map[string]any, transcriptWords int) float64 {
	if len(fields) == 0 {
		return 0.0
	}
	filled := 0
	for _, v := range fields {
		if v == nil || v == "" {
			continue
		}
		filled++
	}
	score := float64(filled) / float64(len(fields))
	if transcriptWords < 10 {
		score *= 0.5
	}
	return Clamp(score)
}
