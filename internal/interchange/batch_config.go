package interchange

// BatchConfig tunes how an import batch reports progress and how fast it
// writes. Imports write one statement per record.
type BatchConfig struct {
	// Log a progress line every N created nodes / relationships.
	NodeProgressEvery         int
	RelationshipProgressEvery int

	// WritesPerSecond throttles statements sent to the store; 0 disables it.
	WritesPerSecond float64
}

// largeDocumentRecords is where LargeBatchConfig takes over.
const largeDocumentRecords = 5000

// DefaultBatchConfig suits hand-edited documents.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		NodeProgressEvery:         10,
		RelationshipProgressEvery: 50,
	}
}

// LargeBatchConfig keeps logs readable for machine-generated documents.
func LargeBatchConfig() BatchConfig {
	return BatchConfig{
		NodeProgressEvery:         1000,
		RelationshipProgressEvery: 5000,
	}
}

// forRecords picks progress intervals by document size, keeping the
// configured write rate.
func (bc BatchConfig) forRecords(n int) BatchConfig {
	if n < largeDocumentRecords {
		return bc
	}
	large := LargeBatchConfig()
	if bc.NodeProgressEvery > large.NodeProgressEvery {
		large.NodeProgressEvery = bc.NodeProgressEvery
	}
	if bc.RelationshipProgressEvery > large.RelationshipProgressEvery {
		large.RelationshipProgressEvery = bc.RelationshipProgressEvery
	}
	large.WritesPerSecond = bc.WritesPerSecond
	return large
}

func progressDue(count, every int) bool {
	return every > 0 && count > 0 && count%every == 0
}
