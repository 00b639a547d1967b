package ports

// DispatchMetrics counts dispatch outcomes per trigger kind.
type DispatchMetrics interface {
	RecordMatched(kind string)
	RecordDenied(kind string)
	RecordFailed(kind string)
	RecordUnmatched(kind string)
}
