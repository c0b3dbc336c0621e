package models

// Review is immutable once accepted by the ledger. SequenceIndex is the
// zero-based position assigned at submission time.
type Review struct {
	Reviewer      string `json:"reviewer"`
	ProductCode   string `json:"product_code"`
	Score         int    `json:"score"`
	Text          string `json:"text"`
	SequenceIndex uint64 `json:"sequence_index"`
}

const (
	MinScore = 1
	MaxScore = 5
)
