package types

import "errors"

// ResultSource records how an identifier entered a result set.
type ResultSource string

const (
	// SourceVector marks a result returned by vector similarity search.
	SourceVector ResultSource = "vector"
	// SourceGraph marks a result added by graph expansion; it carries no
	// similarity score, only structural relation provenance.
	SourceGraph ResultSource = "graph"
)

// QueryResult is one ranked entry in a retrieval answer.
type QueryResult struct {
	// Identifier is the function's composite identifier, the join key across
	// the vector index and the graph.
	Identifier string `json:"identifier"`

	// Score is cosine similarity for vector results. Graph results have no
	// score; check Source before interpreting it.
	Score  float64      `json:"score"`
	Source ResultSource `json:"source"`

	// Relations lists the structural reasons a graph result was included
	// (calls, called_by, same_file, shared_module).
	Relations []string `json:"relations,omitempty"`
}

// Validate checks result integrity.
func (qr *QueryResult) Validate() error {
	if qr.Identifier == "" {
		return errors.New("result identifier is required")
	}
	switch qr.Source {
	case SourceVector:
		if len(qr.Relations) > 0 {
			return errors.New("vector results carry no relation provenance")
		}
	case SourceGraph:
		if len(qr.Relations) == 0 {
			return errors.New("graph results require relation provenance")
		}
	default:
		return errors.New("invalid result source")
	}
	return nil
}
