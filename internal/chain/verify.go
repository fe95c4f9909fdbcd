package chain

import (
	"fmt"

	"herbtrace/internal/model"
)

// IssueKind classifies a chain verification finding.
type IssueKind string

const (
	IssueHashMismatch       IssueKind = "HASH_MISMATCH"
	IssueUnknownPredecessor IssueKind = "UNKNOWN_PREDECESSOR"
	IssueMultipleGenesis    IssueKind = "MULTIPLE_GENESIS"
	IssueFork               IssueKind = "FORK"
)

// Issue is one problem found while walking the chain.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	BatchID string    `json:"batchId"`
	Detail  string    `json:"detail"`
}

// Report is the result of VerifyChain.
type Report struct {
	Blocks int     `json:"blocks"`
	Head   string  `json:"head,omitempty"`
	Issues []Issue `json:"issues"`
}

// OK is true when the blocks form a single unbroken line.
func (r *Report) OK() bool {
	return len(r.Issues) == 0
}

// VerifyChain checks every block's digest and its link to a predecessor.
// Links are classified from the whole parent/child graph, so the order of
// batches only decides the order of issues and which tip is reported as head.
// The store supplies them in chain order.
func VerifyChain(batches []*model.HarvestBatch) (*Report, error) {
	report := &Report{Blocks: len(batches), Issues: []Issue{}}

	known := make(map[string]bool, len(batches))
	children := make(map[string][]string)
	for _, b := range batches {
		known[b.ID] = true
		if b.PreviousHash != GenesisHash {
			children[b.PreviousHash] = append(children[b.PreviousHash], b.ID)
		}
	}

	genesis := 0
	for _, b := range batches {
		ok, err := VerifyBatch(b)
		if err != nil {
			return nil, fmt.Errorf("verifying batch %s: %w", b.ID, err)
		}
		if !ok {
			report.Issues = append(report.Issues, Issue{
				Kind:    IssueHashMismatch,
				BatchID: b.ID,
				Detail:  "stored id does not match block content",
			})
		}

		switch {
		case b.PreviousHash == GenesisHash:
			genesis++
			if genesis > 1 {
				report.Issues = append(report.Issues, Issue{
					Kind:    IssueMultipleGenesis,
					BatchID: b.ID,
					Detail:  "second block linked to the genesis hash",
				})
			}
		case !known[b.PreviousHash]:
			report.Issues = append(report.Issues, Issue{
				Kind:    IssueUnknownPredecessor,
				BatchID: b.ID,
				Detail:  fmt.Sprintf("previous hash %s is not in the ledger", b.PreviousHash),
			})
		default:
			// reported once, at the second successor
			if siblings := children[b.PreviousHash]; len(siblings) > 1 && siblings[1] == b.ID {
				report.Issues = append(report.Issues, Issue{
					Kind:    IssueFork,
					BatchID: b.PreviousHash,
					Detail:  fmt.Sprintf("block has %d successors", len(siblings)),
				})
			}
		}

		if len(children[b.ID]) == 0 {
			report.Head = b.ID
		}
	}

	return report, nil
}
