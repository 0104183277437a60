package anchor

import "fmt"

// Step is one row of the audit trace: the two inputs of a combination
// and its output, labeled for display.
type Step struct {
	Level       int
	Left        string
	Right       string
	Output      string
	Description string
}

// Trace is the step-by-step replay of a proof verification. Callers that
// animate the verification walk Steps at their own pace; the trace is
// always computed in full in one pass.
type Trace struct {
	Steps        []Step
	ComputedRoot string
	ExpectedRoot string
	IsValid      bool
}

// TraceVerification performs the same canonical-order walk as
// VerifyProof and emits one step per sibling. The final IsValid is the
// audit verdict reported upward; acting on a failed audit (recording an
// alert) is the caller's concern.
func TraceVerification(p *Proof) *Trace {
	path := VerifyProof(p)

	steps := make([]Step, 0, len(path.Levels))
	for _, lvl := range path.Levels {
		steps = append(steps, Step{
			Level:       lvl.Level,
			Left:        lvl.Left,
			Right:       lvl.Right,
			Output:      lvl.Output,
			Description: fmt.Sprintf("Level %d: sha256(left || right)", lvl.Level),
		})
	}

	return &Trace{
		Steps:        steps,
		ComputedRoot: path.ComputedRoot,
		ExpectedRoot: path.MerkleRoot,
		IsValid:      path.IsValid,
	}
}
